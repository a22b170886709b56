// Package pipeline validates scraped records, resolves their brand identity
// and hands them to a Store. One Pipeline serves one crawl run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketinsight/internal/model"
	"marketinsight/internal/normalize"
	"marketinsight/internal/observability"
	"marketinsight/internal/resolver"
)

// Store persists catalog records. Add calls may queue; nothing is durable
// before Commit.
type Store interface {
	LoadBrands(ctx context.Context) ([]*model.Brand, error)
	// LoadPlatform returns nil, nil when the platform is not stored yet.
	LoadPlatform(ctx context.Context, title, url string) (*model.Platform, error)
	LoadProductIDs(ctx context.Context) (map[string]struct{}, error)

	AddBrand(ctx context.Context, b *model.Brand) error
	AddPlatform(ctx context.Context, p *model.Platform) error
	AddProduct(ctx context.Context, p *model.Product) error
	AddReview(ctx context.Context, r model.Review) error
	AddQuestion(ctx context.Context, q model.Question) error
	RecordRun(ctx context.Context, run model.Run) error

	// Discard drops everything queued since the last Commit.
	Discard()
	Commit(ctx context.Context) error
	Close() error
}

type State int

const (
	StateInitializing State = iota
	StateReady
	StateDraining
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

type Option func(*Pipeline)

// WithAliases replaces the brand alias table.
func WithAliases(aliases map[string]string) Option {
	return func(p *Pipeline) { p.aliases = aliases }
}

// WithInferrer enables brand inference for titles no known brand prefixes.
func WithInferrer(inf resolver.Inferrer) Option {
	return func(p *Pipeline) { p.inferrer = inf }
}

func WithRunID(id string) Option {
	return func(p *Pipeline) { p.runID = id }
}

type Pipeline struct {
	store    Store
	rules    normalize.Rules
	platform *model.Platform
	aliases  map[string]string
	inferrer resolver.Inferrer
	runID    string

	// mu guards state; Submit holds it shared only while registering
	// with inflight so Drain can wait without racing new work.
	mu       sync.RWMutex
	state    State
	opened   bool
	inflight sync.WaitGroup

	brands *resolver.BrandResolver

	seenMu sync.Mutex
	seen   map[string]struct{}

	statsMu    sync.Mutex
	startedAt  time.Time
	accepted   int
	unresolved int
	drops      []Drop
	fatal      error
}

func New(store Store, rules normalize.Rules, platform model.Platform, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:    store,
		rules:    rules,
		platform: &platform,
		aliases:  resolver.DefaultAliases,
		runID:    uuid.NewString(),
		seen:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) RunID() string { return p.runID }

func (p *Pipeline) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Open loads the persisted brands, platform and product ids and moves the
// pipeline to Ready.
func (p *Pipeline) Open(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateInitializing {
		return ErrNotAccepting
	}
	if err := p.load(ctx); err != nil {
		p.state = StateFailed
		p.setFatal(err)
		return err
	}
	p.state = StateReady
	p.opened = true

	p.statsMu.Lock()
	p.startedAt = time.Now()
	p.statsMu.Unlock()

	zap.L().Info("pipeline: ready",
		zap.String("run_id", p.runID),
		zap.String("platform", p.platform.Title),
		zap.Int("known_brands", p.brands.Len()),
		zap.Int("known_products", len(p.seen)))
	return nil
}

func (p *Pipeline) load(ctx context.Context) error {
	known, err := p.store.LoadBrands(ctx)
	if err != nil {
		return &PersistenceError{Op: "load brands", Err: err}
	}

	platform, err := p.store.LoadPlatform(ctx, p.platform.Title, p.platform.URL)
	if err != nil {
		return &PersistenceError{Op: "load platform", Err: err}
	}
	if platform == nil {
		if err := p.store.AddPlatform(ctx, p.platform); err != nil {
			return &PersistenceError{Op: "add platform", Err: err}
		}
	} else {
		p.platform = platform
	}

	ids, err := p.store.LoadProductIDs(ctx)
	if err != nil {
		return &PersistenceError{Op: "load product ids", Err: err}
	}
	for id := range ids {
		p.seen[id] = struct{}{}
	}

	p.brands = resolver.New(p.aliases, known)
	return nil
}

// Submit validates item and forwards it to the store. Per-item failures
// are returned and recorded as drops; the pipeline keeps accepting. A
// failure IsFatal reports on moves the pipeline to Failed.
func (p *Pipeline) Submit(ctx context.Context, item model.RawItem) error {
	p.mu.RLock()
	if p.state != StateReady {
		p.mu.RUnlock()
		return ErrNotAccepting
	}
	p.inflight.Add(1)
	p.mu.RUnlock()
	defer p.inflight.Done()

	err := p.route(ctx, item)
	switch {
	case err == nil:
	case IsFatal(err):
		p.fail(err)
	default:
		p.drop(item, err)
	}
	return err
}

func (p *Pipeline) route(ctx context.Context, item model.RawItem) error {
	switch it := item.(type) {
	case model.RawProduct:
		return p.processProduct(ctx, it)
	case model.RawBrand:
		return p.processBrand(ctx, it)
	case model.RawReviews:
		return p.processReviews(ctx, it)
	case model.RawQuestions:
		return p.processQuestions(ctx, it)
	}
	return &UnroutableItemError{Item: item}
}

// markSeen reserves id for this run. A product dropped later keeps its id
// reserved so a second copy is still reported as a duplicate.
func (p *Pipeline) markSeen(id string) error {
	p.seenMu.Lock()
	defer p.seenMu.Unlock()
	if _, ok := p.seen[id]; ok {
		return &DuplicateProductError{ID: id}
	}
	p.seen[id] = struct{}{}
	return nil
}

func (p *Pipeline) processProduct(ctx context.Context, raw model.RawProduct) error {
	id := p.rules.ID(raw.ID)
	if err := p.markSeen(id); err != nil {
		return err
	}

	price, err := normalize.Price(raw.Price)
	if err != nil {
		return err
	}
	regularRaw := raw.PriceRegular
	if strings.TrimSpace(regularRaw) == "" {
		regularRaw = raw.Price
	}
	regular, err := normalize.Price(regularRaw)
	if err != nil {
		return err
	}
	status, err := p.rules.Status(id, raw.Status)
	if err != nil {
		return err
	}

	brand, err := p.brandFor(ctx, raw)
	if err != nil {
		return err
	}

	product := &model.Product{
		ID:             id,
		Title:          strings.TrimSpace(raw.Title),
		Category:       strings.TrimSpace(raw.Category),
		Subcategory1:   strings.TrimSpace(raw.Subcategory1),
		Subcategory2:   strings.TrimSpace(raw.Subcategory2),
		PriceRegular:   regular,
		Price:          price,
		Status:         status,
		Brand:          brand,
		Platform:       p.platform,
		Specifications: raw.Specifications,
		URL:            normalize.URL(raw.URL),
	}
	if err := p.store.AddProduct(ctx, product); err != nil {
		return &PersistenceError{Op: "add product", Err: err}
	}

	p.statsMu.Lock()
	p.accepted++
	if brand == nil {
		p.unresolved++
	}
	p.statsMu.Unlock()
	observability.ItemsAccepted.WithLabelValues("product").Inc()
	return nil
}

// brandFor resolves the brand of raw: the explicit field first, then the
// longest known brand prefixing the title, then the inferrer.
func (p *Pipeline) brandFor(ctx context.Context, raw model.RawProduct) (*model.Brand, error) {
	if strings.TrimSpace(raw.Brand) != "" {
		b, created := p.brands.Resolve(raw.Brand)
		if created {
			if err := p.store.AddBrand(ctx, b); err != nil {
				return nil, &PersistenceError{Op: "add brand", Err: err}
			}
			observability.BrandsCreated.Inc()
		}
		return b, nil
	}

	if b := p.brands.MatchByPrefix(raw.Title); b != nil {
		return b, nil
	}
	if p.inferrer != nil {
		b, err := p.brands.Infer(ctx, p.inferrer, raw.Title)
		if err != nil {
			zap.L().Warn("pipeline: brand inference failed", zap.String("title", raw.Title), zap.Error(err))
		} else if b != nil {
			return b, nil
		}
	}

	observability.BrandsUnresolved.Inc()
	zap.L().Info("pipeline: brand unresolved",
		zap.String("id", p.rules.ID(raw.ID)),
		zap.String("title", raw.Title))
	return nil, nil
}

func (p *Pipeline) processBrand(ctx context.Context, raw model.RawBrand) error {
	if strings.TrimSpace(raw.Name) == "" {
		return ErrEmptyBrand
	}
	if p.brands.Lookup(raw.Name) != nil {
		return &DuplicateBrandError{Title: raw.Name}
	}
	b, created := p.brands.Resolve(raw.Name)
	if !created {
		// lost the race to a concurrent submission of the same brand
		return &DuplicateBrandError{Title: raw.Name}
	}
	if err := p.store.AddBrand(ctx, b); err != nil {
		return &PersistenceError{Op: "add brand", Err: err}
	}
	observability.BrandsCreated.Inc()
	observability.ItemsAccepted.WithLabelValues("brand").Inc()
	return nil
}

func (p *Pipeline) processReviews(ctx context.Context, c model.RawReviews) error {
	id := p.rules.ID(c.ProductID)
	for _, r := range c.Reviews {
		r.ProductID = id
		r.Rating = min(max(r.Rating, 0), 5)
		if err := p.store.AddReview(ctx, r); err != nil {
			return &PersistenceError{Op: "add review", Err: err}
		}
		observability.ItemsAccepted.WithLabelValues("review").Inc()
	}
	return nil
}

func (p *Pipeline) processQuestions(ctx context.Context, c model.RawQuestions) error {
	id := p.rules.ID(c.ProductID)
	for _, q := range c.Questions {
		q.ProductID = id
		if err := p.store.AddQuestion(ctx, q); err != nil {
			return &PersistenceError{Op: "add question", Err: err}
		}
		observability.ItemsAccepted.WithLabelValues("question").Inc()
	}
	return nil
}

func (p *Pipeline) drop(item model.RawItem, err error) {
	d := Drop{Reason: reason(err), Identifier: p.identify(item), Err: err}

	p.statsMu.Lock()
	p.drops = append(p.drops, d)
	p.statsMu.Unlock()

	observability.ItemsDropped.WithLabelValues(d.Reason).Inc()
	zap.L().Warn("pipeline: dropped",
		zap.String("reason", d.Reason),
		zap.String("id", d.Identifier),
		zap.Any("item", item),
		zap.Error(err))
}

func (p *Pipeline) identify(item model.RawItem) string {
	switch it := item.(type) {
	case model.RawProduct:
		return p.rules.ID(it.ID)
	case model.RawBrand:
		return it.Name
	case model.RawReviews:
		return p.rules.ID(it.ProductID)
	case model.RawQuestions:
		return p.rules.ID(it.ProductID)
	}
	return ""
}

func (p *Pipeline) fail(err error) {
	p.mu.Lock()
	if p.state == StateReady || p.state == StateDraining {
		p.state = StateFailed
	}
	p.mu.Unlock()

	p.setFatal(err)
	zap.L().Error("pipeline: fatal error, run failed", zap.String("run_id", p.runID), zap.Error(err))
}

// Abort fails the run with an error raised outside the pipeline, such as a
// crawl-side invariant violation. Close then keeps only the run record.
func (p *Pipeline) Abort(err error) {
	if err == nil {
		return
	}
	p.fail(err)
}

func (p *Pipeline) setFatal(err error) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	if p.fatal == nil {
		p.fatal = err
	}
}

// Drain stops accepting items and waits for in-flight submissions.
func (p *Pipeline) Drain() {
	p.mu.Lock()
	if p.state == StateReady {
		p.state = StateDraining
	}
	p.mu.Unlock()
	p.inflight.Wait()
}

// Close drains, commits the queued records with the run summary and closes
// the store. A failed run commits only its run record, carrying the fatal
// error. Calling Close again returns the final report.
func (p *Pipeline) Close(ctx context.Context) (Report, error) {
	p.Drain()

	p.mu.Lock()
	prev, opened := p.state, p.opened
	p.state = StateClosed
	p.mu.Unlock()

	if prev == StateClosed {
		return p.Snapshot(), nil
	}

	var errs []error
	switch {
	case prev == StateDraining:
		if err := p.commit(ctx); err != nil {
			errs = append(errs, err)
		}
	case prev == StateFailed && opened:
		// Only the run record of a failed run is kept.
		p.store.Discard()
		if err := p.commit(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := p.store.Close(); err != nil {
		errs = append(errs, &PersistenceError{Op: "close store", Err: err})
	}
	err := errors.Join(errs...)
	if err != nil {
		p.setFatal(err)
	}

	report := p.Snapshot()
	zap.S().Infow(fmt.Sprintf("pipeline: parsed %d products", report.Accepted),
		"run_id", report.RunID,
		"dropped", report.Dropped,
		"unresolved", report.Unresolved,
		"fatal", report.Fatal)
	return report, err
}

func (p *Pipeline) commit(ctx context.Context) error {
	if err := p.store.RecordRun(ctx, p.run()); err != nil {
		return &PersistenceError{Op: "record run", Err: err}
	}
	if err := p.store.Commit(ctx); err != nil {
		return &PersistenceError{Op: "commit", Err: err}
	}
	return nil
}

func (p *Pipeline) run() model.Run {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	run := model.Run{
		ID:         p.runID,
		Platform:   p.platform.Title,
		StartedAt:  p.startedAt,
		FinishedAt: time.Now(),
		Accepted:   p.accepted,
		Dropped:    len(p.drops),
		Unresolved: p.unresolved,
	}
	if p.fatal != nil {
		run.Fatal = p.fatal.Error()
	}
	return run
}

package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"marketinsight/internal/model"
)

const (
	pgInsertPlatform = `INSERT INTO platforms (title, url) VALUES ($1, $2)
		ON CONFLICT (title, url) DO NOTHING`
	pgInsertBrand = `INSERT INTO brands (title) VALUES ($1)
		ON CONFLICT (title) DO NOTHING`
	pgInsertProduct = `INSERT INTO products
		(id, title, category, subcategory1, subcategory2, price_regular, price, url, status, brand_id, platform_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9,
			(SELECT id FROM brands WHERE title = $10),
			(SELECT id FROM platforms WHERE title = $11 AND url = $12))
		ON CONFLICT (id) DO NOTHING`
	pgInsertRun = `INSERT INTO ingest_runs
		(id, platform, started_at, finished_at, accepted, dropped, unresolved, fatal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`
)

// PostgresStore writes the catalog through a pgx pool. Rows with natural
// keys go through one batch; child rows are bulk loaded with COPY.
type PostgresStore struct {
	Pool *pgxpool.Pool
	queue
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{Pool: pool}
}

func (s *PostgresStore) LoadBrands(ctx context.Context) ([]*model.Brand, error) {
	rows, err := s.Pool.Query(ctx, `SELECT title FROM brands ORDER BY title`)
	if err != nil {
		return nil, eris.Wrap(err, "repository: load brands")
	}
	titles, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, eris.Wrap(err, "repository: scan brands")
	}
	brands := make([]*model.Brand, 0, len(titles))
	for _, t := range titles {
		brands = append(brands, &model.Brand{Title: t})
	}
	return brands, nil
}

func (s *PostgresStore) LoadPlatform(ctx context.Context, title, url string) (*model.Platform, error) {
	var p model.Platform
	err := s.Pool.QueryRow(ctx,
		`SELECT title, url FROM platforms WHERE title = $1 AND url = $2`, title, url,
	).Scan(&p.Title, &p.URL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "repository: load platform")
	}
	return &p, nil
}

func (s *PostgresStore) LoadProductIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id FROM products`)
	if err != nil {
		return nil, eris.Wrap(err, "repository: load product ids")
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, eris.Wrap(err, "repository: scan product ids")
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

// Commit writes everything queued since the last Commit in one transaction.
func (s *PostgresStore) Commit(ctx context.Context) error {
	b, err := s.take()
	if err != nil {
		return err
	}
	if b.empty() {
		return nil
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "repository: begin")
	}
	defer tx.Rollback(ctx)

	if err := sendBatch(ctx, tx, keyedRows(&b)); err != nil {
		return err
	}

	var specs, reviews, questions [][]any
	for _, p := range b.products {
		for _, sp := range p.Specifications {
			specs = append(specs, []any{p.ID, sp.Key, sp.Value})
		}
	}
	for _, r := range b.reviews {
		reviews = append(reviews, []any{r.ProductID, r.Rating, r.Username, r.Comment})
	}
	for _, q := range b.questions {
		questions = append(questions, []any{q.ProductID, q.Username, q.Question, q.Answer})
	}
	copies := []struct {
		table string
		cols  []string
		rows  [][]any
	}{
		{"specs", []string{"product_id", "key", "value"}, specs},
		{"reviews", []string{"product_id", "rating", "username", "comment"}, reviews},
		{"questions", []string{"product_id", "username", "question", "answer"}, questions},
	}
	for _, c := range copies {
		if len(c.rows) == 0 {
			continue
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{c.table}, c.cols, pgx.CopyFromRows(c.rows)); err != nil {
			return eris.Wrapf(err, "repository: copy %s", c.table)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "repository: commit")
	}
	zap.L().Info("repository: committed",
		zap.Int("products", len(b.products)),
		zap.Int("brands", len(b.brands)),
		zap.Int("specs", len(specs)),
		zap.Int("reviews", len(reviews)),
		zap.Int("questions", len(questions)))
	return nil
}

// keyedRows queues parents before children so the sub-selects see them.
func keyedRows(b *batch) *pgx.Batch {
	pb := &pgx.Batch{}
	for _, p := range b.platforms {
		pb.Queue(pgInsertPlatform, p.Title, p.URL)
	}
	for _, br := range b.brands {
		pb.Queue(pgInsertBrand, br.Title)
	}
	for _, p := range b.products {
		platTitle, platURL := platformOf(p)
		pb.Queue(pgInsertProduct,
			p.ID, p.Title, p.Category, p.Subcategory1, p.Subcategory2,
			p.PriceRegular, p.Price, p.URL, int(p.Status),
			brandTitle(p), platTitle, platURL)
	}
	for _, r := range b.runs {
		pb.Queue(pgInsertRun,
			r.ID, r.Platform, r.StartedAt, r.FinishedAt,
			r.Accepted, r.Dropped, r.Unresolved, r.Fatal)
	}
	return pb
}

func sendBatch(ctx context.Context, tx pgx.Tx, pb *pgx.Batch) error {
	if pb.Len() == 0 {
		return nil
	}
	br := tx.SendBatch(ctx, pb)
	for i := 0; i < pb.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return eris.Wrapf(err, "repository: batch statement %d", i)
		}
	}
	if err := br.Close(); err != nil {
		return eris.Wrap(err, "repository: close batch")
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.close()
	s.Pool.Close()
	return nil
}

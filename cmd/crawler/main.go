package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"marketinsight/internal/config"
	"marketinsight/internal/crawler"
	"marketinsight/internal/db"
	"marketinsight/internal/logging"
	"marketinsight/internal/model"
	"marketinsight/internal/normalize"
	"marketinsight/internal/observability"
	"marketinsight/internal/pipeline"
	"marketinsight/internal/repository"
	"marketinsight/internal/resolver"
)

// go run ./cmd/crawler -platform=startech
// go run ./cmd/crawler -platform=startech -mode=incremental -id-start=12000 -id-limit=13020
// go run ./cmd/crawler -platform=ryanscomputers
func main() {
	platform := flag.String("platform", "startech", "site to crawl: 'startech' or 'ryanscomputers'")
	mode := flag.String("mode", "full", "'full' or 'incremental' (startech only: crawl a product id range)")
	idStart := flag.Int("id-start", 0, "first product id in incremental mode")
	idLimit := flag.Int("id-limit", 13020, "product id upper bound (exclusive) in incremental mode")
	baseURL := flag.String("base-url", "", "override the site base URL")
	runID := flag.String("run-id", "", "join an existing run; processes sharing a run id share the redis visit set")
	resetVisits := flag.Bool("reset-visits", false, "clear the run's redis visit set before crawling")
	flag.Parse()

	cfg := config.Load()
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	defer logging.Install(logger)()

	opts := runOptions{
		platform: *platform, mode: *mode, idStart: *idStart, idLimit: *idLimit,
		baseURL: *baseURL, runID: *runID, resetVisits: *resetVisits,
	}
	if err := run(cfg, opts); err != nil {
		zap.L().Error("crawler: run failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

type runOptions struct {
	platform, mode   string
	idStart, idLimit int
	baseURL, runID   string
	resetVisits      bool
}

func run(cfg *config.Config, o runOptions) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rules, ok := normalize.RulesFor(o.platform)
	if !ok {
		return eris.Errorf("crawler: unknown platform %q", o.platform)
	}
	baseURL := o.baseURL
	if baseURL == "" {
		baseURL = rules.BaseURL
	}

	site, err := newSite(rules, baseURL, o.mode, o.idStart, o.idLimit)
	if err != nil {
		return err
	}

	aliases := resolver.DefaultAliases
	if cfg.BrandAliasesFile != "" {
		if aliases, err = resolver.LoadAliases(cfg.BrandAliasesFile); err != nil {
			return err
		}
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	opts := []pipeline.Option{pipeline.WithAliases(aliases)}
	if o.runID != "" {
		opts = append(opts, pipeline.WithRunID(o.runID))
	}
	if cfg.OpenAIKey != "" {
		opts = append(opts, pipeline.WithInferrer(resolver.NewOpenAIInferrer(openai.NewClient(cfg.OpenAIKey))))
	}

	p := pipeline.New(store, rules, platformFor(rules, baseURL), opts...)
	if err := p.Open(ctx); err != nil {
		_ = store.Close()
		return err
	}

	observability.Start(cfg.MetricsAddr, func() any {
		r := p.Snapshot()
		r.Drops = nil
		return r
	})

	visits, err := openVisitCache(ctx, cfg, p.RunID(), o.resetVisits)
	if err != nil {
		_, _ = p.Close(context.Background())
		return err
	}

	fetcher := crawler.NewFetcher(crawler.FetcherOptions{
		Timeout:    cfg.RequestTimeout,
		RPS:        cfg.RequestRPS,
		UserAgent:  cfg.UserAgent,
		MaxRetries: cfg.MaxRetries,
	})
	// Per-item drops are already recorded by the pipeline; only fatal
	// errors stop the crawl.
	sink := func(ctx context.Context, item model.RawItem) error {
		if err := p.Submit(ctx, item); pipeline.IsFatal(err) {
			return err
		}
		return nil
	}
	sched := crawler.NewScheduler(fetcher, visits, sink, crawler.SchedulerOptions{
		Concurrency: cfg.Concurrency,
		RetryFailed: cfg.RetryFailedVisits,
	})

	zap.L().Info("crawler: starting",
		zap.String("platform", rules.Platform),
		zap.String("base_url", baseURL),
		zap.String("mode", o.mode),
		zap.String("run_id", p.RunID()))

	crawlErr := crawler.Crawl(ctx, sched, site)
	if crawlErr != nil {
		zap.L().Error("crawler: crawl aborted", zap.Error(crawlErr))
		// An interrupted crawl keeps what it gathered; any other error
		// fails the run.
		if !errors.Is(crawlErr, context.Canceled) {
			p.Abort(crawlErr)
		}
	}

	report, closeErr := p.Close(context.Background())
	stats := sched.Stats()
	zap.L().Info("crawler: finished",
		zap.String("run_id", report.RunID),
		zap.Int64("fetched", stats.Fetched),
		zap.Int64("failed", stats.Failed),
		zap.Int64("skipped", stats.Skipped),
		zap.Int("accepted", report.Accepted),
		zap.Int("dropped", report.Dropped),
		zap.Int("unresolved", report.Unresolved))

	if crawlErr != nil {
		return crawlErr
	}
	return closeErr
}

func newSite(rules normalize.Rules, baseURL, mode string, idStart, idLimit int) (crawler.Site, error) {
	switch rules.Platform {
	case normalize.StarTechRules.Platform:
		if mode == "incremental" {
			s, err := crawler.NewStarTechRange(baseURL, idStart, idLimit)
			if err != nil {
				return nil, err
			}
			return s, nil
		}
		return crawler.NewStarTech(baseURL), nil
	case normalize.RyansRules.Platform:
		if mode == "incremental" {
			zap.L().Warn("crawler: incremental mode is not supported for ryanscomputers, running a full crawl")
		}
		return crawler.NewRyans(baseURL), nil
	}
	return nil, eris.Errorf("crawler: no site for platform %q", rules.Platform)
}

// platformFor keys the platform row by the host actually crawled, so a run
// against an overridden base URL does not land on the canonical site's row.
func platformFor(rules normalize.Rules, baseURL string) model.Platform {
	return model.Platform{Title: rules.Platform, URL: baseURL}
}

func openStore(ctx context.Context, cfg *config.Config) (pipeline.Store, error) {
	switch cfg.DBDriver {
	case db.DriverPostgres:
		conn, err := db.Open(db.DriverPostgres, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		err = db.Migrate(ctx, conn, db.DriverPostgres)
		conn.Close()
		if err != nil {
			return nil, err
		}
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.Concurrency)
		if err != nil {
			return nil, err
		}
		return repository.NewPostgresStore(pool), nil
	default:
		conn, err := db.Open(db.DriverSQLite, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx, conn, db.DriverSQLite); err != nil {
			conn.Close()
			return nil, err
		}
		return repository.NewSQLiteStore(conn), nil
	}
}

func openVisitCache(ctx context.Context, cfg *config.Config, runID string, reset bool) (crawler.VisitCache, error) {
	if cfg.VisitCache != "redis" {
		return crawler.NewMemoryVisitCache(), nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, eris.Wrap(err, "crawler: redis ping")
	}
	c := crawler.NewRedisVisitCache(client, cfg.VisitCacheKey, runID, cfg.VisitCacheTTL)
	if reset {
		if err := c.Reset(ctx); err != nil {
			return nil, err
		}
	}
	return c, nil
}

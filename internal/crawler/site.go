package crawler

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
)

// Site is the site-specific part of a crawl.
type Site interface {
	Name() string
	// BrandIndex returns the page listing brand pages. Its Parse must return
	// one follow request per brand page and no items. nil means the site has
	// no discovery phase.
	BrandIndex() *Request
	// Seeds are the main-phase entry points.
	Seeds() []Request
}

// Crawl runs site in two phases. Brand pages found by the index are fetched
// concurrently; the main phase is scheduled only once every one of them has
// finished, so no product page is parsed before all brands are known.
func Crawl(ctx context.Context, s *Scheduler, site Site) error {
	log := zap.L().With(zap.String("site", site.Name()))

	startMain := func() {
		log.Info("crawler: starting main phase")
		for _, seed := range site.Seeds() {
			s.Enqueue(seed)
		}
	}

	index := site.BrandIndex()
	if index == nil {
		return s.Run(ctx, site.Seeds()...)
	}

	// discovering is set once the index parsed; the barrier owns the
	// main-phase start from then on.
	var discovering atomic.Bool
	parse := index.Parse
	index.Parse = func(ctx context.Context, resp *Response) (Result, error) {
		res, err := parse(ctx, resp)
		if err != nil {
			return res, err
		}
		pages := res.Follow
		log.Info("crawler: brand discovery started", zap.Int("brand_pages", len(pages)))

		b, err := NewBarrier(len(pages), func() {
			log.Info("crawler: brand discovery complete")
			startMain()
		})
		if err != nil {
			return Result{}, err
		}
		discovering.Store(true)

		for i := range pages {
			done := pages[i].Done
			pages[i].Done = func() error {
				if done != nil {
					if err := done(); err != nil {
						return err
					}
				}
				return b.Arrive()
			}
		}
		return res, nil
	}

	indexDone := index.Done
	index.Done = func() error {
		if indexDone != nil {
			if err := indexDone(); err != nil {
				return err
			}
		}
		if !discovering.Load() {
			log.Warn("crawler: brand index unavailable, skipping discovery")
			startMain()
		}
		return nil
	}

	return s.Run(ctx, *index)
}

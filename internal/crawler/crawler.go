// Package crawler drives the page fetches of a catalog crawl: it dedups
// resources, paces requests, sequences the brand discovery phase before the
// product crawl and hands parsed records to a sink.
package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Response is a fetched page.
type Response struct {
	URL        *url.URL
	StatusCode int
	Body       []byte

	doc *goquery.Document
}

// Document parses the body once and caches the result.
func (r *Response) Document() (*goquery.Document, error) {
	if r.doc != nil {
		return r.doc, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
	if err != nil {
		return nil, eris.Wrapf(err, "crawler: parse %s", r.URL)
	}
	r.doc = doc
	return doc, nil
}

// Resolve makes ref absolute against the page URL.
func (r *Response) Resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return r.URL.ResolveReference(u).String(), nil
}

// Doer fetches one page.
type Doer interface {
	Fetch(ctx context.Context, rawURL string) (*Response, error)
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d for %s", e.Code, e.URL)
}

func (e *StatusError) retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

type FetcherOptions struct {
	Timeout    time.Duration
	RPS        float64 // <= 0 disables pacing
	UserAgent  string
	MaxRetries int
	BaseDelay  time.Duration
}

// Fetcher is an HTTP client with request pacing and exponential back-off.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	attempts  int
	baseDelay time.Duration
}

func NewFetcher(opts FetcherOptions) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0"
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), 1)
	}
	return &Fetcher{
		client:    &http.Client{Timeout: opts.Timeout},
		limiter:   limiter,
		userAgent: opts.UserAgent,
		attempts:  opts.MaxRetries + 1,
		baseDelay: opts.BaseDelay,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	var lastErr error
	delay := f.baseDelay

	for attempt := 1; attempt <= f.attempts; attempt++ {
		resp, err := f.once(ctx, rawURL)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var se *StatusError
		if errors.As(err, &se) && !se.retryable() {
			break
		}
		if ctx.Err() != nil || attempt == f.attempts {
			break
		}
		zap.L().Warn("crawler: fetch failed, retrying",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return nil, lastErr
}

func (f *Fetcher) once(ctx context.Context, rawURL string) (*Response, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "crawler: build request %s", rawURL)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "crawler: fetch %s", rawURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "crawler: read %s", rawURL)
	}
	return &Response{URL: resp.Request.URL, StatusCode: resp.StatusCode, Body: b}, nil
}

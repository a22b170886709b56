// Package repository holds the catalog stores. Writes are queued in memory
// during a run and flushed in a single transaction by Commit.
package repository

import (
	"context"
	"errors"
	"sync"

	"marketinsight/internal/model"
)

var ErrClosed = errors.New("repository: store closed")

type batch struct {
	platforms []*model.Platform
	brands    []*model.Brand
	products  []*model.Product
	reviews   []model.Review
	questions []model.Question
	runs      []model.Run
}

func (b *batch) empty() bool {
	return len(b.platforms)+len(b.brands)+len(b.products)+
		len(b.reviews)+len(b.questions)+len(b.runs) == 0
}

// queue is the pending-write buffer both stores embed.
type queue struct {
	mu      sync.Mutex
	pending batch
	closed  bool
}

func (q *queue) push(fn func(b *batch)) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	fn(&q.pending)
	return nil
}

// take hands the pending writes to the caller and starts a new batch.
func (q *queue) take() (batch, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return batch{}, ErrClosed
	}
	b := q.pending
	q.pending = batch{}
	return b, nil
}

func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.pending = batch{}
}

func (q *queue) Discard() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = batch{}
}

func (q *queue) AddBrand(_ context.Context, b *model.Brand) error {
	return q.push(func(pb *batch) { pb.brands = append(pb.brands, b) })
}

func (q *queue) AddPlatform(_ context.Context, p *model.Platform) error {
	return q.push(func(pb *batch) { pb.platforms = append(pb.platforms, p) })
}

func (q *queue) AddProduct(_ context.Context, p *model.Product) error {
	return q.push(func(pb *batch) { pb.products = append(pb.products, p) })
}

func (q *queue) AddReview(_ context.Context, r model.Review) error {
	return q.push(func(pb *batch) { pb.reviews = append(pb.reviews, r) })
}

func (q *queue) AddQuestion(_ context.Context, qu model.Question) error {
	return q.push(func(pb *batch) { pb.questions = append(pb.questions, qu) })
}

func (q *queue) RecordRun(_ context.Context, run model.Run) error {
	return q.push(func(pb *batch) { pb.runs = append(pb.runs, run) })
}

// brandTitle is the brand sub-select argument; nil stores a NULL brand_id.
func brandTitle(p *model.Product) any {
	if p.Brand == nil {
		return nil
	}
	return p.Brand.Title
}

func platformOf(p *model.Product) (title, url string) {
	if p.Platform == nil {
		return "", ""
	}
	return p.Platform.Title, p.Platform.URL
}

package pipeline

import (
	"errors"
	"fmt"

	"marketinsight/internal/crawler"
	"marketinsight/internal/normalize"
)

var (
	// ErrNotAccepting is returned by Submit outside the Ready state.
	ErrNotAccepting = errors.New("pipeline: not accepting items")
	ErrEmptyBrand   = errors.New("pipeline: empty brand name")
)

// DuplicateProductError is returned for a product id already stored or
// already seen during the run.
type DuplicateProductError struct {
	ID string
}

func (e *DuplicateProductError) Error() string {
	return fmt.Sprintf("pipeline: duplicate product %s", e.ID)
}

// DuplicateBrandError is returned when discovery emits a brand whose
// identity already exists.
type DuplicateBrandError struct {
	Title string
}

func (e *DuplicateBrandError) Error() string {
	return fmt.Sprintf("pipeline: duplicate brand %q", e.Title)
}

type UnroutableItemError struct {
	Item any
}

func (e *UnroutableItemError) Error() string {
	return fmt.Sprintf("pipeline: cannot route item of type %T", e.Item)
}

// PersistenceError wraps a store failure. It ends the run.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("pipeline: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsFatal reports whether err must stop the crawl. Everything else is a
// per-item drop.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var pe *PersistenceError
	var be *crawler.BarrierMisuseError
	return errors.As(err, &pe) || errors.As(err, &be) || errors.Is(err, ErrNotAccepting)
}

// reason is the drop label used in reports, logs and metrics.
func reason(err error) string {
	switch {
	case errors.As(err, new(*DuplicateProductError)):
		return "duplicate_product"
	case errors.As(err, new(*DuplicateBrandError)):
		return "duplicate_brand"
	case errors.As(err, new(*normalize.UnrecognizedStatusError)):
		return "unrecognized_status"
	case errors.As(err, new(*normalize.MalformedPriceError)):
		return "malformed_price"
	case errors.As(err, new(*UnroutableItemError)):
		return "unroutable"
	case errors.Is(err, ErrEmptyBrand):
		return "empty_brand"
	}
	return "other"
}

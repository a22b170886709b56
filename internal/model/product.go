package model

import "time"

// Status is the availability of a product as persisted. The numeric values
// are stored in the products.status column.
type Status int

const (
	StatusDiscontinued Status = -1
	StatusOutOfStock   Status = 0
	StatusAvailable    Status = 1
	StatusPreOrder     Status = 2
	StatusUpComing     Status = 3
	StatusCallForPrice Status = 4
)

func (s Status) String() string {
	switch s {
	case StatusDiscontinued:
		return "Discontinued"
	case StatusOutOfStock:
		return "OutOfStock"
	case StatusAvailable:
		return "Available"
	case StatusPreOrder:
		return "PreOrder"
	case StatusUpComing:
		return "UpComing"
	case StatusCallForPrice:
		return "CallForPrice"
	}
	return "Unknown"
}

// Platform is the site a crawl run reads from.
type Platform struct {
	Title string
	URL   string
}

// Brand is a canonical brand identity. Key is the case-folded,
// alias-corrected title and is unique per run.
type Brand struct {
	Key   string
	Title string
}

type Specification struct {
	Key   string
	Value string
}

// Product is a fully normalized catalog record ready for persistence.
type Product struct {
	ID             string
	Title          string
	Category       string
	Subcategory1   string
	Subcategory2   string
	PriceRegular   int
	Price          int
	Status         Status
	Brand          *Brand // nil when no brand could be resolved
	Platform       *Platform
	Specifications []Specification
	URL            string
}

type Review struct {
	ProductID string
	Rating    int
	Username  string
	Comment   string
}

type Question struct {
	ProductID string
	Username  string
	Question  string
	Answer    string
}

// Run summarizes one ingestion run.
type Run struct {
	ID         string
	Platform   string
	StartedAt  time.Time
	FinishedAt time.Time
	Accepted   int
	Dropped    int
	Unresolved int
	Fatal      string
}

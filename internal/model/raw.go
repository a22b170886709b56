package model

// RawItem is an unvalidated record produced by a page parser. Only the
// variants declared in this package satisfy it.
type RawItem interface {
	rawItem()
}

// RawProduct holds the strings scraped from a product page.
type RawProduct struct {
	ID             string
	Title          string
	Category       string
	Subcategory1   string
	Subcategory2   string
	Brand          string
	PriceRegular   string
	Price          string
	Status         string
	URL            string
	Specifications []Specification
}

// RawBrand is emitted by the brand discovery phase.
type RawBrand struct {
	Name string
}

// RawReviews is one page of reviews for a single product. ProductID is the
// site's id, without the platform prefix.
type RawReviews struct {
	ProductID string
	Reviews   []Review
}

// RawQuestions is one page of questions for a single product.
type RawQuestions struct {
	ProductID string
	Questions []Question
}

func (RawProduct) rawItem()   {}
func (RawBrand) rawItem()     {}
func (RawReviews) rawItem()   {}
func (RawQuestions) rawItem() {}

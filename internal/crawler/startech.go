package crawler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"marketinsight/internal/model"
	"marketinsight/internal/normalize"
)

// StarTech crawls www.startech.com.bd. Brands are discovered from the brand
// index first; products come from the category menu and the sitemap, or
// from a product id range in incremental mode.
type StarTech struct {
	BaseURL string

	Incremental bool
	IDStart     int
	IDLimit     int
}

func NewStarTech(baseURL string) *StarTech {
	return &StarTech{BaseURL: strings.TrimRight(baseURL, "/"), IDLimit: 13020}
}

// NewStarTechRange returns a StarTech site in incremental mode over the
// product ids [start, limit).
func NewStarTechRange(baseURL string, start, limit int) (*StarTech, error) {
	if start < 0 || start >= limit {
		return nil, eris.Errorf("startech: empty product id range [%d, %d)", start, limit)
	}
	s := NewStarTech(baseURL)
	s.Incremental = true
	s.IDStart, s.IDLimit = start, limit
	return s, nil
}

func (s *StarTech) Name() string { return normalize.StarTechRules.Platform }

func (s *StarTech) BrandIndex() *Request {
	return &Request{URL: s.BaseURL + "/brands", Parse: s.parseBrandIndex}
}

func (s *StarTech) Seeds() []Request {
	if !s.Incremental {
		return []Request{{URL: s.BaseURL + "/", Parse: s.parseHome}}
	}
	zap.L().Warn("startech: incremental mode, crawling the product id range",
		zap.Int("from", s.IDStart), zap.Int("to", s.IDLimit))
	seeds := make([]Request, 0, max(0, s.IDLimit-s.IDStart))
	for id := s.IDStart; id < s.IDLimit; id++ {
		seeds = append(seeds, Request{
			URL:   s.BaseURL + "/product/product?product_id=" + strconv.Itoa(id),
			Parse: s.parseProduct,
		})
	}
	return seeds
}

func (s *StarTech) parseBrandIndex(_ context.Context, resp *Response) (Result, error) {
	doc, err := resp.Document()
	if err != nil {
		return Result{}, err
	}
	var res Result
	for _, href := range hrefs(doc, ".brand-list a") {
		res.Follow = append(res.Follow, Request{URL: href, Parse: s.parseBrand, Once: true})
	}
	return res, nil
}

func (s *StarTech) parseBrand(_ context.Context, resp *Response) (Result, error) {
	doc, err := resp.Document()
	if err != nil {
		return Result{}, err
	}
	name := text(doc.Selection, "h1.page-title")
	if name == "" {
		return Result{}, nil
	}
	return Result{Items: []model.RawItem{model.RawBrand{Name: name}}}, nil
}

func (s *StarTech) parseHome(_ context.Context, resp *Response) (Result, error) {
	doc, err := resp.Document()
	if err != nil {
		return Result{}, err
	}
	var res Result
	for _, href := range hrefs(doc, "ul.responsive-menu a:not([class=see-all])") {
		res.Follow = append(res.Follow, Request{URL: href, Parse: s.parseGrid, Once: true})
	}
	res.Follow = append(res.Follow, Request{URL: "/sitemap.xml", Parse: s.parseSitemap})
	return res, nil
}

func (s *StarTech) parseSitemap(_ context.Context, resp *Response) (Result, error) {
	zap.L().Info("startech: evaluating sitemap", zap.String("url", resp.URL.String()))
	var res Result
	for _, loc := range SitemapLocations(resp.Body) {
		res.Follow = append(res.Follow, Request{URL: loc, Parse: s.parseSitemapLocation, Once: true})
	}
	return res, nil
}

// Sitemap entries mix product and category pages.
func (s *StarTech) parseSitemapLocation(ctx context.Context, resp *Response) (Result, error) {
	doc, err := resp.Document()
	if err != nil {
		return Result{}, err
	}
	if doc.Find("div.price-wrap > ins").Length() > 0 {
		return s.parseProduct(ctx, resp)
	}
	return s.parseGrid(ctx, resp)
}

func (s *StarTech) parseGrid(_ context.Context, resp *Response) (Result, error) {
	doc, err := resp.Document()
	if err != nil {
		return Result{}, err
	}
	var res Result
	for _, href := range hrefs(doc, "h4.product-name a") {
		res.Follow = append(res.Follow, Request{URL: href, Parse: s.parseProduct, Once: true})
	}
	if next, ok := doc.Find("ul.pagination li:last-child a").First().Attr("href"); ok && next != "" {
		res.Follow = append(res.Follow, Request{URL: next, Parse: s.parseGrid, Once: true})
	}
	return res, nil
}

func (s *StarTech) parseProduct(_ context.Context, resp *Response) (Result, error) {
	doc, err := resp.Document()
	if err != nil {
		return Result{}, err
	}
	id := text(doc.Selection, ".product-code")
	if id == "" {
		return Result{}, fmt.Errorf("startech: no product code on %s", resp.URL)
	}
	title := text(doc.Selection, "h1.product-name")

	var res Result
	if text(doc.Selection, "#write-review > h3") != "Reviews (0) :" {
		res.Follow = append(res.Follow, Request{
			URL:   "/product/product/review?product_id=" + id,
			Parse: s.parseReviews(id),
			Once:  true,
		})
	}
	res.Follow = append(res.Follow, Request{
		URL:   "/product/product/question?product_id=" + id,
		Parse: s.parseQuestions(id),
		Once:  true,
	})

	var categories [3]string
	crumbs := doc.Find("ul.breadcrumb span").Map(func(_ int, c *goquery.Selection) string {
		return strings.TrimSpace(c.Text())
	})
	if len(crumbs) > 0 {
		// the last crumb is the product itself
		crumbs = crumbs[:len(crumbs)-1]
	}
	for i, crumb := range crumbs {
		if i >= len(categories) {
			if !strings.EqualFold(crumbs[i], crumbs[i-1]) {
				zap.L().Warn("startech: too many categories",
					zap.String("title", title), zap.Strings("breadcrumbs", crumbs))
			}
			break
		}
		categories[i] = crumb
	}

	price := trimTaka(text(doc.Selection, ".product-price"))
	if price == "" {
		price = trimTaka(text(doc.Selection, ".product-price ins"))
	}
	regular := trimTaka(text(doc.Selection, ".product-regular-price"))
	if regular == "" {
		regular = price
	}

	res.Items = append(res.Items, model.RawProduct{
		ID:             id,
		Title:          title,
		Category:       categories[0],
		Subcategory1:   categories[1],
		Subcategory2:   categories[2],
		Brand:          text(doc.Selection, ".product-brand"),
		PriceRegular:   regular,
		Price:          price,
		Status:         text(doc.Selection, "div.price-wrap > ins"),
		URL:            resp.URL.String(),
		Specifications: specTable(doc.Find(".data-table tbody tr")),
	})
	return res, nil
}

func (s *StarTech) parseReviews(productID string) ParseFunc {
	var parse ParseFunc
	parse = func(_ context.Context, resp *Response) (Result, error) {
		doc, err := resp.Document()
		if err != nil {
			return Result{}, err
		}
		item := model.RawReviews{ProductID: productID}
		doc.Find(".review-wrap").Each(func(_ int, c *goquery.Selection) {
			item.Reviews = append(item.Reviews, model.Review{
				Rating:   c.Find(".fa-star").Length(),
				Username: text(c, "h6.answerer"),
				Comment:  text(c, "p.answer"),
			})
		})
		res := Result{Items: []model.RawItem{item}}
		for _, href := range hrefs(doc, "ul.pagination li:last-child a") {
			res.Follow = append(res.Follow, Request{URL: href, Parse: parse, Once: true})
		}
		return res, nil
	}
	return parse
}

func (s *StarTech) parseQuestions(productID string) ParseFunc {
	var parse ParseFunc
	parse = func(_ context.Context, resp *Response) (Result, error) {
		doc, err := resp.Document()
		if err != nil {
			return Result{}, err
		}
		item := model.RawQuestions{ProductID: productID}
		doc.Find(".question-wrap").Each(func(_ int, c *goquery.Selection) {
			item.Questions = append(item.Questions, model.Question{
				Username: text(c, "h6.questioner"),
				Question: text(c, "h5.question"),
				Answer:   text(c, "p.answer"),
			})
		})
		res := Result{Items: []model.RawItem{item}}
		for _, href := range hrefs(doc, "ul.pagination li:last-child a") {
			res.Follow = append(res.Follow, Request{URL: href, Parse: parse, Once: true})
		}
		return res, nil
	}
	return parse
}

func trimTaka(s string) string {
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), normalize.Taka))
}

package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"marketinsight/internal/model"
	"marketinsight/internal/normalize"
)

// ryansGridLimit is the page size requested for grid pages.
const ryansGridLimit = "72"

// Ryans crawls ryanscomputers.com. Product pages carry no brand field, so
// it has no discovery phase and brands are inferred from titles.
type Ryans struct {
	BaseURL string
}

func NewRyans(baseURL string) *Ryans {
	return &Ryans{BaseURL: strings.TrimRight(baseURL, "/")}
}

func (r *Ryans) Name() string { return normalize.RyansRules.Platform }

func (r *Ryans) BrandIndex() *Request { return nil }

func (r *Ryans) Seeds() []Request {
	return []Request{{URL: r.BaseURL + "/", Parse: r.parseHome}}
}

type ryansCategory struct {
	category, sub1, sub2 string
}

func (r *Ryans) parseHome(_ context.Context, resp *Response) (Result, error) {
	doc, err := resp.Document()
	if err != nil {
		return Result{}, err
	}
	var res Result
	doc.Find(".nav-item").Each(func(i int, item *goquery.Selection) {
		if i == 0 {
			// "Home"
			return
		}
		cat := ryansCategory{category: ownText(item)}
		item.Find("a").Each(func(_ int, a *goquery.Selection) {
			class, _ := a.Attr("class")
			if class == "head-menu" {
				cat.sub1 = strings.TrimSpace(a.Text())
			}
			cat.sub2 = ""
			if class == "nav-link" {
				cat.sub2 = strings.TrimSpace(a.Text())
			}

			link, _ := a.Attr("href")
			u, err := url.Parse(link)
			if link == "javascript:void(0);" || err != nil ||
				!strings.HasPrefix(u.Path, "/grid") ||
				strings.HasPrefix(u.Path, "/grid/all-") {
				return
			}
			res.Follow = append(res.Follow, Request{
				URL:   UpdateQuery(link, map[string]string{"limit": ryansGridLimit}),
				Parse: r.parseGrid(cat),
				Once:  true,
			})
		})
	})
	return res, nil
}

func (r *Ryans) parseGrid(cat ryansCategory) ParseFunc {
	var parse ParseFunc
	parse = func(_ context.Context, resp *Response) (Result, error) {
		doc, err := resp.Document()
		if err != nil {
			return Result{}, err
		}
		var res Result
		if next, ok := doc.Find("a[rel=next]").First().Attr("href"); ok && next != "" {
			res.Follow = append(res.Follow, Request{
				URL:   UpdateQuery(next, map[string]string{"limit": ryansGridLimit}),
				Parse: parse,
				Once:  true,
			})
		}
		for _, href := range hrefs(doc, ".product-title-grid") {
			res.Follow = append(res.Follow, Request{URL: href, Parse: r.parseProduct(cat), Once: true})
		}
		return res, nil
	}
	return parse
}

func (r *Ryans) parseProduct(cat ryansCategory) ParseFunc {
	return func(_ context.Context, resp *Response) (Result, error) {
		doc, err := resp.Document()
		if err != nil {
			return Result{}, err
		}
		details := doc.Find(".produc-details-short").First()
		id := text(details, "p > span")
		if id == "" {
			return Result{}, fmt.Errorf("ryans: no product id on %s", resp.URL)
		}

		reviews := model.RawReviews{ProductID: id}
		doc.Find(".comments").Each(func(_ int, c *goquery.Selection) {
			reviews.Reviews = append(reviews.Reviews, model.Review{
				Rating:   c.Find(".fa-star").Length(),
				Username: text(c, "p > span"),
				Comment:  text(c, "p:last-child"),
			})
		})

		price := trimTaka(strings.TrimPrefix(text(details, ".price"), normalize.Taka))
		status := text(doc.Selection, ".stock-status")
		if status == "" && price != "" {
			status = price + normalize.Taka
		}

		var specs []model.Specification
		if info := doc.Find(".information").First(); info.Length() > 0 {
			specs = specTable(info.Find("tr"))
		}

		items := []model.RawItem{model.RawProduct{
			ID:             id,
			Title:          text(details, ".title"),
			Category:       cat.category,
			Subcategory1:   cat.sub1,
			Subcategory2:   cat.sub2,
			PriceRegular:   trimTaka(strings.TrimPrefix(text(details, ".old-price"), normalize.Taka)),
			Price:          price,
			Status:         status,
			URL:            resp.URL.String(),
			Specifications: specs,
		}}
		if len(reviews.Reviews) > 0 {
			items = append(items, reviews)
		}
		return Result{Items: items}, nil
	}
}

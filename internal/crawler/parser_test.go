package crawler

import (
	"context"
	"net/url"
	"reflect"
	"testing"

	"marketinsight/internal/model"
)

func page(t *testing.T, rawURL, body string) *Response {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatal(err)
	}
	return &Response{URL: u, StatusCode: 200, Body: []byte(body)}
}

func TestSitemapLocations(t *testing.T) {
	body := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc> https://shop.example/a </loc></url>
  <url><loc>https://shop.example/b</loc></url>
  <url><loc></loc></url>
</urlset>`)
	got := SitemapLocations(body)
	want := []string{"https://shop.example/a", "https://shop.example/b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SitemapLocations = %v, want %v", got, want)
	}
}

func TestUpdateQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/grid/laptop", "/grid/laptop?limit=72"},
		{"/grid/laptop?limit=20&page=2", "/grid/laptop?limit=72&page=2"},
		{"https://shop.example/grid?b=1", "https://shop.example/grid?b=1&limit=72"},
	}
	for _, tt := range tests {
		if got := UpdateQuery(tt.in, map[string]string{"limit": "72"}); got != tt.want {
			t.Errorf("UpdateQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRyansHomeFollowsGridLinks(t *testing.T) {
	r := NewRyans("https://ryans.example")
	resp := page(t, "https://ryans.example/", `<html><body><ul>
<li class="nav-item"><a href="/">Home</a></li>
<li class="nav-item">Laptop
  <a class="head-menu" href="/grid/laptop">All Laptop</a>
  <a class="nav-link" href="/grid/gaming-laptop">Gaming</a>
  <a href="javascript:void(0);">More</a>
  <a href="/grid/all-laptop">Everything</a>
  <a href="/about">About</a>
</li></ul></body></html>`)

	res, err := r.parseHome(context.Background(), resp)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, f := range res.Follow {
		got = append(got, f.URL)
	}
	want := []string{"/grid/laptop?limit=72", "/grid/gaming-laptop?limit=72"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("follows = %v, want %v", got, want)
	}
}

func TestRyansProduct(t *testing.T) {
	r := NewRyans("https://ryans.example")
	resp := page(t, "https://ryans.example/asus-vivobook", `<html><body>
<div class="produc-details-short">
  <h1 class="title">Asus VivoBook 15</h1>
  <p>Product Id: <span>R-123</span></p>
  <span class="old-price">৳ 70,000</span>
  <span class="price">৳ 65,000</span>
</div>
<div class="comments"><p><span>rahim</span></p><i class="fa fa-star"></i><i class="fa fa-star"></i><p>Great</p></div>
<table class="information"><tr><td>Processor</td><td>Ryzen 5</td></tr></table>
</body></html>`)

	parse := r.parseProduct(ryansCategory{category: "Laptop", sub1: "All Laptop"})
	res, err := parse(context.Background(), resp)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != 2 {
		t.Fatalf("items = %d, want product and reviews", len(res.Items))
	}

	p, ok := res.Items[0].(model.RawProduct)
	if !ok {
		t.Fatalf("first item is %T", res.Items[0])
	}
	if p.ID != "R-123" || p.Title != "Asus VivoBook 15" {
		t.Errorf("id/title = %q/%q", p.ID, p.Title)
	}
	if p.Price != "65,000" || p.PriceRegular != "70,000" {
		t.Errorf("prices = %q/%q", p.Price, p.PriceRegular)
	}
	if p.Status != "65,000৳" {
		t.Errorf("status = %q", p.Status)
	}
	if p.Category != "Laptop" || p.Subcategory1 != "All Laptop" {
		t.Errorf("categories = %q/%q", p.Category, p.Subcategory1)
	}
	if len(p.Specifications) != 1 || p.Specifications[0].Key != "Processor" {
		t.Errorf("specs = %+v", p.Specifications)
	}

	rv := res.Items[1].(model.RawReviews)
	if rv.ProductID != "R-123" || len(rv.Reviews) != 1 {
		t.Fatalf("reviews = %+v", rv)
	}
	if got := rv.Reviews[0]; got.Rating != 2 || got.Username != "rahim" || got.Comment != "Great" {
		t.Errorf("review = %+v", got)
	}
}

func TestRyansProductWithoutID(t *testing.T) {
	r := NewRyans("https://ryans.example")
	resp := page(t, "https://ryans.example/x", `<html><body><h1>nothing</h1></body></html>`)
	if _, err := r.parseProduct(ryansCategory{})(context.Background(), resp); err == nil {
		t.Error("expected an error for a page without product id")
	}
}

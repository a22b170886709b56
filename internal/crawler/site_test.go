package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"marketinsight/internal/model"
)

const (
	brandIndexPage = `<html><body><div class="brand-list">
<a href="/brand/asus">Asus</a><a href="/brand/hp">HP</a></div></body></html>`

	homePage = `<html><body><ul class="responsive-menu">
<li><a href="/laptop">Laptop</a></li><li><a class="see-all" href="/all">See all</a></li>
</ul></body></html>`

	gridPage = `<html><body><div class="p-item"><h4 class="product-name"><a href="/product/1">Asus VivoBook</a></h4></div></body></html>`

	productPage = `<html><body>
<ul class="breadcrumb"><li><span>Laptop</span></li><li><span>Asus</span></li><li><span>%[2]s</span></li></ul>
<h1 class="product-name">%[2]s</h1>
<div class="product-code">%[1]s</div>
<div class="product-brand">Asus</div>
<div class="product-price">65,000৳</div>
<div class="product-regular-price">70,000৳</div>
<div class="price-wrap"><ins>65,000৳</ins></div>
<div id="write-review"><h3>Reviews (0) :</h3></div>
<table class="data-table"><tbody><tr><td>Processor</td><td>Ryzen 5</td></tr></tbody></table>
</body></html>`

	questionPage = `<html><body><div class="question-wrap">
<h6 class="questioner">rahim</h6><h5 class="question">Is it new?</h5><p class="answer">Yes</p>
</div></body></html>`
)

// recordingSink keeps items in arrival order.
type recordingSink struct {
	mu    sync.Mutex
	items []model.RawItem
}

func (r *recordingSink) sink(_ context.Context, item model.RawItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, item)
	return nil
}

func newShop(t *testing.T, brandIndexDown bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/brands", func(w http.ResponseWriter, r *http.Request) {
		if brandIndexDown {
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		fmt.Fprint(w, brandIndexPage)
	})
	mux.HandleFunc("/brand/asus", func(w http.ResponseWriter, r *http.Request) {
		// slow so the main phase would overtake discovery if it were not gated
		time.Sleep(50 * time.Millisecond)
		fmt.Fprint(w, `<h1 class="page-title">Asus</h1>`)
	})
	mux.HandleFunc("/brand/hp", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusNotFound)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, homePage)
	})
	mux.HandleFunc("/laptop", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, gridPage)
	})
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?><urlset><url><loc>http://%[1]s/product/2</loc></url><url><loc>http://%[1]s/laptop</loc></url></urlset>`, r.Host)
	})
	mux.HandleFunc("/product/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, productPage, "1", "Asus VivoBook")
	})
	mux.HandleFunc("/product/2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, productPage, "2", "Asus ZenBook")
	})
	mux.HandleFunc("/product/product/question", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, questionPage)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func crawlShop(t *testing.T, srv *httptest.Server) (*recordingSink, *Scheduler) {
	t.Helper()
	rec := &recordingSink{}
	f := NewFetcher(FetcherOptions{MaxRetries: 0, BaseDelay: time.Millisecond})
	s := NewScheduler(f, NewMemoryVisitCache(), rec.sink, SchedulerOptions{Concurrency: 4})
	if err := Crawl(context.Background(), s, NewStarTech(srv.URL)); err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	return rec, s
}

func TestCrawlDiscoversBrandsBeforeProducts(t *testing.T) {
	rec, s := crawlShop(t, newShop(t, false))

	var brands, products, questions int
	for _, item := range rec.items {
		switch it := item.(type) {
		case model.RawBrand:
			if products > 0 {
				t.Errorf("brand %q arrived after a product", it.Name)
			}
			brands++
		case model.RawProduct:
			products++
			if it.Brand != "Asus" || it.Price != "65,000" || it.PriceRegular != "70,000" {
				t.Errorf("product fields: %+v", it)
			}
			if it.Category != "Laptop" || it.Subcategory1 != "Asus" {
				t.Errorf("categories: %q %q", it.Category, it.Subcategory1)
			}
			if len(it.Specifications) != 1 || it.Specifications[0].Value != "Ryzen 5" {
				t.Errorf("specs: %+v", it.Specifications)
			}
		case model.RawQuestions:
			questions++
		}
	}
	if brands != 1 {
		t.Errorf("brands = %d, want 1", brands)
	}
	if products != 2 {
		t.Errorf("products = %d, want 2", products)
	}
	if questions != 2 {
		t.Errorf("question pages = %d, want 2", questions)
	}
	if st := s.Stats(); st.Failed != 1 || st.Skipped == 0 {
		t.Errorf("stats = %+v", st)
	}
}

func TestCrawlWithoutBrandIndex(t *testing.T) {
	rec, _ := crawlShop(t, newShop(t, true))

	var products int
	for _, item := range rec.items {
		if _, ok := item.(model.RawProduct); ok {
			products++
		}
	}
	if products != 2 {
		t.Errorf("products = %d, want 2 with discovery skipped", products)
	}
}

func TestStarTechIncrementalSeeds(t *testing.T) {
	s, err := NewStarTechRange("https://shop.example/", 10, 13)
	if err != nil {
		t.Fatal(err)
	}

	seeds := s.Seeds()
	if len(seeds) != 3 {
		t.Fatalf("seeds = %d", len(seeds))
	}
	if seeds[0].URL != "https://shop.example/product/product?product_id=10" {
		t.Errorf("seed URL = %q", seeds[0].URL)
	}
}

func TestStarTechRangeRejectsEmpty(t *testing.T) {
	tests := []struct{ start, limit int }{
		{14000, 13020},
		{5, 5},
		{-1, 10},
	}
	for _, tt := range tests {
		if _, err := NewStarTechRange("https://shop.example", tt.start, tt.limit); err == nil {
			t.Errorf("NewStarTechRange(%d, %d) error = nil", tt.start, tt.limit)
		}
	}

	// a hand-built site with an inverted range yields no seeds instead of panicking
	s := NewStarTech("https://shop.example")
	s.Incremental = true
	s.IDStart = 14000
	if seeds := s.Seeds(); len(seeds) != 0 {
		t.Errorf("seeds = %d, want 0", len(seeds))
	}
}

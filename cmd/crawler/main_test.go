package main

import (
	"testing"

	"marketinsight/internal/crawler"
	"marketinsight/internal/normalize"
)

func TestPlatformForUsesCrawledHost(t *testing.T) {
	got := platformFor(normalize.StarTechRules, "http://localhost:8080")
	if got.Title != "StarTech" || got.URL != "http://localhost:8080" {
		t.Errorf("platformFor = %+v", got)
	}
	if def := platformFor(normalize.StarTechRules, normalize.StarTechRules.BaseURL); def.URL == got.URL {
		t.Error("override and canonical hosts should map to different platform rows")
	}
}

func TestNewSite(t *testing.T) {
	site, err := newSite(normalize.StarTechRules, "https://shop.example", "incremental", 10, 12)
	if err != nil {
		t.Fatal(err)
	}
	if st, ok := site.(*crawler.StarTech); !ok || !st.Incremental || len(st.Seeds()) != 2 {
		t.Errorf("site = %#v", site)
	}

	if _, err := newSite(normalize.StarTechRules, "https://shop.example", "incremental", 14000, 13020); err == nil {
		t.Error("expected error for an inverted id range")
	}

	site, err = newSite(normalize.RyansRules, "https://ryans.example", "incremental", 14000, 13020)
	if err != nil {
		t.Fatalf("ryans ignores the id range: %v", err)
	}
	if _, ok := site.(*crawler.Ryans); !ok {
		t.Errorf("site = %T", site)
	}
}

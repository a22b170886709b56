package normalize

import (
	"errors"
	"testing"

	"marketinsight/internal/model"
)

func TestPrice(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"12,345", 12345},
		{"0", 0},
		{" 1,200 ", 1200},
		{"1,00,000", 100000},
	}
	for _, tt := range tests {
		got, err := Price(tt.raw)
		if err != nil {
			t.Errorf("Price(%q) error: %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Price(%q) = %d; want %d", tt.raw, got, tt.want)
		}
	}
}

func TestPriceMalformed(t *testing.T) {
	for _, raw := range []string{"", "abc", "-5", "12.50", ",", "99999999999999999999999"} {
		_, err := Price(raw)
		var perr *MalformedPriceError
		if !errors.As(err, &perr) {
			t.Errorf("Price(%q) error = %v; want MalformedPriceError", raw, err)
			continue
		}
		if perr.Raw != raw {
			t.Errorf("MalformedPriceError.Raw = %q; want %q", perr.Raw, raw)
		}
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want model.Status
	}{
		{"Out Of Stock", model.StatusOutOfStock},
		{"Discontinued", model.StatusDiscontinued},
		{"Pre Order", model.StatusPreOrder},
		{"Up Coming", model.StatusUpComing},
		{"Call for Price", model.StatusCallForPrice},
		{"12,500৳", model.StatusAvailable},
		{"৳", model.StatusAvailable},
		{"  Out Of Stock ", model.StatusOutOfStock},
	}
	for _, tt := range tests {
		got, err := StarTechRules.Status("startech-1", tt.raw)
		if err != nil {
			t.Errorf("Status(%q) error: %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Status(%q) = %v; want %v", tt.raw, got, tt.want)
		}
	}
}

func TestStatusUnrecognized(t *testing.T) {
	_, err := StarTechRules.Status("startech-7", "Unknown Text")
	var serr *UnrecognizedStatusError
	if !errors.As(err, &serr) {
		t.Fatalf("error = %v; want UnrecognizedStatusError", err)
	}
	if serr.ItemID != "startech-7" || serr.Raw != "Unknown Text" {
		t.Errorf("got %+v", serr)
	}
}

func TestRyansInStock(t *testing.T) {
	got, err := RyansRules.Status("ryans-1", "In Stock")
	if err != nil || got != model.StatusAvailable {
		t.Errorf("Status(In Stock) = %v, %v", got, err)
	}
	if _, err := StarTechRules.Status("startech-1", "In Stock"); err == nil {
		t.Error("StarTech should not map In Stock")
	}
}

func TestStatusCustomMapper(t *testing.T) {
	r := Rules{
		Platform: "Test",
		IDPrefix: "t-",
		MapStatus: func(raw string) (model.Status, bool) {
			return model.StatusPreOrder, raw == "soon"
		},
	}
	if got, err := r.Status("t-1", " soon "); err != nil || got != model.StatusPreOrder {
		t.Errorf("Status(soon) = %v, %v", got, err)
	}
	if _, err := r.Status("t-1", "later"); err == nil {
		t.Error("expected error for unmapped status")
	}

	var empty Rules
	var serr *UnrecognizedStatusError
	if _, err := empty.Status("x", "Out Of Stock"); !errors.As(err, &serr) {
		t.Errorf("nil mapper: error = %v; want UnrecognizedStatusError", err)
	}
}

func TestID(t *testing.T) {
	if got := StarTechRules.ID(" 1234 "); got != "startech-1234" {
		t.Errorf("ID = %q", got)
	}
	if StarTechRules.ID("1") == RyansRules.ID("1") {
		t.Error("ids from different platforms must not collide")
	}
}

func TestURL(t *testing.T) {
	tests := []struct{ raw, want string }{
		{"https://www.startech.com.bd/amd-ryzen-5?tag=x", "/amd-ryzen-5?tag=x"},
		{"http://ryanscomputers.com/grid/laptop", "/grid/laptop"},
		{"/already/relative", "/already/relative"},
		{"https://www.startech.com.bd", "/"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := URL(tt.raw); got != tt.want {
			t.Errorf("URL(%q) = %q; want %q", tt.raw, got, tt.want)
		}
	}
}

func TestStripPunct(t *testing.T) {
	tests := []struct{ raw, want string }{
		{"A-Data", "a data"},
		{"  HP  (Hewlett-Packard) ", "hp hewlett packard"},
		{"Asus® ROG", "asus rog"},
	}
	for _, tt := range tests {
		if got := StripPunct(tt.raw); got != tt.want {
			t.Errorf("StripPunct(%q) = %q; want %q", tt.raw, got, tt.want)
		}
	}
}

func TestRulesFor(t *testing.T) {
	r, ok := RulesFor("startech")
	if !ok || r.IDPrefix != StarTechRules.IDPrefix {
		t.Errorf("RulesFor(startech) = %+v, %v", r, ok)
	}
	if _, ok := RulesFor("nowhere"); ok {
		t.Error("RulesFor(nowhere) should fail")
	}
}

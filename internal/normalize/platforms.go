package normalize

import (
	"strings"

	"marketinsight/internal/model"
)

// Taka is the currency glyph Bangladeshi shops append to prices. A status
// cell that ends with it shows a price, which means the item is in stock.
const Taka = "৳"

var banglaShopStatuses = map[string]model.Status{
	"Out Of Stock":   model.StatusOutOfStock,
	"Discontinued":   model.StatusDiscontinued,
	"Pre Order":      model.StatusPreOrder,
	"Up Coming":      model.StatusUpComing,
	"Call for Price": model.StatusCallForPrice,
}

// BanglaShopStatus is the availability mapping shared by the supported shops.
func BanglaShopStatus(raw string) (model.Status, bool) {
	if strings.HasSuffix(raw, Taka) {
		return model.StatusAvailable, true
	}
	s, ok := banglaShopStatuses[raw]
	return s, ok
}

var StarTechRules = Rules{
	Platform:  "StarTech",
	BaseURL:   "https://www.startech.com.bd/",
	IDPrefix:  "startech-",
	MapStatus: BanglaShopStatus,
}

var RyansRules = Rules{
	Platform: "RyansComputers",
	BaseURL:  "https://ryanscomputers.com/",
	IDPrefix: "ryans-",
	MapStatus: func(raw string) (model.Status, bool) {
		if strings.EqualFold(raw, "In Stock") {
			return model.StatusAvailable, true
		}
		return BanglaShopStatus(raw)
	},
}

// RulesFor returns the rules registered for a platform name, matched
// case-insensitively.
func RulesFor(platform string) (Rules, bool) {
	for _, r := range []Rules{StarTechRules, RyansRules} {
		if strings.EqualFold(r.Platform, platform) {
			return r, true
		}
	}
	return Rules{}, false
}

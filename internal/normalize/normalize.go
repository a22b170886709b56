// Package normalize turns raw scraped strings into typed catalog values.
// Every function is pure; platform differences live in Rules.
package normalize

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"marketinsight/internal/model"
)

// StatusMapper maps a vendor availability string to a Status. The boolean is
// false when the string is not recognized.
type StatusMapper func(raw string) (model.Status, bool)

// Rules is the per-platform normalization configuration.
type Rules struct {
	Platform  string
	BaseURL   string
	IDPrefix  string
	MapStatus StatusMapper
}

// MalformedPriceError is returned when a price is not a non-negative integer
// once thousands separators are removed.
type MalformedPriceError struct {
	Raw string
}

func (e *MalformedPriceError) Error() string {
	return fmt.Sprintf("malformed price %q", e.Raw)
}

// UnrecognizedStatusError carries the offending status text and the item it
// came from.
type UnrecognizedStatusError struct {
	ItemID string
	Raw    string
}

func (e *UnrecognizedStatusError) Error() string {
	return fmt.Sprintf("item %s has unknown status %q", e.ItemID, e.Raw)
}

// ID prefixes a site id so ids stay unique across platforms sharing a store.
func (r Rules) ID(raw string) string {
	return r.IDPrefix + strings.TrimSpace(raw)
}

// Status maps rawStatus with the platform's mapper.
func (r Rules) Status(itemID, rawStatus string) (model.Status, error) {
	if r.MapStatus != nil {
		if s, ok := r.MapStatus(strings.TrimSpace(rawStatus)); ok {
			return s, nil
		}
	}
	return 0, &UnrecognizedStatusError{ItemID: itemID, Raw: rawStatus}
}

// Price parses "12,345" as 12345.
func Price(raw string) (int, error) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if s == "" {
		return 0, &MalformedPriceError{Raw: raw}
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, &MalformedPriceError{Raw: raw}
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		// only overflow gets here
		return 0, &MalformedPriceError{Raw: raw}
	}
	return n, nil
}

// URL keeps the path and query of raw so stored records do not depend on the
// host they were crawled from.
func URL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	out := u.EscapedPath()
	if out == "" {
		out = "/"
	}
	if u.RawQuery != "" {
		out += "?" + u.RawQuery
	}
	return out
}

// Package resolver canonicalizes brand spellings into stable identities.
package resolver

import (
	"sort"
	"strings"
	"sync"

	"marketinsight/internal/model"
	"marketinsight/internal/normalize"
)

// DefaultAliases corrects spellings the shops are known to use.
var DefaultAliases = map[string]string{
	"A Data":  "ADATA",
	"A4 Tech": "A4TECH",
	"JBL":     "JBL by Harman",
}

// BrandResolver maps raw brand strings to one *model.Brand per canonical key.
// It is safe for concurrent use.
type BrandResolver struct {
	mu      sync.RWMutex
	aliases map[string]string
	// spellings lists the alias spellings per canonical key so titles that
	// start with a misspelled brand still match by prefix.
	spellings map[string][]string
	known     map[string]*model.Brand
	prefix    *trie
}

// New builds a resolver from an alias table (raw spelling -> display name)
// and the brands already persisted.
func New(aliases map[string]string, known []*model.Brand) *BrandResolver {
	r := &BrandResolver{
		aliases:   make(map[string]string, len(aliases)),
		spellings: make(map[string][]string),
		known:     make(map[string]*model.Brand, len(known)),
		prefix:    newTrie(),
	}
	for raw, display := range aliases {
		display = strings.TrimSpace(display)
		r.aliases[normalize.Fold(raw)] = display
		// The corrected spelling is canonical for its own key too.
		r.aliases[normalize.Fold(display)] = display
		key := normalize.Fold(display)
		r.spellings[key] = append(r.spellings[key], raw)
	}
	for key := range r.spellings {
		sort.Strings(r.spellings[key])
	}

	// Insertion order decides trie collisions, so keep it stable.
	sorted := make([]*model.Brand, 0, len(known))
	for _, b := range known {
		if b != nil && strings.TrimSpace(b.Title) != "" {
			sorted = append(sorted, b)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Title < sorted[j].Title })

	for _, b := range sorted {
		key, _ := r.canonical(b.Title)
		if _, ok := r.known[key]; ok {
			continue
		}
		b.Key = key
		r.known[key] = b
		r.index(b)
	}
	return r
}

// index adds b to the prefix trie under its title and alias spellings.
// Callers hold the write lock or own r exclusively.
func (r *BrandResolver) index(b *model.Brand) {
	r.prefix.insert(normalize.Tokens(b.Title), b)
	for _, raw := range r.spellings[b.Key] {
		r.prefix.insert(normalize.Tokens(raw), b)
	}
}

// canonical returns the identity key and display title for raw.
func (r *BrandResolver) canonical(raw string) (key, display string) {
	display = strings.TrimSpace(raw)
	if corrected, ok := r.aliases[normalize.Fold(display)]; ok {
		display = corrected
	} else if corrected, ok := r.aliases[normalize.StripPunct(display)]; ok {
		display = corrected
	}
	return normalize.Fold(display), display
}

// Lookup returns the existing identity for raw without creating one.
func (r *BrandResolver) Lookup(raw string) *model.Brand {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	key, _ := r.canonical(raw)

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.known[key]
}

// Resolve returns the identity for raw, creating it on first sight. created
// is true for exactly one caller per key. Empty input asserts no brand.
func (r *BrandResolver) Resolve(raw string) (brand *model.Brand, created bool) {
	if strings.TrimSpace(raw) == "" {
		return nil, false
	}
	key, display := r.canonical(raw)

	r.mu.RLock()
	b, ok := r.known[key]
	r.mu.RUnlock()
	if ok {
		return b, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.known[key]; ok {
		return b, false
	}
	b = &model.Brand{Key: key, Title: display}
	r.known[key] = b
	r.index(b)
	return b, true
}

// MatchByPrefix infers a brand from free text such as a product title. The
// brand whose punctuation-stripped name covers the most leading words of the
// title wins; nil when no known brand starts the title.
func (r *BrandResolver) MatchByPrefix(title string) *model.Brand {
	tokens := normalize.Tokens(title)
	if len(tokens) == 0 {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.prefix.longest(tokens)
}

// Titles returns the display names of all known brands, sorted.
func (r *BrandResolver) Titles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.known))
	for _, b := range r.known {
		out = append(out, b.Title)
	}
	sort.Strings(out)
	return out
}

func (r *BrandResolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.known)
}

package resolver

import "marketinsight/internal/model"

// trie indexes brand names by word so the longest word prefix of a title
// can be found in one walk.
type trie struct {
	children map[string]*trie
	brand    *model.Brand
}

func newTrie() *trie {
	return &trie{children: make(map[string]*trie)}
}

// insert keeps the first brand registered for a token sequence.
func (t *trie) insert(tokens []string, b *model.Brand) {
	if len(tokens) == 0 {
		return
	}
	n := t
	for _, tok := range tokens {
		next, ok := n.children[tok]
		if !ok {
			next = newTrie()
			n.children[tok] = next
		}
		n = next
	}
	if n.brand == nil {
		n.brand = b
	}
}

func (t *trie) longest(tokens []string) *model.Brand {
	var best *model.Brand
	n := t
	for _, tok := range tokens {
		next, ok := n.children[tok]
		if !ok {
			break
		}
		n = next
		if n.brand != nil {
			best = n.brand
		}
	}
	return best
}

package crawler

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"marketinsight/internal/model"
)

// text returns the trimmed text of the first match of sel under s.
func text(s *goquery.Selection, sel string) string {
	return strings.TrimSpace(s.Find(sel).First().Text())
}

// ownText returns the first non-blank text node directly under s, ignoring
// the text of child elements.
func ownText(s *goquery.Selection) string {
	var out string
	s.Contents().EachWithBreak(func(_ int, c *goquery.Selection) bool {
		if n := c.Get(0); n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				out = t
				return false
			}
		}
		return true
	})
	return out
}

// hrefs collects the href attribute of every match of sel.
func hrefs(doc *goquery.Document, sel string) []string {
	var out []string
	doc.Find(sel).Each(func(_ int, a *goquery.Selection) {
		if h, ok := a.Attr("href"); ok && strings.TrimSpace(h) != "" {
			out = append(out, strings.TrimSpace(h))
		}
	})
	return out
}

// specTable reads two-column key/value rows in document order.
func specTable(rows *goquery.Selection) []model.Specification {
	var out []model.Specification
	rows.Each(func(_ int, tr *goquery.Selection) {
		k := text(tr, "td:first-child")
		if k == "" {
			return
		}
		out = append(out, model.Specification{Key: k, Value: text(tr, "td:last-child")})
	})
	return out
}

// UpdateQuery sets the given query parameters on rawURL, keeping the others.
func UpdateQuery(rawURL string, params map[string]string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// First returns the first element matched by the earliest selector in the
// cascade that matches anything at all.
func First(root *goquery.Selection, selectors ...string) (*goquery.Selection, bool) {
	for _, sel := range selectors {
		if found := root.Find(sel).First(); found.Length() > 0 {
			return found, true
		}
	}
	return nil, false
}

// Text walks the cascade and returns the first non-empty trimmed text.
func Text(root *goquery.Selection, selectors ...string) (string, bool) {
	for _, sel := range selectors {
		if v := cleanText(root.Find(sel).First().Text()); v != "" {
			return v, true
		}
	}
	return "", false
}

// Attr walks the cascade and, for each matching element, tries attrs in order.
// The first non-empty value wins.
func Attr(root *goquery.Selection, attrs []string, selectors ...string) (string, bool) {
	for _, sel := range selectors {
		node := root.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		for _, name := range attrs {
			if v, ok := node.Attr(name); ok {
				if v = strings.TrimSpace(v); v != "" {
					return v, true
				}
			}
		}
	}
	return "", false
}

// Count resolves a counter through the cascade and normalizes it.
func Count(root *goquery.Selection, selectors ...string) int {
	text, ok := Text(root, selectors...)
	if !ok {
		return 0
	}
	return ParseCount(text)
}

// Texts returns the trimmed, non-empty text of every element matched by sel.
func Texts(root *goquery.Selection, sel string) []string {
	out := []string{}
	root.Find(sel).Each(func(_ int, s *goquery.Selection) {
		if v := cleanText(s.Text()); v != "" {
			out = append(out, v)
		}
	})
	return out
}

// Attrs returns, for every element matched by sel, the first non-empty attribute
// among attrs. Duplicates are dropped, keeping document order.
func Attrs(root *goquery.Selection, sel string, attrs []string) []string {
	out := []string{}
	seen := map[string]struct{}{}
	root.Find(sel).Each(func(_ int, s *goquery.Selection) {
		for _, name := range attrs {
			v, ok := s.Attr(name)
			if !ok {
				continue
			}
			if v = strings.TrimSpace(v); v == "" {
				continue
			}
			if _, dup := seen[v]; !dup {
				seen[v] = struct{}{}
				out = append(out, v)
			}
			return
		}
	})
	return out
}

// cleanText normalizes node text roughly the way rendered innerText would:
// whitespace runs inside a line collapse to one space and blank lines are dropped.
func cleanText(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

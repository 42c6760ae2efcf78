package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

// Column is the ordered text of every element matching one selector on a
// page.
type Column []string

// ReadColumn collects the NFC-normalised text of each match of selector.
// Leading and trailing whitespace is trimmed unless raw is set.
func ReadColumn(doc *goquery.Document, selector string, raw bool) Column {
	var col Column
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		text := norm.NFC.String(s.Text())
		if !raw {
			text = strings.TrimSpace(text)
		}
		col = append(col, text)
	})
	return col
}

// At returns the value at i and whether it exists.
func (c Column) At(i int) (string, bool) {
	if i < 0 || i >= len(c) {
		return "", false
	}
	return c[i], true
}

// Len returns the number of values.
func (c Column) Len() int { return len(c) }

// Stride keeps every n-th value starting at index 0.
func (c Column) Stride(n int) Column {
	if n <= 1 {
		return c
	}
	out := make(Column, 0, (len(c)+n-1)/n)
	for i := 0; i < len(c); i += n {
		out = append(out, c[i])
	}
	return out
}

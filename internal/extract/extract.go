// Package extract turns one listing page's markup into catalog records.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/FranksOps/sift/internal/catalog"
	"github.com/PuerkitoBio/goquery"
)

// Mode selects an Extractor implementation.
type Mode string

const (
	ModePattern Mode = "pattern"
	ModeDOM     Mode = "dom"
)

// Extractor produces the ordered records found in a page. Implementations
// never fail: markup they cannot make sense of yields no records.
type Extractor interface {
	Extract(markup string) []catalog.Record
}

// New returns the extractor for mode. An empty mode selects ModePattern.
func New(mode Mode, base string) (Extractor, error) {
	switch mode {
	case "", ModePattern:
		return NewPattern(base), nil
	case ModeDOM:
		return NewDOM(base), nil
	default:
		return nil, fmt.Errorf("unknown extract mode %q", mode)
	}
}

// anchorPattern matches the title attribute of an anchor followed by the first
// href after it. RE2 runs in linear time so hostile markup cannot blow it up.
var anchorPattern = regexp.MustCompile(`<a\s.*?title="([^"]*)".*?href="([^"]*)".*?>`)

// Pattern is the single-pattern extractor.
type Pattern struct {
	base string
}

// NewPattern creates a Pattern that resolves hrefs against base.
func NewPattern(base string) *Pattern {
	return &Pattern{base: base}
}

// Extract scans markup once from left to right. Every match moves the scan
// position past its end, so matches never overlap.
func (p *Pattern) Extract(markup string) []catalog.Record {
	var records []catalog.Record

	pos := 0
	for pos < len(markup) {
		loc := anchorPattern.FindStringSubmatchIndex(markup[pos:])
		if loc == nil {
			break
		}

		title := markup[pos+loc[2] : pos+loc[3]]
		href := markup[pos+loc[4] : pos+loc[5]]
		records = append(records, catalog.Record{
			Title: title,
			Link:  catalog.Absolute(p.base, href),
		})

		// loc[1] is always past the "<a" prefix, so this is strictly increasing.
		pos += loc[1]
	}

	return records
}

// DOM extracts records with a real HTML parser. It reads the same attributes
// as Pattern but tolerates attribute order and line breaks inside tags.
// Unlike Pattern, attribute values come back entity-decoded.
type DOM struct {
	base string
}

// NewDOM creates a DOM extractor that resolves hrefs against base.
func NewDOM(base string) *DOM {
	return &DOM{base: base}
}

func (d *DOM) Extract(markup string) []catalog.Record {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	var records []catalog.Record
	doc.Find("a[title][href]").Each(func(_ int, s *goquery.Selection) {
		title, _ := s.Attr("title")
		href, _ := s.Attr("href")
		records = append(records, catalog.Record{
			Title: title,
			Link:  catalog.Absolute(d.base, href),
		})
	})

	return records
}

package analyzer

import (
	"strings"

	"github.com/FranksOps/sift/internal/catalog"
)

// TitleMatcher selects records whose title contains a query, ignoring case.
// The query is lowercased once; an empty query matches every title.
type TitleMatcher struct {
	query string
	lower string
}

// NewTitleMatcher builds a matcher for query.
func NewTitleMatcher(query string) TitleMatcher {
	return TitleMatcher{query: query, lower: strings.ToLower(query)}
}

// Query returns the query as given.
func (m TitleMatcher) Query() string {
	return m.query
}

// Match reports whether title contains the query.
func (m TitleMatcher) Match(title string) bool {
	if m.lower == "" {
		return true
	}
	if len(title) < len(m.lower) && isASCII(title) {
		return false
	}
	return strings.Contains(strings.ToLower(title), m.lower)
}

// Filter appends the records of src that match to dst, keeping their order.
func (m TitleMatcher) Filter(dst, src []catalog.Record) []catalog.Record {
	if m.lower == "" {
		return append(dst, src...)
	}
	for _, r := range src {
		if m.Match(r.Title) {
			dst = append(dst, r)
		}
	}
	return dst
}

// isASCII reports whether lowercasing s keeps its length.
func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

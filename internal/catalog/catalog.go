package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultBaseURL is the origin of the catalog site.
const DefaultBaseURL = "https://www.torrent9.zone"

// ErrUnknownCategory is returned when a category key is not in the table.
var ErrUnknownCategory = errors.New("unknown category")

// Category describes one section of the catalog and how many pages it spans.
type Category struct {
	Key   string `json:"key" yaml:"-"`
	Path  string `json:"path" yaml:"path"`
	Pages int    `json:"pages" yaml:"pages"`
}

// Record is a single title/link pair scraped from a listing page.
type Record struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// Table maps category keys to their descriptors.
type Table map[string]Category

// DefaultTable returns the built-in film and series sections.
func DefaultTable() Table {
	return Table{
		"films":  {Key: "films", Path: "films", Pages: 746},
		"series": {Key: "series", Path: "series", Pages: 1239},
	}
}

// Lookup resolves a key. Keys are matched case-insensitively.
func (t Table) Lookup(key string) (Category, error) {
	c, ok := t[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return Category{}, fmt.Errorf("%w: %q", ErrUnknownCategory, key)
	}
	return c, nil
}

// Keys returns the sorted category keys.
func (t Table) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Categories returns the descriptors ordered by key.
func (t Table) Categories() []Category {
	out := make([]Category, 0, len(t))
	for _, k := range t.Keys() {
		out = append(out, t[k])
	}
	return out
}

// Merge overlays other on a copy of t. Entries with a negative page count
// in other are ignored.
func (t Table) Merge(other Table) Table {
	merged := make(Table, len(t)+len(other))
	for k, c := range t {
		merged[k] = c
	}
	for k, c := range other {
		k = strings.ToLower(k)
		if c.Pages < 0 {
			continue
		}
		c.Key = k
		if c.Path == "" {
			c.Path = k
		}
		merged[k] = c
	}
	return merged
}

// LoadTable reads a YAML document of the form
//
//	films:
//	  path: films
//	  pages: 746
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read category file: %w", err)
	}

	var raw map[string]Category
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse category file: %w", err)
	}

	return Table{}.Merge(Table(raw)), nil
}

// PageURL builds the listing URL for one page of a category, sorted by name
// ascending.
func PageURL(base string, c Category, page int) string {
	base = strings.TrimRight(base, "/")
	return fmt.Sprintf("%s/torrents/%s.html,page-%d&trie-nom-a", base, url.PathEscape(c.Path), page)
}

// Absolute prefixes an href taken from the site with its origin. The href is
// kept verbatim.
func Absolute(base, href string) string {
	return strings.TrimRight(base, "/") + href
}

package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/FranksOps/sift/internal/catalog"
)

// ErrUnknownBackend is returned for an archive backend name that is not supported.
var ErrUnknownBackend = errors.New("unknown archive backend")

// Backend names accepted by the archive.backend setting.
const (
	BackendNone     = "none"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendJSON     = "json"
	BackendCSV      = "csv"
)

// SearchRecord is one completed search as kept in the archive.
type SearchRecord struct {
	ID       string           `json:"id"`
	Title    string           `json:"title"`
	Category string           `json:"category"`
	Pages    int              `json:"pages"`
	Failed   int              `json:"failed"`
	Blocked  int              `json:"blocked"`
	Records  []catalog.Record `json:"records"`
	Duration time.Duration    `json:"duration"`
	// CreatedAt is when the search started.
	CreatedAt time.Time `json:"created_at"`
}

// Filter allows querying for specific SearchRecords.
type Filter struct {
	Category string
	// Title matches archived queries containing it, ignoring case.
	Title  string
	Since  *time.Time
	Limit  int
	Offset int
}

// Match reports whether r passes every field of f. File backends filter in
// memory with it; SQL backends express the same rules in their queries.
func (f Filter) Match(r *SearchRecord) bool {
	if f.Category != "" && !strings.EqualFold(r.Category, f.Category) {
		return false
	}
	if f.Title != "" && !strings.Contains(strings.ToLower(r.Title), strings.ToLower(f.Title)) {
		return false
	}
	if f.Since != nil && r.CreatedAt.Before(*f.Since) {
		return false
	}
	return true
}

// Page applies Offset and Limit to records already ordered newest first.
func (f Filter) Page(records []*SearchRecord) []*SearchRecord {
	if f.Offset > 0 {
		if f.Offset >= len(records) {
			return []*SearchRecord{}
		}
		records = records[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(records) {
		records = records[:f.Limit]
	}
	return records
}

// Backend defines the interface for storing and querying archived searches.
type Backend interface {
	Save(ctx context.Context, record *SearchRecord) error
	// Query returns matching records, newest first.
	Query(ctx context.Context, filter Filter) ([]*SearchRecord, error)
	Close() error
}

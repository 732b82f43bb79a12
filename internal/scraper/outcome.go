package scraper

import (
	"errors"
	"time"

	"github.com/FranksOps/sift/internal/catalog"
	"github.com/FranksOps/sift/internal/storage"
)

var (
	// ErrTransport marks a page whose request never produced a response.
	ErrTransport = errors.New("transport failure")
	// ErrDecode marks a page whose body could not be read.
	ErrDecode = errors.New("decode failure")
)

// PageOutcome is the settled result of fetching one listing page. A nil Err
// means success, even when Records is empty.
type PageOutcome struct {
	Page       int
	URL        string
	Records    []catalog.Record
	Err        error
	StatusCode int
	// Blocked names the anti-bot vendor whose challenge was served instead of
	// the listing, if any.
	Blocked  string
	Bytes    int
	Duration time.Duration
}

// OK reports whether the page was retrieved.
func (o PageOutcome) OK() bool {
	return o.Err == nil
}

// Result is the merged output of one search.
type Result struct {
	ID       string
	Title    string
	Category string
	// Records holds the matches in ascending page order, then page order.
	Records []catalog.Record
	Pages   int
	Failed  int
	Blocked int
	// FailedPages lists the page numbers that contributed nothing because
	// their fetch failed.
	FailedPages []int
	StartedAt   time.Time
	Duration    time.Duration
}

// Archive converts r into the record kept by a storage.Backend.
func (r Result) Archive() *storage.SearchRecord {
	return &storage.SearchRecord{
		ID:        r.ID,
		Title:     r.Title,
		Category:  r.Category,
		Pages:     r.Pages,
		Failed:    r.Failed,
		Blocked:   r.Blocked,
		Records:   r.Records,
		Duration:  r.Duration,
		CreatedAt: r.StartedAt,
	}
}

package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FranksOps/sift/internal/analyzer"
	"github.com/FranksOps/sift/internal/catalog"
	"github.com/FranksOps/sift/internal/metrics"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency caps simultaneous page fetches per search.
const DefaultConcurrency = 32

// PageFetcher retrieves a single listing page. Implementations must report
// failures through PageOutcome.Err rather than panicking.
type PageFetcher interface {
	FetchPage(ctx context.Context, page int, cat catalog.Category) PageOutcome
}

// SearchConfig provides parameters for the Aggregator.
type SearchConfig struct {
	// Concurrency bounds in-flight page fetches. Zero means DefaultConcurrency.
	Concurrency int
}

// Aggregator fans a search out over every page of a category and merges the
// outcomes back in page order.
type Aggregator struct {
	fetcher     PageFetcher
	concurrency int
	logger      *slog.Logger
}

// NewAggregator creates an Aggregator on top of fetcher.
func NewAggregator(fetcher PageFetcher, cfg SearchConfig, logger *slog.Logger) *Aggregator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		fetcher:     fetcher,
		concurrency: cfg.Concurrency,
		logger:      logger,
	}
}

// Fetch retrieves pages 1..cat.Pages through a bounded worker pool and
// returns one outcome per page, indexed by page-1. It waits for every page to
// settle; a failed page never cancels the others.
func (a *Aggregator) Fetch(ctx context.Context, cat catalog.Category) []PageOutcome {
	if cat.Pages <= 0 {
		return nil
	}

	outcomes := make([]PageOutcome, cat.Pages)

	var g errgroup.Group
	g.SetLimit(a.concurrency)

	for i := range outcomes {
		page := i + 1
		g.Go(func() error {
			// Each task owns exactly one slot, so no locking is needed.
			outcomes[i] = a.fetchOne(ctx, page, cat)
			return nil
		})
	}

	_ = g.Wait()
	return outcomes
}

func (a *Aggregator) fetchOne(ctx context.Context, page int, cat catalog.Category) (out PageOutcome) {
	if err := ctx.Err(); err != nil {
		return PageOutcome{Page: page, Err: fmt.Errorf("%w: %w", ErrTransport, err)}
	}

	metrics.PagesInFlight.Inc()
	defer metrics.PagesInFlight.Dec()

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("page fetch panicked", "page", page, "category", cat.Key, "panic", r)
			out = PageOutcome{Page: page, Err: fmt.Errorf("page %d: panic: %v", page, r)}
		}
	}()

	out = a.fetcher.FetchPage(ctx, page, cat)
	out.Page = page
	return out
}

// Search fetches every page of cat and returns the records whose title
// contains title, ignoring case. It always returns a result; pages that
// failed are counted in Result.Failed and otherwise skipped.
func (a *Aggregator) Search(ctx context.Context, title string, cat catalog.Category) Result {
	start := time.Now()
	id := uuid.New().String()

	a.logger.Debug("search started", "id", id, "title", title, "category", cat.Key, "pages", cat.Pages)

	res := Merge(title, a.Fetch(ctx, cat))
	res.ID = id
	res.Title = title
	res.Category = cat.Key
	res.StartedAt = start.UTC()
	res.Duration = time.Since(start)

	for _, p := range res.FailedPages {
		a.logger.Debug("page failed", "id", id, "category", cat.Key, "page", p)
	}
	a.logger.Info("search finished",
		"id", id,
		"title", title,
		"category", cat.Key,
		"pages", res.Pages,
		"failed", res.Failed,
		"blocked", res.Blocked,
		"matches", len(res.Records),
		"duration", res.Duration,
	)
	metrics.ObserveSearch(cat.Key, res.Duration)

	return res
}

// Merge reduces settled outcomes, already in ascending page order, into a
// Result. Successful pages contribute the records whose title contains title
// case-insensitively, in their original order; failed pages contribute
// nothing. Merge is deterministic for a given input.
func Merge(title string, outcomes []PageOutcome) Result {
	matcher := analyzer.NewTitleMatcher(title)
	res := Result{
		Records: []catalog.Record{},
		Pages:   len(outcomes),
	}

	for _, o := range outcomes {
		if !o.OK() {
			res.Failed++
			res.FailedPages = append(res.FailedPages, o.Page)
			continue
		}
		if o.Blocked != "" {
			res.Blocked++
		}
		res.Records = matcher.Filter(res.Records, o.Records)
	}

	return res
}

package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/FranksOps/sift/internal/catalog"
	"github.com/FranksOps/sift/internal/storage"
	"github.com/google/uuid"
)

func TestPostgresBackend(t *testing.T) {
	// Only run this test if SIFT_TEST_POSTGRES_DSN is set
	dsn := os.Getenv("SIFT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("Skipping Postgres backend test: SIFT_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	b, err := New(ctx, dsn)
	if err != nil {
		t.Fatalf("Failed to create Postgres backend: %v", err)
	}
	defer b.Close()

	now := time.Now().UTC()
	// Unique per run so repeated runs against the same database stay isolated.
	title := "pg-" + uuid.NewString()

	rec := &storage.SearchRecord{
		ID:        uuid.NewString(),
		Title:     title,
		Category:  "films",
		Pages:     746,
		Failed:    3,
		Blocked:   1,
		Records:   []catalog.Record{{Title: "Alien", Link: "https://www.torrent9.zone/torrent/1/alien"}},
		Duration:  50 * time.Millisecond,
		CreatedAt: now,
	}

	if err := b.Save(ctx, rec); err != nil {
		t.Fatalf("Failed to save search: %v", err)
	}

	results, err := b.Query(ctx, storage.Filter{Title: title})
	if err != nil {
		t.Fatalf("Failed to query searches: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}

	got := results[0]
	if got.ID != rec.ID || got.Category != rec.Category || got.Pages != rec.Pages {
		t.Errorf("Expected %+v, got %+v", rec, got)
	}
	if got.Failed != rec.Failed || got.Blocked != rec.Blocked {
		t.Errorf("Expected failed/blocked %d/%d, got %d/%d", rec.Failed, rec.Blocked, got.Failed, got.Blocked)
	}
	if len(got.Records) != 1 || got.Records[0] != rec.Records[0] {
		t.Errorf("Expected records %v, got %v", rec.Records, got.Records)
	}
	if got.Duration.Milliseconds() != rec.Duration.Milliseconds() {
		t.Errorf("Expected Duration %v, got %v", rec.Duration, got.Duration)
	}

	// Postgres timestamps might differ slightly in sub-millisecond precision
	// compared to Go time.Now(), checking Unix seconds is usually safe enough
	if got.CreatedAt.Unix() != rec.CreatedAt.Unix() {
		t.Errorf("Expected CreatedAt %v, got %v", rec.CreatedAt, got.CreatedAt)
	}

	past := now.Add(-time.Hour)
	results, err = b.Query(ctx, storage.Filter{Title: title, Category: "FILMS", Since: &past, Limit: 5})
	if err != nil {
		t.Fatalf("Failed to query with Since: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
}

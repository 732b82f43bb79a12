package jsonbackend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/FranksOps/sift/internal/catalog"
	"github.com/FranksOps/sift/internal/storage"
)

func TestJSONBackend(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "sift.jsonl")

	b, err := New(filePath)
	if err != nil {
		t.Fatalf("Failed to create JSON backend: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	now := time.Now().Truncate(time.Millisecond).UTC()

	res1 := &storage.SearchRecord{
		ID:        "json1",
		Title:     "alien",
		Category:  "films",
		Pages:     746,
		Records:   []catalog.Record{{Title: "Alien", Link: "https://www.torrent9.zone/t/1"}},
		Duration:  10 * time.Millisecond,
		CreatedAt: now.Add(-2 * time.Hour),
	}
	res2 := &storage.SearchRecord{
		ID:        "json2",
		Title:     "matrix",
		Category:  "series",
		Pages:     1239,
		Failed:    4,
		Records:   []catalog.Record{},
		Duration:  20 * time.Millisecond,
		CreatedAt: now.Add(-1 * time.Hour),
	}

	if err := b.Save(ctx, res1); err != nil {
		t.Fatalf("Failed to save result 1: %v", err)
	}
	if err := b.Save(ctx, res2); err != nil {
		t.Fatalf("Failed to save result 2: %v", err)
	}

	// Category filter
	results, err := b.Query(ctx, storage.Filter{Category: "series"})
	if err != nil {
		t.Fatalf("Failed to query by category: %v", err)
	}
	if len(results) != 1 || results[0].ID != "json2" {
		t.Fatalf("Expected json2 for category filter, got %v", results)
	}
	if results[0].Failed != 4 || results[0].Duration != res2.Duration {
		t.Errorf("Expected counters to round-trip, got %+v", results[0])
	}

	// Since filter
	past := now.Add(-90 * time.Minute)
	results, err = b.Query(ctx, storage.Filter{Since: &past})
	if err != nil {
		t.Fatalf("Failed to query by Since: %v", err)
	}
	if len(results) != 1 || results[0].ID != "json2" {
		t.Fatalf("Expected json2 for since filter, got %v", results)
	}

	// No filters, newest first
	results, err = b.Query(ctx, storage.Filter{})
	if err != nil {
		t.Fatalf("Failed to query all: %v", err)
	}
	if len(results) != 2 || results[0].ID != "json2" {
		t.Fatalf("Expected json2 first of 2, got %v", results)
	}
	if results[1].Records[0] != res1.Records[0] {
		t.Errorf("Expected records to round-trip, got %v", results[1].Records)
	}

	results, err = b.Query(ctx, storage.Filter{Offset: 1})
	if err != nil {
		t.Fatalf("Failed to query offset: %v", err)
	}
	if len(results) != 1 || results[0].ID != "json1" {
		t.Fatalf("Expected json1 for offset 1, got %v", results)
	}

	// Saving after a query still appends
	res3 := &storage.SearchRecord{ID: "json3", Title: "dune", Category: "films", CreatedAt: now}
	if err := b.Save(ctx, res3); err != nil {
		t.Fatalf("Failed to save result 3: %v", err)
	}
	results, err = b.Query(ctx, storage.Filter{Limit: 1})
	if err != nil {
		t.Fatalf("Failed to query limit: %v", err)
	}
	if len(results) != 1 || results[0].ID != "json3" {
		t.Fatalf("Expected json3 as newest, got %v", results)
	}
}

func TestJSONBackend_Empty(t *testing.T) {
	b, err := New(filepath.Join(t.TempDir(), "empty.jsonl"))
	if err != nil {
		t.Fatalf("Failed to create JSON backend: %v", err)
	}
	defer b.Close()

	results, err := b.Query(context.Background(), storage.Filter{})
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("Expected empty non-nil results, got %v", results)
	}
}

package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestTable_Lookup(t *testing.T) {
	table := DefaultTable()

	c, err := table.Lookup("Films")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Path != "films" || c.Pages != 746 {
		t.Errorf("unexpected films descriptor: %+v", c)
	}

	c, err = table.Lookup("series")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Pages != 1239 {
		t.Errorf("expected 1239 series pages, got %d", c.Pages)
	}

	_, err = table.Lookup("games")
	if !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestTable_Merge(t *testing.T) {
	merged := DefaultTable().Merge(Table{
		"FILMS":  {Pages: 10},
		"ebooks": {Path: "ebook", Pages: 3},
		"broken": {Pages: -1},
	})

	if merged["films"].Pages != 10 || merged["films"].Path != "films" {
		t.Errorf("expected films override, got %+v", merged["films"])
	}
	if merged["ebooks"].Path != "ebook" || merged["ebooks"].Key != "ebooks" {
		t.Errorf("unexpected ebooks entry: %+v", merged["ebooks"])
	}
	if _, ok := merged["broken"]; ok {
		t.Errorf("expected negative page count to be dropped")
	}
	if DefaultTable()["films"].Pages != 746 {
		t.Errorf("merge must not mutate the receiver")
	}

	keys := merged.Keys()
	want := []string{"ebooks", "films", "series"}
	if len(keys) != len(want) {
		t.Fatalf("expected %v, got %v", want, keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("key %d: expected %s, got %s", i, want[i], keys[i])
		}
	}
}

func TestLoadTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories.yaml")
	doc := "films:\n  path: films\n  pages: 2\nlogiciels:\n  pages: 5\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	table, err := LoadTable(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table["films"].Pages != 2 {
		t.Errorf("expected 2 film pages, got %d", table["films"].Pages)
	}
	if table["logiciels"].Path != "logiciels" {
		t.Errorf("expected path to default to key, got %q", table["logiciels"].Path)
	}

	if _, err := LoadTable(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("expected error for missing file")
	}
}

func TestPageURL(t *testing.T) {
	c := Category{Key: "films", Path: "films", Pages: 746}
	got := PageURL("https://www.torrent9.zone/", c, 12)
	want := "https://www.torrent9.zone/torrents/films.html,page-12&trie-nom-a"
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestAbsolute(t *testing.T) {
	if got := Absolute(DefaultBaseURL, "/torrent/123/matrix"); got != "https://www.torrent9.zone/torrent/123/matrix" {
		t.Errorf("unexpected link %s", got)
	}
}

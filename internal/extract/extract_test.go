package extract

import (
	"strings"
	"testing"

	"github.com/FranksOps/sift/internal/catalog"
)

const base = "https://www.torrent9.zone"

const listing = `<html><body><table>
<tr><td><a class="t" title="Matrix Reloaded" href="/torrent/1/matrix-reloaded">Matrix Reloaded</a></td></tr>
<tr><td><a class="t" title="Dune &amp; Co" href="/torrent/2/dune">Dune</a></td></tr>
<tr><td><a class="t" title="Alien" href="/torrent/3/alien">Alien</a></td></tr>
</table></body></html>`

func TestPattern_Extract(t *testing.T) {
	got := NewPattern(base).Extract(listing)

	want := []catalog.Record{
		{Title: "Matrix Reloaded", Link: base + "/torrent/1/matrix-reloaded"},
		{Title: "Dune &amp; Co", Link: base + "/torrent/2/dune"},
		{Title: "Alien", Link: base + "/torrent/3/alien"},
	}

	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestPattern_NoMatches(t *testing.T) {
	inputs := map[string]string{
		"empty":        "",
		"plain text":   "nothing to see here",
		"no title":     `<a href="/x">x</a>`,
		"href first":   `<a href="/x" title="x">x</a>`,
		"unterminated": `<a title="broken href="/x`,
		"not an a tag": `<abbr title="x" href="/x">`,
	}

	p := NewPattern(base)
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			if got := p.Extract(in); len(got) != 0 {
				t.Errorf("expected no records, got %+v", got)
			}
		})
	}
}

func TestPattern_DoesNotOverlap(t *testing.T) {
	// The first fragment has no href of its own, so its match runs into the
	// second anchor and consumes it.
	in := `<a title="first">x</a><a title="second" href="/2">y</a><a title="third" href="/3">z</a>`

	got := NewPattern(base).Extract(in)
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d: %+v", len(got), got)
	}
	if got[0].Title != "first" || got[0].Link != base+"/2" {
		t.Errorf("unexpected first record %+v", got[0])
	}
	if got[1].Title != "third" || got[1].Link != base+"/3" {
		t.Errorf("unexpected second record %+v", got[1])
	}
}

func TestPattern_LargeInput(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 2000; i++ {
		b.WriteString(`<a class="x" title="t" href="/h"> `)
	}
	b.WriteString(strings.Repeat("<a ", 5000))

	got := NewPattern(base).Extract(b.String())
	if len(got) != 2000 {
		t.Errorf("expected 2000 records, got %d", len(got))
	}
}

func TestDOM_Extract(t *testing.T) {
	got := NewDOM(base).Extract(listing)
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	if got[1].Title != "Dune & Co" {
		t.Errorf("expected decoded title, got %q", got[1].Title)
	}

	if got := NewDOM(base).Extract(`<a href="/x">x</a>`); len(got) != 0 {
		t.Errorf("expected no records, got %+v", got)
	}
}

func TestNew(t *testing.T) {
	if e, err := New("", base); err != nil {
		t.Errorf("unexpected error: %v", err)
	} else if _, ok := e.(*Pattern); !ok {
		t.Errorf("expected *Pattern, got %T", e)
	}

	if e, err := New(ModeDOM, base); err != nil {
		t.Errorf("unexpected error: %v", err)
	} else if _, ok := e.(*DOM); !ok {
		t.Errorf("expected *DOM, got %T", e)
	}

	if _, err := New("xpath", base); err == nil {
		t.Errorf("expected error for unknown mode")
	}
}

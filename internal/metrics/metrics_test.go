package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	return rec.Body.String()
}

func TestObservePage(t *testing.T) {
	ObservePage("films", PageSample{StatusCode: 200, Duration: time.Second, Bytes: 11, Records: 3})
	ObservePage("films", PageSample{Failed: true, Duration: time.Millisecond})
	ObservePage("films", PageSample{StatusCode: 403, Blocked: "Cloudflare"})
	ObserveSearch("films", 2*time.Second)

	output := scrape(t, Handler())

	expected := []string{
		`sift_page_fetches_total{category="films",outcome="success",status="200"} 1`,
		`sift_page_fetches_total{category="films",outcome="failure",status="error"} 1`,
		`sift_page_bytes_total{category="films"} 11`,
		`sift_records_extracted_total{category="films"} 3`,
		`sift_pages_blocked_total{category="films",source="Cloudflare"} 1`,
		`sift_page_fetch_duration_seconds_bucket`,
		`sift_searches_total{category="films"} 1`,
		`sift_search_duration_seconds_bucket`,
	}
	for _, e := range expected {
		if !strings.Contains(output, e) {
			t.Errorf("expected %s in metrics output", e)
		}
	}
}

func TestMetricsServer(t *testing.T) {
	srv := Start("127.0.0.1:18888", nil)
	defer srv.Stop(context.Background())

	var resp *http.Response
	var err error
	for i := 0; i < 20; i++ {
		resp, err = http.Get("http://127.0.0.1:18888/metrics")
		if err == nil {
			break
		}
		time.Sleep(25 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("failed to fetch metrics: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "sift_pages_in_flight") {
		t.Errorf("expected sift_pages_in_flight gauge")
	}
}

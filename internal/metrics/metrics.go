package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PageFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sift_page_fetches_total",
			Help: "Listing pages fetched, by category and outcome",
		},
		[]string{"category", "outcome", "status"},
	)

	PageFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sift_page_fetch_duration_seconds",
			Help:    "Time to fetch and extract one listing page",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"category"},
	)

	PageBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sift_page_bytes_total",
			Help: "Bytes downloaded from listing pages",
		},
		[]string{"category"},
	)

	RecordsExtractedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sift_records_extracted_total",
			Help: "Records extracted from listing pages before title filtering",
		},
		[]string{"category"},
	)

	PagesBlockedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sift_pages_blocked_total",
			Help: "Listing pages answered with an anti-bot challenge",
		},
		[]string{"category", "source"},
	)

	PagesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sift_pages_in_flight",
			Help: "Listing page fetches currently running",
		},
	)

	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sift_searches_total",
			Help: "Searches executed, by category",
		},
		[]string{"category"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sift_search_duration_seconds",
			Help:    "Wall time of a full search across all pages",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
		[]string{"category"},
	)

	ProxyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sift_proxy_failures_total",
			Help: "Page fetches that failed through a proxy",
		},
		[]string{"proxy_url"},
	)
)

// PageSample describes one settled page fetch.
type PageSample struct {
	Failed     bool
	StatusCode int
	Duration   time.Duration
	Bytes      int
	Records    int
	Blocked    string
}

// ObservePage records a settled page fetch for category.
func ObservePage(category string, s PageSample) {
	outcome := "success"
	status := strconv.Itoa(s.StatusCode)
	if s.Failed {
		outcome = "failure"
		status = "error"
	}

	PageFetchesTotal.WithLabelValues(category, outcome, status).Inc()
	PageFetchDuration.WithLabelValues(category).Observe(s.Duration.Seconds())
	PageBytesTotal.WithLabelValues(category).Add(float64(s.Bytes))
	RecordsExtractedTotal.WithLabelValues(category).Add(float64(s.Records))
	if s.Blocked != "" {
		PagesBlockedTotal.WithLabelValues(category, s.Blocked).Inc()
	}
}

// ObserveSearch records a completed search.
func ObserveSearch(category string, d time.Duration) {
	SearchesTotal.WithLabelValues(category).Inc()
	SearchDuration.WithLabelValues(category).Observe(d.Seconds())
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Server is a standalone listener for /metrics.
type Server struct {
	srv *http.Server
}

// Start serves /metrics on addr in the background.
func Start(addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "err", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

// Package server exposes searches over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/FranksOps/sift/internal/catalog"
	"github.com/FranksOps/sift/internal/metrics"
	"github.com/FranksOps/sift/internal/scraper"
	"github.com/FranksOps/sift/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxFormMemory bounds the in-memory part of a multipart search form.
const maxFormMemory = 1 << 20

// Response headers carrying the page accounting of a search.
const (
	HeaderPages       = "X-Sift-Pages"
	HeaderPagesFailed = "X-Sift-Pages-Failed"
	HeaderSearchID    = "X-Sift-Search-Id"
)

// Searcher runs one search. *scraper.Aggregator satisfies it.
type Searcher interface {
	Search(ctx context.Context, title string, cat catalog.Category) scraper.Result
}

// Options configures a Server.
type Options struct {
	Categories catalog.Table
	// Archive receives every completed search when set.
	Archive storage.Backend
	Logger  *slog.Logger
	// ReadTimeout bounds reading the request; searches themselves may run
	// much longer.
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Server is the HTTP front end of the aggregator.
type Server struct {
	searcher Searcher
	opts     Options
	logger   *slog.Logger
}

// New creates a Server. A nil category table selects catalog.DefaultTable.
func New(searcher Searcher, opts Options) *Server {
	if opts.Categories == nil {
		opts.Categories = catalog.DefaultTable()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 15 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	return &Server{
		searcher: searcher,
		opts:     opts,
		logger:   opts.Logger,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Post("/", s.handleSearch)
	r.Post("/search", s.handleSearch)
	r.Get("/categories", s.handleCategories)
	r.Get("/history", s.handleHistory)
	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: s.opts.ReadTimeout,
		ReadTimeout:       s.opts.ReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.logger.Info("server shutdown complete")
	return nil
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeError(w, http.StatusBadRequest, "invalid form: "+err.Error())
		return
	}

	titles, ok := r.PostForm["title"]
	if !ok {
		writeError(w, http.StatusBadRequest, "missing form field: title")
		return
	}
	title := titles[0]

	kind := r.PostForm.Get("type")
	if kind == "" {
		writeError(w, http.StatusBadRequest, "missing form field: type")
		return
	}
	cat, err := s.opts.Categories.Lookup(kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := s.searcher.Search(r.Context(), title, cat)
	s.archive(r.Context(), res)

	w.Header().Set(HeaderSearchID, res.ID)
	w.Header().Set(HeaderPages, strconv.Itoa(res.Pages))
	w.Header().Set(HeaderPagesFailed, strconv.Itoa(res.Failed))

	records := res.Records
	if records == nil {
		records = []catalog.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

// archive stores res. Failures are logged; the caller still gets its result.
func (s *Server) archive(ctx context.Context, res scraper.Result) {
	if s.opts.Archive == nil {
		return
	}
	// The client may already be gone; the record is still worth keeping.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.opts.Archive.Save(ctx, res.Archive()); err != nil {
		s.logger.Error("failed to archive search", "id", res.ID, "err", err)
	}
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Categories.Categories())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.opts.Archive == nil {
		writeError(w, http.StatusNotFound, "search archive is disabled")
		return
	}

	q := r.URL.Query()
	filter := storage.Filter{
		Category: q.Get("type"),
		Title:    q.Get("title"),
		Limit:    20,
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		filter.Offset = n
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since: want RFC 3339")
			return
		}
		filter.Since = &since
	}

	records, err := s.opts.Archive.Query(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to query archive", "err", err)
		writeError(w, http.StatusInternalServerError, "archive query failed")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/FranksOps/sift/internal/bypass"
	"github.com/FranksOps/sift/internal/catalog"
	"github.com/FranksOps/sift/internal/extract"
	"github.com/FranksOps/sift/internal/fingerprint"
	"github.com/FranksOps/sift/internal/metrics"
	"github.com/FranksOps/sift/pkg/httpclient"
	"github.com/FranksOps/sift/pkg/proxy"
	"github.com/FranksOps/sift/pkg/ratelimit"
	"github.com/FranksOps/sift/pkg/useragent"
)

// FetchConfig configures how listing pages are retrieved.
type FetchConfig struct {
	// BaseURL is the catalog origin. Defaults to catalog.DefaultBaseURL.
	BaseURL string
	// Timeout bounds one page, connection to last body byte.
	Timeout         time.Duration
	MaxRedirects    int
	MaxConnsPerHost int
	Fingerprint     fingerprint.Profile
	UAPool          *useragent.Pool
	ProxyPool       *proxy.Pool
	Limiter         *ratelimit.Limiter
	// Extractor defaults to the pattern extractor for BaseURL.
	Extractor extract.Extractor
	// Transport replaces the fingerprinted transport when set.
	Transport http.RoundTripper
}

// Fetcher retrieves listing pages and extracts their records.
type Fetcher struct {
	cfg       FetchConfig
	client    *httpclient.Client
	detectors []bypass.Detector
	logger    *slog.Logger
}

// NewFetcher builds a Fetcher. One transport is shared by every page so
// connections to the catalog host are pooled.
func NewFetcher(cfg FetchConfig, logger *slog.Logger) (*Fetcher, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = catalog.DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = httpclient.DefaultTimeout
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil, false)
	}
	if cfg.Fingerprint == "" {
		cfg.Fingerprint = fingerprint.ProfileChrome
	}
	if cfg.Extractor == nil {
		cfg.Extractor = extract.NewPattern(cfg.BaseURL)
	}
	if logger == nil {
		logger = slog.Default()
	}

	transport := cfg.Transport
	if transport == nil {
		var err error
		transport, err = fingerprint.Transport(cfg.Fingerprint, fingerprint.Options{
			Proxy:           proxy.ProxyFunc,
			MaxConnsPerHost: cfg.MaxConnsPerHost,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to setup transport: %w", err)
		}
	}

	client := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		Transport:    transport,
		Header: http.Header{
			"Accept":          {"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
			"Accept-Language": {"fr-FR,fr;q=0.9,en;q=0.5"},
		},
	})

	return &Fetcher{
		cfg:       cfg,
		client:    client,
		detectors: bypass.DefaultDetectors(),
		logger:    logger,
	}, nil
}

// BaseURL returns the origin pages are fetched from.
func (f *Fetcher) BaseURL() string {
	return f.cfg.BaseURL
}

// FetchPage retrieves page of cat and extracts its records. It never returns
// an error: transport and read problems are carried in the outcome. HTTP
// error statuses are treated as content and extracted like any other page.
func (f *Fetcher) FetchPage(ctx context.Context, page int, cat catalog.Category) (out PageOutcome) {
	start := time.Now()
	out = PageOutcome{
		Page: page,
		URL:  catalog.PageURL(f.cfg.BaseURL, cat, page),
	}
	defer func() {
		out.Duration = time.Since(start)
		metrics.ObservePage(cat.Key, metrics.PageSample{
			Failed:     out.Err != nil,
			StatusCode: out.StatusCode,
			Duration:   out.Duration,
			Bytes:      out.Bytes,
			Records:    len(out.Records),
			Blocked:    out.Blocked,
		})
	}()

	if err := f.cfg.Limiter.Wait(ctx); err != nil {
		out.Err = fmt.Errorf("%w: rate limiter: %w", ErrTransport, err)
		return out
	}

	activeProxy := f.nextProxy()
	reqCtx := proxy.WithProxy(ctx, activeProxy)

	resp, err := f.client.Get(reqCtx, out.URL, http.Header{"User-Agent": {f.cfg.UAPool.Next()}})
	if err != nil {
		if activeProxy != nil {
			_ = f.cfg.ProxyPool.Report(activeProxy, err)
			metrics.ProxyFailures.WithLabelValues(activeProxy.Redacted()).Inc()
		}
		out.Err = fmt.Errorf("%w: %w", ErrTransport, err)
		return out
	}
	defer resp.Body.Close()

	if activeProxy != nil {
		_ = f.cfg.ProxyPool.Report(activeProxy, nil)
	}

	out.StatusCode = resp.StatusCode

	body, err := io.ReadAll(resp.Body)
	out.Bytes = len(body)
	if err != nil {
		out.Err = fmt.Errorf("%w: %w", ErrDecode, err)
		return out
	}

	out.Blocked = bypass.Analyze(bypass.Page{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, f.detectors)
	if out.Blocked != "" {
		f.logger.Warn("challenge page served", "url", out.URL, "source", out.Blocked, "status", resp.StatusCode)
	}

	out.Records = f.cfg.Extractor.Extract(decodeText(body))
	return out
}

func (f *Fetcher) nextProxy() *url.URL {
	if f.cfg.ProxyPool == nil {
		return nil
	}
	return f.cfg.ProxyPool.Next()
}

// decodeText reads body as UTF-8, replacing invalid sequences.
func decodeText(body []byte) string {
	if utf8.Valid(body) {
		return string(body)
	}
	return strings.ToValidUTF8(string(body), "\uFFFD")
}

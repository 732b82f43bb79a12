package main

import (
	"fmt"
	"strings"

	"github.com/FranksOps/sift/internal/config"
	"github.com/FranksOps/sift/internal/extract"
	"github.com/FranksOps/sift/internal/fingerprint"
	"github.com/FranksOps/sift/internal/scraper"
	"github.com/FranksOps/sift/pkg/proxy"
	"github.com/FranksOps/sift/pkg/ratelimit"
	"github.com/FranksOps/sift/pkg/useragent"
)

// newAggregator wires the fetch stack described by cfg.
func newAggregator(cfg *config.Config) (*scraper.Aggregator, error) {
	base := strings.TrimRight(cfg.Site.BaseURL, "/")

	profile, err := fingerprint.ParseProfile(cfg.Fetch.Fingerprint)
	if err != nil {
		return nil, err
	}

	ex, err := extract.New(extract.Mode(cfg.Extract.Mode), base)
	if err != nil {
		return nil, err
	}

	var proxies *proxy.Pool
	if len(cfg.Fetch.Proxies) > 0 || cfg.Fetch.ProxyFile != "" {
		proxies = proxy.NewPool(proxy.Config{})
		if err := proxies.Add(cfg.Fetch.Proxies...); err != nil {
			return nil, fmt.Errorf("invalid proxy: %w", err)
		}
		if cfg.Fetch.ProxyFile != "" {
			if err := proxies.LoadFile(cfg.Fetch.ProxyFile); err != nil {
				return nil, err
			}
		}
		logger.Info("proxy rotation enabled", "proxies", proxies.Len())
	}

	fetcher, err := scraper.NewFetcher(scraper.FetchConfig{
		BaseURL:         base,
		Timeout:         cfg.Fetch.Timeout,
		MaxRedirects:    cfg.Fetch.MaxRedirects,
		MaxConnsPerHost: cfg.Fetch.Concurrency,
		Fingerprint:     profile,
		UAPool:          useragent.NewPool(cfg.Fetch.UserAgents, cfg.Fetch.RandomUA),
		ProxyPool:       proxies,
		Limiter:         ratelimit.NewLimiter(cfg.Fetch.RPS, cfg.Fetch.Burst, cfg.Fetch.Jitter),
		Extractor:       ex,
	}, logger)
	if err != nil {
		return nil, err
	}

	return scraper.NewAggregator(fetcher, scraper.SearchConfig{Concurrency: cfg.Fetch.Concurrency}, logger), nil
}

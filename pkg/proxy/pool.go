package proxy

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// ErrUnknownProxy is returned when reporting on a proxy the pool does not hold.
var ErrUnknownProxy = errors.New("proxy not in pool")

type entry struct {
	url        *url.URL
	failures   int
	benchUntil time.Time
}

// Config defines settings for the Pool.
type Config struct {
	// MaxFailures is the number of consecutive failures that benches a proxy.
	MaxFailures int
	// Cooldown is how long a benched proxy is skipped.
	Cooldown time.Duration
}

// Pool rotates outbound requests over a set of proxies, benching the ones that
// keep failing. It is safe for concurrent use.
type Pool struct {
	mu      sync.Mutex
	entries []*entry
	cursor  int
	cfg     Config
	now     func() time.Time
}

// NewPool creates an empty pool. Zero config values get defaults of 3 failures
// and a 5 minute cooldown.
func NewPool(cfg Config) *Pool {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	return &Pool{cfg: cfg, now: time.Now}
}

// Add parses raw proxy URLs. A missing scheme defaults to http.
func (p *Pool) Add(raw ...string) error {
	parsed := make([]*entry, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if !strings.Contains(r, "://") {
			r = "http://" + r
		}
		u, err := url.Parse(r)
		if err != nil {
			return fmt.Errorf("invalid proxy %q: %w", r, err)
		}
		parsed = append(parsed, &entry{url: u})
	}

	p.mu.Lock()
	p.entries = append(p.entries, parsed...)
	p.mu.Unlock()
	return nil
}

// LoadFile adds one proxy per line from path. Blank lines and lines starting
// with '#' are skipped.
func (p *Pool) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open proxy file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read proxy file: %w", err)
	}

	return p.Add(lines...)
}

// Len reports how many proxies the pool holds, benched or not.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Next returns the next proxy that is not benched, or nil when none is usable.
func (p *Pool) Next() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for range p.entries {
		e := p.entries[p.cursor]
		p.cursor = (p.cursor + 1) % len(p.entries)

		if !e.benchUntil.IsZero() {
			if now.Before(e.benchUntil) {
				continue
			}
			e.benchUntil = time.Time{}
			e.failures = 0
		}
		return e.url
	}
	return nil
}

// Report records the result of a request made through u. A nil err counts as
// a success and forgives one earlier failure.
func (p *Pool) Report(u *url.URL, err error) error {
	if u == nil {
		return errors.New("proxy url cannot be nil")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var e *entry
	for _, candidate := range p.entries {
		if candidate.url.String() == u.String() {
			e = candidate
			break
		}
	}
	if e == nil {
		return fmt.Errorf("%w: %s", ErrUnknownProxy, u.Redacted())
	}

	if err == nil {
		if e.failures > 0 {
			e.failures--
		}
		return nil
	}

	e.failures++
	if e.failures >= p.cfg.MaxFailures {
		e.benchUntil = p.now().Add(p.cfg.Cooldown)
	}
	return nil
}

type ctxKey struct{}

// WithProxy returns a context that makes ProxyFunc route requests through u.
// A nil u returns ctx unchanged.
func WithProxy(ctx context.Context, u *url.URL) context.Context {
	if u == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, u)
}

// ProxyFunc is an http.Transport.Proxy implementation that routes each request
// through the proxy stored in its context and otherwise falls back to the
// environment.
func ProxyFunc(req *http.Request) (*url.URL, error) {
	if u, ok := req.Context().Value(ctxKey{}).(*url.URL); ok && u != nil {
		return u, nil
	}
	return http.ProxyFromEnvironment(req)
}

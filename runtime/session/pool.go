// Package session maintains one long-lived HTTP client per backend: cookie
// jar, headers profile, TLS policy, rate limit, per-source concurrency cap
// and the CSRF token cache with serialized warm-up.
package session

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/adliye/lexgate/legal"
	"github.com/adliye/lexgate/runtime/telemetry"
)

type (
	// TLSPolicy is the per-source TLS stance. Default is strict; the
	// relaxed settings exist for backends whose servers still require
	// legacy renegotiation and cannot present a verifiable chain.
	TLSPolicy struct {
		InsecureSkipVerify  bool
		LegacyRenegotiation bool
	}

	// Profile is the realistic browser identity presented to a backend.
	Profile struct {
		UserAgent      string
		AcceptLanguage string
		Referer        string
		Origin         string
		Extra          map[string]string
	}

	// Config describes one backend's client.
	Config struct {
		// Timeout is the per-request ceiling. Zero means DefaultTimeout.
		Timeout time.Duration
		TLS     TLSPolicy
		Profile Profile
		// MaxConcurrent caps in-flight requests per source. Zero means
		// DefaultMaxConcurrent.
		MaxConcurrent int64
		// MaxQueue bounds callers waiting for a slot; beyond it Borrow
		// returns ResourceExhausted immediately. Zero means DefaultMaxQueue.
		MaxQueue int64
		// RatePerSecond throttles request starts. Zero means unlimited.
		RatePerSecond float64
	}

	// Pool owns every backend client. Adapters borrow sessions for the
	// duration of one logical operation and release them when done.
	Pool struct {
		mu      sync.RWMutex
		entries map[legal.SourceID]*entry
		logger  telemetry.Logger
	}

	entry struct {
		source  legal.SourceID
		cfg     Config
		client  *http.Client
		limiter *rate.Limiter
		slots   *semaphore.Weighted
		waiters atomic.Int64

		csrfMu        sync.RWMutex
		csrf          map[string]string
		warm          singleflight.Group
		lastRefreshed time.Time
		failCount     atomic.Int64
	}
)

// DefaultUserAgent matches a current desktop Chrome build; several backends
// reject obviously non-browser agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/137.0.0.0 Safari/537.36"

// DefaultAcceptLanguage is the locale profile every backend expects.
const DefaultAcceptLanguage = "tr-TR,tr;q=0.9,en-US;q=0.8,en;q=0.7"

const (
	DefaultTimeout       = 60 * time.Second
	DefaultMaxConcurrent = 8
	DefaultMaxQueue      = 32
)

// NewPool constructs an empty pool.
func NewPool(logger telemetry.Logger) *Pool {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &Pool{entries: make(map[legal.SourceID]*entry), logger: logger}
}

// Register creates the client for source. Registration happens once at
// startup, before any Borrow; later registrations replace the entry.
func (p *Pool) Register(source legal.SourceID, cfg Config) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.MaxQueue <= 0 {
		cfg.MaxQueue = DefaultMaxQueue
	}
	if cfg.Profile.UserAgent == "" {
		cfg.Profile.UserAgent = DefaultUserAgent
	}
	if cfg.Profile.AcceptLanguage == "" {
		cfg.Profile.AcceptLanguage = DefaultAcceptLanguage
	}

	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	e := &entry{
		source: source,
		cfg:    cfg,
		client: &http.Client{
			Jar:       jar,
			Timeout:   cfg.Timeout,
			Transport: newTransport(cfg.TLS),
		},
		slots: semaphore.NewWeighted(cfg.MaxConcurrent),
		csrf:  make(map[string]string),
	}
	if cfg.RatePerSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), int(cfg.RatePerSecond)+1)
	}

	p.mu.Lock()
	p.entries[source] = e
	p.mu.Unlock()
}

// Borrow returns a ready session for source. It blocks while the per-source
// concurrency cap is reached, up to the queue depth; beyond that it fails
// fast with ResourceExhausted.
func (p *Pool) Borrow(ctx context.Context, source legal.SourceID) (*Session, error) {
	p.mu.RLock()
	e, ok := p.entries[source]
	p.mu.RUnlock()
	if !ok {
		return nil, legal.NotFoundf("no session registered for source %q", source)
	}

	if e.waiters.Add(1) > e.cfg.MaxQueue {
		e.waiters.Add(-1)
		return nil, legal.Exhaustedf("session queue for %s is full", source)
	}
	err := e.slots.Acquire(ctx, 1)
	e.waiters.Add(-1)
	if err != nil {
		return nil, legal.Timeoutf("waiting for a %s session: %v", source, err)
	}

	released := false
	return &Session{
		entry:  e,
		logger: p.logger,
		release: func() {
			if !released {
				released = true
				e.slots.Release(1)
			}
		},
	}, nil
}

// Shutdown closes every client's idle connections. Nothing is persisted.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.entries {
		e.client.CloseIdleConnections()
	}
	p.entries = make(map[legal.SourceID]*entry)
}

// newTransport builds the per-source transport. The relaxed branch keeps the
// server's legacy renegotiation working; Go has no direct equivalent of
// OpenSSL's OP_LEGACY_SERVER_CONNECT, so the policy lowers the floor and
// permits client renegotiation instead.
func newTransport(policy TLSPolicy) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	if policy.InsecureSkipVerify || policy.LegacyRenegotiation {
		cfg := &tls.Config{
			InsecureSkipVerify: policy.InsecureSkipVerify,
		}
		if policy.LegacyRenegotiation {
			cfg.Renegotiation = tls.RenegotiateOnceAsClient
			cfg.MinVersion = tls.VersionTLS10
		}
		t.TLSClientConfig = cfg
	}
	return t
}

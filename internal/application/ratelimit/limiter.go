package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	domain "github.com/chama-ledger/ledger/internal/domain/ratelimit"
)

const (
	DefaultStoreTimeout     = 200 * time.Millisecond
	DefaultRecoveryInterval = 5 * time.Second
	DefaultSweepInterval    = time.Minute
)

// Fallback reasons reported to Metrics.
const (
	FallbackNotConfigured = "not_configured"
	FallbackStoreError    = "store_error"
	FallbackRecovering    = "recovering"
)

// Metrics receives admission and fallback observations.
type Metrics interface {
	ObserveDecision(action string, allowed bool)
	ObserveFallback(reason string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveDecision(string, bool) {}
func (nopMetrics) ObserveFallback(string)       {}

// Config tunes how the limiter talks to its stores.
type Config struct {
	// StoreTimeout bounds every shared-store call; a timeout counts as unavailable.
	StoreTimeout time.Duration
	// RecoveryInterval is how long the shared store is skipped after a failure.
	RecoveryInterval time.Duration
	// SweepInterval is the Run ticker period.
	SweepInterval time.Duration
	// HashIdentifiers stores BLAKE2b digests instead of raw identifiers.
	HashIdentifiers bool
}

func (c Config) withDefaults() Config {
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = DefaultStoreTimeout
	}
	if c.RecoveryInterval <= 0 {
		c.RecoveryInterval = DefaultRecoveryInterval
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	return c
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(l *Limiter) {
		if m != nil {
			l.metrics = m
		}
	}
}

// Limiter is a fixed-window, burst-aware admission check. It prefers the
// shared store and serves from the local store whenever the shared one is
// missing, failing or timing out, so Check never returns an error.
type Limiter struct {
	shared  domain.Store
	local   domain.Store
	cfg     Config
	metrics Metrics
	logger  zerolog.Logger
	now     func() time.Time

	mu        sync.Mutex
	degraded  bool
	skipUntil time.Time
	prefixes  map[string]struct{}
}

// NewLimiter creates a limiter. shared may be nil; local must not be.
func NewLimiter(shared, local domain.Store, cfg Config, logger zerolog.Logger, opts ...Option) *Limiter {
	l := &Limiter{
		shared:   shared,
		local:    local,
		cfg:      cfg.withDefaults(),
		metrics:  nopMetrics{},
		logger:   logger.With().Str("service", "ratelimit").Logger(),
		now:      time.Now,
		prefixes: map[string]struct{}{domain.DefaultPrefix: {}},
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.shared == nil {
		l.logger.Warn().Msg("no shared rate limit store configured, limits are enforced per process")
	}
	return l
}

// Check admits or rejects one request for identifier performing action.
func (l *Limiter) Check(ctx context.Context, identifier, action string, opts domain.Options) domain.Result {
	opts = opts.WithDefaults()
	capacity := opts.Capacity()
	window := opts.Window()
	now := l.now()

	if strings.TrimSpace(identifier) == "" {
		l.logger.Warn().Str("action", action).Msg("rate limit check without identifier, allowing request")
		return domain.Result{Allowed: true, Remaining: capacity, ResetAt: now.Add(window)}
	}

	l.track(opts.Prefix)
	key := l.key(opts.Prefix, action, identifier)
	hit := l.hit(ctx, key, capacity, window, now)
	res := toResult(hit, capacity, now)
	l.metrics.ObserveDecision(action, res.Allowed)
	if !res.Allowed {
		l.logger.Warn().
			Str("action", action).
			Str("key", key).
			Int("capacity", capacity).
			Int64("retryAfterMs", res.RetryAfterMs).
			Msg("rate limit exceeded")
	}
	return res
}

// Reset restores full capacity for identifier and action.
func (l *Limiter) Reset(ctx context.Context, identifier, action string, opts domain.Options) {
	opts = opts.WithDefaults()
	key := l.key(opts.Prefix, action, identifier)
	_ = l.local.Reset(ctx, key)
	if l.shared == nil {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, l.cfg.StoreTimeout)
	defer cancel()
	if err := l.shared.Reset(sctx, key); err != nil {
		l.logger.Warn().Err(err).Str("action", action).Msg("failed to reset shared rate limit record")
	}
}

// Sweep removes expired records under every prefix seen so far.
func (l *Limiter) Sweep(ctx context.Context) int {
	now := l.now()
	removed := 0
	for _, prefix := range l.trackedPrefixes() {
		n, _ := l.local.Sweep(ctx, prefix, now)
		removed += n
		if !l.useShared(now) {
			continue
		}
		n, err := l.shared.Sweep(ctx, prefix, now)
		if err != nil {
			l.logger.Warn().Err(err).Str("prefix", prefix).Msg("shared rate limit sweep failed")
			continue
		}
		removed += n
	}
	if removed > 0 {
		l.logger.Debug().Int("removed", removed).Msg("expired rate limit records swept")
	}
	return removed
}

// Run sweeps on every SweepInterval tick until ctx is done.
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep(ctx)
		}
	}
}

// Degraded reports whether the shared store is currently being bypassed.
func (l *Limiter) Degraded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.shared == nil || l.degraded
}

func (l *Limiter) hit(ctx context.Context, key string, capacity int, window time.Duration, now time.Time) domain.Hit {
	reason := FallbackNotConfigured
	if l.shared != nil {
		reason = FallbackRecovering
		if l.useShared(now) {
			sctx, cancel := context.WithTimeout(ctx, l.cfg.StoreTimeout)
			hit, err := l.shared.Hit(sctx, key, capacity, window, now)
			cancel()
			if err == nil {
				l.markHealthy()
				return hit
			}
			reason = FallbackStoreError
			if ctx.Err() == nil {
				l.markDegraded(now, err)
			}
		}
	}
	l.metrics.ObserveFallback(reason)

	hit, err := l.local.Hit(ctx, key, capacity, window, now)
	if err != nil {
		l.logger.Error().Err(err).Str("key", key).Msg("local rate limit store failed, allowing request")
		return domain.Hit{Allowed: true, Count: 1, WindowStart: now, WindowExpiry: now.Add(window)}
	}
	return hit
}

func (l *Limiter) useShared(now time.Time) bool {
	if l.shared == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.degraded || !now.Before(l.skipUntil)
}

func (l *Limiter) markDegraded(now time.Time, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.skipUntil = now.Add(l.cfg.RecoveryInterval)
	if l.degraded {
		return
	}
	l.degraded = true
	l.logger.Warn().Err(err).Msg("shared rate limit store unavailable, falling back to local store")
}

func (l *Limiter) markHealthy() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.degraded {
		return
	}
	l.degraded = false
	l.logger.Info().Msg("shared rate limit store recovered")
}

func (l *Limiter) key(prefix, action, identifier string) string {
	if l.cfg.HashIdentifiers {
		identifier = domain.HashIdentifier(identifier)
	}
	return domain.Key(prefix, action, identifier)
}

func (l *Limiter) track(prefix string) {
	l.mu.Lock()
	l.prefixes[prefix] = struct{}{}
	l.mu.Unlock()
}

func (l *Limiter) trackedPrefixes() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.prefixes))
	for p := range l.prefixes {
		out = append(out, p)
	}
	return out
}

func toResult(hit domain.Hit, capacity int, now time.Time) domain.Result {
	if !hit.Allowed {
		retry := hit.WindowExpiry.Sub(now).Milliseconds()
		if retry < 1 {
			retry = 1
		}
		return domain.Result{Allowed: false, Remaining: 0, ResetAt: hit.WindowExpiry, RetryAfterMs: retry}
	}
	remaining := capacity - hit.Count
	if remaining < 0 {
		remaining = 0
	}
	return domain.Result{Allowed: true, Remaining: remaining, ResetAt: hit.WindowExpiry}
}

package ratelimit

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

const (
	DefaultPrefix        = "ratelimit"
	DefaultLimit         = 10
	DefaultWindowSeconds = 60
)

// ErrStoreUnavailable marks a shared-store failure. The limiter converts it to fallback mode.
var ErrStoreUnavailable = errors.New("rate limit store unavailable")

// Options configures one rate-limited action.
type Options struct {
	Prefix        string `json:"prefix"`
	Limit         int    `json:"limit"`
	WindowSeconds int    `json:"windowSeconds"`
	BurstLimit    int    `json:"burstLimit"`
}

// WithDefaults returns o with zero or negative fields replaced by defaults.
func (o Options) WithDefaults() Options {
	if strings.TrimSpace(o.Prefix) == "" {
		o.Prefix = DefaultPrefix
	}
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.WindowSeconds <= 0 {
		o.WindowSeconds = DefaultWindowSeconds
	}
	if o.BurstLimit < 0 {
		o.BurstLimit = 0
	}
	return o
}

// Capacity is the number of admissions per window: the steady limit plus the burst allowance.
func (o Options) Capacity() int {
	return o.Limit + o.BurstLimit
}

// Window returns the window length.
func (o Options) Window() time.Duration {
	return time.Duration(o.WindowSeconds) * time.Second
}

// Result is the outcome of an admission check.
type Result struct {
	Allowed      bool      `json:"allowed"`
	Remaining    int       `json:"remaining"`
	ResetAt      time.Time `json:"resetAt"`
	RetryAfterMs int64     `json:"retryAfterMs"`
}

// RetryAfter returns RetryAfterMs as a duration.
func (r Result) RetryAfter() time.Duration {
	return time.Duration(r.RetryAfterMs) * time.Millisecond
}

// Hit is what a store reports for one check-and-increment.
type Hit struct {
	Allowed      bool
	Count        int
	WindowStart  time.Time
	WindowExpiry time.Time
}

// Store is the narrow capability the limiter needs from a counter backend.
// Hit must run the whole fixed-window step atomically per key:
//   - absent or expired record: reset to count=1 with expiry now+window, allowed
//   - count >= capacity: not allowed, no increment
//   - otherwise: increment, allowed
type Store interface {
	Hit(ctx context.Context, key string, capacity int, window time.Duration, now time.Time) (Hit, error)
	Reset(ctx context.Context, key string) error
	// Sweep deletes records under prefix whose window ended at or before now.
	Sweep(ctx context.Context, prefix string, now time.Time) (int, error)
}

// Key builds the record key prefix:action:identifier.
func Key(prefix, action, identifier string) string {
	return prefix + ":" + action + ":" + identifier
}

// HashIdentifier returns the hex BLAKE2b-256 digest of identifier.
func HashIdentifier(identifier string) string {
	sum := blake2b.Sum256([]byte(identifier))
	return hex.EncodeToString(sum[:])
}

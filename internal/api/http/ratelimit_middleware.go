package httpapi

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// MemberHeader identifies the calling member for rate limiting and reviews.
// The server trusts it as given: it must be set by an authenticating gateway
// that strips any client-supplied value, otherwise a caller can rotate it to
// get a fresh rate limit window.
const MemberHeader = "X-Member-ID"

// rateLimit admits requests for action per caller identity.
func (s *Server) rateLimit(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.limiter == nil {
				next.ServeHTTP(w, r)
				return
			}
			res := s.limiter.Check(contextFromRequest(r), identifierFromRequest(r), action, s.policies[action])

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
			if !res.Allowed {
				retry := int64(math.Ceil(float64(res.RetryAfterMs) / 1000))
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.FormatInt(retry, 10))
				respondError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, retry later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// identifierFromRequest prefers the member header and falls back to the
// client address set by middleware.RealIP. See MemberHeader for the trust
// requirement on the header.
func identifierFromRequest(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(MemberHeader)); id != "" {
		return id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appTransaction "github.com/chama-ledger/ledger/internal/application/transaction"
	"github.com/chama-ledger/ledger/internal/domain/chama"
	"github.com/chama-ledger/ledger/internal/domain/ratelimit"
	"github.com/chama-ledger/ledger/internal/domain/wallet"
)

// Rate-limited actions.
const (
	ActionWalletCreate = "wallet.transaction.create"
	ActionWalletUpdate = "wallet.transaction.update"
	ActionChamaCreate  = "chama.transaction.create"
	ActionChamaUpdate  = "chama.transaction.update"
	ActionChamaReview  = "chama.transaction.review"
)

// WalletService is the wallet transaction API used by the handlers.
type WalletService interface {
	Create(ctx context.Context, in appTransaction.CreateWalletTx) (*wallet.Transaction, error)
	Get(ctx context.Context, id uuid.UUID) (*wallet.Transaction, error)
	List(ctx context.Context, filter wallet.Filter, limit, offset int) ([]*wallet.Transaction, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, next wallet.Status) (*wallet.Transaction, error)
}

// ChamaService is the chama transaction API used by the handlers.
type ChamaService interface {
	Create(ctx context.Context, in appTransaction.CreateChamaTx) (*chama.Transaction, error)
	Get(ctx context.Context, id uuid.UUID) (*chama.Transaction, error)
	List(ctx context.Context, filter chama.Filter, limit, offset int) ([]*chama.Transaction, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, next chama.Status) (*chama.Transaction, error)
	Review(ctx context.Context, id uuid.UUID, memberID string, decision chama.Decision) (*appTransaction.ReviewOutcome, error)
}

// MembershipStore reads and writes chama membership.
type MembershipStore interface {
	chama.MembershipProvider
	PutMember(ctx context.Context, chamaID string, member chama.Member) error
}

// RateLimiter admits requests.
type RateLimiter interface {
	Check(ctx context.Context, identifier, action string, opts ratelimit.Options) ratelimit.Result
}

// Health reports dependency status for /healthz.
type Health func(ctx context.Context) map[string]string

// Deps holds everything the router needs.
type Deps struct {
	Wallets  WalletService
	Chamas   ChamaService
	Members  MembershipStore
	Limiter  RateLimiter
	Policies map[string]ratelimit.Options
	Metrics  http.Handler
	Health   Health
	Logger   zerolog.Logger
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	wallets  WalletService
	chamas   ChamaService
	members  MembershipStore
	limiter  RateLimiter
	policies map[string]ratelimit.Options
	metrics  http.Handler
	health   Health
	logger   zerolog.Logger
}

func NewServer(deps Deps) *Server {
	policies := deps.Policies
	if policies == nil {
		policies = map[string]ratelimit.Options{}
	}
	return &Server{
		wallets:  deps.Wallets,
		chamas:   deps.Chamas,
		members:  deps.Members,
		limiter:  deps.Limiter,
		policies: policies,
		metrics:  deps.Metrics,
		health:   deps.Health,
		logger:   deps.Logger.With().Str("component", "http").Logger(),
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.healthz)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/wallets", func(r chi.Router) {
			r.With(s.rateLimit(ActionWalletCreate)).Post("/{userId}/transactions", s.createWalletTx)
			r.Get("/{userId}/transactions", s.listWalletTxs)
			r.Get("/transactions/{transactionId}", s.getWalletTx)
			r.With(s.rateLimit(ActionWalletUpdate)).Patch("/transactions/{transactionId}/status", s.updateWalletTxStatus)
		})

		r.Route("/chamas", func(r chi.Router) {
			r.With(s.rateLimit(ActionChamaCreate)).Post("/{chamaId}/transactions", s.createChamaTx)
			r.Get("/{chamaId}/transactions", s.listChamaTxs)
			r.Get("/{chamaId}/members", s.getMembership)
			r.Put("/{chamaId}/members/{memberId}", s.putMember)
			r.Get("/transactions/{transactionId}", s.getChamaTx)
			r.With(s.rateLimit(ActionChamaUpdate)).Patch("/transactions/{transactionId}/status", s.updateChamaTxStatus)
			r.With(s.rateLimit(ActionChamaReview)).Post("/transactions/{transactionId}/reviews", s.reviewChamaTx)
		})
	})

	return r
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	if s.health != nil {
		checks = s.health(contextFromRequest(r))
	}
	status := http.StatusOK
	for _, v := range checks {
		if v != "ok" && v != "degraded" {
			status = http.StatusServiceUnavailable
		}
	}
	respondJSON(w, status, map[string]interface{}{"status": http.StatusText(status), "checks": checks})
}

// Helpers
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

func parseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	val := chi.URLParam(r, key)
	return uuid.Parse(val)
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func contextFromRequest(r *http.Request) context.Context {
	return r.Context()
}

func parseLimitOffset(r *http.Request, defaultLimit, maxLimit int) (int, int) {
	limit := defaultLimit
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			limit = l
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil {
			offset = o
		}
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

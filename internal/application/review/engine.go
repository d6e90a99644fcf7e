package review

import (
	"github.com/rs/zerolog"

	"github.com/chama-ledger/ledger/internal/domain/chama"
)

// Metrics receives quorum outcomes.
type Metrics interface {
	ObserveQuorum(outcome string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveQuorum(string) {}

// Engine maintains review lists and computes chama transaction status from
// them. It never touches persistence and never fails; callers validate the
// computed status against the chama transition table before persisting it.
type Engine struct {
	metrics Metrics
	logger  zerolog.Logger
}

// NewEngine creates a review engine. metrics may be nil.
func NewEngine(metrics Metrics, logger zerolog.Logger) *Engine {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Engine{
		metrics: metrics,
		logger:  logger.With().Str("service", "review").Logger(),
	}
}

// HasReview reports whether memberID reviewed tx, optionally with a specific decision.
func (e *Engine) HasReview(tx chama.Reviewable, memberID string, decision ...chama.Decision) bool {
	return chama.HasReview(tx, memberID, decision...)
}

// UpsertReview returns tx's reviews with memberID's decision added or replaced.
func (e *Engine) UpsertReview(tx chama.Reviewable, memberID string, decision chama.Decision) []chama.Review {
	return chama.UpsertReview(tx, memberID, decision)
}

// ComputeStatus evaluates the quorum rule and reports veto and full approval.
func (e *Engine) ComputeStatus(tx chama.Reviewable, membership chama.Membership, fallback chama.Status) chama.QuorumResult {
	res := chama.EvaluateQuorum(tx, membership, fallback)
	e.metrics.ObserveQuorum(string(res.Outcome))

	switch res.Outcome {
	case chama.OutcomeVetoed:
		e.logger.Info().
			Str("chamaId", membership.ChamaID).
			Str("rejector", res.Rejector).
			Int("eligible", res.Eligible).
			Msg("transaction rejected by reviewer")
	case chama.OutcomeApproved:
		e.logger.Info().
			Str("chamaId", membership.ChamaID).
			Int("approvals", res.Approvals).
			Int("eligible", res.Eligible).
			Msg("transaction approved by quorum")
	default:
		e.logger.Debug().
			Str("chamaId", membership.ChamaID).
			Int("approvals", res.Approvals).
			Int("eligible", res.Eligible).
			Msg("quorum not reached")
	}
	return res
}

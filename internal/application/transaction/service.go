package transaction

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/chama-ledger/ledger/internal/domain/event"
	"github.com/chama-ledger/ledger/internal/domain/lifecycle"
)

var (
	ErrNotFound           = errors.New("transaction not found")
	ErrNotMember          = errors.New("reviewer is not a member of the chama")
	ErrIneligibleReviewer = errors.New("reviewer is not a chama admin")
	ErrInvalidDecision    = errors.New("decision must be APPROVE or REJECT")
	ErrReviewClosed       = errors.New("transaction is final and no longer accepts reviews")
)

// Metrics receives persisted and rejected status transitions.
type Metrics interface {
	ObserveTransition(kind, from, to string)
	ObserveInvalidTransition(kind string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveTransition(string, string, string) {}
func (nopMetrics) ObserveInvalidTransition(string)          {}

const (
	kindWallet = "wallet"
	kindChama  = "chama"
)

// notifier is shared by both services to publish events and record metrics.
type notifier struct {
	publisher event.Publisher
	metrics   Metrics
	logger    zerolog.Logger
}

func newNotifier(publisher event.Publisher, metrics Metrics, logger zerolog.Logger) notifier {
	if publisher == nil {
		publisher = event.NopPublisher{}
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return notifier{publisher: publisher, metrics: metrics, logger: logger}
}

func (n notifier) publish(ctx context.Context, evt *event.Event) {
	if err := n.publisher.Publish(ctx, evt); err != nil {
		n.logger.Warn().Err(err).
			Str("event", evt.Type).
			Str("transactionId", evt.TransactionID.String()).
			Msg("failed to publish event")
	}
}

func (n notifier) rejected(kind string, err error) {
	if errors.Is(err, lifecycle.ErrInvalidTransition) {
		n.metrics.ObserveInvalidTransition(kind)
	}
}

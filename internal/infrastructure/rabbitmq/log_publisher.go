package rabbitmq

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/chama-ledger/ledger/internal/domain/event"
)

// LogPublisher writes events to the log. Used when no broker is configured.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With().Str("component", "events").Logger()}
}

func (p *LogPublisher) Publish(_ context.Context, evt *event.Event) error {
	p.logger.Info().
		Str("eventId", evt.EventID.String()).
		Str("routingKey", evt.Type).
		Str("transactionId", evt.TransactionID.String()).
		Str("from", evt.From).
		Str("to", evt.To).
		Str("actor", evt.Actor).
		Msg("event")
	return nil
}

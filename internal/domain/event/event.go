package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Routing keys published by the transaction services.
const (
	WalletStatusChanged = "wallet.transaction.status_changed"
	ChamaStatusChanged  = "chama.transaction.status_changed"
	ChamaApproved       = "chama.transaction.approved"
	ChamaRejected       = "chama.transaction.rejected"
)

// Event is the envelope published for every transaction lifecycle change.
type Event struct {
	EventID       uuid.UUID         `json:"eventId"`
	Type          string            `json:"type"`
	TransactionID uuid.UUID         `json:"transactionId"`
	From          string            `json:"from,omitempty"`
	To            string            `json:"to"`
	Actor         string            `json:"actor,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
	OccurredAt    time.Time         `json:"occurredAt"`
}

// New builds an event stamped with a fresh id and the current time.
func New(eventType string, transactionID uuid.UUID, from, to string) *Event {
	return &Event{
		EventID:       uuid.New(),
		Type:          eventType,
		TransactionID: transactionID,
		From:          from,
		To:            to,
		OccurredAt:    time.Now().UTC(),
	}
}

// Publisher delivers events to the observability sink.
type Publisher interface {
	Publish(ctx context.Context, evt *Event) error
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *Event) error { return nil }

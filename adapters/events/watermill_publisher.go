package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/layer-3/turnstile/ports"
)

// SessionIssuedTopic is where freshly minted sessions are announced
const SessionIssuedTopic = "turnstile.session.issued"

// SessionIssuedEvent represents a session minted after a successful
// shared secret check. The token itself is never published.
type SessionIssuedEvent struct {
	RecordID string    `json:"record_id"`
	IssuedAt time.Time `json:"issued_at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topic:     SessionIssuedTopic,
	}
}

// PublishSessionIssued publishes a session issued event
func (p *WatermillPublisher) PublishSessionIssued(ctx context.Context, recordID string, issuedAt time.Time) error {
	payload, err := json.Marshal(SessionIssuedEvent{
		RecordID: recordID,
		IssuedAt: issuedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// NopPublisher drops every event. Used when no event transport is configured.
type NopPublisher struct{}

// PublishSessionIssued does nothing
func (NopPublisher) PublishSessionIssued(context.Context, string, time.Time) error {
	return nil
}

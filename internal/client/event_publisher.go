package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Publisher is the subset of *nats.Conn the event publisher needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// EventPublisher publishes brand lifecycle events to NATS.
//
// Subject convention: <prefix>.<event_type>, e.g. brands.progressed.
//
// Publishing is non-fatal: failures are logged and never returned, so an
// unavailable broker cannot block a status change.
type EventPublisher struct {
	pub    Publisher
	prefix string
	log    zerolog.Logger
}

// BrandEvent is the JSON schema published to NATS.
type BrandEvent struct {
	EventType    string                 `json:"event_type"`
	BrandID      string                 `json:"brand_id"`
	OwnerID      string                 `json:"owner_id,omitempty"`
	ActorID      string                 `json:"actor_id,omitempty"`
	StatusBefore string                 `json:"status_before,omitempty"`
	StatusAfter  string                 `json:"status_after"`
	Route        string                 `json:"route"`
	Step         int                    `json:"step"`
	OccurredAt   time.Time              `json:"occurred_at"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
}

// NewEventPublisher creates a publisher. A nil Publisher disables publishing.
func NewEventPublisher(pub Publisher, prefix string, log zerolog.Logger) *EventPublisher {
	return &EventPublisher{pub: pub, prefix: prefix, log: log}
}

// Connect dials NATS and returns a publisher backed by the connection. The
// caller owns the returned connection.
func Connect(url, prefix, name string, log zerolog.Logger) (*EventPublisher, *nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return NewEventPublisher(nc, prefix, log), nc, nil
}

// PublishBrandEvent publishes a brand lifecycle event.
func (p *EventPublisher) PublishBrandEvent(_ context.Context, event *BrandEvent) {
	if p == nil || p.pub == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("event_type", event.EventType).Msg("event: failed to marshal")
		return
	}

	subject := fmt.Sprintf("%s.%s", p.prefix, event.EventType)
	if err := p.pub.Publish(subject, data); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Str("brand_id", event.BrandID).
			Msg("event: failed to publish NATS event (non-fatal)")
		return
	}

	p.log.Debug().
		Str("subject", subject).
		Str("brand_id", event.BrandID).
		Msg("event: published")
}

// Package events publishes domain events about greetings.
package events

import (
	"context"
	"time"
)

// Routing keys
const (
	KeyGreetingCreated = "greeting.created"
)

// Publisher sends an event to the broker under a routing key.
type Publisher interface {
	Publish(ctx context.Context, key string, event any, reqID string) error
	Close() error
}

// GreetingCreated is emitted after a greeting has been stored.
type GreetingCreated struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	CreatedAt time.Time `json:"created_at"`
	RequestID string    `json:"request_id"`
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

// NewNoop returns a Publisher that does nothing
func NewNoop() Publisher { return NoopPublisher{} }

func (NoopPublisher) Publish(context.Context, string, any, string) error { return nil }

func (NoopPublisher) Close() error { return nil }

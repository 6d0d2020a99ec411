package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventBus defines the interface for the event bus system
type EventBus interface {
	// Publish publishes an event to the event bus
	Publish(ctx context.Context, event Event) error

	// PublishAsync publishes an event asynchronously (non-blocking)
	PublishAsync(event Event) error

	// Subscribe subscribes to events matching the filter
	Subscribe(ctx context.Context, filter EventFilter, handler EventHandler) (*Subscription, error)

	// Unsubscribe removes a subscription
	Unsubscribe(subscriptionID string) error

	// GetSubscriptions returns all active subscriptions
	GetSubscriptions() []*Subscription

	// RecentEvents returns up to limit most recent events, newest first
	RecentEvents(limit int) []Event

	// GetStats returns event bus statistics
	GetStats() EventStats

	// Stop stops the event bus gracefully
	Stop(ctx context.Context) error
}

// Helper functions for creating events

// NewEvent creates a new event with default values
func NewEvent(eventType EventType, source string, title string, message string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    source,
		Title:     title,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewEventWithData creates a new event with structured data
func NewEventWithData(eventType EventType, source string, title string, message string, data map[string]interface{}) Event {
	event := NewEvent(eventType, source, title, message)
	event.Data = data
	return event
}

// NewSystemEvent creates a system event
func NewSystemEvent(eventType EventType, title string, message string) Event {
	return NewEvent(eventType, "system", title, message)
}

// NewPublisherEvent creates an event sourced to a publisher account
func NewPublisherEvent(eventType EventType, publisherID string, title string, message string) Event {
	return NewEvent(eventType, "publisher:"+publisherID, title, message)
}

// Global bus registration, set once at startup so modules can publish without
// threading the bus through every constructor.

var globalBus EventBus

// SetGlobalEventBus registers the process-wide event bus
func SetGlobalEventBus(bus EventBus) {
	globalBus = bus
}

// GetGlobalEventBus returns the process-wide event bus, or nil before startup
func GetGlobalEventBus() EventBus {
	return globalBus
}

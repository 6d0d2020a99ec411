// Package events provides the core event bus implementation.
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/showline/showline/internal/logger"
)

const recentEventCapacity = 100

// eventBus implements the EventBus interface
type eventBus struct {
	mu            sync.RWMutex
	subscriptions map[string]*Subscription
	running       bool

	// Bounded in-memory history, newest last
	recentEvents []Event
	totalEvents  int64
	eventsByType map[string]int64

	wg sync.WaitGroup
}

// NewEventBus creates a new event bus instance
func NewEventBus() EventBus {
	return &eventBus{
		subscriptions: make(map[string]*Subscription),
		recentEvents:  make([]Event, 0, recentEventCapacity),
		eventsByType:  make(map[string]int64),
		running:       true,
	}
}

// Publish publishes an event and dispatches it to matching subscribers
// synchronously. Handler errors are logged, never propagated to the
// publisher.
func (eb *eventBus) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	eb.mu.Lock()
	if !eb.running {
		eb.mu.Unlock()
		return fmt.Errorf("event bus is not running")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	eb.record(event)
	handlers := eb.matchingSubscriptions(event)
	eb.mu.Unlock()

	for _, sub := range handlers {
		if err := sub.Handler(event); err != nil {
			logger.Warn("Event handler failed: subscription=%s event=%s error=%v", sub.ID, event.Type, err)
		}
	}
	return nil
}

// PublishAsync publishes an event without blocking the caller
func (eb *eventBus) PublishAsync(event Event) error {
	eb.mu.RLock()
	running := eb.running
	eb.mu.RUnlock()
	if !running {
		return fmt.Errorf("event bus is not running")
	}

	eb.wg.Add(1)
	go func() {
		defer eb.wg.Done()
		if err := eb.Publish(context.Background(), event); err != nil {
			logger.Warn("Async event publish failed: event=%s error=%v", event.Type, err)
		}
	}()
	return nil
}

// Subscribe registers a handler for events matching the filter
func (eb *eventBus) Subscribe(ctx context.Context, filter EventFilter, handler EventHandler) (*Subscription, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler must not be nil")
	}

	sub := &Subscription{
		ID:      uuid.NewString(),
		Filter:  filter,
		Handler: handler,
		Created: time.Now(),
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()
	if !eb.running {
		return nil, fmt.Errorf("event bus is not running")
	}
	eb.subscriptions[sub.ID] = sub
	return sub, nil
}

// Unsubscribe removes a subscription
func (eb *eventBus) Unsubscribe(subscriptionID string) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if _, ok := eb.subscriptions[subscriptionID]; !ok {
		return fmt.Errorf("subscription not found: %s", subscriptionID)
	}
	delete(eb.subscriptions, subscriptionID)
	return nil
}

// GetSubscriptions returns all active subscriptions
func (eb *eventBus) GetSubscriptions() []*Subscription {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	subs := make([]*Subscription, 0, len(eb.subscriptions))
	for _, sub := range eb.subscriptions {
		subs = append(subs, sub)
	}
	return subs
}

// RecentEvents returns up to limit most recent events, newest first
func (eb *eventBus) RecentEvents(limit int) []Event {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	n := len(eb.recentEvents)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Event, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, eb.recentEvents[i])
	}
	return out
}

// GetStats returns event bus statistics
func (eb *eventBus) GetStats() EventStats {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	byType := make(map[string]int64, len(eb.eventsByType))
	for k, v := range eb.eventsByType {
		byType[k] = v
	}
	return EventStats{
		TotalEvents:         eb.totalEvents,
		EventsByType:        byType,
		ActiveSubscriptions: len(eb.subscriptions),
	}
}

// Stop stops the event bus gracefully, waiting for in-flight async publishes
func (eb *eventBus) Stop(ctx context.Context) error {
	eb.mu.Lock()
	if !eb.running {
		eb.mu.Unlock()
		return nil
	}
	eb.running = false
	eb.mu.Unlock()

	done := make(chan struct{})
	go func() {
		eb.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Event bus stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.Warn("Event bus stop timed out")
		return ctx.Err()
	}
}

// record appends to the bounded history and updates counters. Caller holds
// the write lock.
func (eb *eventBus) record(event Event) {
	if len(eb.recentEvents) >= recentEventCapacity {
		eb.recentEvents = eb.recentEvents[1:]
	}
	eb.recentEvents = append(eb.recentEvents, event)
	eb.totalEvents++
	eb.eventsByType[string(event.Type)]++
}

// matchingSubscriptions collects handlers for the event and bumps trigger
// counters. Caller holds the write lock.
func (eb *eventBus) matchingSubscriptions(event Event) []*Subscription {
	var matched []*Subscription
	for _, sub := range eb.subscriptions {
		if sub.Filter.Matches(event) {
			sub.TriggerCount++
			matched = append(matched, sub)
		}
	}
	return matched
}

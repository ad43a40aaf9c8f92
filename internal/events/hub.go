// Package events fans committed lifecycle events out to live subscribers and external sinks.
package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/aryan0dhankhar/onboardhr/internal/domain"
)

const subscriberBuffer = 32

// Hub delivers events to subscribers of the event's organization. Slow
// subscribers lose events rather than blocking publishers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscription]struct{}
	logger *slog.Logger
}

type subscription struct {
	ch chan domain.Event
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{subs: make(map[string]map[*subscription]struct{}), logger: logger}
}

// Subscribe registers for one organization's events. The returned cancel func
// must be called to release the subscription; it closes the channel.
func (h *Hub) Subscribe(organizationID string) (<-chan domain.Event, func()) {
	sub := &subscription{ch: make(chan domain.Event, subscriberBuffer)}

	h.mu.Lock()
	if h.subs[organizationID] == nil {
		h.subs[organizationID] = make(map[*subscription]struct{})
	}
	h.subs[organizationID][sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[organizationID], sub)
			if len(h.subs[organizationID]) == 0 {
				delete(h.subs, organizationID)
			}
			h.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Publish implements domain.EventPublisher
func (h *Hub) Publish(_ context.Context, event domain.Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[event.OrganizationID] {
		select {
		case sub.ch <- event:
		default:
			h.logger.Warn("dropping event for slow subscriber",
				slog.String("organization_id", event.OrganizationID),
				slog.String("type", string(event.Type)),
			)
		}
	}
	return nil
}

// Subscribers returns the number of live subscriptions for an organization
func (h *Hub) Subscribers(organizationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[organizationID])
}

// Multi publishes every event to all sinks and joins their errors
type Multi []domain.EventPublisher

func (m Multi) Publish(ctx context.Context, event domain.Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

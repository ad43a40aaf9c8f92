package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/onboardhr/internal/domain"
)

func TestHubScopesByOrganization(t *testing.T) {
	h := NewHub(nil)
	acme, cancelAcme := h.Subscribe("acme")
	defer cancelAcme()
	globex, cancelGlobex := h.Subscribe("globex")
	defer cancelGlobex()

	require.NoError(t, h.Publish(context.Background(), domain.Event{Type: domain.EventEmployeeInvited, OrganizationID: "acme", EmployeeID: "e1"}))

	got := <-acme
	assert.Equal(t, "e1", got.EmployeeID)
	select {
	case e := <-globex:
		t.Fatalf("globex received acme event %+v", e)
	default:
	}
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	h := NewHub(nil)
	ch, cancel := h.Subscribe("acme")
	defer cancel()

	for i := 0; i < subscriberBuffer+5; i++ {
		require.NoError(t, h.Publish(context.Background(), domain.Event{OrganizationID: "acme"}))
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestHubCancel(t *testing.T) {
	h := NewHub(nil)
	ch, cancel := h.Subscribe("acme")
	assert.Equal(t, 1, h.Subscribers("acme"))

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, h.Subscribers("acme"))
	assert.NoError(t, h.Publish(context.Background(), domain.Event{OrganizationID: "acme"}))
}

type failingPublisher struct{ err error }

func (f failingPublisher) Publish(context.Context, domain.Event) error { return f.err }

func TestMultiJoinsErrors(t *testing.T) {
	h := NewHub(nil)
	ch, cancel := h.Subscribe("acme")
	defer cancel()

	boom := errors.New("broker down")
	m := Multi{failingPublisher{err: boom}, nil, h}
	err := m.Publish(context.Background(), domain.Event{OrganizationID: "acme"})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, ch, 1, "later sinks still receive the event")
}

package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	skafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/onboardhr/internal/domain"
)

type fakeWriter struct {
	msgs []skafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...skafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestPublishKeysByEmployee(t *testing.T) {
	fw := &fakeWriter{}
	p := NewPublisherWithWriter(fw, nil)
	event := domain.Event{
		Type:           domain.EventEmployeeArchived,
		OrganizationID: "org-1",
		EmployeeID:     "emp-1",
		ActorID:        "admin-1",
		At:             time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		Data:           map[string]string{"reason": "Resigned"},
	}

	require.NoError(t, p.Publish(context.Background(), event))
	require.Len(t, fw.msgs, 1)
	msg := fw.msgs[0]
	assert.Equal(t, "emp-1", string(msg.Key))
	assert.Equal(t, "employee.archived", string(msg.Headers[0].Value))

	var decoded domain.Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.Type, decoded.Type)
	assert.Equal(t, "Resigned", decoded.Data["reason"])
}

func TestPublishWriteError(t *testing.T) {
	p := NewPublisherWithWriter(&fakeWriter{err: errors.New("no brokers")}, nil)
	err := p.Publish(context.Background(), domain.Event{EmployeeID: "emp-1"})
	assert.ErrorContains(t, err, "no brokers")
}

func TestWriterFlushesPromptly(t *testing.T) {
	w := newWriter([]string{"kafka-1:9092"}, "onboardhr.employee-events")
	defer w.Close()

	assert.Equal(t, flushInterval, w.BatchTimeout)
	assert.LessOrEqual(t, w.BatchTimeout, 50*time.Millisecond, "publishing happens inside request handling")
	assert.False(t, w.Async, "write errors must reach the caller")
	assert.IsType(t, &skafka.Hash{}, w.Balancer)
	assert.Equal(t, "onboardhr.employee-events", w.Topic)
}

package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/interfaces"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	service := NewService(arbor.NewLogger())
	defer service.Close()

	received := make(chan interfaces.Event, 2)
	handler := func(ctx context.Context, event interfaces.Event) error {
		received <- event
		return nil
	}

	require.NoError(t, service.Subscribe(interfaces.EventPublishCompleted, handler))
	require.NoError(t, service.Subscribe(interfaces.EventPublishCompleted, handler))

	event := interfaces.Event{
		Type:    interfaces.EventPublishCompleted,
		Payload: map[string]interface{}{"platform": "tumblr"},
	}
	require.NoError(t, service.Publish(context.Background(), event))

	for i := 0; i < 2; i++ {
		select {
		case got := <-received:
			assert.Equal(t, interfaces.EventPublishCompleted, got.Type)
		case <-time.After(2 * time.Second):
			t.Fatal("handler was not invoked")
		}
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	service := NewService(arbor.NewLogger())
	defer service.Close()

	assert.NoError(t, service.Publish(context.Background(), interfaces.Event{Type: interfaces.EventAuthCompleted}))
}

func TestSubscribeNilHandler(t *testing.T) {
	service := NewService(arbor.NewLogger())
	defer service.Close()

	assert.Error(t, service.Subscribe(interfaces.EventAuthCompleted, nil))
}

func TestHandlerErrorDoesNotAffectOthers(t *testing.T) {
	service := NewService(arbor.NewLogger())
	defer service.Close()

	received := make(chan struct{}, 1)
	require.NoError(t, service.Subscribe(interfaces.EventAuthCompleted, func(ctx context.Context, event interfaces.Event) error {
		return assert.AnError
	}))
	require.NoError(t, service.Subscribe(interfaces.EventAuthCompleted, func(ctx context.Context, event interfaces.Event) error {
		received <- struct{}{}
		return nil
	}))

	require.NoError(t, service.Publish(context.Background(), interfaces.Event{Type: interfaces.EventAuthCompleted}))

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("second handler was not invoked")
	}
}

func TestClosedServiceRejectsUse(t *testing.T) {
	service := NewService(arbor.NewLogger())
	require.NoError(t, service.Close())

	assert.Error(t, service.Publish(context.Background(), interfaces.Event{Type: interfaces.EventAuthCompleted}))
	assert.Error(t, service.Subscribe(interfaces.EventAuthCompleted, func(ctx context.Context, event interfaces.Event) error { return nil }))
}

package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusdaemon/nexus/internal/common/logger"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(logger.LoggingConfig{Level: "debug", Format: "console", OutputPath: "stdout"})
	require.NoError(t, err)
	return log
}

func awaitEvent(t *testing.T, ch <-chan *Event) *Event {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestPublishDeliversToExactSubjectSubscriber(t *testing.T) {
	b := NewMemoryEventBus(newTestLogger(t))
	defer b.Close()

	received := make(chan *Event, 1)
	_, err := b.Subscribe("watcher.event.changed", func(ctx context.Context, evt *Event) error {
		received <- evt
		return nil
	})
	require.NoError(t, err)

	evt := NewEvent("changed", "watcher", map[string]any{"command": "describe"})
	require.NoError(t, b.Publish(context.Background(), "watcher.event.changed", evt))

	got := awaitEvent(t, received)
	assert.Equal(t, evt.ID, got.ID)
	assert.Equal(t, "changed", got.Type)
}

func TestPublishSkipsNonMatchingSubject(t *testing.T) {
	b := NewMemoryEventBus(newTestLogger(t))
	defer b.Close()

	received := make(chan *Event, 1)
	_, err := b.Subscribe("watcher.event.changed", func(ctx context.Context, evt *Event) error {
		received <- evt
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish(context.Background(), "cache.invalidated", NewEvent("invalidated", "cache", nil)))

	select {
	case evt := <-received:
		t.Fatalf("unexpected delivery: %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeWildcardGreaterMatchesRemainingTokens(t *testing.T) {
	b := NewMemoryEventBus(newTestLogger(t))
	defer b.Close()

	received := make(chan *Event, 2)
	_, err := b.Subscribe("watcher.event.>", func(ctx context.Context, evt *Event) error {
		received <- evt
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish(context.Background(), "watcher.event.changed", NewEvent("changed", "watcher", nil)))
	require.NoError(t, b.Publish(context.Background(), "watcher.event.focus.lost", NewEvent("focus.lost", "watcher", nil)))

	first := awaitEvent(t, received)
	second := awaitEvent(t, received)
	assert.ElementsMatch(t, []string{"changed", "focus.lost"}, []string{first.Type, second.Type})
}

func TestSubscribeWildcardStarMatchesSingleToken(t *testing.T) {
	b := NewMemoryEventBus(newTestLogger(t))
	defer b.Close()

	received := make(chan *Event, 1)
	_, err := b.Subscribe("watcher.event.*", func(ctx context.Context, evt *Event) error {
		received <- evt
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish(context.Background(), "watcher.event.focus.lost", NewEvent("focus.lost", "watcher", nil)))

	select {
	case evt := <-received:
		t.Fatalf("single-token wildcard should not match multi-token subject: %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewMemoryEventBus(newTestLogger(t))
	defer b.Close()

	received := make(chan *Event, 1)
	sub, err := b.Subscribe("watcher.event.changed", func(ctx context.Context, evt *Event) error {
		received <- evt
		return nil
	})
	require.NoError(t, err)
	require.True(t, sub.IsValid())

	require.NoError(t, sub.Unsubscribe())
	assert.False(t, sub.IsValid())

	require.NoError(t, b.Publish(context.Background(), "watcher.event.changed", NewEvent("changed", "watcher", nil)))

	select {
	case evt := <-received:
		t.Fatalf("unsubscribed handler should not receive events: %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestClosedBusRejectsPublishAndSubscribe(t *testing.T) {
	b := NewMemoryEventBus(newTestLogger(t))
	b.Close()

	_, err := b.Subscribe("watcher.event.changed", func(ctx context.Context, evt *Event) error { return nil })
	assert.Error(t, err)

	err = b.Publish(context.Background(), "watcher.event.changed", NewEvent("changed", "watcher", nil))
	assert.Error(t, err)
}

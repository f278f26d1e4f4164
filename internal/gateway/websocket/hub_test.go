package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusdaemon/nexus/internal/common/logger"
	"github.com/nexusdaemon/nexus/internal/events/bus"
	ws "github.com/nexusdaemon/nexus/pkg/websocket"
)

func newTestClient() *Client {
	return &Client{
		ID:     "test-client",
		send:   make(chan []byte, 8),
		kinds:  make(map[string]bool),
		logger: logger.Default(),
	}
}

func TestHubRegisterAndUnregister(t *testing.T) {
	h := NewHub(logger.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	c := newTestClient()
	h.Register(c)
	require.Eventually(t, func() bool { return h.GetClientCount() == 1 }, time.Second, time.Millisecond)

	h.Unregister(c)
	require.Eventually(t, func() bool { return h.GetClientCount() == 0 }, time.Second, time.Millisecond)
}

func TestClientWantsWithNoFilterAcceptsEverything(t *testing.T) {
	c := newTestClient()
	assert.True(t, c.wants("watcher.event.focus_changed"))
}

func TestClientWantsRespectsFilter(t *testing.T) {
	c := newTestClient()
	c.kinds["focus_changed"] = true
	assert.True(t, c.wants("focus_changed"))
	assert.False(t, c.wants("window_opened"))
}

func TestBroadcastDeliversOnlyToWantingClients(t *testing.T) {
	h := NewHub(logger.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	wants := newTestClient()
	wants.kinds["focus_changed"] = true
	skips := newTestClient()
	skips.kinds["window_opened"] = true

	h.Register(wants)
	h.Register(skips)
	require.Eventually(t, func() bool { return h.GetClientCount() == 2 }, time.Second, time.Millisecond)

	msg, err := ws.NewNotification("focus_changed", map[string]any{"element": "Save"})
	require.NoError(t, err)
	h.Broadcast(msg)

	select {
	case data := <-wants.send:
		var got ws.Message
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, "focus_changed", got.Action)
	case <-time.After(time.Second):
		t.Fatal("expected message was not delivered")
	}

	select {
	case <-skips.send:
		t.Fatal("unsubscribed client should not receive focus_changed")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPublishEventBroadcastsBusEvent(t *testing.T) {
	h := NewHub(logger.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	c := newTestClient()
	h.Register(c)
	require.Eventually(t, func() bool { return h.GetClientCount() == 1 }, time.Second, time.Millisecond)

	evt := bus.NewEvent("watcher.event.window_opened", "watcher", map[string]any{"title": "Notepad"})
	require.NoError(t, h.PublishEvent(context.Background(), evt))

	select {
	case data := <-c.send:
		var got ws.Message
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, "watcher.event.window_opened", got.Action)
	case <-time.After(time.Second):
		t.Fatal("expected event was not broadcast")
	}
}

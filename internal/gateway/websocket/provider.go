package websocket

import (
	"context"

	"github.com/nexusdaemon/nexus/internal/common/logger"
	"github.com/nexusdaemon/nexus/internal/events/bus"
)

// Provide creates the event-stream gateway, starts its hub loop, and
// subscribes it to every watcher event published on the bus. Cancelling ctx
// stops the hub and closes its connected clients.
func Provide(ctx context.Context, eventBus bus.EventBus, log *logger.Logger) (*Gateway, error) {
	gateway := NewGateway(log)
	go gateway.Hub.Run(ctx)

	if eventBus != nil {
		if _, err := eventBus.Subscribe("watcher.event.>", gateway.Hub.PublishEvent); err != nil {
			return nil, err
		}
	}
	return gateway, nil
}

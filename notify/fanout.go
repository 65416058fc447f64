package notify

import (
	"context"

	"github.com/afoninsky/bishop/headers"
	"github.com/afoninsky/bishop/pattern"
	"github.com/afoninsky/bishop/transport"
)

// Logger is the minimal logging surface FanOut needs: fan-out errors
// are logged, never propagated (§4.6, §7).
type Logger interface {
	Error(msg string, args ...any)
}

// FanOut delivers a completed call's event to every subscriber named
// in h.Notify: "local" publishes on bus under the routing key built
// with LocalWildcard; any other name invokes the named transport's
// Notify. Callers run FanOut in its own goroutine — it does not
// return until every subscriber has been attempted, but the caller of
// Act itself never waits on it (§4.6's detachment is the dispatcher's
// responsibility, not FanOut's).
func FanOut(ctx context.Context, registry *transport.Registry, bus *Bus, matched pattern.Pattern, message any, h *headers.Headers, log Logger) {
	for _, name := range h.Notify {
		if name == "local" {
			bus.Publish(RoutingKey(matched, LocalWildcard), message)
			continue
		}

		t, ok := registry.Get(name)
		if !ok {
			log.Error("notify: unknown transport", "transport", name, "id", h.ID)
			continue
		}
		if t.Notify == nil {
			log.Error("notify: transport has no notify hook", "transport", name, "id", h.ID)
			continue
		}
		if err := t.Notify(ctx, message, h); err != nil {
			log.Error("notify: transport notify failed", "transport", name, "id", h.ID, "error", err)
		}
	}
}

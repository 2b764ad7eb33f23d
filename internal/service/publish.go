package service

import (
	"context"

	"github.com/Skotchmaster/church_members/internal/events"
	"github.com/Skotchmaster/church_members/internal/logging"
)

// publish is best effort: a broker failure is logged and never fails the caller.
func publish(ctx context.Context, p events.Publisher, topic string, ev events.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, topic, ev); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "type", ev.Type, "topic", topic, "error", err)
	}
}

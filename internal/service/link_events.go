package service

import (
	"context"
	"fmt"

	"heater_monitor/internal/link"
	"heater_monitor/internal/logger"
	"heater_monitor/internal/metrics"
	"heater_monitor/internal/models"
	"heater_monitor/internal/repository"
)

// NewLinkObserver returns a link.Manager subscriber that mirrors status events
// into metrics and LINK events. It runs on the link worker goroutine.
func NewLinkObserver(events repository.EventRepo, m *metrics.Metrics, log *logger.Logger) func(link.StatusEvent) {
	if log == nil {
		log = logger.Nop()
	}
	return func(ev link.StatusEvent) {
		m.LinkStatus(ev.State.Status)
		if ev.Kind == link.EventReconnecting {
			m.Reconnect()
		}

		meta := map[string]any{
			"kind":               string(ev.Kind),
			"port":               ev.State.Port,
			"status":             string(ev.State.Status),
			"consecutive_errors": ev.State.ConsecutiveErrors,
		}
		if ev.Reason != "" {
			meta["reason"] = ev.Reason
		}
		if ev.Err != nil {
			meta["err"] = ev.Err.Error()
		}

		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		err := events.Append(ctx, models.HeaterEvent{
			Type:        models.EventLink,
			Description: describeLinkEvent(ev),
			Metadata:    meta,
		})
		if err != nil {
			log.Errorw("link_event_append_failed", "err", err, "kind", string(ev.Kind))
		}
	}
}

func describeLinkEvent(ev link.StatusEvent) string {
	if ev.Reason != "" {
		return fmt.Sprintf("link %s on %s (%s)", ev.Kind, ev.State.Port, ev.Reason)
	}
	return fmt.Sprintf("link %s on %s", ev.Kind, ev.State.Port)
}

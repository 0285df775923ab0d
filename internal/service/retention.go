package service

import (
	"context"
	"fmt"
	"time"

	"heater_monitor/internal/config"
	"heater_monitor/internal/lifecycle"
	"heater_monitor/internal/logger"
	"heater_monitor/internal/repository"

	"github.com/jonboulle/clockwork"
)

const pruneTimeout = 30 * time.Second

// EventRetention keeps the event journal inside its configured age and row bounds.
type EventRetention struct {
	repo  repository.EventRepo
	cfg   config.EventsConfig
	clock clockwork.Clock
	log   *logger.Logger
}

func NewEventRetention(repo repository.EventRepo, cfg config.EventsConfig, clock clockwork.Clock, log *logger.Logger) *EventRetention {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &EventRetention{repo: repo, cfg: cfg, clock: clock, log: log}
}

// Prune deletes events older than MaxAge and keeps at most MaxRows.
func (r *EventRetention) Prune(ctx context.Context) (int64, error) {
	if r.cfg.MaxAge <= 0 && r.cfg.MaxRows <= 0 {
		return 0, nil
	}
	var before time.Time
	if r.cfg.MaxAge > 0 {
		before = r.clock.Now().Add(-r.cfg.MaxAge)
	}
	n, err := r.repo.Prune(ctx, before, r.cfg.MaxRows)
	if n > 0 {
		r.log.Infow("events_pruned", "deleted", n, "max_age", r.cfg.MaxAge, "max_rows", r.cfg.MaxRows)
	}
	if err != nil {
		return n, fmt.Errorf("prune events: %w", err)
	}
	return n, nil
}

// OnSweep runs Prune after every lifecycle sweep.
func (r *EventRetention) OnSweep(lifecycle.SweepResult) {
	ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
	defer cancel()
	if _, err := r.Prune(ctx); err != nil {
		r.log.Warnw("events_prune_failed", "err", err)
	}
}

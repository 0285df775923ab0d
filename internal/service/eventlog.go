package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"heater_monitor/internal/models"
	"heater_monitor/internal/repository"
)

// ErrInvalidFilter is returned for history queries that cannot be run.
var ErrInvalidFilter = errors.New("invalid event filter")

// EventLogService reads the event journal.
type EventLogService struct {
	repo repository.EventRepo
}

func NewEventLogService(repo repository.EventRepo) *EventLogService {
	return &EventLogService{repo: repo}
}

// normalize converts the bounds to UTC and canonicalizes the type.
func (f LogFilter) normalize() (LogFilter, error) {
	f.From, f.To = toUTC(f.From), toUTC(f.To)
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return f, fmt.Errorf("%w: from %s is after to %s", ErrInvalidFilter,
			f.From.Format(time.RFC3339), f.To.Format(time.RFC3339))
	}
	if f.Type != "" {
		typ, ok := models.ParseEventType(f.Type)
		if !ok {
			return f, fmt.Errorf("%w: unknown type %q", ErrInvalidFilter, f.Type)
		}
		f.Type = typ
	}
	if f.Limit < 0 {
		return f, fmt.Errorf("%w: negative limit", ErrInvalidFilter)
	}
	return f, nil
}

// List returns matching events oldest first. A positive Limit keeps the newest ones.
func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.HeaterEvent, error) {
	f, err := f.normalize()
	if err != nil {
		return nil, err
	}
	events, err := s.repo.List(ctx, f.From, f.To, f.Type)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if f.Limit > 0 && len(events) > f.Limit {
		events = events[len(events)-f.Limit:]
	}
	return events, nil
}

package service

import (
	"context"
	"time"

	"heater_monitor/internal/heater"
	"heater_monitor/internal/lifecycle"
	"heater_monitor/internal/models"
)

// LinkSource reports the current link state.
type LinkSource interface {
	State() models.LinkState
}

// ErrorSource reports the running fault counters.
type ErrorSource interface {
	Summary() ErrorSummary
}

type MonitoringService struct {
	tracker *heater.Tracker
	link    LinkSource
	errors  ErrorSource
	reports ReportSource
}

func NewMonitoringService(tracker *heater.Tracker, link LinkSource, errs ErrorSource, reports ReportSource) *MonitoringService {
	return &MonitoringService{tracker: tracker, link: link, errors: errs, reports: reports}
}

// GetState merges the tracker snapshot with the link state and the fault counters.
func (s *MonitoringService) GetState(ctx context.Context) (models.HeaterSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return models.HeaterSnapshot{}, err
	}
	snap := s.tracker.Snapshot()
	snap.Link = s.LinkState()
	if s.errors != nil {
		sum := s.errors.Summary()
		snap.LastError = sum.LastCode
		snap.ErrorCount = sum.Count
	}
	snap.UpdatedAt = toUTC(snap.UpdatedAt)
	return snap, nil
}

// LinkState returns DISCONNECTED when no link is attached.
func (s *MonitoringService) LinkState() models.LinkState {
	if s.link == nil {
		return models.LinkState{Status: models.LinkDisconnected}
	}
	st := s.link.State()
	st.LastSuccessfulRead = toUTC(st.LastSuccessfulRead)
	st.LastReconnectAttempt = toUTC(st.LastReconnectAttempt)
	return st
}

// Lifecycle returns the sweeper report, or a zero report when no sweeper runs.
func (s *MonitoringService) Lifecycle() lifecycle.Report {
	if s.reports == nil {
		return lifecycle.Report{}
	}
	return s.reports.Report()
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

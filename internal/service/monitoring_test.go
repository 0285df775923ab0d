package service

import (
	"context"
	"testing"
	"time"

	"heater_monitor/internal/lifecycle"
	"heater_monitor/internal/models"
)

type stubReports struct{ r lifecycle.Report }

func (s stubReports) Report() lifecycle.Report { return s.r }

func TestMonitoring_GetState_MergesLinkAndErrors(t *testing.T) {
	f := newFixture(t)
	loc := time.FixedZone("UTC+5", 5*3600)
	f.svc.AttachLink(&fakeLink{state: models.LinkState{
		Port:               "/dev/ttyACM0",
		Status:             models.LinkConnected,
		LastSuccessfulRead: time.Date(2025, 3, 1, 13, 0, 0, 0, loc),
	}})
	f.svc.Feed.HandleLine("Er")

	st, err := f.svc.GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if st.Link.Status != models.LinkConnected || st.Link.Port != "/dev/ttyACM0" {
		t.Fatalf("link = %+v", st.Link)
	}
	if st.Link.LastSuccessfulRead.Location() != time.UTC || !st.Link.LastSuccessfulRead.Equal(t0) {
		t.Fatalf("last read = %v", st.Link.LastSuccessfulRead)
	}
	if st.ErrorCount != 1 || st.LastError != models.CodeDisplayEr {
		t.Fatalf("errors = %d/%d", st.ErrorCount, st.LastError)
	}
}

func TestMonitoring_NoLinkIsDisconnected(t *testing.T) {
	f := newFixture(t)
	if got := f.svc.LinkState().Status; got != models.LinkDisconnected {
		t.Fatalf("status = %s", got)
	}

	m := NewMonitoringService(f.tracker, nil, nil, nil)
	st, err := m.GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if st.Link.Status != models.LinkDisconnected || st.ErrorCount != 0 {
		t.Fatalf("state = %+v", st)
	}
}

func TestMonitoring_GetState_CanceledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.svc.GetState(ctx); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestMonitoring_Lifecycle(t *testing.T) {
	f := newFixture(t)
	if got := f.svc.Lifecycle(); got.CurrentMB != 0 || len(got.Sizes) != 0 {
		t.Fatalf("expected zero report without a sweeper, got %+v", got)
	}

	want := lifecycle.Report{CurrentMB: 42, Sizes: map[string]int{"chart": 3}}
	m := NewMonitoringService(f.tracker, nil, nil, stubReports{r: want})
	got := m.Lifecycle()
	if got.CurrentMB != 42 || got.Sizes["chart"] != 3 {
		t.Fatalf("report = %+v", got)
	}
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"heater_monitor/internal/logger"
	"heater_monitor/internal/metrics"
	"heater_monitor/internal/models"

	"github.com/jonboulle/clockwork"
)

func newLedger(t *testing.T, capacity int) (*ErrorLedgerService, *fakeEventRepo) {
	t.Helper()
	events := &fakeEventRepo{}
	return NewErrorLedgerService(capacity, 0, events, metrics.New(), clockwork.NewFakeClockAt(t0), logger.Nop()), events
}

func TestErrorLedger_Record(t *testing.T) {
	ledger, events := newLedger(t, 10)

	rec := ledger.Record(models.ValidationResult{Code: models.CodeInvalidWaterTemp, Message: "WaterTemp 120 outside [0,100]"}, "T120")

	if rec.Type != models.ErrorTypeValidation || rec.RunningCount != 1 || !rec.Timestamp.Equal(t0) {
		t.Fatalf("record = %+v", rec)
	}
	ev := events.ofType(models.EventError)
	if len(ev) != 1 {
		t.Fatalf("expected one ERROR event, got %d", len(ev))
	}
	meta := ev[0].Metadata.(map[string]any)
	if meta["code"] != 12 || meta["raw_frame"] != "T120" || meta["running_count"] != 1 {
		t.Fatalf("metadata = %#v", meta)
	}
}

func TestErrorLedger_TypeFallsBackToValidation(t *testing.T) {
	ledger, _ := newLedger(t, 10)
	rec := ledger.Record(models.ValidationResult{Code: models.ErrorCode(99)}, "")
	if rec.Type != models.ErrorTypeValidation {
		t.Fatalf("type = %q", rec.Type)
	}
}

func TestErrorLedger_SummaryStatus(t *testing.T) {
	tests := []struct {
		name  string
		codes []models.ErrorCode
		want  string
	}{
		{name: "no faults", want: StatusOK},
		{name: "parsing only", codes: []models.ErrorCode{models.CodeParsingError}, want: StatusWarning},
		{name: "display fault", codes: []models.ErrorCode{models.CodeDisplayVrl}, want: StatusError},
		{name: "last fault wins", codes: []models.ErrorCode{models.CodeDisplayErr, models.CodeParsingError}, want: StatusWarning},
		{name: "validation after parsing", codes: []models.ErrorCode{models.CodeParsingError, models.CodeInvalidMode}, want: StatusError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ledger, _ := newLedger(t, 10)
			for _, c := range tc.codes {
				ledger.Record(models.ValidationResult{Code: c}, "")
			}
			sum := ledger.Summary()
			if sum.Status != tc.want || sum.Count != len(tc.codes) || sum.Buffered != len(tc.codes) {
				t.Fatalf("summary = %+v, want status %s", sum, tc.want)
			}
		})
	}
}

func TestErrorLedger_RingKeepsRunningCount(t *testing.T) {
	ledger, _ := newLedger(t, 2)
	for i := 0; i < 5; i++ {
		ledger.Record(models.ValidationResult{Code: models.CodeFrameLength}, "")
	}
	recs := ledger.Recent()
	if len(recs) != 2 || recs[0].RunningCount != 4 || recs[1].RunningCount != 5 {
		t.Fatalf("recent = %+v", recs)
	}
	if got := ledger.Summary().Count; got != 5 {
		t.Fatalf("count = %d", got)
	}
}

func TestErrorLedger_ResetErrors(t *testing.T) {
	ledger, events := newLedger(t, 10)
	ledger.Record(models.ValidationResult{Code: models.CodeDisplayInvalid}, "/iv")
	ledger.Record(models.ValidationResult{Code: models.CodeDisplayInvalid}, "/iv")

	if err := ledger.ResetErrors(context.Background()); err != nil {
		t.Fatalf("ResetErrors: %v", err)
	}
	sum := ledger.Summary()
	if sum.Count != 0 || sum.LastCode != models.CodeNone || sum.Status != StatusOK || len(ledger.Recent()) != 0 {
		t.Fatalf("summary after reset = %+v", sum)
	}
	ops := events.ofType(models.EventOperator)
	if len(ops) != 1 || ops[0].Metadata.(map[string]any)["cleared"] != 2 {
		t.Fatalf("operator events = %+v", ops)
	}

	rec := ledger.Record(models.ValidationResult{Code: models.CodeParsingError}, "")
	if rec.RunningCount != 1 {
		t.Fatalf("running count must restart after reset, got %d", rec.RunningCount)
	}
}

func TestErrorLedger_EventFailureDoesNotDropRecord(t *testing.T) {
	ledger, events := newLedger(t, 10)
	events.appendErr = errors.New("db down")

	ledger.Record(models.ValidationResult{Code: models.CodeDisplayEr}, "Er")
	if len(ledger.Recent()) != 1 {
		t.Fatalf("record must be kept when the event write fails")
	}
}

func TestErrorLedger_ThrottlesRepeatedEvents(t *testing.T) {
	events := &fakeEventRepo{}
	clock := clockwork.NewFakeClockAt(t0)
	ledger := NewErrorLedgerService(10, time.Minute, events, metrics.New(), clock, logger.Nop())
	suppressed := func(ev models.HeaterEvent) any { return ev.Metadata.(map[string]any)["suppressed"] }

	for i := 0; i < 5; i++ {
		ledger.Record(models.ValidationResult{Code: models.CodeParsingError}, "garbage")
	}
	ledger.Record(models.ValidationResult{Code: models.CodeDisplayErr}, "Err")

	ev := events.ofType(models.EventError)
	if len(ev) != 2 {
		t.Fatalf("expected one ERROR event per code, got %d", len(ev))
	}
	if got := ledger.Summary().Count; got != 6 || len(ledger.Recent()) != 6 {
		t.Fatalf("every fault must reach the ledger, count = %d", got)
	}

	clock.Advance(time.Minute)
	ledger.Record(models.ValidationResult{Code: models.CodeParsingError}, "garbage")
	ev = events.ofType(models.EventError)
	if len(ev) != 3 || suppressed(ev[2]) != 4 {
		t.Fatalf("events after interval = %+v", ev)
	}

	if err := ledger.ResetErrors(context.Background()); err != nil {
		t.Fatalf("ResetErrors: %v", err)
	}
	ledger.Record(models.ValidationResult{Code: models.CodeParsingError}, "garbage")
	ev = events.ofType(models.EventError)
	if len(ev) != 4 || suppressed(ev[3]) != 0 {
		t.Fatalf("reset must clear the throttle, events = %+v", ev)
	}
}

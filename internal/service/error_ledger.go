package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"heater_monitor/internal/logger"
	"heater_monitor/internal/metrics"
	"heater_monitor/internal/models"
	"heater_monitor/internal/repository"
	"heater_monitor/internal/series"

	"github.com/jonboulle/clockwork"
)

// persistTimeout bounds every database write made from the acquisition path.
const persistTimeout = 2 * time.Second

var errNoLink = errors.New("no link attached")

// ErrorLedgerService keeps the most recent fault records and the running counters.
// Resetting it never touches acquisition.
type ErrorLedgerService struct {
	records       *series.Bounded[models.ErrorRecord]
	events        repository.EventRepo
	eventInterval time.Duration
	metrics       *metrics.Metrics
	clock         clockwork.Clock
	log           *logger.Logger

	mu       sync.Mutex
	count    int
	last     models.ErrorCode
	lastType string

	// Per code: when the last ERROR event was stored and how many were held back since.
	lastEvent  map[models.ErrorCode]time.Time
	suppressed map[models.ErrorCode]int
}

// NewErrorLedgerService stores at most one ERROR event per code every eventInterval;
// zero stores them all.
func NewErrorLedgerService(capacity int, eventInterval time.Duration, events repository.EventRepo, m *metrics.Metrics,
	clock clockwork.Clock, log *logger.Logger) *ErrorLedgerService {
	return &ErrorLedgerService{
		records:       series.NewBounded[models.ErrorRecord](capacity),
		events:        events,
		eventInterval: eventInterval,
		metrics:       m,
		clock:         clock,
		log:           log,
		lastEvent:     make(map[models.ErrorCode]time.Time),
		suppressed:    make(map[models.ErrorCode]int),
	}
}

// Record appends a fault for an invalid frame. It bumps the metrics and, unless
// the same code was stored within the event interval, writes the fault log and
// stores an ERROR event; a failed event write is logged, not returned.
func (s *ErrorLedgerService) Record(res models.ValidationResult, raw string) models.ErrorRecord {
	now := s.clock.Now().UTC()
	typ := res.Code.Type()
	if typ == "" {
		typ = models.ErrorTypeValidation
	}

	s.mu.Lock()
	s.count++
	s.last = res.Code
	s.lastType = typ
	rec := models.ErrorRecord{
		Timestamp:    now,
		Type:         typ,
		RawFrame:     raw,
		Message:      res.Message,
		Code:         res.Code,
		RunningCount: s.count,
	}
	persist, heldBack := s.admitEventLocked(res.Code, now)
	s.mu.Unlock()

	s.records.Append(rec)
	s.metrics.ErrorRecorded(rec)

	logFault := s.log.Debugw
	if persist {
		logFault = s.log.Warnw
	}
	logFault("heater_fault",
		"code", int(rec.Code),
		"type", rec.Type,
		"raw_frame", rec.RawFrame,
		"message", rec.Message,
		"running_count", rec.RunningCount,
		"suppressed", heldBack,
	)
	if !persist {
		return rec
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	err := s.events.Append(ctx, models.HeaterEvent{
		OccurredAt:  now,
		Type:        models.EventError,
		Description: rec.Message,
		Metadata: map[string]any{
			"code":          int(rec.Code),
			"type":          rec.Type,
			"raw_frame":     rec.RawFrame,
			"running_count": rec.RunningCount,
			"suppressed":    heldBack,
		},
	})
	if err != nil {
		s.log.Errorw("error_event_append_failed", "err", err, "code", int(rec.Code))
	}
	return rec
}

// admitEventLocked reports whether an ERROR event for code is due now and, if so,
// how many identical faults were held back since the previous one.
func (s *ErrorLedgerService) admitEventLocked(code models.ErrorCode, now time.Time) (bool, int) {
	last, seen := s.lastEvent[code]
	if seen && s.eventInterval > 0 && now.Sub(last) < s.eventInterval {
		s.suppressed[code]++
		return false, 0
	}
	s.lastEvent[code] = now
	heldBack := s.suppressed[code]
	delete(s.suppressed, code)
	return true, heldBack
}

// Recent returns the buffered records, oldest first.
func (s *ErrorLedgerService) Recent() []models.ErrorRecord {
	return s.records.Snapshot()
}

// Summary returns the running counters and the derived system status.
func (s *ErrorLedgerService) Summary() ErrorSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ErrorSummary{
		Count:    s.count,
		LastCode: s.last,
		LastType: s.lastType,
		Status:   statusFor(s.count, s.lastType),
		Buffered: s.records.Len(),
	}
}

// ResetErrors clears the records and counters and logs the operator action.
func (s *ErrorLedgerService) ResetErrors(ctx context.Context) error {
	s.mu.Lock()
	cleared := s.count
	s.count = 0
	s.last = models.CodeNone
	s.lastType = ""
	clear(s.lastEvent)
	clear(s.suppressed)
	s.mu.Unlock()
	s.records.Reset()

	s.log.Infow("errors_reset", "cleared", cleared)
	return s.events.Append(ctx, models.HeaterEvent{
		OccurredAt:  s.clock.Now().UTC(),
		Type:        models.EventOperator,
		Description: "errors reset",
		Metadata:    map[string]any{"cleared": cleared},
	})
}

// Records exposes the ring for sweeper registration.
func (s *ErrorLedgerService) Records() *series.Bounded[models.ErrorRecord] {
	return s.records
}

// statusFor maps the last fault type onto the system status.
func statusFor(count int, lastType string) string {
	switch {
	case count == 0:
		return StatusOK
	case lastType == models.ErrorTypeParsing:
		return StatusWarning
	default:
		return StatusError
	}
}

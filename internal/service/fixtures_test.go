package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"heater_monitor/internal/config"
	"heater_monitor/internal/heater"
	"heater_monitor/internal/logger"
	"heater_monitor/internal/metrics"
	"heater_monitor/internal/models"
	"heater_monitor/internal/repository"

	"github.com/jonboulle/clockwork"
)

var t0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

// fakeStateRepo is a mutex-guarded stub for repository.StateRepo.
type fakeStateRepo struct {
	mu       sync.Mutex
	loadResp models.HeaterSnapshot
	loadErr  error
	saveErr  error
	saved    []models.HeaterSnapshot
}

func (f *fakeStateRepo) Load(ctx context.Context) (models.HeaterSnapshot, error) {
	return f.loadResp, f.loadErr
}

func (f *fakeStateRepo) Save(ctx context.Context, s models.HeaterSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, s)
	return f.saveErr
}

func (f *fakeStateRepo) saves() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

// fakeEventRepo captures appended events and serves List from a fixed slice.
type fakeEventRepo struct {
	mu        sync.Mutex
	appended  []models.HeaterEvent
	appendErr error

	events  []models.HeaterEvent
	listErr error
	listed  []string

	pruned   []string
	pruneN   int64
	pruneErr error
}

func (f *fakeEventRepo) Append(ctx context.Context, e models.HeaterEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, e)
	return f.appendErr
}

func (f *fakeEventRepo) List(ctx context.Context, from, to time.Time, typ string) ([]models.HeaterEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listed = append(f.listed, from.Format(time.RFC3339)+"|"+to.Format(time.RFC3339)+"|"+typ)
	return f.events, f.listErr
}

func (f *fakeEventRepo) Prune(ctx context.Context, before time.Time, keep int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pruned = append(f.pruned, fmt.Sprintf("%s|%d", before.Format(time.RFC3339), keep))
	return f.pruneN, f.pruneErr
}

// ofType returns the appended events of the given type.
func (f *fakeEventRepo) ofType(typ string) []models.HeaterEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.HeaterEvent
	for _, e := range f.appended {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// fakeLink records writes and reports a fixed state.
type fakeLink struct {
	mu       sync.Mutex
	writes   []string
	writeErr error
	state    models.LinkState
}

func (l *fakeLink) Write(p []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writeErr != nil {
		return l.writeErr
	}
	l.writes = append(l.writes, string(p))
	return nil
}

func (l *fakeLink) State() models.LinkState { return l.state }

type fixture struct {
	cfg     *config.Config
	clock   *clockwork.FakeClock
	tracker *heater.Tracker
	events  *fakeEventRepo
	states  *fakeStateRepo
	metrics *metrics.Metrics
	svc     *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Default()
	clock := clockwork.NewFakeClockAt(t0)
	f := &fixture{
		cfg:     cfg,
		clock:   clock,
		tracker: heater.NewTracker(cfg.Heater, cfg.Analog, clock),
		events:  &fakeEventRepo{},
		states:  &fakeStateRepo{},
		metrics: metrics.New(),
	}
	f.svc = NewService(Deps{
		Repos: &repository.Repository{
			StateRepo: f.states,
			EventRepo: f.events,
			Auth:      newFakeOperators(),
		},
		Config:  *cfg,
		Tracker: f.tracker,
		Metrics: f.metrics,
		Clock:   clock,
		Log:     logger.Nop(),
	})
	return f
}

var errWriteFailed = errors.New("write failed")

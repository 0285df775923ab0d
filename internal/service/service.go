package service

import (
	"context"
	"sync"

	"heater_monitor/internal/config"
	"heater_monitor/internal/heater"
	"heater_monitor/internal/lifecycle"
	"heater_monitor/internal/logger"
	"heater_monitor/internal/metrics"
	"heater_monitor/internal/models"
	"heater_monitor/internal/protocol"
	"heater_monitor/internal/repository"
	"heater_monitor/internal/series"

	"github.com/jonboulle/clockwork"
)

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Heater exposes operator actions. Each one updates the tracker and forwards the
// command to the controller when a link is attached.
type Heater interface {
	Execute(ctx context.Context, cmd protocol.Command) (CommandResult, error)
}

// Monitoring exposes read-only state: heater snapshot, link status, lifecycle report.
type Monitoring interface {
	GetState(ctx context.Context) (models.HeaterSnapshot, error)
	LinkState() models.LinkState
	Lifecycle() lifecycle.Report
}

// EventLog exposes append-only logs with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.HeaterEvent, error)
}

// Errors exposes the fault ledger.
type Errors interface {
	Recent() []models.ErrorRecord
	Summary() ErrorSummary
	ResetErrors(ctx context.Context) error
}

// Acquisition exposes what the consumer loop publishes and the operator reset.
type Acquisition interface {
	Live() LiveView
	Chart(limit int) []models.ChartSample
	DataLog() []models.DataLogEntry
	ResetData(ctx context.Context) error
}

// Link is the subset of link.Manager the services use.
type Link interface {
	Write(p []byte) error
	State() models.LinkState
}

// ReportSource is satisfied by lifecycle.Sweeper.
type ReportSource interface {
	Report() lifecycle.Report
}

type Service struct {
	Heater
	Monitoring
	EventLog
	Errors
	Acquisition
	Authorization

	// Feed is the concrete acquisition service, for the link sink and the consumer loop.
	Feed *AcquisitionService
	// Ledger is the concrete error ledger, for sweeper registration.
	Ledger *ErrorLedgerService
	// Buffers are the bounded collections, for sweeper registration.
	Buffers *Buffers
	// Retention prunes the event journal, for the sweeper hook.
	Retention *EventRetention

	link *linkRef
}

// Deps are the collaborators NewService wires together.
type Deps struct {
	Repos   *repository.Repository
	Config  config.Config
	Tracker *heater.Tracker
	Sweeper ReportSource
	Metrics *metrics.Metrics
	Clock   clockwork.Clock
	Log     *logger.Logger
}

// NewService wires the repository layer and the domain components into concrete services.
func NewService(d Deps) *Service {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}

	ref := &linkRef{}
	buffers := NewBuffers(d.Config.Buffers)
	ledger := NewErrorLedgerService(d.Config.Buffers.Errors, d.Config.Events.ErrorInterval, d.Repos.EventRepo,
		d.Metrics, d.Clock, d.Log)
	monitoring := NewMonitoringService(d.Tracker, ref, ledger, d.Sweeper)
	reducer := series.NewReducer(d.Config.Chart.RedrawInterval, d.Config.Chart.MaxSkips, d.Clock)
	feed := NewAcquisitionService(AcquisitionDeps{
		Config:    d.Config,
		Tracker:   d.Tracker,
		Buffers:   buffers,
		Ledger:    ledger,
		Reducer:   reducer,
		State:     monitoring,
		StateRepo: d.Repos.StateRepo,
		EventRepo: d.Repos.EventRepo,
		Reports:   d.Sweeper,
		Metrics:   d.Metrics,
		Clock:     d.Clock,
		Log:       d.Log,
	})

	return &Service{
		Heater:        NewHeaterService(d.Tracker, ref, d.Repos.EventRepo, d.Clock, d.Log),
		Monitoring:    monitoring,
		EventLog:      NewEventLogService(d.Repos.EventRepo),
		Errors:        ledger,
		Acquisition:   feed,
		Authorization: NewAuthService(d.Repos.Auth, d.Config.Auth, d.Clock, d.Log),
		Feed:          feed,
		Ledger:        ledger,
		Buffers:       buffers,
		Retention:     NewEventRetention(d.Repos.EventRepo, d.Config.Events, d.Clock, d.Log),
		link:          ref,
	}
}

// AttachLink connects the services to a running link. Until then commands are
// applied locally only and the link reports DISCONNECTED.
func (s *Service) AttachLink(l Link) {
	s.link.set(l)
}

// linkRef lets the link manager be built after the services that feed it.
type linkRef struct {
	mu sync.RWMutex
	l  Link
}

func (r *linkRef) set(l Link) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.l = l
}

func (r *linkRef) get() Link {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.l
}

func (r *linkRef) Write(p []byte) error {
	l := r.get()
	if l == nil {
		return errNoLink
	}
	return l.Write(p)
}

func (r *linkRef) State() models.LinkState {
	l := r.get()
	if l == nil {
		return models.LinkState{Status: models.LinkDisconnected}
	}
	return l.State()
}

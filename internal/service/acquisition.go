package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"heater_monitor/internal/config"
	"heater_monitor/internal/heater"
	"heater_monitor/internal/logger"
	"heater_monitor/internal/metrics"
	"heater_monitor/internal/models"
	"heater_monitor/internal/protocol"
	"heater_monitor/internal/repository"
	"heater_monitor/internal/series"

	"github.com/jonboulle/clockwork"
)

// StateSource builds the merged heater snapshot.
type StateSource interface {
	GetState(ctx context.Context) (models.HeaterSnapshot, error)
}

// AcquisitionDeps are the collaborators of an AcquisitionService.
type AcquisitionDeps struct {
	Config    config.Config
	Tracker   *heater.Tracker
	Buffers   *Buffers
	Ledger    *ErrorLedgerService
	Reducer   *series.Reducer
	State     StateSource
	StateRepo repository.StateRepo
	EventRepo repository.EventRepo
	Reports   ReportSource
	Metrics   *metrics.Metrics
	Clock     clockwork.Clock
	Log       *logger.Logger
}

// latestFrame is the last-value-wins slot between producer and consumer.
type latestFrame struct {
	Frame models.Frame
	At    time.Time
	Valid bool
}

// AcquisitionService is both ends of the pipeline. HandleLine runs on the link
// worker goroutine; Run is the consumer loop.
type AcquisitionService struct {
	chartCfg    config.ChartConfig
	consumerCfg config.ConsumerConfig

	tracker   *heater.Tracker
	buffers   *Buffers
	ledger    *ErrorLedgerService
	reducer   *series.Reducer
	state     StateSource
	stateRepo repository.StateRepo
	eventRepo repository.EventRepo
	reports   ReportSource
	metrics   *metrics.Metrics
	clock     clockwork.Clock
	log       *logger.Logger

	latest  atomic.Pointer[latestFrame]
	live    atomic.Pointer[LiveView]
	version atomic.Uint64
}

func NewAcquisitionService(d AcquisitionDeps) *AcquisitionService {
	return &AcquisitionService{
		chartCfg:    d.Config.Chart,
		consumerCfg: d.Config.Consumer,
		tracker:     d.Tracker,
		buffers:     d.Buffers,
		ledger:      d.Ledger,
		reducer:     d.Reducer,
		state:       d.State,
		stateRepo:   d.StateRepo,
		eventRepo:   d.EventRepo,
		reports:     d.Reports,
		metrics:     d.Metrics,
		clock:       d.Clock,
		log:         d.Log,
	}
}

// HandleLine runs one raw line through ingest and every downstream consumer.
// It matches link.LineHandler.
func (s *AcquisitionService) HandleLine(line string) {
	frame, res := protocol.Ingest(line)
	s.ingest(line, frame, res)
}

// HandleFrame feeds an already resolved frame, e.g. a 12-field analog record.
func (s *AcquisitionService) HandleFrame(frame models.Frame) {
	s.ingest("", frame, protocol.ValidateFrame(frame))
}

func (s *AcquisitionService) ingest(raw string, frame models.Frame, res models.ValidationResult) {
	now := s.clock.Now()

	s.metrics.FrameProcessed(res)
	if !res.Valid {
		s.ledger.Record(res, raw)
	}

	upd := s.tracker.UpdateFromTTL(frame)
	s.metrics.LEDSync(upd.All5, upd.All0)
	snap := s.tracker.Snapshot()

	s.buffers.DataLog.Append(models.DataLogEntry{
		Timestamp:   now.UTC(),
		Frame:       frame,
		Valid:       res.Valid,
		Lamps:       snap.Lamps,
		PrevLamps:   snap.PrevLamps,
		LampSeconds: snap.LampSeconds,
		HeaterMode:  upd.Mode,
		HeaterCmd:   snap.State.HeaterCmd,
		Automation:  upd.Status.Status,
	})
	if res.Valid {
		s.buffers.Chart.Append(models.ChartSample{
			At:         now.UTC(),
			WaterTemp:  frame.WaterTemp(),
			TargetTemp: frame.TargetTemp(),
		})
	}
	s.latest.Store(&latestFrame{Frame: frame, At: now, Valid: res.Valid})

	if upd.ModeChanged() {
		s.log.Infow("heater_mode_changed", "from", string(upd.PreviousMode), "to", string(upd.Mode))
		s.appendEvent(models.EventModeChange,
			fmt.Sprintf("mode %s -> %s", upd.PreviousMode, upd.Mode),
			map[string]any{"from": string(upd.PreviousMode), "to": string(upd.Mode)},
		)
	}
	switch upd.Automation {
	case heater.AutomationTriggered:
		s.log.Infow("clean_automation_triggered", "water_temp", frame.WaterTemp())
		s.appendEvent(models.EventAutomation, "clean automation active",
			map[string]any{"event": upd.Automation.String(), "water_temp": frame.WaterTemp()})
	case heater.AutomationExited:
		s.log.Infow("clean_automation_exited", "water_temp", frame.WaterTemp())
		s.appendEvent(models.EventAutomation, "clean automation finished",
			map[string]any{"event": upd.Automation.String(), "water_temp": frame.WaterTemp()})
	}
}

func (s *AcquisitionService) appendEvent(typ, desc string, meta map[string]any) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	err := s.eventRepo.Append(ctx, models.HeaterEvent{
		OccurredAt:  s.clock.Now().UTC(),
		Type:        typ,
		Description: desc,
		Metadata:    meta,
	})
	if err != nil {
		s.log.Errorw("event_append_failed", "err", err, "type", typ)
	}
}

// Restore seeds the tracker from the last persisted snapshot.
func (s *AcquisitionService) Restore(ctx context.Context) error {
	snap, err := s.stateRepo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load heater state: %w", err)
	}
	if snap.ID == 0 {
		return nil
	}
	s.tracker.Restore(snap)
	s.log.Infow("heater_state_restored", "mode", string(snap.State.Mode), "set_temp", snap.State.SetTemp)
	return nil
}

// Run ticks at the given interval until ctx is canceled: it renders through the
// reducer on every tick and persists the snapshot every persist interval.
func (s *AcquisitionService) Run(ctx context.Context, tick time.Duration) {
	t := s.clock.NewTicker(tick)
	defer t.Stop()

	lastPersist := s.clock.Now()
	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), persistTimeout)
			s.persist(final)
			cancel()
			return
		case now := <-t.Chan():
			s.render(ctx)
			if now.Sub(lastPersist) >= s.consumerCfg.PersistInterval {
				s.persist(ctx)
				lastPersist = now
			}
		}
	}
}

// render publishes a new LiveView when the reducer allows a redraw.
func (s *AcquisitionService) render(ctx context.Context) bool {
	var fp uint64
	if latest := s.latest.Load(); latest != nil {
		fp = series.Fingerprint(latest.Frame.WaterTemp(), latest.Frame.TargetTemp())
	}
	if !s.reducer.ShouldRedraw(fp) {
		return false
	}

	st, err := s.state.GetState(ctx)
	if err != nil {
		s.log.Warnw("render_state_failed", "err", err)
		return false
	}
	s.live.Store(&LiveView{
		Version: s.version.Add(1),
		At:      s.clock.Now().UTC(),
		State:   st,
		Chart:   s.Chart(0),
	})
	s.metrics.Redraw()
	return true
}

func (s *AcquisitionService) persist(ctx context.Context) {
	st, err := s.state.GetState(ctx)
	if err != nil {
		s.log.Warnw("state_snapshot_failed", "err", err)
		return
	}
	if err := s.stateRepo.Save(ctx, st); err != nil {
		s.log.Warnw("state_persist_failed", "err", err)
	}
	if s.reports != nil {
		s.metrics.Lifecycle(s.reports.Report())
	}
}

// Live returns the last published view. Version 0 means nothing was published yet.
func (s *AcquisitionService) Live() LiveView {
	if v := s.live.Load(); v != nil {
		return *v
	}
	return LiveView{}
}

// Chart returns the chart series reduced to limit points; limit <= 0 uses the configured limit.
func (s *AcquisitionService) Chart(limit int) []models.ChartSample {
	if limit <= 0 {
		limit = s.chartCfg.Limit
	}
	return series.Reduce(s.buffers.Chart.Snapshot(), limit)
}

// DataLog returns a copy of the primary data log, oldest first.
func (s *AcquisitionService) DataLog() []models.DataLogEntry {
	return s.buffers.DataLog.Snapshot()
}

// ResetData clears the data log, chart and analog series. The pipeline keeps running.
func (s *AcquisitionService) ResetData(ctx context.Context) error {
	dropped := s.buffers.DataLog.Len() + s.buffers.Chart.Len() + s.buffers.Analog.Len()
	s.buffers.Reset()
	s.log.Infow("data_reset", "dropped", dropped)
	return s.eventRepo.Append(ctx, models.HeaterEvent{
		OccurredAt:  s.clock.Now().UTC(),
		Type:        models.EventOperator,
		Description: "data reset",
		Metadata:    map[string]any{"dropped": dropped},
	})
}

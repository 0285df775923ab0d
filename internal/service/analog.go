package service

import (
	"context"
	"errors"
	"time"

	"heater_monitor/internal/config"
	"heater_monitor/internal/heater"
	"heater_monitor/internal/logger"
	"heater_monitor/internal/metrics"
	"heater_monitor/internal/models"
	"heater_monitor/internal/protocol"
	"heater_monitor/internal/series"

	"github.com/jonboulle/clockwork"
)

// Analog channel voltage range; readings outside it are treated as noise.
const (
	analogMinVolts = 0.0
	analogMaxVolts = 5.0

	defaultAnalogPoll = 500 * time.Millisecond
)

// AnalogSource is the data contract an acquisition driver must satisfy. Read returns
// either six analog channels (Heat, Ready, Eco, Clean, Heater1, Heater2) or a full
// twelve-field record.
type AnalogSource interface {
	Read(ctx context.Context) ([]float64, error)
}

// AnalogPoller reads an AnalogSource on a fixed period.
type AnalogPoller struct {
	source  AnalogSource
	cfg     config.AnalogConfig
	feed    *AcquisitionService
	tracker *heater.Tracker
	samples *series.Bounded[models.AnalogSample]
	metrics *metrics.Metrics
	clock   clockwork.Clock
	log     *logger.Logger

	last []float64
}

func NewAnalogPoller(source AnalogSource, cfg config.AnalogConfig, feed *AcquisitionService, tracker *heater.Tracker,
	samples *series.Bounded[models.AnalogSample], m *metrics.Metrics, clock clockwork.Clock, log *logger.Logger) *AnalogPoller {
	if log == nil {
		log = logger.Nop()
	}
	return &AnalogPoller{
		source:  source,
		cfg:     cfg,
		feed:    feed,
		tracker: tracker,
		samples: samples,
		metrics: m,
		clock:   clock,
		log:     log,
	}
}

// Run polls until ctx is canceled. Read errors are logged and the loop continues.
func (p *AnalogPoller) Run(ctx context.Context) {
	interval := p.cfg.PollInterval
	if interval <= 0 {
		interval = defaultAnalogPoll
	}
	t := p.clock.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.Chan():
			if err := p.Poll(ctx); err != nil && !errors.Is(err, context.Canceled) {
				p.log.Warnw("analog_read_failed", "err", err)
			}
		}
	}
}

// Poll performs one read and routes the record by shape.
func (p *AnalogPoller) Poll(ctx context.Context) error {
	values, err := p.source.Read(ctx)
	if err != nil {
		return err
	}
	if len(values) == protocol.AnalogChannels {
		values = p.filter(values)
		p.samples.Append(models.AnalogSample{At: p.clock.Now().UTC(), Values: values})
	}

	frame, err := protocol.FromLegacy(values)
	if err != nil {
		return err
	}
	if len(values) == models.FieldCount {
		p.feed.HandleFrame(frame)
		return nil
	}
	all5, all0 := p.tracker.ObserveLEDs(frame.LEDs())
	p.metrics.LEDSync(all5, all0)
	return nil
}

// filter replaces out-of-range channel readings with the last good value for
// that channel (0 when there is none).
func (p *AnalogPoller) filter(values []float64) []float64 {
	if len(p.last) != len(values) {
		p.last = make([]float64, len(values))
	}
	out := make([]float64, len(values))
	for i, v := range values {
		if v >= analogMinVolts && v <= analogMaxVolts {
			p.last[i] = v
		}
		out[i] = p.last[i]
	}
	return out
}

// Package lifecycle caps the growth of long-lived collections during unattended runs.
package lifecycle

import (
	"context"
	"sync"
	"time"

	"heater_monitor/internal/config"
	"heater_monitor/internal/logger"
	"heater_monitor/internal/series"

	"github.com/jonboulle/clockwork"
)

// memorySamples is how many memory readings feed the average.
const memorySamples = 100

// Trimmable is any collection the sweeper can cut down from the front.
type Trimmable interface {
	Len() int
	TrimTo(n int) int
}

// Policy says when a collection is trimmed and how much of it survives.
type Policy struct {
	HighWater int
	Retain    int
	Emergency int
}

// PolicyFrom converts a configured trim policy.
func PolicyFrom(p config.TrimPolicy) Policy {
	return Policy{HighWater: p.HighWater, Retain: p.Retain, Emergency: p.Emergency}
}

// SweepKind tells a regular sweep from a memory-pressure one.
type SweepKind string

const (
	SweepRegular   SweepKind = "regular"
	SweepEmergency SweepKind = "emergency"
)

// SweepResult lists what one sweep removed, per collection.
type SweepResult struct {
	Kind    SweepKind      `json:"kind"`
	At      time.Time      `json:"at"`
	Dropped map[string]int `json:"dropped"`
}

// Report is a read-only view for operators.
type Report struct {
	Uptime          time.Duration  `json:"uptime"`
	CurrentMB       float64        `json:"current_mb"`
	AverageMB       float64        `json:"average_mb"`
	PeakMB          float64        `json:"peak_mb"`
	LimitMB         float64        `json:"limit_mb"`
	Sweeps          int            `json:"sweeps"`
	EmergencySweeps int            `json:"emergency_sweeps"`
	LastSweep       time.Time      `json:"last_sweep"`
	Sizes           map[string]int `json:"sizes"`
}

type registered struct {
	name   string
	c      Trimmable
	policy Policy
}

// Sweeper trims registered collections on a timer and under memory pressure.
type Sweeper struct {
	mu          sync.Mutex
	clock       clockwork.Clock
	log         *logger.Logger
	probe       MemoryProbe
	interval    time.Duration
	memInterval time.Duration
	limitMB     float64

	collections []registered
	started     time.Time
	samples     *series.Bounded[float64]
	currentMB   float64
	peakMB      float64
	sweeps      int
	emergencies int
	lastSweep   time.Time
	observers   []func(SweepResult)
}

// NewSweeper builds a sweeper from cfg. probe may be nil, which disables memory checks.
func NewSweeper(cfg config.SweeperConfig, probe MemoryProbe, clock clockwork.Clock, log *logger.Logger) *Sweeper {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Sweeper{
		clock:       clock,
		log:         log,
		probe:       probe,
		interval:    cfg.Interval,
		memInterval: cfg.MemoryInterval,
		limitMB:     cfg.MemoryLimitMB,
		started:     clock.Now(),
		samples:     series.NewBounded[float64](memorySamples),
	}
}

// Register adds a collection under name. Registering after Run has started is allowed.
func (s *Sweeper) Register(name string, c Trimmable, p Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections = append(s.collections, registered{name: name, c: c, policy: p})
}

// OnSweep registers fn to be called after every sweep.
func (s *Sweeper) OnSweep(fn func(SweepResult)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Sweep trims every collection above its high-water mark down to its retained size.
func (s *Sweeper) Sweep() SweepResult {
	return s.run(SweepRegular)
}

// EmergencySweep trims every collection down to its emergency size, regardless of high-water.
func (s *Sweeper) EmergencySweep() SweepResult {
	return s.run(SweepEmergency)
}

func (s *Sweeper) run(kind SweepKind) SweepResult {
	s.mu.Lock()
	cols := make([]registered, len(s.collections))
	copy(cols, s.collections)
	observers := make([]func(SweepResult), len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	res := SweepResult{Kind: kind, At: s.clock.Now(), Dropped: make(map[string]int, len(cols))}
	for _, r := range cols {
		var dropped int
		switch kind {
		case SweepEmergency:
			dropped = r.c.TrimTo(r.policy.Emergency)
		default:
			if r.c.Len() > r.policy.HighWater {
				dropped = r.c.TrimTo(r.policy.Retain)
			}
		}
		res.Dropped[r.name] = dropped
	}

	s.mu.Lock()
	s.sweeps++
	if kind == SweepEmergency {
		s.emergencies++
	}
	s.lastSweep = res.At
	s.mu.Unlock()

	total := 0
	for _, n := range res.Dropped {
		total += n
	}
	if kind == SweepEmergency {
		s.log.Warnw("lifecycle_emergency_sweep", "dropped", total, "current_mb", s.current())
	} else if total > 0 {
		s.log.Infow("lifecycle_sweep", "dropped", total)
	}
	for _, fn := range observers {
		fn(res)
	}
	return res
}

// SampleMemory records one memory reading and runs an emergency sweep when it is over the limit.
// It reports whether an emergency sweep ran.
func (s *Sweeper) SampleMemory() (bool, error) {
	if s.probe == nil {
		return false, nil
	}
	rss, err := s.probe.RSSBytes()
	if err != nil {
		return false, err
	}
	mb := float64(rss) / bytesPerMB

	s.mu.Lock()
	s.currentMB = mb
	if mb > s.peakMB {
		s.peakMB = mb
	}
	s.mu.Unlock()
	s.samples.Append(mb)

	if s.limitMB > 0 && mb > s.limitMB {
		s.EmergencySweep()
		return true, nil
	}
	return false, nil
}

func (s *Sweeper) current() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentMB
}

// Run sweeps every interval and samples memory every memory interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	sweep := s.clock.NewTicker(s.interval)
	defer sweep.Stop()
	mem := s.clock.NewTicker(s.memInterval)
	defer mem.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweep.Chan():
			s.Sweep()
		case <-mem.Chan():
			if _, err := s.SampleMemory(); err != nil {
				s.log.Warnw("lifecycle_memory_sample_failed", "error", err)
			}
		}
	}
}

// Report returns uptime, memory statistics, sweep counts and collection sizes.
func (s *Sweeper) Report() Report {
	samples := s.samples.Snapshot()
	var avg float64
	for _, v := range samples {
		avg += v
	}
	if len(samples) > 0 {
		avg /= float64(len(samples))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sizes := make(map[string]int, len(s.collections))
	for _, r := range s.collections {
		sizes[r.name] = r.c.Len()
	}
	return Report{
		Uptime:          s.clock.Since(s.started),
		CurrentMB:       s.currentMB,
		AverageMB:       avg,
		PeakMB:          s.peakMB,
		LimitMB:         s.limitMB,
		Sweeps:          s.sweeps,
		EmergencySweeps: s.emergencies,
		LastSweep:       s.lastSweep,
		Sizes:           sizes,
	}
}

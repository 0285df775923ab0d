// Package heater tracks the heater controller's state and runs clean-cycle automation.
package heater

import (
	"math"
	"sync"
	"time"

	"heater_monitor/internal/config"
	"heater_monitor/internal/models"

	"github.com/jonboulle/clockwork"
)

// Update describes what one TTL frame changed.
type Update struct {
	PreviousMode models.HeaterMode
	Mode         models.HeaterMode
	Automation   AutomationEvent
	Status       models.AutomationStatus
	All5         bool
	All0         bool
}

// ModeChanged reports whether the frame reclassified the mode.
func (u Update) ModeChanged() bool { return u.PreviousMode != u.Mode }

// Tracker owns the HeaterState. All methods are safe for concurrent use.
type Tracker struct {
	mu    sync.RWMutex
	cfg   config.HeaterConfig
	clock clockwork.Clock

	state          models.HeaterState
	normalLastTemp float64
	lastFrame      models.Frame
	performance    string

	auto    *automation
	lamps   *LampTracker
	counter *SyncCounter

	lampSet, prevLampSet string
	lampSeconds          int
}

// NewTracker builds a tracker in IDLE_NORMAL at the configured initial temperature.
func NewTracker(cfg config.HeaterConfig, analog config.AnalogConfig, clock clockwork.Clock) *Tracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Tracker{
		cfg:   cfg,
		clock: clock,
		state: models.HeaterState{
			Mode:         models.ModeIdleNormal,
			PreviousMode: models.ModeIdleNormal,
			SetTemp:      cfg.InitialTemp,
			PendingTemp:  cfg.InitialTemp,
		},
		normalLastTemp: cfg.InitialTemp,
		performance:    PerformanceStandby,
		auto:           newAutomation(cfg.CleanThresholdC, durationHours(cfg.CleanTriggerHours), cfg.CleanExitDuration),
		lamps:          NewLampTracker(analog.All0Max),
		counter:        NewSyncCounter(thresholds(analog)),
		lampSet:        LampNone,
		prevLampSet:    LampNone,
	}
}

// UpdateFromTTL overwrites the measured fields from f and reclassifies the mode.
// Eco wins over clean, anything else is IDLE_NORMAL.
// PreviousMode and the saved normal setpoint belong to the manual transitions.
func (t *Tracker) UpdateFromTTL(f models.Frame) Update {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.state.Mode
	t.lastFrame = f
	t.state.CurrentTemp = f.WaterTemp()
	t.state.SetTemp = f.TargetTemp()
	t.state.HeaterCmd = f.HeaterRelay() != 0
	t.state.LEDs = models.LEDFlags{
		Heat:  f[models.FieldHeatLED] != 0,
		Ready: f[models.FieldReadyLED] != 0,
		Eco:   f[models.FieldEcoLED] != 0,
		Clean: f[models.FieldCleanLED] != 0,
	}

	switch {
	case f.EcoMode() != 0:
		t.state.Mode = models.ModeIdleEco
	case f.CleanMode() != 0:
		t.state.Mode = models.ModeIdleClean
	default:
		t.state.Mode = models.ModeIdleNormal
	}

	t.performance = EvaluateCleanPerformance(f.CleanMode(), f.WaterTemp(), f.TargetTemp())
	event := t.auto.update(now, f.WaterTemp())
	all5, all0 := t.observeLEDsLocked(now, f.LEDs())

	return Update{
		PreviousMode: prev,
		Mode:         t.state.Mode,
		Automation:   event,
		Status:       t.auto.status(f.WaterTemp()),
		All5:         all5,
		All0:         all0,
	}
}

// ObserveLEDs feeds an analog LED reading into the lamp tracker and sync counters.
func (t *Tracker) ObserveLEDs(leds [4]float64) (all5, all0 bool) {
	now := t.clock.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.observeLEDsLocked(now, leds)
}

func (t *Tracker) observeLEDsLocked(now time.Time, leds [4]float64) (bool, bool) {
	t.lampSet, t.prevLampSet, t.lampSeconds = t.lamps.Observe(now, leds)
	return t.counter.Observe(leds)
}

// EnterEco switches to IDLE_ECO at the eco temperature, remembering the normal setpoint.
func (t *Tracker) EnterEco() models.HeaterState {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state.PreviousMode = t.state.Mode
	t.state.Mode = models.ModeIdleEco
	t.normalLastTemp = t.state.SetTemp
	t.setTempLocked(t.cfg.EcoTemp)
	t.state.LEDs.Eco = true
	return t.state
}

// EnterClean switches to IDLE_CLEAN at the clean temperature and restarts the clean countdown.
func (t *Tracker) EnterClean() models.HeaterState {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state.PreviousMode = t.state.Mode
	t.state.Mode = models.ModeIdleClean
	t.setTempLocked(t.cfg.CleanTemp)
	t.state.LEDs.Clean = true
	t.auto.resetCountdown()
	return t.state
}

// ExitClean returns to the mode saved by EnterClean: eco at the eco temperature,
// otherwise normal at the setpoint EnterEco saved.
func (t *Tracker) ExitClean() models.HeaterState {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state.LEDs.Clean = false
	if t.state.PreviousMode == models.ModeIdleEco {
		t.setTempLocked(t.cfg.EcoTemp)
		t.state.Mode = models.ModeIdleEco
	} else {
		t.setTempLocked(t.normalLastTemp)
		t.state.Mode = models.ModeIdleNormal
	}
	t.state.PreviousMode = models.ModeIdleClean
	return t.state
}

// AdjustTemp moves the setpoint one degree, saturating at the configured bounds.
func (t *Tracker) AdjustTemp(up bool) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := t.state.SetTemp - 1
	if up {
		next = t.state.SetTemp + 1
	}
	next = math.Max(t.cfg.TempMin, math.Min(t.cfg.TempMax, next))
	t.setTempLocked(next)
	return next
}

// SetPower records a power command. Off parks the tracker in OFF, on in STANDBY,
// until the next frame reclassifies the mode.
func (t *Tracker) SetPower(on bool) models.HeaterState {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state.PreviousMode = t.state.Mode
	if on {
		t.state.Mode = models.ModeStandby
	} else {
		t.state.Mode = models.ModeOff
		t.state.HeaterCmd = false
	}
	return t.state
}

func (t *Tracker) setTempLocked(v float64) {
	t.state.SetTemp = v
	t.state.PendingTemp = v
}

// State returns a copy of the heater state.
func (t *Tracker) State() models.HeaterState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Snapshot fills the tracker-owned fields of a HeaterSnapshot.
func (t *Tracker) Snapshot() models.HeaterSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return models.HeaterSnapshot{
		ID:          1,
		State:       t.state,
		Automation:  t.auto.status(t.state.CurrentTemp),
		Performance: t.performance,
		Lamps:       t.lampSet,
		PrevLamps:   t.prevLampSet,
		LampSeconds: t.lampSeconds,
		LastFrame:   t.lastFrame,
		UpdatedAt:   t.clock.Now().UTC(),
	}
}

// SyncCounts returns the all-five and all-zero counters.
func (t *Tracker) SyncCounts() (all5, all0 int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.counter.Counts()
}

// ResetCounters clears the LED sync counters.
func (t *Tracker) ResetCounters() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counter.Reset()
}

// Restore seeds the tracker from a persisted snapshot.
func (t *Tracker) Restore(s models.HeaterSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s.State.Mode == "" {
		return
	}
	t.state = s.State
	t.lastFrame = s.LastFrame
	if s.State.Mode != models.ModeIdleEco && s.State.Mode != models.ModeIdleClean {
		t.normalLastTemp = s.State.SetTemp
	}
}

func durationHours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

func thresholds(a config.AnalogConfig) SyncThresholds {
	return SyncThresholds{All5Min: a.All5Min, All5Max: a.All5Max, All0Min: a.All0Min, All0Max: a.All0Max}
}

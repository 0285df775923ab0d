package heater

import "time"

// TimerState is what a watchdog reports after one tick.
type TimerState struct {
	Running bool
	Elapsed time.Duration
	Fired   bool
}

// Watchdog measures how long a condition has held without interruption.
// It is a value type: Tick returns the advanced watchdog instead of mutating.
type Watchdog struct {
	threshold time.Duration
	start     time.Time
	running   bool
}

// NewCountdownTimer fires after the water stays below the clean threshold for d.
func NewCountdownTimer(d time.Duration) Watchdog {
	return Watchdog{threshold: d}
}

// NewExitTimer fires after the water stays at or above the clean threshold for d.
func NewExitTimer(d time.Duration) Watchdog {
	return Watchdog{threshold: d}
}

// Tick advances the watchdog to now. When holds is false the watchdog drops back to zero.
func (w Watchdog) Tick(now time.Time, holds bool) (Watchdog, TimerState) {
	if !holds {
		return w.Reset(), TimerState{}
	}
	if !w.running {
		w.running = true
		w.start = now
	}
	elapsed := now.Sub(w.start)
	if elapsed < 0 {
		// Clock stepped backwards; restart the measurement.
		w.start = now
		elapsed = 0
	}
	return w, TimerState{Running: true, Elapsed: elapsed, Fired: elapsed >= w.threshold}
}

// Reset clears the accumulated time.
func (w Watchdog) Reset() Watchdog {
	return Watchdog{threshold: w.threshold}
}

// Threshold returns the firing duration.
func (w Watchdog) Threshold() time.Duration { return w.threshold }

package heater

import (
	"strings"
	"time"
)

// LampNone is the lamp set reported when nothing is lit.
const LampNone = "None"

var lampNames = [4]string{"Heat", "Ready", "Eco", "Clean"}

// LampTracker follows which lamps are lit and for how long the current set has held.
// A lamp counts as lit above ActiveVolts, independent of the LED codec's 5V convention.
type LampTracker struct {
	ActiveVolts float64

	current  string
	previous string
	since    time.Time
}

// NewLampTracker returns a tracker using activeVolts as the lit threshold.
func NewLampTracker(activeVolts float64) *LampTracker {
	return &LampTracker{ActiveVolts: activeVolts, current: LampNone, previous: LampNone}
}

// Observe records a reading and returns the current set, the previous distinct set
// and whole seconds spent in the current set.
func (l *LampTracker) Observe(now time.Time, leds [4]float64) (current, previous string, seconds int) {
	set := l.describe(leds)
	if l.since.IsZero() {
		l.since = now
	}
	if set != l.current {
		l.previous = l.current
		l.current = set
		l.since = now
	}
	return l.current, l.previous, int(now.Sub(l.since).Seconds())
}

func (l *LampTracker) describe(leds [4]float64) string {
	var lit []string
	for i, v := range leds {
		if v > l.ActiveVolts {
			lit = append(lit, lampNames[i])
		}
	}
	if len(lit) == 0 {
		return LampNone
	}
	return strings.Join(lit, " + ")
}

// SyncThresholds bound the all-five and all-zero windows, inclusive.
type SyncThresholds struct {
	All5Min, All5Max float64
	All0Min, All0Max float64
}

// SyncCounter counts readings where all four LEDs sit in the same voltage window.
type SyncCounter struct {
	th   SyncThresholds
	all5 int
	all0 int
}

func NewSyncCounter(th SyncThresholds) *SyncCounter {
	return &SyncCounter{th: th}
}

// Observe updates the counters and reports which windows matched.
func (c *SyncCounter) Observe(leds [4]float64) (all5, all0 bool) {
	all5, all0 = true, true
	for _, v := range leds {
		if v < c.th.All5Min || v > c.th.All5Max {
			all5 = false
		}
		if v < c.th.All0Min || v > c.th.All0Max {
			all0 = false
		}
	}
	if all5 {
		c.all5++
	}
	if all0 {
		c.all0++
	}
	return all5, all0
}

func (c *SyncCounter) Counts() (all5, all0 int) { return c.all5, c.all0 }

func (c *SyncCounter) Reset() { c.all5, c.all0 = 0, 0 }

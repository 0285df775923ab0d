package heater

import (
	"fmt"
	"math"
	"time"

	"heater_monitor/internal/models"
)

// AutomationEvent is the transition produced by one automation update.
type AutomationEvent int

const (
	AutomationNone AutomationEvent = iota
	AutomationTriggered
	AutomationExited
)

func (e AutomationEvent) String() string {
	switch e {
	case AutomationTriggered:
		return "triggered"
	case AutomationExited:
		return "exited"
	default:
		return "none"
	}
}

// automation drives clean-cycle entry and exit from two watchdogs.
// Not safe for concurrent use; the Tracker serialises access.
type automation struct {
	thresholdC float64
	countdown  Watchdog
	exit       Watchdog
	active     bool

	hoursBelow    float64
	exitElapsed   time.Duration
	exitCountdown int
}

func newAutomation(thresholdC float64, trigger, exit time.Duration) *automation {
	return &automation{
		thresholdC: thresholdC,
		countdown:  NewCountdownTimer(trigger),
		exit:       NewExitTimer(exit),
	}
}

func (a *automation) update(now time.Time, water float64) AutomationEvent {
	below := water < a.thresholdC

	var cs TimerState
	a.countdown, cs = a.countdown.Tick(now, below)
	a.hoursBelow = cs.Elapsed.Hours()
	shouldTrigger := below && cs.Fired

	event := AutomationNone
	if a.active && !below {
		var es TimerState
		a.exit, es = a.exit.Tick(now, true)
		a.exitElapsed = es.Elapsed
		a.exitCountdown = remainingSeconds(a.exit.Threshold(), es.Elapsed)
		if es.Fired {
			a.active = false
			a.exit = a.exit.Reset()
			a.exitElapsed = 0
			a.exitCountdown = 0
			a.countdown = a.countdown.Reset()
			a.hoursBelow = 0
			event = AutomationExited
		}
	} else {
		a.exit = a.exit.Reset()
		a.exitElapsed = 0
		a.exitCountdown = 0
	}

	if shouldTrigger && !a.active {
		a.active = true
		event = AutomationTriggered
	}
	return event
}

// resetCountdown restarts the trigger watchdog without touching an active cycle.
func (a *automation) resetCountdown() {
	a.countdown = a.countdown.Reset()
	a.hoursBelow = 0
}

func (a *automation) status(water float64) models.AutomationStatus {
	return models.AutomationStatus{
		Active:        a.active,
		HoursBelow:    a.hoursBelow,
		ExitSeconds:   a.exitElapsed.Seconds(),
		ExitCountdown: a.exitCountdown,
		Status:        a.describe(water),
	}
}

func (a *automation) describe(water float64) string {
	triggerHours := a.countdown.Threshold().Hours()
	switch {
	case a.active && a.exitCountdown > 0:
		return fmt.Sprintf("ACTIVE (EXIT: %ds)", a.exitCountdown)
	case a.active:
		return "ACTIVE"
	case water < a.thresholdC:
		return fmt.Sprintf("COUNTDOWN (%.1fh left)", math.Max(0, triggerHours-a.hoursBelow))
	default:
		return fmt.Sprintf("STANDBY (T=%.1f°C ≥%.0f°C)", water, a.thresholdC)
	}
}

func remainingSeconds(total, elapsed time.Duration) int {
	left := int(total.Seconds()) - int(elapsed.Seconds())
	if left < 0 {
		return 0
	}
	return left
}

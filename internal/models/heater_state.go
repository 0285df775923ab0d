package models

import "time"

// HeaterMode is the classified operating mode of the heater.
type HeaterMode string

const (
	ModeOff        HeaterMode = "OFF"
	ModeStandby    HeaterMode = "STANDBY"
	ModeIdleNormal HeaterMode = "IDLE_NORMAL"
	ModeIdleEco    HeaterMode = "IDLE_ECO"
	ModeIdleClean  HeaterMode = "IDLE_CLEAN"
)

// LEDFlags are the boolean lamp states derived from a frame.
type LEDFlags struct {
	Heat  bool `json:"heat"`
	Ready bool `json:"ready"`
	Eco   bool `json:"eco"`
	Clean bool `json:"clean"`
}

// HeaterState is a copy of the tracker's state at one instant.
type HeaterState struct {
	Mode         HeaterMode `json:"mode"`
	PreviousMode HeaterMode `json:"previous_mode"`
	SetTemp      float64    `json:"set_temp"`
	PendingTemp  float64    `json:"pending_temp"`
	CurrentTemp  float64    `json:"current_temp"`
	HeaterCmd    bool       `json:"heater_cmd"`
	LEDs         LEDFlags   `json:"leds"`
}

// AutomationStatus is the clean-cycle watchdog view.
type AutomationStatus struct {
	Active        bool    `json:"active"`
	HoursBelow    float64 `json:"hours_below"`
	ExitSeconds   float64 `json:"exit_seconds"`
	ExitCountdown int     `json:"exit_countdown"`
	Status        string  `json:"status"`
}

// HeaterSnapshot is what the monitoring API, websocket and persistence layer see.
type HeaterSnapshot struct {
	ID          int              `json:"id"`
	State       HeaterState      `json:"state"`
	Automation  AutomationStatus `json:"automation"`
	Performance string           `json:"clean_performance"`
	Lamps       string           `json:"lamps"`
	PrevLamps   string           `json:"previous_lamps"`
	LampSeconds int              `json:"lamp_seconds"`
	Link        LinkState        `json:"link"`
	LastFrame   Frame            `json:"last_frame"`
	LastError   ErrorCode        `json:"last_error"`
	ErrorCount  int              `json:"error_count"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

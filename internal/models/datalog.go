package models

import "time"

// DataLogEntry is one row of the primary acquisition log.
type DataLogEntry struct {
	Timestamp   time.Time  `json:"timestamp"`
	Frame       Frame      `json:"frame"`
	Valid       bool       `json:"valid"`
	Lamps       string     `json:"lamps"`
	PrevLamps   string     `json:"previous_lamps"`
	LampSeconds int        `json:"lamp_seconds"`
	HeaterMode  HeaterMode `json:"heater_mode"`
	HeaterCmd   bool       `json:"heater_cmd"`
	Automation  string     `json:"automation"`
}

// ChartSample is one point of the temperature chart.
type ChartSample struct {
	At         time.Time `json:"at"`
	WaterTemp  float64   `json:"water_temp"`
	TargetTemp float64   `json:"target_temp"`
}

// AnalogSample is one reading of the analog channels (Heat, Ready, Eco, Clean, Heater1, Heater2).
type AnalogSample struct {
	At     time.Time `json:"at"`
	Values []float64 `json:"values"`
}

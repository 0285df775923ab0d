package service

import (
	"time"

	"heater_monitor/internal/models"
	"heater_monitor/internal/protocol"
)

// LogFilter selects events by time range and type.
type LogFilter struct {
	From  time.Time // inclusive; zero means no lower bound
	To    time.Time // inclusive; zero means no upper bound
	Type  string    // empty or one of the models.Event* types, any case
	Limit int       // newest N; zero means all
}

// CommandResult is what an operator action changed.
type CommandResult struct {
	Command   protocol.Command   `json:"command"`
	State     models.HeaterState `json:"state"`
	Delivered bool               `json:"delivered"`
}

// System status derived from the last recorded fault.
const (
	StatusOK      = "OK"
	StatusWarning = "WARNING"
	StatusError   = "ERROR"
)

// ErrorSummary is the running fault counter view.
type ErrorSummary struct {
	Count    int              `json:"count"`
	LastCode models.ErrorCode `json:"last_code"`
	LastType string           `json:"last_type,omitempty"`
	Status   string           `json:"status"`
	Buffered int              `json:"buffered"`
}

// LiveView is what the consumer loop last published for renderers.
type LiveView struct {
	Version uint64                `json:"version"`
	At      time.Time             `json:"at"`
	State   models.HeaterSnapshot `json:"state"`
	Chart   []models.ChartSample  `json:"chart"`
}

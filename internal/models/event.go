package models

import (
	"strings"
	"time"
)

// Event types stored in the heater event log.
const (
	EventModeChange = "MODE_CHANGE"
	EventOperator   = "OPERATOR"
	EventLink       = "LINK"
	EventAutomation = "AUTOMATION"
	EventError      = "ERROR"
)

var eventTypes = []string{EventModeChange, EventOperator, EventLink, EventAutomation, EventError}

// ParseEventType matches s case-insensitively against the known event types.
func ParseEventType(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, t := range eventTypes {
		if strings.EqualFold(s, t) {
			return t, true
		}
	}
	return "", false
}

// HeaterEvent is a single journal entry. Metadata is stored as JSON.
type HeaterEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}

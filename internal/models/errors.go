package models

import "time"

// ErrorCode is the numbered fault reported next to a frame.
type ErrorCode int

// Display faults (7-segment readout anomalies) are numbered 1..6.
const (
	CodeNone ErrorCode = 0

	CodeDisplayInvalid ErrorCode = 1 // "/iv"
	CodeDisplayVrl     ErrorCode = 2 // "vrl"
	CodeDisplayErr     ErrorCode = 3 // "err"
	CodeDisplayEr      ErrorCode = 4 // "Er"
	CodeDisplayEDash   ErrorCode = 5 // "E-"
	CodeDisplayDashE   ErrorCode = 6 // "-E"

	CodeFrameLength       ErrorCode = 10
	CodeInvalidMode       ErrorCode = 11
	CodeInvalidWaterTemp  ErrorCode = 12
	CodeInvalidTargetTemp ErrorCode = 13
	CodeInvalidHeatLED    ErrorCode = 14
	CodeInvalidReadyLED   ErrorCode = 15
	CodeInvalidEcoLED     ErrorCode = 16
	CodeInvalidCleanLED   ErrorCode = 17

	CodeValidationException ErrorCode = 20
	CodeParsingError        ErrorCode = 30
)

// Error record types.
const (
	ErrorTypeDisplay    = "DISPLAY_ERROR"
	ErrorTypeValidation = "VALIDATION_ERROR"
	ErrorTypeParsing    = "PARSING_ERROR"
	ErrorTypeLink       = "LINK_ERROR"
)

// IsDisplayFault reports whether c is one of the 7-segment fault codes.
func (c ErrorCode) IsDisplayFault() bool {
	return c >= CodeDisplayInvalid && c <= CodeDisplayDashE
}

// Type maps a code onto its record type. Codes outside the taxonomy return "".
func (c ErrorCode) Type() string {
	switch {
	case c.IsDisplayFault():
		return ErrorTypeDisplay
	case c >= CodeFrameLength && c <= CodeInvalidCleanLED, c == CodeValidationException:
		return ErrorTypeValidation
	case c == CodeParsingError:
		return ErrorTypeParsing
	default:
		return ""
	}
}

// ValidationResult is advisory: the frame is delivered whether or not it is valid.
type ValidationResult struct {
	Valid   bool      `json:"valid"`
	Code    ErrorCode `json:"code,omitempty"`
	Pattern string    `json:"pattern,omitempty"` // display faults only
	Message string    `json:"message,omitempty"`
}

// ErrorRecord is one entry of the error ledger.
type ErrorRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	Type         string    `json:"type"`
	RawFrame     string    `json:"raw_frame"`
	Message      string    `json:"message"`
	Code         ErrorCode `json:"code"`
	RunningCount int       `json:"running_count"`
}

package protocol

import (
	"errors"
	"fmt"

	"heater_monitor/internal/models"
)

const (
	// AnalogChannels is the width of a legacy analog record.
	AnalogChannels = 6
	// LampActiveVolts is the threshold above which an analog channel counts as lit.
	LampActiveVolts = 0.44
)

var ErrLegacyShape = errors.New("unsupported record width")

// Ingest runs the full fault pre-scan, decode and validate pipeline on one raw line.
// The returned frame is always usable; the result says whether it can be trusted.
func Ingest(line string) (models.Frame, models.ValidationResult) {
	if res, hit := ScanDisplayFault(line); hit {
		return models.Frame{}, res
	}
	frame, code := Decode(line)
	if code != models.CodeNone {
		return frame, models.ValidationResult{Code: code, Message: "frame could not be parsed"}
	}
	return frame, ValidateFrame(frame)
}

// FromLegacy resolves a record of either shape into the canonical frame.
// A 12-field record is taken as is. A 6-channel analog record
// (Heat, Ready, Eco, Clean, Heater1, Heater2) fills the LED slots, and the
// heater relay is set when either heater channel is lit.
func FromLegacy(values []float64) (models.Frame, error) {
	var f models.Frame
	switch len(values) {
	case models.FieldCount:
		copy(f[:], values)
	case AnalogChannels:
		f[models.FieldHeatLED] = values[0]
		f[models.FieldReadyLED] = values[1]
		f[models.FieldEcoLED] = values[2]
		f[models.FieldCleanLED] = values[3]
		if values[4] > LampActiveVolts || values[5] > LampActiveVolts {
			f[models.FieldHeaterRelay] = 1
		}
	default:
		return f, fmt.Errorf("%w: %d", ErrLegacyShape, len(values))
	}
	return f, nil
}

package protocol

import (
	"fmt"
	"strings"

	"heater_monitor/internal/models"
)

type displayFault struct {
	pattern string
	code    models.ErrorCode
}

// displayFaults is scanned in priority order; the first substring hit wins.
var displayFaults = []displayFault{
	{"/iv", models.CodeDisplayInvalid},
	{"vrl", models.CodeDisplayVrl},
	{"err", models.CodeDisplayErr},
	{"Er", models.CodeDisplayEr},
	{"E-", models.CodeDisplayEDash},
	{"-E", models.CodeDisplayDashE},
}

type rangeCheck struct {
	slot     int
	min, max float64
	code     models.ErrorCode
}

var rangeChecks = []rangeCheck{
	{models.FieldMode, 0, 4, models.CodeInvalidMode},
	{models.FieldWaterTemp, 0, 100, models.CodeInvalidWaterTemp},
	{models.FieldTargetTemp, 0, 100, models.CodeInvalidTargetTemp},
}

var ledChecks = []struct {
	slot int
	code models.ErrorCode
}{
	{models.FieldHeatLED, models.CodeInvalidHeatLED},
	{models.FieldReadyLED, models.CodeInvalidReadyLED},
	{models.FieldEcoLED, models.CodeInvalidEcoLED},
	{models.FieldCleanLED, models.CodeInvalidCleanLED},
}

// ScanDisplayFault looks for a 7-segment fault marker in the raw line.
func ScanDisplayFault(line string) (models.ValidationResult, bool) {
	for _, f := range displayFaults {
		if strings.Contains(line, f.pattern) {
			return models.ValidationResult{
				Code:    f.code,
				Pattern: f.pattern,
				Message: fmt.Sprintf("display fault %q", f.pattern),
			}, true
		}
	}
	return models.ValidationResult{Valid: true}, false
}

// Validate checks a decoded frame given as a slice so that short payloads can be
// reported as CodeFrameLength. A panic during checking yields CodeValidationException.
func Validate(values []float64) (res models.ValidationResult) {
	defer func() {
		if r := recover(); r != nil {
			res = models.ValidationResult{
				Code:    models.CodeValidationException,
				Message: fmt.Sprintf("validation exception: %v", r),
			}
		}
	}()

	if len(values) != models.FieldCount {
		return invalid(models.CodeFrameLength, "frame has %d fields, want %d", len(values), models.FieldCount)
	}
	for _, c := range rangeChecks {
		v := values[c.slot]
		if !(v >= c.min && v <= c.max) {
			return invalid(c.code, "%s %g outside [%g,%g]", models.FieldNames[c.slot], v, c.min, c.max)
		}
	}
	for _, c := range ledChecks {
		v := values[c.slot]
		if v != 0 && v != models.LEDOnVolts {
			return invalid(c.code, "%s voltage %g is neither 0 nor %g", models.FieldNames[c.slot], v, models.LEDOnVolts)
		}
	}
	return models.ValidationResult{Valid: true}
}

// ValidateFrame is Validate for a fixed-width frame.
func ValidateFrame(f models.Frame) models.ValidationResult {
	return Validate(f[:])
}

func invalid(code models.ErrorCode, format string, args ...any) models.ValidationResult {
	return models.ValidationResult{Code: code, Message: fmt.Sprintf(format, args...)}
}

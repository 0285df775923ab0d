// Package protocol turns TTL serial lines into frames and operator actions into device commands.
package protocol

import (
	"math"
	"strconv"
	"strings"

	"heater_monitor/internal/models"
)

type decodeFunc func(value string) float64

type tagDef struct {
	tag    string
	slot   int
	decode decodeFunc
}

// multiCharTags is ordered longest first so the first prefix hit is the longest match.
var multiCharTags = []tagDef{
	{"C3M", models.FieldClean3Min, decodeNumber},
	{"ECO", models.FieldEcoMode, decodeNumber},
	{"TT", models.FieldTargetTemp, decodeNumber},
	{"CM", models.FieldCleanMode, decodeNumber},
	{"CH", models.FieldCleanHours, decodeNumber},
	{"HL", models.FieldHeatLED, decodeLED},
	{"RL", models.FieldReadyLED, decodeLED},
	{"EL", models.FieldEcoLED, decodeLED},
	{"CL", models.FieldCleanLED, decodeLED},
}

var singleCharTags = map[byte]tagDef{
	'M': {"M", models.FieldMode, decodeNumber},
	'H': {"H", models.FieldHeaterRelay, decodeNumber},
	'T': {"T", models.FieldWaterTemp, decodeNumber},
}

// Tags lists every wire tag in frame order.
var Tags = [models.FieldCount]string{"M", "H", "T", "TT", "CM", "CH", "C3M", "ECO", "HL", "RL", "EL", "CL"}

func decodeNumber(value string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func decodeLED(value string) float64 {
	if strings.TrimSpace(value) == "1" {
		return models.LEDOnVolts
	}
	return 0
}

// lookupTag resolves the tag of token and returns the remainder as value.
func lookupTag(token string) (tagDef, string, bool) {
	for _, def := range multiCharTags {
		if strings.HasPrefix(token, def.tag) {
			return def, token[len(def.tag):], true
		}
	}
	if token == "" {
		return tagDef{}, "", false
	}
	def, ok := singleCharTags[token[0]]
	if !ok {
		return tagDef{}, "", false
	}
	return def, token[1:], true
}

// Decode parses one comma-separated line. Unknown tokens are skipped and missing
// slots stay 0. It never fails: an internal panic yields a zero frame and
// CodeParsingError.
func Decode(line string) (frame models.Frame, code models.ErrorCode) {
	defer func() {
		if r := recover(); r != nil {
			frame = models.Frame{}
			code = models.CodeParsingError
		}
	}()

	for _, raw := range strings.Split(strings.TrimSpace(line), ",") {
		token := strings.TrimSpace(raw)
		def, value, ok := lookupTag(token)
		if !ok {
			continue
		}
		frame[def.slot] = def.decode(value)
	}
	return frame, models.CodeNone
}

// Encode renders frame back into wire form. LED slots at or above LEDOnVolts encode as 1.
func Encode(frame models.Frame) string {
	parts := make([]string, models.FieldCount)
	for i, tag := range Tags {
		var value string
		if i >= models.FieldHeatLED {
			value = "0"
			if frame[i] >= models.LEDOnVolts {
				value = "1"
			}
		} else {
			value = strconv.FormatFloat(frame[i], 'f', -1, 64)
		}
		parts[i] = tag + value
	}
	return strings.Join(parts, ",")
}

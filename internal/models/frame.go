package models

// FieldCount is the fixed width of a decoded TTL frame.
const FieldCount = 12

// Slot indexes inside a Frame, in wire order.
const (
	FieldMode = iota
	FieldHeaterRelay
	FieldWaterTemp
	FieldTargetTemp
	FieldCleanMode
	FieldCleanHours
	FieldClean3Min
	FieldEcoMode
	FieldHeatLED
	FieldReadyLED
	FieldEcoLED
	FieldCleanLED
)

// LEDOnVolts is the voltage the LED codec assigns to a digital "1".
const LEDOnVolts = 5.0

// FieldNames lists the human-readable names of the frame slots.
var FieldNames = [FieldCount]string{
	"Mode", "HeaterRelay", "WaterTemp", "TargetTemp",
	"CleanMode", "CleanHours", "Clean3Min", "EcoMode",
	"HeatLED", "ReadyLED", "EcoLED", "CleanLED",
}

// Frame is one decoded TTL record. It is a value type, so copies never alias.
type Frame [FieldCount]float64

func (f Frame) Mode() float64        { return f[FieldMode] }
func (f Frame) HeaterRelay() float64 { return f[FieldHeaterRelay] }
func (f Frame) WaterTemp() float64   { return f[FieldWaterTemp] }
func (f Frame) TargetTemp() float64  { return f[FieldTargetTemp] }
func (f Frame) CleanMode() float64   { return f[FieldCleanMode] }
func (f Frame) CleanHours() float64  { return f[FieldCleanHours] }
func (f Frame) Clean3Min() float64   { return f[FieldClean3Min] }
func (f Frame) EcoMode() float64     { return f[FieldEcoMode] }

// LEDs returns Heat, Ready, Eco and Clean LED voltages in that order.
func (f Frame) LEDs() [4]float64 {
	return [4]float64{f[FieldHeatLED], f[FieldReadyLED], f[FieldEcoLED], f[FieldCleanLED]}
}

// IsZero reports whether every slot is 0.
func (f Frame) IsZero() bool {
	return f == Frame{}
}

package protocol

import (
	"errors"
	"testing"

	"heater_monitor/internal/models"
)

func TestFromLegacy(t *testing.T) {
	full := []float64{1, 0, 40, 60, 0, 0, 0, 0, 5, 0, 0, 0}
	f, err := FromLegacy(full)
	if err != nil {
		t.Fatalf("12 fields: %v", err)
	}
	if f.TargetTemp() != 60 || f[models.FieldHeatLED] != 5 {
		t.Fatalf("12 fields: %v", f)
	}

	f, err = FromLegacy([]float64{4.8, 0.1, 0, 4.9, 0, 3.3})
	if err != nil {
		t.Fatalf("6 channels: %v", err)
	}
	want := [4]float64{4.8, 0.1, 0, 4.9}
	if f.LEDs() != want {
		t.Fatalf("leds = %v, want %v", f.LEDs(), want)
	}
	if f.HeaterRelay() != 1 {
		t.Fatalf("heater relay = %v, want 1", f.HeaterRelay())
	}

	if _, err := FromLegacy([]float64{1, 2, 3}); !errors.Is(err, ErrLegacyShape) {
		t.Fatalf("err = %v, want ErrLegacyShape", err)
	}
}

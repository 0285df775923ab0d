package service

import (
	"heater_monitor/internal/config"
	"heater_monitor/internal/models"
	"heater_monitor/internal/series"
)

// Buffers are the growth-bounded collections the acquisition path appends to.
type Buffers struct {
	DataLog *series.Bounded[models.DataLogEntry]
	Chart   *series.Bounded[models.ChartSample]
	Analog  *series.Bounded[models.AnalogSample]
}

func NewBuffers(cfg config.BufferConfig) *Buffers {
	return &Buffers{
		DataLog: series.NewBounded[models.DataLogEntry](cfg.DataLog),
		Chart:   series.NewBounded[models.ChartSample](cfg.Chart),
		Analog:  series.NewBounded[models.AnalogSample](cfg.Analog),
	}
}

// Reset empties every collection.
func (b *Buffers) Reset() {
	b.DataLog.Reset()
	b.Chart.Reset()
	b.Analog.Reset()
}

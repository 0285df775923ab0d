package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"heater_monitor/internal/lifecycle"
	"heater_monitor/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.FrameProcessed(models.ValidationResult{Valid: true})
	m.FrameProcessed(models.ValidationResult{Valid: true})
	m.FrameProcessed(models.ValidationResult{Code: models.CodeInvalidMode})
	m.ErrorRecorded(models.ErrorRecord{Type: models.ErrorTypeValidation, Code: models.CodeInvalidMode})
	m.Sweep(lifecycle.SweepResult{Kind: lifecycle.SweepRegular, Dropped: map[string]int{"data_log": 5000}})

	if got := testutil.ToFloat64(m.frames.WithLabelValues("valid")); got != 2 {
		t.Fatalf("valid frames = %v", got)
	}
	if got := testutil.ToFloat64(m.frames.WithLabelValues("invalid")); got != 1 {
		t.Fatalf("invalid frames = %v", got)
	}
	if got := testutil.ToFloat64(m.errors.WithLabelValues(models.ErrorTypeValidation, "11")); got != 1 {
		t.Fatalf("errors = %v", got)
	}
	if got := testutil.ToFloat64(m.swept.WithLabelValues("data_log")); got != 5000 {
		t.Fatalf("swept = %v", got)
	}
}

func TestMetrics_LinkStatusIsOneHot(t *testing.T) {
	m := New()
	m.LinkStatus(models.LinkConnecting)
	m.LinkStatus(models.LinkConnected)

	if got := testutil.ToFloat64(m.linkStatus.WithLabelValues(string(models.LinkConnected))); got != 1 {
		t.Fatalf("connected = %v", got)
	}
	if got := testutil.ToFloat64(m.linkStatus.WithLabelValues(string(models.LinkConnecting))); got != 0 {
		t.Fatalf("connecting = %v", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Reconnect()
	m.Lifecycle(lifecycle.Report{CurrentMB: 42, Sizes: map[string]int{"chart": 10}})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		"heatermon_link_reconnects_total 1",
		"heatermon_process_memory_mb 42",
		`heatermon_collection_size{collection="chart"} 10`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("missing %q", want)
		}
	}
}

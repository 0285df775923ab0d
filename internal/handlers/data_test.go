package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"heater_monitor/internal/models"
	"heater_monitor/internal/service"
)

func TestDataHandlers_Chart(t *testing.T) {
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	acq := &mockAcquisition{chart: []models.ChartSample{
		{At: now, WaterTemp: 40, TargetTemp: 55},
		{At: now.Add(time.Second), WaterTemp: 41, TargetTemp: 55},
	}}
	s := &service.Service{Authorization: &mockAuth{parseID: 1}, Acquisition: acq}
	r := newTestRouter(s)

	cases := []struct {
		name      string
		query     string
		wantCode  int
		wantLimit int
	}{
		{name: "default limit", query: "", wantCode: http.StatusOK, wantLimit: 0},
		{name: "explicit limit", query: "?limit=50", wantCode: http.StatusOK, wantLimit: 50},
		{name: "limit is capped", query: "?limit=999999", wantCode: http.StatusOK, wantLimit: maxChartLimit},
		{name: "negative limit", query: "?limit=-1", wantCode: http.StatusBadRequest},
		{name: "non numeric limit", query: "?limit=all", wantCode: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			acq.lastLimit = -1
			w := doRequest(r, http.MethodGet, "/api/v1/chart"+tc.query, nil)
			if w.Code != tc.wantCode {
				t.Fatalf("status=%d, body=%s", w.Code, w.Body.String())
			}
			if tc.wantCode != http.StatusOK {
				return
			}
			if acq.lastLimit != tc.wantLimit {
				t.Fatalf("limit passed = %d, want %d", acq.lastLimit, tc.wantLimit)
			}
			var out struct {
				Count  int                  `json:"count"`
				Points []models.ChartSample `json:"points"`
			}
			_ = json.Unmarshal(w.Body.Bytes(), &out)
			if out.Count != 2 || out.Points[1].WaterTemp != 41 {
				t.Fatalf("unexpected response: %+v", out)
			}
		})
	}
}

func TestDataHandlers_DataLogAndReset(t *testing.T) {
	acq := &mockAcquisition{rows: []models.DataLogEntry{
		{Lamps: "Heat", Valid: true},
		{Lamps: "None", Valid: true},
		{Lamps: "Eco", Valid: false},
	}}
	s := &service.Service{Authorization: &mockAuth{parseID: 1}, Acquisition: acq}
	r := newTestRouter(s)

	w := doRequest(r, http.MethodGet, "/api/v1/data?limit=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var out struct {
		Count int                   `json:"count"`
		Rows  []models.DataLogEntry `json:"rows"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != 2 || out.Rows[0].Lamps != "None" || out.Rows[1].Lamps != "Eco" {
		t.Fatalf("expected the newest two rows, got %+v", out)
	}

	w = doRequest(r, http.MethodPost, "/api/v1/data/reset", nil)
	if w.Code != http.StatusOK || acq.resets != 1 {
		t.Fatalf("reset status=%d resets=%d", w.Code, acq.resets)
	}

	acq.resetErr = errors.New("db down")
	w = doRequest(r, http.MethodPost, "/api/v1/data/reset", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestFaultHandlers_ListAndReset(t *testing.T) {
	errs := &mockErrors{
		records: []models.ErrorRecord{{Code: models.CodeDisplayInvalid, Type: models.ErrorTypeDisplay, RunningCount: 1}},
		summary: service.ErrorSummary{Count: 1, LastCode: models.CodeDisplayInvalid, Status: service.StatusError, Buffered: 1},
	}
	s := &service.Service{Authorization: &mockAuth{parseID: 1}, Errors: errs}
	r := newTestRouter(s)

	w := doRequest(r, http.MethodGet, "/api/v1/errors", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var out struct {
		Summary service.ErrorSummary `json:"summary"`
		Records []models.ErrorRecord `json:"records"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Summary.Status != service.StatusError || len(out.Records) != 1 || out.Records[0].Code != models.CodeDisplayInvalid {
		t.Fatalf("unexpected response: %+v", out)
	}

	w = doRequest(r, http.MethodDelete, "/api/v1/errors", nil)
	if w.Code != http.StatusOK || errs.resets != 1 {
		t.Fatalf("reset status=%d resets=%d", w.Code, errs.resets)
	}
	out.Summary = service.ErrorSummary{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Summary.Status != service.StatusOK {
		t.Fatalf("summary after reset = %+v", out.Summary)
	}

	errs.resetErr = errors.New("db down")
	w = doRequest(r, http.MethodDelete, "/api/v1/errors", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

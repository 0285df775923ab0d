package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"heater_monitor/internal/lifecycle"
	"heater_monitor/internal/models"
	"heater_monitor/internal/protocol"
	"heater_monitor/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID  int
	signUpErr error
	token     string
	tokenErr  error
	parseID   int
	parseErr  error

	signUps []string
	signIns []string
}

func (m *mockAuth) SignUp(ctx context.Context, username, password string) (int, error) {
	m.signUps = append(m.signUps, username+":"+password)
	return m.signUpID, m.signUpErr
}

func (m *mockAuth) GenerateToken(ctx context.Context, username, password string) (string, error) {
	m.signIns = append(m.signIns, username+":"+password)
	return m.token, m.tokenErr
}

func (m *mockAuth) ParseToken(token string) (int, error) {
	if token != "valid" && m.parseErr == nil {
		return 0, service.ErrInvalidToken
	}
	return m.parseID, m.parseErr
}

type mockHeater struct {
	undelivered bool
	err         error
	commands    []protocol.Command
}

func (m *mockHeater) Execute(ctx context.Context, cmd protocol.Command) (service.CommandResult, error) {
	m.commands = append(m.commands, cmd)
	return service.CommandResult{
		Command:   cmd,
		State:     models.HeaterState{Mode: models.ModeIdleNormal},
		Delivered: !m.undelivered,
	}, m.err
}

func (m *mockHeater) last() protocol.Command {
	if len(m.commands) == 0 {
		return ""
	}
	return m.commands[len(m.commands)-1]
}

type mockMonitoring struct {
	mu     sync.Mutex
	state  models.HeaterSnapshot
	err    error
	link   models.LinkState
	report lifecycle.Report
}

func (m *mockMonitoring) GetState(ctx context.Context) (models.HeaterSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.err
}

func (m *mockMonitoring) setTemp(t float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.State.CurrentTemp = t
}
func (m *mockMonitoring) LinkState() models.LinkState { return m.link }
func (m *mockMonitoring) Lifecycle() lifecycle.Report { return m.report }

type mockEventLog struct {
	resp      []models.HeaterEvent
	err       error
	lastFrom  time.Time
	lastTo    time.Time
	lastType  string
	lastLimit int
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.HeaterEvent, error) {
	m.lastFrom, m.lastTo = f.From, f.To
	m.lastType, m.lastLimit = f.Type, f.Limit
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

type mockErrors struct {
	records  []models.ErrorRecord
	summary  service.ErrorSummary
	resetErr error
	resets   int
}

func (m *mockErrors) Recent() []models.ErrorRecord  { return m.records }
func (m *mockErrors) Summary() service.ErrorSummary { return m.summary }
func (m *mockErrors) ResetErrors(ctx context.Context) error {
	m.resets++
	if m.resetErr == nil {
		m.records = nil
		m.summary = service.ErrorSummary{Status: service.StatusOK}
	}
	return m.resetErr
}

// mockAcquisition bumps the LiveView version on every bump call.
type mockAcquisition struct {
	mu        sync.Mutex
	view      service.LiveView
	chart     []models.ChartSample
	rows      []models.DataLogEntry
	lastLimit int
	resets    int
	resetErr  error
}

func (m *mockAcquisition) Live() service.LiveView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view
}

func (m *mockAcquisition) bump() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.view.Version++
}

func (m *mockAcquisition) Chart(limit int) []models.ChartSample {
	m.lastLimit = limit
	return m.chart
}
func (m *mockAcquisition) DataLog() []models.DataLogEntry { return m.rows }
func (m *mockAcquisition) ResetData(ctx context.Context) error {
	m.resets++
	return m.resetErr
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

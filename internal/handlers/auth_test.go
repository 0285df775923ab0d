package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"heater_monitor/internal/service"
)

func postJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestAuthHandlers_SignUp(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		err      error
		wantCode int
	}{
		{name: "created", body: `{"username":"op","password":"pw"}`, wantCode: http.StatusOK},
		{name: "missing password", body: `{"username":"op"}`, wantCode: http.StatusBadRequest},
		{name: "invalid username", body: `{"username":" ","password":"pw"}`, err: service.ErrInvalidUsername, wantCode: http.StatusBadRequest},
		{name: "taken", body: `{"username":"op","password":"pw"}`, err: service.ErrUsernameTaken, wantCode: http.StatusConflict},
		{name: "storage failure", body: `{"username":"op","password":"pw"}`, err: errors.New("disk full"), wantCode: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &mockAuth{signUpID: 42, signUpErr: tc.err}
			r := newTestRouter(&service.Service{Authorization: auth})

			w := postJSON(r, "/auth/sign-up", tc.body)
			if w.Code != tc.wantCode {
				t.Fatalf("status=%d, body=%s", w.Code, w.Body.String())
			}
			if tc.wantCode != http.StatusOK {
				return
			}
			var out map[string]int
			_ = json.Unmarshal(w.Body.Bytes(), &out)
			if out["id"] != 42 || len(auth.signUps) != 1 || auth.signUps[0] != "op:pw" {
				t.Fatalf("id=%v signUps=%v", out, auth.signUps)
			}
		})
	}

	// internal failures do not leak their cause
	auth := &mockAuth{signUpErr: errors.New("disk full")}
	w := postJSON(newTestRouter(&service.Service{Authorization: auth}), "/auth/sign-up", `{"username":"op","password":"pw"}`)
	if strings.Contains(w.Body.String(), "disk full") {
		t.Fatalf("body leaks the storage error: %s", w.Body.String())
	}
}

func TestAuthHandlers_SignIn(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		wantCode  int
		wantToken string
	}{
		{name: "issued", wantCode: http.StatusOK, wantToken: "tok123"},
		{name: "unknown operator", err: service.ErrOperatorNotFound, wantCode: http.StatusUnauthorized},
		{name: "wrong password", err: service.ErrInvalidPassword, wantCode: http.StatusUnauthorized},
		{name: "storage failure", err: errors.New("database is locked"), wantCode: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &mockAuth{token: tc.wantToken, tokenErr: tc.err}
			r := newTestRouter(&service.Service{Authorization: auth})

			w := postJSON(r, "/auth/sign-in", `{"username":"op","password":"pw"}`)
			if w.Code != tc.wantCode {
				t.Fatalf("status=%d, body=%s", w.Code, w.Body.String())
			}
			var out map[string]string
			_ = json.Unmarshal(w.Body.Bytes(), &out)
			if out["token"] != tc.wantToken {
				t.Fatalf("token = %q, want %q", out["token"], tc.wantToken)
			}
			if tc.wantCode == http.StatusUnauthorized && out["error"] != "invalid credentials" {
				t.Fatalf("401 must not reveal which credential was wrong: %v", out)
			}
		})
	}

	w := postJSON(newTestRouter(&service.Service{Authorization: &mockAuth{}}), "/auth/sign-in", `{"username":1}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a malformed body, got %d", w.Code)
	}
}

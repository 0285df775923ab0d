package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"heater_monitor/internal/service"

	"github.com/gin-gonic/gin"
)

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
		err    error
	}{
		{header: "", err: errMissingAuth},
		{header: "Bearer abc", want: "abc"},
		{header: "bearer  abc ", want: "abc"},
		{header: "Token abc", err: errAuthFormat},
		{header: "Bearer", err: errAuthFormat},
		{header: "Bearer   ", err: errAuthFormat},
	}
	for _, tc := range cases {
		got, err := bearerToken(tc.header)
		if got != tc.want || !errors.Is(err, tc.err) {
			t.Errorf("bearerToken(%q) = (%q, %v), want (%q, %v)", tc.header, got, err, tc.want, tc.err)
		}
	}
}

func TestOperatorIdMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := &mockAuth{parseID: 123}
	h := NewHandler(&service.Service{Authorization: auth}, nil, nil)
	r := gin.New()
	r.GET("/secure", h.operatorIdMiddleware, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"operator": operatorID(c)})
	})

	cases := []struct {
		name     string
		header   string
		wantCode int
		wantBody string
	}{
		{name: "missing header", wantCode: http.StatusUnauthorized, wantBody: `{"error":"missing Authorization header"}`},
		{name: "wrong scheme", header: "Basic dTpw", wantCode: http.StatusUnauthorized, wantBody: `{"error":"invalid Authorization header format"}`},
		{name: "rejected token", header: "Bearer stale", wantCode: http.StatusUnauthorized, wantBody: `{"error":"invalid or expired token"}`},
		{name: "valid token", header: "Bearer valid", wantCode: http.StatusOK, wantBody: `{"operator":123}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/secure", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)

			if w.Code != tc.wantCode || w.Body.String() != tc.wantBody {
				t.Fatalf("got %d %s, want %d %s", w.Code, w.Body.String(), tc.wantCode, tc.wantBody)
			}
		})
	}
}

func TestOperatorID_OutsideProtectedGroup(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if got := operatorID(c); got != 0 {
		t.Fatalf("operatorID = %d, want 0", got)
	}
	c.Set(operatorIdKey, 5)
	if got := operatorID(c); got != 5 {
		t.Fatalf("operatorID = %d, want 5", got)
	}
}

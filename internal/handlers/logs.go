package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"heater_monitor/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	maxEventLimit = 10000

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

var queryTimeLayouts = []string{time.RFC3339, layoutDateTime, layoutDate}

// parseQueryTime accepts RFC3339, "YYYY-MM-DD HH:MM:SS" or "YYYY-MM-DD". A date-only
// upper bound covers the whole day.
func parseQueryTime(s string, upper bool) (time.Time, error) {
	for _, layout := range queryTimeLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if upper && layout == layoutDate {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q; use RFC3339, 'YYYY-MM-DD HH:MM:SS' or YYYY-MM-DD", s)
}

// logFilter builds the filter from the query string. Type and range checks are left
// to the event log service.
func logFilter(c *gin.Context) (service.LogFilter, error) {
	var f service.LogFilter
	for _, b := range []struct {
		key   string
		upper bool
		dst   *time.Time
	}{
		{"from", false, &f.From},
		{"to", true, &f.To},
	} {
		qs := strings.TrimSpace(c.Query(b.key))
		if qs == "" {
			continue
		}
		t, err := parseQueryTime(qs, b.upper)
		if err != nil {
			return f, fmt.Errorf("'%s': %w", b.key, err)
		}
		*b.dst = t
	}
	limit, ok := parseLimit(c, maxEventLimit)
	if !ok {
		return f, errors.New("'limit' must be a positive integer")
	}
	f.Limit = limit
	f.Type = c.Query("type")
	return f, nil
}

// @Summary      List heater events
// @Description  Filter events by date (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'). A date-only 'to' includes that whole day. 'limit' keeps the newest events.
// @Tags         logs
// @Produce      json
// @Param        from   query     string  false  "Start of range"  example(2025-08-01)
// @Param        to     query     string  false  "End of range, inclusive"  example(2025-08-31)
// @Param        type   query     string  false  "Event type"  Enums(MODE_CHANGE,OPERATOR,LINK,AUTOMATION,ERROR)
// @Param        limit  query     int     false  "Newest N events"
// @Success      200    {object}  map[string]interface{}  "count, events"
// @Failure      400    {object}  map[string]string
// @Failure      401    {object}  map[string]string
// @Failure      500    {object}  map[string]string
// @Router       /api/v1/logs [get]
// @Security     BearerAuth
func (h *Handler) getLogs(c *gin.Context) {
	f, err := logFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events, err := h.services.EventLog.List(c.Request.Context(), f)
	if errors.Is(err, service.ErrInvalidFilter) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load events", "events_list_failed", err,
			"from", f.From, "to", f.To, "type", f.Type)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(events), "events": events})
}

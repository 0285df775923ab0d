package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	maxChartLimit = 5000
	maxDataLimit  = 20000

	errLimitInvalid = "invalid 'limit'; use a positive integer"
)

// parseLimit reads ?limit=; missing means 0 (service default).
func parseLimit(c *gin.Context, max int) (int, bool) {
	s := c.Query("limit")
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	if n > max {
		n = max
	}
	return n, true
}

// @Summary      Reduced temperature chart
// @Description  Water and target temperature, downsampled to at most 'limit' points.
// @Tags         data
// @Produce      json
// @Param        limit  query     int  false  "Maximum points (default from config)"
// @Success      200    {object}  map[string]interface{}  "count, points"
// @Failure      400    {object}  map[string]string
// @Failure      401    {object}  map[string]string
// @Router       /api/v1/chart [get]
// @Security     BearerAuth
func (h *Handler) getChart(c *gin.Context) {
	limit, ok := parseLimit(c, maxChartLimit)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": errLimitInvalid})
		return
	}
	points := h.services.Acquisition.Chart(limit)
	c.JSON(http.StatusOK, gin.H{
		"count":  len(points),
		"points": points,
	})
}

// @Summary      Primary data log
// @Description  One row per processed frame, oldest first. 'limit' keeps the newest rows.
// @Tags         data
// @Produce      json
// @Param        limit  query     int  false  "Newest rows to return"
// @Success      200    {object}  map[string]interface{}  "count, rows"
// @Failure      400    {object}  map[string]string
// @Failure      401    {object}  map[string]string
// @Router       /api/v1/data [get]
// @Security     BearerAuth
func (h *Handler) getDataLog(c *gin.Context) {
	limit, ok := parseLimit(c, maxDataLimit)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": errLimitInvalid})
		return
	}
	rows := h.services.Acquisition.DataLog()
	if limit > 0 && len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}
	c.JSON(http.StatusOK, gin.H{
		"count": len(rows),
		"rows":  rows,
	})
}

// @Summary      Reset acquisition data
// @Description  Clears the data log, chart and analog series. The fault ledger is untouched.
// @Tags         data
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/data/reset [post]
// @Security     BearerAuth
func (h *Handler) resetData(c *gin.Context) {
	if err := h.services.Acquisition.ResetData(c.Request.Context()); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "data reset but not logged", "data_reset_log_failed", err,
			"operator_id", operatorID(c))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusDataReset})
}

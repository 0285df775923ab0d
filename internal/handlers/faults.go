package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary      List recorded faults
// @Tags         errors
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "summary, records"
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/errors [get]
// @Security     BearerAuth
func (h *Handler) getErrors(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"summary": h.services.Errors.Summary(),
		"records": h.services.Errors.Recent(),
	})
}

// @Summary      Reset the fault ledger
// @Description  Clears records and counters. Acquisition keeps running.
// @Tags         errors
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/errors [delete]
// @Security     BearerAuth
func (h *Handler) resetErrors(c *gin.Context) {
	if err := h.services.Errors.ResetErrors(c.Request.Context()); err != nil {
		// The ledger is already cleared; only the OPERATOR event was lost.
		h.logAndJSONError(c, http.StatusInternalServerError, "errors reset but not logged", "errors_reset_log_failed", err,
			"operator_id", operatorID(c))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  statusErrorsReset,
		"summary": h.services.Errors.Summary(),
	})
}

package handlers

import (
	"errors"
	"net/http"

	"heater_monitor/internal/protocol"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK          = "ok"
	statusSent        = "command_sent"
	statusNotSent     = "applied_locally"
	statusErrorsReset = "errors_reset"
	statusDataReset   = "data_reset"

	errExecute         = "failed to execute command"
	errGetState        = "failed to load state"
	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// Respond with a status and include current state if available (best-effort).
func (h *Handler) respondWithStatusAndState(c *gin.Context, status string, extra gin.H) {
	ctx := c.Request.Context()
	resp := gin.H{"status": status}
	for k, v := range extra {
		resp[k] = v
	}
	st, err := h.services.Monitoring.GetState(ctx)
	if err == nil {
		resp["state"] = st
	}
	c.JSON(http.StatusOK, resp)
}

// toggleRequest is the body of the eco and power switches.
type toggleRequest struct {
	On *bool `json:"on" binding:"required"`
}

// commandRequest carries a raw device command such as "TU" or "ST45".
type commandRequest struct {
	Command string `json:"command" binding:"required" example:"ST45"`
}

// execute runs cmd and writes the shared command response.
func (h *Handler) execute(c *gin.Context, cmd protocol.Command) {
	res, err := h.services.Heater.Execute(c.Request.Context(), cmd)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errExecute, "heater_execute_failed", err,
			"command", string(cmd), "operator_id", operatorID(c))
		return
	}
	status := statusSent
	if !res.Delivered {
		status = statusNotSent
	}
	h.respondWithStatusAndState(c, status, gin.H{
		"command":   res.Command,
		"delivered": res.Delivered,
	})
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Raise the setpoint by one degree
// @Tags         heater
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, command, delivered, state"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/heater/temp/up [post]
// @Security     BearerAuth
func (h *Handler) tempUp(c *gin.Context) { h.execute(c, protocol.CmdTempUp) }

// @Summary      Lower the setpoint by one degree
// @Tags         heater
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/heater/temp/down [post]
// @Security     BearerAuth
func (h *Handler) tempDown(c *gin.Context) { h.execute(c, protocol.CmdTempDown) }

// @Summary      Switch eco mode
// @Tags         heater
// @Accept       json
// @Produce      json
// @Param        body  body      toggleRequest  true  "Eco switch"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/heater/eco [post]
// @Security     BearerAuth
func (h *Handler) setEco(c *gin.Context) {
	var req toggleRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	if *req.On {
		h.execute(c, protocol.CmdEcoOn)
		return
	}
	h.execute(c, protocol.CmdEcoOff)
}

// @Summary      Switch the heater on or off
// @Tags         heater
// @Accept       json
// @Produce      json
// @Param        body  body      toggleRequest  true  "Power switch"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/heater/power [post]
// @Security     BearerAuth
func (h *Handler) setPower(c *gin.Context) {
	var req toggleRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	if *req.On {
		h.execute(c, protocol.CmdPowerOn)
		return
	}
	h.execute(c, protocol.CmdPowerOff)
}

// @Summary      Start a clean cycle
// @Tags         heater
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/heater/clean/start [post]
// @Security     BearerAuth
func (h *Handler) startClean(c *gin.Context) { h.execute(c, protocol.CmdCleanOn) }

// @Summary      Stop the clean cycle
// @Tags         heater
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/heater/clean/stop [post]
// @Security     BearerAuth
func (h *Handler) stopClean(c *gin.Context) { h.execute(c, protocol.CmdCleanOff) }

// @Summary      Send a raw device command
// @Description  Accepts TU, TD, ECO1, ECO0, CL1, CL0, PWR1, PWR0 and ST<value> (bare ST means ST30).
// @Tags         heater
// @Accept       json
// @Produce      json
// @Param        body  body      commandRequest  true  "Command"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/heater/command [post]
// @Security     BearerAuth
func (h *Handler) sendCommand(c *gin.Context) {
	var req commandRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	cmd, err := protocol.ParseCommand(req.Command)
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownCommand) && h.log != nil {
			h.log.Infow("heater_unknown_command", "command", req.Command, "operator_id", operatorID(c))
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.execute(c, cmd)
}

// @Summary      Get heater state
// @Tags         heater
// @Produce      json
// @Success      200  {object}  models.HeaterSnapshot
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/heater/state [get]
// @Security     BearerAuth
func (h *Handler) getState(c *gin.Context) {
	ctx := c.Request.Context()
	st, err := h.services.Monitoring.GetState(ctx)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "heater_get_state_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Get serial link state
// @Tags         system
// @Produce      json
// @Success      200  {object}  models.LinkState
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/link [get]
// @Security     BearerAuth
func (h *Handler) getLink(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Monitoring.LinkState())
}

// @Summary      Get memory and sweep report
// @Tags         system
// @Produce      json
// @Success      200  {object}  lifecycle.Report
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/lifecycle [get]
// @Security     BearerAuth
func (h *Handler) getLifecycle(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Monitoring.Lifecycle())
}

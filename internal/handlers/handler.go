package handlers

import (
	"net/http"

	"heater_monitor/internal/logger"
	"heater_monitor/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
	metrics  http.Handler
}

// NewHandler constructs a new HTTP handler with dependencies. A nil metrics
// handler leaves /metrics unregistered.
func NewHandler(services *service.Service, log *logger.Logger, metrics http.Handler) *Handler {
	return &Handler{services: services, log: log, metrics: metrics}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics))
	}

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// Live stream on the same port.
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.operatorIdMiddleware)
	{
		h.registerHeaterRoutes(api)
		h.registerLogRoutes(api)
		h.registerErrorRoutes(api)
		h.registerDataRoutes(api)

		api.GET("/link", h.getLink)
		api.GET("/lifecycle", h.getLifecycle)
	}
}

func (h *Handler) registerHeaterRoutes(api *gin.RouterGroup) {
	heater := api.Group("/heater")
	{
		heater.GET("/state", h.getState)
		heater.POST("/temp/up", h.tempUp)
		heater.POST("/temp/down", h.tempDown)
		// Body example: {"on":true}
		heater.POST("/eco", h.setEco)
		heater.POST("/power", h.setPower)
		heater.POST("/clean/start", h.startClean)
		heater.POST("/clean/stop", h.stopClean)
		// Body example: {"command":"ST45"}
		heater.POST("/command", h.sendCommand)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("/", h.getLogs)
	}
}

func (h *Handler) registerErrorRoutes(api *gin.RouterGroup) {
	errs := api.Group("/errors")
	{
		errs.GET("", h.getErrors)
		errs.DELETE("", h.resetErrors)
	}
}

func (h *Handler) registerDataRoutes(api *gin.RouterGroup) {
	api.GET("/chart", h.getChart)
	data := api.Group("/data")
	{
		data.GET("", h.getDataLog)
		data.POST("/reset", h.resetData)
	}
}

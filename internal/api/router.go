package api

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"groundwater-rag/internal/config"
)

// NewRouter wires the middleware chain and every endpoint
func NewRouter(cfg *config.Config, h *Handler) *gin.Engine {
	switch cfg.Server.GinMode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		gin.SetMode(cfg.Server.GinMode)
	}

	r := gin.New()
	r.Use(
		otelgin.Middleware(cfg.Telemetry.ServiceName),
		RequestIDMiddleware(),
		LoggerMiddleware(),
		RecoveryMiddleware(),
		CORSMiddleware(cfg.Server.CORSOrigins),
	)

	r.POST("/ask", h.Ask)
	r.GET("/", h.Root)
	r.GET("/get_noc", h.GetNOC)
	r.GET("/get_groundwater_data", h.GetGroundwaterData)
	r.GET("/definitions", h.Definitions)
	r.GET("/training_opportunities", h.TrainingOpportunities)
	r.GET("/health", h.Health)
	return r
}

package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dwsmith1983/guardian/internal/server/handlers"
)

func (s *Server) registerRoutes(r *gin.Engine) {
	h := handlers.New(s.store, s.logger)

	api := r.Group("/api")
	api.GET("/health", h.Health)
	api.GET("/report", h.Report)
	api.GET("/summary", h.Summary)
	api.GET("/at-risk", h.AtRisk)
	api.GET("/owners/:key", h.Owner)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Package httpapi exposes the CIR engine's control plane: POST /cir/run
// to drive one repair run to completion, GET /healthz for liveness, and
// GET /metrics for the Prometheus scrape target.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/synapsenet/cir/internal/orchestrator"
)

// Server owns the gin.Engine and the dependencies its routes call into.
type Server struct {
	engine *gin.Engine
	orch   *orchestrator.Orchestrator
}

// NewServer builds a gin.Engine with every CIR route registered against
// orch, scraping reg for the /metrics endpoint.
func NewServer(orch *orchestrator.Orchestrator, reg *prometheus.Registry) *Server {
	engine := gin.Default()
	s := &Server{engine: engine, orch: orch}

	engine.GET("/healthz", HealthCheck)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	engine.POST("/cir/run", s.handleRun)

	return s
}

// Engine returns the underlying gin.Engine, for ListenAndServe or testing.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// HealthCheck reports basic liveness with no dependency on the
// Orchestrator or any downstream service.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// runRequest is the POST /cir/run body per spec.md §6.
type runRequest struct {
	Task string `json:"task"`
}

// runResponse mirrors orchestrator.Result's fields over the wire.
type runResponse struct {
	Success         bool   `json:"success"`
	TotalIterations int    `json:"total_iterations"`
	Status          string `json:"status"`
	Details         string `json:"details"`
}

// handleRun drives one runTask invocation to completion and returns its
// result map. An empty task is rejected with 400 before the Orchestrator
// ever sees it; every other outcome, including an internal failure, comes
// back as 200 with success=false per spec.md §7 — the API never throws a
// CIR failure to the client as an HTTP error.
func (s *Server) handleRun(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Task == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task must be a non-empty string"})
		return
	}

	result := s.orch.RunTask(c.Request.Context(), req.Task)
	c.JSON(http.StatusOK, runResponse{
		Success:         result.Success,
		TotalIterations: result.TotalIterations,
		Status:          result.Status,
		Details:         result.Details,
	})
}

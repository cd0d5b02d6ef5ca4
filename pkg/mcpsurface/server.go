// Package mcpsurface exposes the memory service's operations as a thin
// HTTP surface: one handler per named tool (spec §6), each doing nothing
// but binding a request, delegating to a pkg/ops.Controller (or, for the
// LLM-free tools, to the repository), and rendering the result as JSON.
package mcpsurface

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agenticmem/memoryd/pkg/ops"
	"github.com/agenticmem/memoryd/pkg/store"
)

// Server wires the operation controller and the repository's
// introspection/index surface behind gin routes.
type Server struct {
	Controller *ops.Controller
	Repo       *store.Repository
}

// NewServer constructs the outer HTTP adapter.
func NewServer(controller *ops.Controller, repo *store.Repository) *Server {
	return &Server{Controller: controller, Repo: repo}
}

// Routes registers every named tool endpoint on the given router.
func (s *Server) Routes(router *gin.Engine) {
	router.GET("/health", s.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/tools/memorize", s.Memorize)
	router.POST("/tools/recall", s.Recall)
	router.POST("/tools/forget", s.Forget)
	router.POST("/tools/refine_memories", s.RefineMemories)
	router.POST("/tools/scan_memories", s.ScanMemories)
	router.POST("/tools/create_index", s.CreateIndex)
	router.GET("/tools/list_indexes", s.ListIndexes)
	router.GET("/tools/inspect_character", s.InspectCharacter)
}

// Health reports liveness; the database ping doubles as a readiness check.
func (s *Server) Health(c *gin.Context) {
	project := c.Query("project")
	if project == "" {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	info, err := s.Repo.GetDatabaseInfo(c.Request.Context(), project)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": info})
}

package mcpsurface

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agenticmem/memoryd/pkg/ops"
	"github.com/agenticmem/memoryd/pkg/store"
)

func projectOf(c *gin.Context) string {
	if p := c.Query("project"); p != "" {
		return p
	}
	return c.GetHeader("X-Memory-Project")
}

func indexOf(req string) string {
	if req == "" {
		return "default"
	}
	return req
}

// memorizeBody mirrors spec §6's memorize tool argument object.
type memorizeBody struct {
	Input    string         `json:"input" binding:"required"`
	Index    string         `json:"index"`
	Files    []string       `json:"files"`
	Metadata map[string]any `json:"metadata"`
	Force    bool           `json:"force"`
}

func (s *Server) Memorize(c *gin.Context) {
	var body memorizeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := s.Controller.Memorize(c.Request.Context(), ops.MemorizeRequest{
		Project:  projectOf(c),
		Index:    indexOf(body.Index),
		Input:    body.Input,
		Files:    body.Files,
		Metadata: body.Metadata,
		Force:    body.Force,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

type recallBody struct {
	Query            string         `json:"query" binding:"required"`
	Index            string         `json:"index"`
	Limit            int            `json:"limit"`
	Filters          map[string]any `json:"filters"`
	FilterExpression string         `json:"filterExpression"`
	ResponseMode     string         `json:"responseMode"`
}

func (s *Server) Recall(c *gin.Context) {
	var body recallBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := s.Controller.Recall(c.Request.Context(), ops.RecallRequest{
		Project:          projectOf(c),
		Index:            indexOf(body.Index),
		Query:            body.Query,
		Limit:            body.Limit,
		Filters:          body.Filters,
		FilterExpression: body.FilterExpression,
		ResponseMode:     body.ResponseMode,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

type forgetBody struct {
	Input             string         `json:"input"`
	Index             string         `json:"index"`
	Filters           map[string]any `json:"filters"`
	FilterExpression  string         `json:"filterExpression"`
	DryRun            *bool          `json:"dryRun"`
	ExplicitMemoryIDs []string       `json:"explicitMemoryIds"`
}

func (s *Server) Forget(c *gin.Context) {
	var body forgetBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dryRun := true
	if body.DryRun != nil {
		dryRun = *body.DryRun
	}
	result, err := s.Controller.Forget(c.Request.Context(), ops.ForgetRequest{
		Project:           projectOf(c),
		Index:             indexOf(body.Index),
		Input:             body.Input,
		Filters:           body.Filters,
		FilterExpression:  body.FilterExpression,
		DryRun:            dryRun,
		ExplicitMemoryIDs: body.ExplicitMemoryIDs,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

type refineBody struct {
	Index     string         `json:"index"`
	Operation string         `json:"operation"`
	Scope     map[string]any `json:"scope"`
	Budget    int            `json:"budget"`
	DryRun    *bool          `json:"dryRun"`
}

func (s *Server) RefineMemories(c *gin.Context) {
	var body refineBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dryRun := true
	if body.DryRun != nil {
		dryRun = *body.DryRun
	}
	operation := body.Operation
	if operation == "" {
		operation = "consolidation"
	}
	result, err := s.Controller.Refine(c.Request.Context(), ops.RefineRequest{
		Project:   projectOf(c),
		Index:     indexOf(body.Index),
		Operation: operation,
		Scope:     body.Scope,
		Budget:    body.Budget,
		DryRun:    dryRun,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

type scanBody struct {
	Query            string         `json:"query" binding:"required"`
	Index            string         `json:"index"`
	Limit            int            `json:"limit"`
	Filters          map[string]any `json:"filters"`
	FilterExpression string         `json:"filterExpression"`
}

// ScanMemories is a direct, LLM-free search: no tool loop, no answer
// synthesis, just raw SearchResult values. The response carries no
// SearchDiagnostics for the call.
func (s *Server) ScanMemories(c *gin.Context) {
	var body scanBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit := body.Limit
	if limit <= 0 {
		limit = 10
	}
	project := projectOf(c)
	index := indexOf(body.Index)

	filterExpr := body.FilterExpression
	results, err := s.Repo.SearchMemories(c.Request.Context(), project, index, nil, body.Query, store.SearchOptions{
		FilterExpression: filterExpr,
		Limit:            limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "index": index, "results": results})
}

type createIndexBody struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (s *Server) CreateIndex(c *gin.Context) {
	var body createIndexBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	idx, err := s.Repo.EnsureIndex(c.Request.Context(), projectOf(c), body.Name, body.Description)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, idx)
}

func (s *Server) ListIndexes(c *gin.Context) {
	indexes, err := s.Repo.ListIndexes(c.Request.Context(), projectOf(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"indexes": indexes})
}

// InspectCharacter renders the introspection view: type distribution,
// top beliefs, emotion buckets, and a priority health report for one
// index, the read-only counterpart to the mutation-heavy operations.
func (s *Server) InspectCharacter(c *gin.Context) {
	project := projectOf(c)
	index := indexOf(c.Query("index"))
	ctx := c.Request.Context()

	types, err := s.Repo.TypeDistribution(ctx, project, index)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	beliefs, err := s.Repo.TopBeliefs(ctx, project, index, 10)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	emotions, err := s.Repo.EmotionMap(ctx, project, index)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	health, err := s.Repo.PriorityHealthReport(ctx, project, index)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"index": index,
		"typeDistribution": types,
		"topBeliefs": beliefs,
		"emotionMap": emotions,
		"priorityHealth": health,
	})
}

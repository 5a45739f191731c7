// Package api exposes the analysis service as a JSON API: frame lifecycle,
// base mutation, derived-state queries, evaluation, and export.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"godecide/adapters/excel"
	"godecide/app"
	"godecide/domain/decision"
	"godecide/internal/errors"
	"godecide/internal/testkit"
)

// Server holds the API dependencies
type Server struct {
	svc      *app.AnalysisService
	exporter *excel.Exporter
	limits   decision.Limits
	engine   decision.Config
}

// NewServer creates an API server over the analysis service. The limits and
// engine settings apply to frames created through the API.
func NewServer(svc *app.AnalysisService, limits decision.Limits, engine decision.Config) *Server {
	return &Server{
		svc:      svc,
		exporter: excel.NewExporter(),
		limits:   limits,
		engine:   engine,
	}
}

// Router builds the gin engine with all API routes
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	api := r.Group("/api")
	{
		api.GET("/frames", s.listFrames)
		api.POST("/frames", s.createFrame)
		api.POST("/frames/random", s.randomFrame)
		api.GET("/frames/:id", s.getFrame)
		api.DELETE("/frames/:id", s.disposeFrame)
		api.POST("/frames/:id/attach", s.attachFrame)
		api.POST("/frames/:id/detach", s.detachFrame)

		api.GET("/frames/:id/statements", s.listStatements)
		api.POST("/frames/:id/statements", s.addStatement)
		api.PUT("/frames/:id/statements/:n", s.replaceStatement)
		api.DELETE("/frames/:id/statements/:n", s.deleteStatement)
		api.PUT("/frames/:id/midpoints", s.setMidpoint)
		api.DELETE("/frames/:id/midpoints", s.clearMidpoint)
		api.PUT("/frames/:id/box", s.setBox)
		api.DELETE("/frames/:id/box", s.unsetBox)
		api.PUT("/frames/:id/midpoint-box", s.setMidpointBox)

		api.GET("/frames/:id/nodes", s.listNodes)
		api.POST("/frames/:id/evaluate", s.evaluateFrame)
		api.GET("/frames/:id/evaluation", s.evaluateAll)
		api.GET("/frames/:id/moments", s.getMoments)
		api.GET("/frames/:id/security", s.getSecurity)
		api.GET("/frames/:id/report", s.getReport)
		api.GET("/frames/:id/export", s.exportFrame)
		api.POST("/frames/:id/save", s.saveFrame)

		api.GET("/problems", s.listProblems)
		api.POST("/problems/:id/load", s.loadProblem)
		api.DELETE("/problems/:id", s.deleteProblem)
	}
	return r
}

// respondError maps an error chain onto an HTTP status via its application
// code.
func respondError(c *gin.Context, err error) {
	code := errors.Classify(err)
	status := http.StatusInternalServerError
	switch code {
	case errors.CodeInvalidInput:
		status = http.StatusBadRequest
	case errors.CodeInconsistent, errors.CodeLimitExceeded:
		status = http.StatusUnprocessableEntity
	case errors.CodeFrameState:
		status = http.StatusConflict
	case errors.CodeNotFound:
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

// generator builds the demo-problem generator for a seed
func (s *Server) generator(seed int64) *testkit.Generator {
	return testkit.NewGenerator(testkit.NewKit(seed), s.limits, s.engine)
}

// Package server exposes the deliberation and retrieval pipelines over
// HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/concilium-ai/concilium/internal/council"
	"github.com/concilium-ai/concilium/internal/deliberation"
	"github.com/concilium-ai/concilium/internal/retrieval"
)

// Deliberator runs one council deliberation over a query.
type Deliberator interface {
	ProcessQuery(ctx context.Context, query, docContext string) *deliberation.ConsensusResult
	ListMembers() []council.Member
}

// Retriever is the document lifecycle and search surface.
type Retriever interface {
	Ingest(ctx context.Context, docID, title, content, source, category string) error
	Remove(ctx context.Context, docID string) error
	Documents(ctx context.Context) ([]retrieval.Document, error)
	Search(ctx context.Context, query string, topK int) *retrieval.Result
}

// Server wires HTTP routes to the deliberation orchestrator and the
// retrieval engine.
type Server struct {
	deliberator Deliberator
	retriever   Retriever
	logger      *logrus.Logger
	topK        int
}

// New builds the server. topK bounds search result size when a request
// does not specify one.
func New(deliberator Deliberator, retriever Retriever, topK int, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
	}
	if topK <= 0 {
		topK = 5
	}
	return &Server{
		deliberator: deliberator,
		retriever:   retriever,
		logger:      logger,
		topK:        topK,
	}
}

// Router assembles the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		v1.POST("/deliberate", s.handleDeliberate)
		v1.GET("/members", s.handleMembers)
		v1.POST("/documents", s.handleIngest)
		v1.GET("/documents", s.handleListDocuments)
		v1.DELETE("/documents/:id", s.handleRemove)
		v1.POST("/search", s.handleSearch)
	}

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// DeliberateRequest is the body of POST /v1/deliberate. UseRetrieval
// grounds the council on stored documents.
type DeliberateRequest struct {
	Query        string `json:"query" binding:"required"`
	UseRetrieval bool   `json:"use_retrieval"`
	TopK         int    `json:"top_k"`
}

func (s *Server) handleDeliberate(c *gin.Context) {
	var req DeliberateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	docContext := ""
	if req.UseRetrieval && s.retriever != nil {
		topK := req.TopK
		if topK <= 0 {
			topK = s.topK
		}
		grounding := s.retriever.Search(c.Request.Context(), req.Query, topK)
		docContext = grounding.Context
	}

	result := s.deliberator.ProcessQuery(c.Request.Context(), req.Query, docContext)
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleMembers(c *gin.Context) {
	members := s.deliberator.ListMembers()
	c.JSON(http.StatusOK, gin.H{
		"members": members,
		"count":   len(members),
	})
}

// IngestRequest is the body of POST /v1/documents. ID is optional;
// re-ingesting an existing id replaces the document and its vectors.
type IngestRequest struct {
	ID       string `json:"id"`
	Title    string `json:"title" binding:"required"`
	Content  string `json:"content" binding:"required"`
	Source   string `json:"source"`
	Category string `json:"category"`
}

func (s *Server) handleIngest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := req.ID
	if id == "" {
		id = "doc_" + uuid.NewString()
	}

	if err := s.retriever.Ingest(c.Request.Context(), id, req.Title, req.Content, req.Source, req.Category); err != nil {
		s.logger.WithError(err).WithField("doc_id", id).Error("Document ingestion failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) handleListDocuments(c *gin.Context) {
	docs, err := s.retriever.Documents(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"documents": docs,
		"count":     len(docs),
	})
}

func (s *Server) handleRemove(c *gin.Context) {
	id := c.Param("id")
	if err := s.retriever.Remove(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "deleted": true})
}

// SearchRequest is the body of POST /v1/search.
type SearchRequest struct {
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"top_k"`
}

func (s *Server) handleSearch(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	topK := req.TopK
	if topK <= 0 {
		topK = s.topK
	}

	result := s.retriever.Search(c.Request.Context(), req.Query, topK)
	c.JSON(http.StatusOK, result)
}

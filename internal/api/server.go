// Package api exposes scoring and the application history over HTTP.
package api

import (
	"context"
	"net/http"

	"agritrust-workers/internal/common/auth"
	"agritrust-workers/internal/common/logger"
	"agritrust-workers/internal/scoring"
	"agritrust-workers/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Dependencies struct {
	Pipeline      *scoring.Pipeline
	Repository    store.Repository
	Authenticator auth.Authenticator
	Tokens        *auth.TokenIssuer
	APIKeys       []string
	// Ready reports whether backing stores are reachable. Nil means always ready.
	Ready  func(ctx context.Context) error
	Logger logger.Logger
}

type Server struct {
	router *gin.Engine
	deps   Dependencies
	logger logger.Logger
}

func NewServer(deps Dependencies) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), AccessLog(deps.Logger))

	s := &Server{
		router: router,
		deps:   deps,
		logger: deps.Logger.WithFields(map[string]interface{}{"component": "api"}),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.health)
	s.router.GET("/ready", s.ready)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.POST("/predict", APIKeyAuth(s.deps.APIKeys), s.predict)
	s.router.POST("/auth/login", s.login)

	authed := s.router.Group("/")
	authed.Use(BearerAuth(s.deps.Tokens))
	{
		authed.POST("/applications", s.createApplication)
		authed.GET("/applications/export.csv", s.exportCSV)
		authed.GET("/model/importance", s.featureImportance)

		admin := authed.Group("/")
		admin.Use(RequireAdmin())
		admin.GET("/applications", s.listApplications)
		admin.GET("/applications/summary", s.summary)
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

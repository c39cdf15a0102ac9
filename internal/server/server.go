package server

import (
	"net/http"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/calder-ai/relay/internal/config"
	"github.com/calder-ai/relay/internal/core/ports"
	"github.com/calder-ai/relay/internal/core/services"
	"github.com/calder-ai/relay/internal/server/middleware"
	"github.com/calder-ai/relay/internal/store"
)

// Version is reported by the health endpoint. Overridden at build time via
// -ldflags.
var Version = "dev"

type Server struct {
	router  *gin.Engine
	config  *config.Config
	logger  *zap.Logger
	factory *services.Factory
	chain   *services.Chain
	creds   ports.CredentialStore
	repo    store.Repository // nil when attempt history is disabled
}

func New(cfg *config.Config, logger *zap.Logger, factory *services.Factory, chain *services.Chain, creds ports.CredentialStore, repo store.Repository) *Server {

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	engine.Use(ginzap.RecoveryWithZap(logger, true))
	engine.Use(middleware.Logger(logger))

	s := &Server{
		router:  engine,
		config:  cfg,
		logger:  logger,
		factory: factory,
		chain:   chain,
		creds:   creds,
		repo:    repo,
	}

	s.SetupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

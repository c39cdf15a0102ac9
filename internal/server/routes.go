package server

import (
	"github.com/calder-ai/relay/internal/server/middleware"
	v1 "github.com/calder-ai/relay/internal/server/v1"
)

func (s *Server) SetupRoutes() {
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.ErrorHandler(s.logger))

	if s.config.Tracing.Enabled {
		s.router.Use(middleware.Tracing("relay"))
	}

	// Health check stays public.
	healthHandler := v1.NewHealthHandler(Version)
	s.router.GET("/health", healthHandler.Health)

	rl := middleware.NewRateLimiter(s.config.RateLimit.RequestsPerSecond, s.config.RateLimit.Burst, s.logger)

	api := s.router.Group("/v1")
	api.Use(rl.Middleware())
	api.Use(middleware.Auth(s.config.APIKeys))
	{
		providerHandler := v1.NewProviderHandler(s.factory, s.chain, s.creds)
		api.GET("/providers", providerHandler.List)
		api.GET("/providers/test", providerHandler.TestAll)
		api.POST("/providers/:provider/test", providerHandler.Test)
		api.POST("/providers/:provider/invalidate", providerHandler.Invalidate)
		api.GET("/providers/ollama/models", providerHandler.OllamaModels)

		generateHandler := v1.NewGenerateHandler(s.chain)
		api.POST("/generate", generateHandler.Generate)

		if s.repo != nil {
			attemptHandler := v1.NewAttemptHandler(s.repo)
			api.GET("/attempts", attemptHandler.Recent)
		}
	}
}

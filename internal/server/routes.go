package server

import (
	"log/slog"

	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rankwatch/internal/handlers/api"
	"rankwatch/internal/middleware"
)

// Deps are the collaborators the routes are built from.
type Deps struct {
	Store    api.Store
	Users    middleware.UserLoader
	Tracker  api.RankTracker
	Resolver api.RankResolver
	Local    api.PasswordAuthenticator
	OAuth    api.RedirectAuthenticator // nil disables OAuth login
	DB       api.Pinger
	Logger   *slog.Logger
}

// RegisterRoutes registers all application routes.
func (s *Server) RegisterRoutes(d Deps) {
	authMiddleware := middleware.NewAuthMiddleware(d.Users)

	authHandler := api.NewAuthHandler(d.Local, d.OAuth, d.Logger)
	domainHandler := api.NewDomainHandler(d.Store)
	rankHandler := api.NewRankHandler(d.Store, d.Tracker, d.Resolver, d.Logger)
	healthHandler := api.NewHealthHandler(d.DB, s.Cfg.IsSearchConfigured())

	// Operational
	s.App.Get("/healthz", healthHandler.Healthz)
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Auth
	s.App.Post("/api/auth/register", authHandler.Register)
	s.App.Post("/api/auth/login", authHandler.Login)
	s.App.Post("/api/auth/logout", authHandler.Logout)
	s.App.Get("/api/me", authMiddleware.RequireAuth, authHandler.Me)

	if d.OAuth != nil {
		s.App.Get("/auth/oauth/login", authHandler.OAuthLogin)
		s.App.Get("/auth/oauth/callback", authHandler.OAuthCallback)
	} else {
		s.logger.Info("OAuth login is disabled. Set OIDC_ISSUER to enable.")
	}

	// Domains and keywords
	apiGroup := s.App.Group("/api", authMiddleware.RequireAuth)
	apiGroup.Get("/domains", domainHandler.List)
	apiGroup.Post("/domains", domainHandler.Create)
	apiGroup.Get("/domains/:id", domainHandler.Get)
	apiGroup.Delete("/domains/:id", domainHandler.Delete)
	apiGroup.Get("/domains/:id/keywords", domainHandler.ListKeywords)
	apiGroup.Post("/domains/:id/keywords", domainHandler.CreateKeyword)
	apiGroup.Delete("/keywords/:id", domainHandler.DeleteKeyword)

	// Rank checks
	apiGroup.Post("/keywords/:id/check", rankHandler.CheckKeyword)
	apiGroup.Post("/domains/:id/check", rankHandler.CheckDomain)
	apiGroup.Get("/keywords/:id/history", rankHandler.History)
	apiGroup.Post("/rank/resolve", rankHandler.Resolve)
}

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rankwatch/internal/auth"
	"rankwatch/internal/config"
	"rankwatch/internal/db"
	"rankwatch/internal/jobs"
	"rankwatch/internal/logging"
	"rankwatch/internal/metrics"
	"rankwatch/internal/rank"
	"rankwatch/internal/server"
	"rankwatch/internal/tracker"
	"rankwatch/internal/validation"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()

	yamlCfg, err := config.LoadYAMLConfig()
	if err != nil {
		log.Fatalf("Failed to load config file: %v", err)
	}
	yamlCfg.Apply(cfg)

	logs, err := logging.Open(logging.Config{
		Level:         logging.ParseLevel(cfg.LogLevel),
		Format:        cfg.LogFormat,
		FilePath:      cfg.LogFile,
		FlushInterval: time.Second,
	})
	if err != nil {
		log.Fatalf("Failed to open log: %v", err)
	}
	defer logs.Close()
	logger := logs.Logger()
	slog.SetDefault(logger)

	// Initialize database
	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		fatal(logs, "failed to connect to database", err)
	}
	defer database.Close()

	// Run migrations
	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		database.Close()
		fatal(logs, "failed to run migrations", err)
	}
	logger.Info("migrations completed successfully", "version", version)

	seedTracking(ctx, database, yamlCfg, logger)

	metrics.Init(database, logger)

	// Rank resolution
	if !cfg.IsSearchConfigured() {
		logger.Error("SEARCH_API_KEY and SEARCH_ENGINE_ID must be set; rank checks will fail until they are")
	}
	searchClient := rank.NewSearchClient(rank.SearchClientConfig{
		APIKey:   cfg.SearchAPIKey,
		EngineID: cfg.SearchEngineID,
		Endpoint: cfg.SearchEndpoint,
		Throttle: rank.NewThrottle(cfg.SearchPageInterval),
		Logger:   logger,
	})
	resolver := rank.NewResolver(searchClient, logger)
	rankTracker := tracker.New(resolver, database, tracker.Config{
		KeywordInterval: cfg.KeywordInterval,
		CheckTimeout:    cfg.CheckTimeout,
		MaxAge:          cfg.RankCheckMaxAge,
	}, logger)

	// Authentication
	deps := server.Deps{
		Store:    database,
		Users:    database,
		Tracker:  rankTracker,
		Resolver: resolver,
		Local:    auth.NewLocal(database),
		DB:       database,
		Logger:   logger,
	}
	if cfg.IsOAuthEnabled() {
		oauth, err := auth.NewOAuth(ctx, auth.OAuthConfig{
			Issuer:       cfg.OIDCIssuer,
			ClientID:     cfg.OIDCClientID,
			ClientSecret: cfg.OIDCClientSecret,
			RedirectURL:  cfg.OIDCRedirectURL,
		}, database, logger)
		if err != nil {
			logger.Warn("OIDC authentication is disabled", "error", err)
		} else {
			deps.OAuth = oauth
		}
	}

	srv := server.New(cfg, logger)
	srv.RegisterRoutes(deps)

	// Background rank checks
	if cfg.RankCheckEnabled {
		go jobs.NewRankChecker(rankTracker, cfg.RankCheckInterval, logger).Start(ctx)
	}

	// Graceful shutdown
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	cancel()
	if err := srv.Shutdown(); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	logger.Info("server exited")
}

// exit is replaced in tests.
var exit = os.Exit

// fatal logs err and exits after flushing the log file, since os.Exit skips
// deferred calls.
func fatal(logs *logging.Service, msg string, err error) {
	logs.Logger().Error(msg, "error", err)
	if cerr := logs.Close(); cerr != nil {
		fmt.Fprintln(os.Stderr, cerr)
	}
	exit(1)
}

// seedTracking creates the domains and keywords listed in the config file.
func seedTracking(ctx context.Context, database *db.DB, yamlCfg *config.YAMLConfig, logger *slog.Logger) {
	if yamlCfg == nil {
		return
	}
	for _, seed := range yamlCfg.Seed {
		domain := rank.NormalizeDomain(seed.Domain)
		if seed.Owner == "" || domain == "" {
			logger.Warn("skipping seed entry without owner or domain", "owner", seed.Owner, "domain", seed.Domain)
			continue
		}
		var keywords []string
		for _, kw := range seed.Keywords {
			if kw = validation.NormalizeKeyword(kw); kw != "" {
				keywords = append(keywords, kw)
			}
		}
		if err := database.SeedTracking(ctx, seed.Owner, domain, keywords); err != nil {
			logger.Error("failed to seed tracking", "domain", domain, "error", err)
			continue
		}
		logger.Info("seeded tracking", "owner", seed.Owner, "domain", domain, "keywords", len(keywords))
	}
}

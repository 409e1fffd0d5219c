// package main is the entry point for the wptdash server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	githubadapter "github.com/bobholt/wptdash/internal/adapter/driven/github"
	sqliteadapter "github.com/bobholt/wptdash/internal/adapter/driven/sqlite"
	travisadapter "github.com/bobholt/wptdash/internal/adapter/driven/travis"
	httphandler "github.com/bobholt/wptdash/internal/adapter/driving/http"
	webhandler "github.com/bobholt/wptdash/internal/adapter/driving/web"
	"github.com/bobholt/wptdash/internal/application"
	"github.com/bobholt/wptdash/internal/config"
)

func main() {
	var logLevel string
	var logFormat string

	rootCmd := &cobra.Command{
		Use:   "wptdash",
		Short: "Webhook-driven build dashboard for web-platform-tests pull requests",
		Long: `wptdash ingests GitHub pull request webhooks and Travis CI build webhooks,
records the resulting entity graph in SQLite, and posts a build summary
comment back on the pull request.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			setupLogger(logLevel, logFormat)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&logFormat, "log-format", "f", "text", "Log format (text, json)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newInitDBCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook and dashboard HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			return serve()
		},
	}
}

func newInitDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "initdb",
		Short: "Create the database and apply schema migrations, then exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			db, err := sqliteadapter.NewDB(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
				return err
			}

			slog.Info("database initialized", "path", cfg.DBPath)
			return nil
		},
	}
}

func serve() error {
	// Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"github_repo", cfg.GitHubOrg+"/"+cfg.GitHubRepo,
		"travis_api_url", cfg.TravisAPIURL,
	)

	// Signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// Run migrations on the writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// Wire driven adapters.
	entityStore := sqliteadapter.NewStore(db)
	summaryRepo := sqliteadapter.NewSummaryRepo(db)
	commenter := githubadapter.NewCommenter(cfg.GitHubToken, cfg.GitHubOrg, cfg.GitHubRepo)
	verifier := travisadapter.NewVerifier(cfg.TravisAPIURL)

	// Wire application services.
	dispatcher := application.NewCommentDispatcher(summaryRepo, commenter, slog.Default())
	pullSvc := application.NewPullService(entityStore, dispatcher, slog.Default())
	buildSvc := application.NewBuildService(entityStore, verifier, dispatcher, cfg.GitHubOrg, cfg.GitHubRepo, slog.Default())

	// Wire driving adapters.
	mux := http.NewServeMux()
	apiHandler := httphandler.NewHandler(pullSvc, buildSvc, slog.Default())
	httphandler.RegisterRoutes(mux, apiHandler)
	webHandler := webhandler.NewHandler(summaryRepo, slog.Default())
	webhandler.RegisterRoutes(mux, webHandler)

	handler := httphandler.ApplyMiddleware(mux, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("wptdash started", "listen_addr", cfg.ListenAddr)

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

func setupLogger(level, format string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}

	slog.SetDefault(slog.New(handler))
}

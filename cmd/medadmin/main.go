package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medadmin/medadmin/internal/config"
	"github.com/medadmin/medadmin/internal/domain/dashboard"
	"github.com/medadmin/medadmin/internal/domain/diagnosis"
	"github.com/medadmin/medadmin/internal/domain/examination"
	"github.com/medadmin/medadmin/internal/domain/identity"
	"github.com/medadmin/medadmin/internal/platform/auth"
	"github.com/medadmin/medadmin/internal/platform/backend"
	"github.com/medadmin/medadmin/internal/platform/live"
	"github.com/medadmin/medadmin/internal/platform/middleware"
	"github.com/medadmin/medadmin/internal/platform/session"
	"github.com/medadmin/medadmin/internal/platform/storage"
	"github.com/medadmin/medadmin/internal/platform/telemetry"
	"github.com/medadmin/medadmin/internal/web"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medadmin",
		Short: "Medical records admin UI",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(pingCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the admin UI server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply client-state storage migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			var m interface {
				storage.Migrator
				Close() error
			}
			switch cfg.StorageDriver {
			case config.DriverSQLite:
				m, err = storage.OpenSQLite(cfg.SQLitePath)
			case config.DriverPostgres:
				m, err = storage.OpenPostgres(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			default:
				fmt.Printf("Storage driver %q has no schema to migrate.\n", cfg.StorageDriver)
				return nil
			}
			if err != nil {
				return err
			}
			defer m.Close()

			count, err := m.Migrate(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
}

func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the records backend is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			client := backend.New(cfg.BackendURL, cfg.BackendTimeout, zerolog.Nop())
			if err := client.Ping(cmd.Context()); err != nil {
				return fmt.Errorf("backend %s: %w", cfg.BackendURL, err)
			}
			fmt.Printf("Backend %s is reachable.\n", cfg.BackendURL)
			return nil
		},
	}
}

// server bundles the echo instance with the services that hold per-client
// screen state.
type server struct {
	echo         *echo.Echo
	diagnoses    *diagnosis.Service
	examinations *examination.Service
}

// sweep discards screen lists idle for longer than maxIdle.
func (s *server) sweep(maxIdle time.Duration) int {
	return s.diagnoses.Sweep(maxIdle) + s.examinations.Sweep(maxIdle)
}

func buildServer(cfg *config.Config, store storage.Storage, logger zerolog.Logger) (*server, error) {
	renderer, err := web.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	metrics := telemetry.New()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer
	e.HTTPErrorHandler = web.ErrorHandler(logger)

	// HTML forms cannot send PUT or DELETE.
	e.Pre(echomw.MethodOverrideWithConfig(echomw.MethodOverrideConfig{
		Getter: echomw.MethodFromForm("_method"),
	}))

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(metrics.Middleware())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(echomw.BodyLimit("1M"))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(echomw.CSRFWithConfig(echomw.CSRFConfig{
		TokenLookup:    "form:_csrf,header:X-CSRF-Token",
		CookieName:     "_csrf",
		CookiePath:     "/",
		CookieSecure:   cfg.CookieSecure,
		CookieHTTPOnly: true,
		CookieSameSite: http.SameSiteLaxMode,
		Skipper: func(c echo.Context) bool {
			return auth.AuthSkipper(c) || c.Path() == dashboard.LivePath
		},
	}))
	e.Use(session.Middleware(session.Config{
		Storage:      store,
		Key:          cfg.SessionKey,
		CookieName:   cfg.ClientCookie,
		CookieSecure: cfg.CookieSecure,
		Skipper:      auth.AuthSkipper,
		Logger:       logger,
	}))

	e.StaticFS("/static", web.StaticFS())
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/storage", storage.HealthHandler(store))
	e.GET("/metrics", metrics.Handler())

	client := backend.New(cfg.BackendURL, cfg.BackendTimeout, logger)
	client.Observe(metrics.ObserveBackend)
	hub := live.NewHub(logger)

	metrics.Gauge("medadmin_live_connections", "Open live dashboard connections.", func() int64 {
		return int64(hub.ClientCount())
	})
	if pool, ok := store.(interface{ Stats() *storage.PoolStats }); ok {
		metrics.Gauge("medadmin_storage_pool_acquired_connections", "Client-state pool connections in use.", func() int64 {
			return int64(pool.Stats().AcquiredConns)
		})
		metrics.Gauge("medadmin_storage_pool_idle_connections", "Idle client-state pool connections.", func() int64 {
			return int64(pool.Stats().IdleConns)
		})
	}

	// Identity
	identityRepo := identity.NewAPIRepository(client)
	identitySvc := identity.NewService(identityRepo, identityRepo, hub, logger)
	identity.NewHandler(identitySvc).RegisterRoutes(e,
		middleware.LoginRateLimit(middleware.LoginRateLimitConfig{
			PerMinute: cfg.LoginRate,
			Burst:     cfg.LoginBurst,
		}),
		auth.RequireSession("/"),
	)

	// Dashboards
	dashboard.NewHandler(client, renderer, hub, live.NewUpgrader(hub), logger).RegisterRoutes(e)

	// Diagnoses
	diagnosisSvc := diagnosis.NewService(diagnosis.NewAPIRepository(client), logger)
	diagnosis.NewHandler(diagnosisSvc).RegisterRoutes(e)

	// Examinations
	examinationSvc := examination.NewService(examination.NewAPIRepository(client), logger)
	examination.NewHandler(examinationSvc).RegisterRoutes(e)

	identitySvc.OnLogout(diagnosisSvc.Drop)
	identitySvc.OnLogout(examinationSvc.Drop)

	return &server{echo: e, diagnoses: diagnosisSvc, examinations: examinationSvc}, nil
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	for _, w := range cfg.Warnings() {
		logger.Warn().Str("env", cfg.Env).Msg(w)
	}

	// Client-state storage
	ctx := context.Background()
	store, err := storage.Open(ctx, storage.Options{
		Driver:      cfg.StorageDriver,
		SQLitePath:  cfg.SQLitePath,
		DatabaseURL: cfg.DatabaseURL,
		MaxConns:    cfg.DBMaxConns,
		MinConns:    cfg.DBMinConns,
	})
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("failed to open storage")
	}
	defer store.Close()
	logger.Info().Str("driver", cfg.StorageDriver).Msg("storage ready")

	srv, err := buildServer(cfg, store, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go func() {
		ticker := time.NewTicker(cfg.ScreenIdleTTL / 2)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if n := srv.sweep(cfg.ScreenIdleTTL); n > 0 {
					logger.Debug().Int("lists", n).Msg("swept idle screen lists")
				}
			}
		}
	}()

	addr := ":" + cfg.Port
	go func() {
		logger.Info().Str("addr", addr).Str("backend", cfg.BackendURL).Msg("starting server")
		if err := srv.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.echo.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

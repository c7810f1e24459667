package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"flowbuilder/backend/internal/api"
	"flowbuilder/backend/internal/auth"
	"flowbuilder/backend/internal/config"
	"flowbuilder/backend/internal/logging"
	"flowbuilder/backend/internal/mcp"
	"flowbuilder/backend/internal/metrics"
	"flowbuilder/backend/internal/repository"
	"flowbuilder/backend/internal/services"
	"flowbuilder/backend/internal/tls"
)

const (
	serviceName     = "flowbuilder"
	specPath        = "api/openapi.yaml"
	shutdownTimeout = 30 * time.Second
)

func main() {
	var envFile, configFile string

	rootCmd := &cobra.Command{
		Use:   "flowbuilder",
		Short: "Visual test-flow builder backend",
		Long:  `Serves the test-flow builder: graph editing, canvas interaction, flow library, test runs and reports.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(envFile, configFile)
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "Path to .env file")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config.yaml (default: ./config.yaml or ./config/config.yaml)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(envFile, configFile)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serve(envFile, configFile string) error {
	ctx := context.Background()

	cfg, err := config.LoadConfig(envFile, configFile)
	if err != nil {
		return fmt.Errorf("configuration loading failed: %w", err)
	}

	logger := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		"environment", cfg.Environment,
		"storage", cfg.Storage.Driver,
		"runner_url", cfg.Runner.URL,
		"okta_domain", cfg.Auth.OktaDomain,
		"dev_mode_bypass", cfg.DevModeBypass,
	)
	if cfg.Auth.SwaggerClientID != "" && cfg.Auth.SwaggerClientID == cfg.Auth.ClientID {
		logger.Warn("Swagger client ID matches the backend client ID; PKCE login from /docs will fail if the backend app requires a secret")
	}

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	recorder, err := metrics.New()
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	runner := services.NewHTTPRunnerClient(cfg.Runner.URL, cfg.Runner.Timeout)
	builder := services.NewBuilderService(store, runner, recorder, logger.With("component", "builder"))

	if cfg.Storage.SeedSamples {
		flows, results, err := services.SeedSamples(ctx, store)
		if err != nil {
			return err
		}
		builder.LoadGraph(services.SampleGraph())
		logger.Info("Sample data loaded", "flows", flows, "results", results)
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewRequestValidator()
	e.HTTPErrorHandler = api.ProblemErrorHandler(logger)

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware(serviceName))

	authz, err := auth.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("auth initialization failed: %w", err)
	}

	e.GET("/login", echo.WrapHandler(http.HandlerFunc(authz.LoginHandler)))
	e.GET("/auth/callback", echo.WrapHandler(http.HandlerFunc(authz.CallbackHandler)))
	e.GET("/logout", echo.WrapHandler(http.HandlerFunc(authz.LogoutHandler)))

	apiHandler := api.NewHandler(builder, logger.With("component", "api"))
	e.GET("/health", apiHandler.HandleHealth)
	e.GET("/metrics", echo.WrapHandler(recorder.Handler()))

	apiGroup := e.Group("/api/v1")
	apiGroup.Use(echo.WrapMiddleware(authz.RequireAuth))
	api.RegisterHandlers(apiGroup, apiHandler)
	logger.Info("REST API handlers mounted")

	mcpServer := mcp.NewServer(builder)
	mcpHandlers := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpHandlers, mcpServer.GetMCPServer(), authz.RequireAuth)
	e.Any("/mcp", echo.WrapHandler(mcpHandlers))
	e.Any("/mcp/*", echo.WrapHandler(mcpHandlers))
	logger.Info("MCP protocol handlers mounted")

	docs := api.DocsConfig{
		SpecPath:   specPath,
		OktaIssuer: cfg.Auth.OktaDomain,
		ClientID:   cfg.Auth.SwaggerClientID,
		Scopes:     auth.AllScopes,
	}
	e.GET("/openapi.yaml", api.SpecHandler(docs))
	e.GET("/docs", api.SwaggerHandler(docs))
	e.GET("/docs/oauth2-redirect.html", api.OAuth2RedirectHandler)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: writeTimeout(cfg),
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	if cfg.TLS.Enable {
		if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
			return errors.New("TLS enabled but cert/key file not provided")
		}
		created, err := tls.EnsureDevCertificate(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.Hostnames)
		if err != nil {
			return fmt.Errorf("failed to prepare TLS certificate: %w", err)
		}
		if created {
			logger.Warn("Generated self-signed certificate", "cert_file", cfg.TLS.CertFile, "hosts", cfg.TLS.Hostnames)
		}
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", addr, "tls", cfg.TLS.Enable)
		if cfg.TLS.Enable {
			serverErrors <- server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
			return
		}
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		logger.Info("Shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			if err := server.Close(); err != nil {
				logger.Error("Server close error", "error", err)
			}
		}
		logger.Info("Server stopped gracefully")
	}
	return nil
}

// writeTimeout returns a response deadline longer than the runner timeout.
// An unbounded runner gets an unbounded deadline.
func writeTimeout(cfg *config.Config) time.Duration {
	if cfg.Runner.Timeout == 0 {
		return 0
	}
	if cfg.Server.WriteTimeout <= cfg.Runner.Timeout {
		return cfg.Runner.Timeout + 5*time.Second
	}
	return cfg.Server.WriteTimeout
}

func openStore(ctx context.Context, cfg *config.Config, logger *logging.Logger) (repository.Repository, func(), error) {
	switch cfg.Storage.Driver {
	case "", "memory":
		logger.Info("Using in-memory store")
		return repository.NewMemoryStore(), func() {}, nil
	case "postgres":
		logger.Debug("Initializing database connection")
		pool, err := repository.Connect(ctx, cfg.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("database initialization failed: %w", err)
		}
		store := repository.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("Database connected", "host", cfg.DB.Host, "database", cfg.DB.Name)
		return store, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

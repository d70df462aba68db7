// Hearthd is the hearth household dashboard server.
//
// It serves the REST API used by the hearth CLI and dashboard, stores
// families, items and notes in SQLite or MySQL, and optionally publishes
// home events to NATS.
//
// Configuration is loaded from ~/.config/hearth/config.yaml (or the file
// given with -config) and HEARTH_* environment variables. See
// internal/config for details.
//
// Usage:
//
//	# Start server with defaults (SQLite under ~/.local/share/hearth)
//	hearthd
//
//	# Configure via environment
//	HEARTH_SERVER_HTTP_PORT=9090 HEARTH_STORE_DRIVER=mysql \
//	  HEARTH_STORE_DSN='hearth:pw@tcp(db:3306)/hearth' hearthd
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/hearth/internal/config"
	"github.com/fyrsmithlabs/hearth/internal/events"
	"github.com/fyrsmithlabs/hearth/internal/home"
	hearthhttp "github.com/fyrsmithlabs/hearth/internal/http"
	"github.com/fyrsmithlabs/hearth/internal/logging"
	"github.com/fyrsmithlabs/hearth/internal/store"
	"github.com/fyrsmithlabs/hearth/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default ~/.config/hearth/config.yaml)")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  hearthd [-config path]   Start the hearth server\n")
			fmt.Fprintf(os.Stderr, "  hearthd version          Show version information\n")
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("hearthd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the hearth server and blocks until ctx is cancelled.
//
// This function initializes all dependencies and services:
//  1. Loads and validates configuration
//  2. Initializes telemetry and the logger
//  3. Opens the store and the event publisher
//  4. Creates the home service and HTTP server
//  5. Performs graceful shutdown on context cancellation
//
// Returns http.ErrServerClosed on graceful shutdown.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	tel, err := telemetry.New(ctx, telemetry.FromObservability(cfg.Observability, version))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		_ = tel.Shutdown(context.Background()) // Best-effort flush on exit
	}()

	logger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	logger.Info(ctx, "starting hearthd",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Driver),
		logging.Secret("dsn", cfg.Store.DSN),
		zap.Bool("events", cfg.Events.Enabled),
		zap.Bool("telemetry", cfg.Observability.EnableTelemetry),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout))
	if degraded, err := tel.Degraded(); degraded {
		logger.Warn(ctx, "telemetry degraded, continuing without export", zap.Error(err))
	}

	deps, err := initDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close()

	svc, err := home.NewService(&home.Config{LowStockThreshold: cfg.Home.LowStockThreshold}, deps.store, deps.publisher, logger)
	if err != nil {
		return fmt.Errorf("failed to create home service: %w", err)
	}

	srv, err := hearthhttp.NewServer(svc, logger, &hearthhttp.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Version:         version,
	}, hearthhttp.WithPinger(deps.store))
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	logger.Info(ctx, "server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port)),
		zap.String("api_prefix", "/api"),
		zap.String("metrics_endpoint", "/metrics"))

	return srv.Start(ctx)
}

// dependencies holds all infrastructure dependencies.
type dependencies struct {
	store     *store.SQL
	publisher events.Publisher
	logger    *logging.Logger
}

// Close releases all infrastructure resources.
func (d *dependencies) Close() {
	ctx := context.Background()
	if d.publisher != nil {
		if err := d.publisher.Close(); err != nil {
			d.logger.Warn(ctx, "failed to close event publisher", zap.Error(err))
		}
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.logger.Warn(ctx, "failed to close store", zap.Error(err))
		}
	}
}

// initLogger builds the daemon logger from the logging section. Log records
// are also bridged to the OTEL log provider when telemetry is on.
func initLogger(cfg *config.Config) (*logging.Logger, error) {
	logCfg, err := logging.FromSettings(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	var provider otellog.LoggerProvider
	if cfg.Observability.EnableTelemetry {
		logCfg.Output.OTEL = true
		provider = global.GetLoggerProvider()
	}
	return logging.NewLogger(logCfg, provider)
}

// initDependencies opens the store and, when enabled, connects to NATS.
func initDependencies(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*dependencies, error) {
	db, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "store ready", zap.String("driver", db.Driver()))

	deps := &dependencies{store: db, publisher: events.Nop{}, logger: logger}
	if !cfg.Events.Enabled {
		return deps, nil
	}

	pub, err := events.Connect(cfg.Events.NATSURL, cfg.Events.SubjectPrefix, logger)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.publisher = pub
	logger.Info(ctx, "publishing events to NATS",
		zap.String("url", cfg.Events.NATSURL),
		zap.String("prefix", cfg.Events.SubjectPrefix))
	return deps, nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/netutil"

	"github.com/airsial/opshub/internal/api"
	"github.com/airsial/opshub/internal/archive"
	"github.com/airsial/opshub/internal/assistant"
	"github.com/airsial/opshub/internal/config"
	"github.com/airsial/opshub/internal/metrics"
	"github.com/airsial/opshub/internal/records"
	"github.com/airsial/opshub/internal/session"
	"github.com/airsial/opshub/internal/stats"
	"github.com/airsial/opshub/internal/storage/sqlite"
	"github.com/airsial/opshub/internal/users"
	"github.com/airsial/opshub/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.toml", "Path to the TOML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "opshub: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	log.Info("Starting operations hub server",
		logger.String("config", configPath),
		logger.String("data_dir", cfg.Storage.DataDir),
		logger.Int("port", cfg.Server.Port))

	// Record store: the three collections, loaded from their data files.
	recordStore, err := records.NewStore(records.Config{
		Dir:           cfg.Storage.DataDir,
		ImportMaxRows: cfg.Records.ImportMaxRows,
		ImportOnError: cfg.Records.ImportOnError,
		ImportRoles:   cfg.Records.ImportRoles,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to initialize record store: %w", err)
	}

	// Credential store, seeding the first administrator when absent.
	userStore, err := users.NewStore(users.Config{
		Path:          cfg.Auth.UsersFile,
		BcryptCost:    cfg.Auth.BcryptCost,
		AdminUsername: cfg.Auth.AdminUsername,
		AdminPassword: cfg.Auth.AdminPassword,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to initialize user store: %w", err)
	}

	sessions := session.NewManager(time.Duration(cfg.Auth.SessionTTLMinutes)*time.Minute, log)
	sessions.Start()
	defer sessions.Stop()

	// SQLite holds the assistant transcript and the audit trail.
	db, err := sqlite.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	chatStorage, err := sqlite.NewChatStorage(db, log)
	if err != nil {
		return fmt.Errorf("failed to initialize chat storage: %w", err)
	}
	auditStorage, err := sqlite.NewAuditStorage(db, log)
	if err != nil {
		return fmt.Errorf("failed to initialize audit storage: %w", err)
	}

	statsService := stats.NewService(recordStore, cfg.Stats.CacheTTLSeconds, log)

	// The LLM generator is optional; without it every answer comes from
	// the deterministic responder.
	var generator assistant.Generator
	if cfg.Assistant.Enabled {
		gen, err := assistant.NewOpenAIGenerator(cfg.Assistant, log)
		if err != nil {
			return fmt.Errorf("failed to initialize assistant generator: %w", err)
		}
		generator = gen
		log.Info("Assistant LLM generator enabled", logger.String("model", cfg.Assistant.Model))
	}
	assistantService := assistant.NewService(statsService, chatStorage, generator,
		cfg.Assistant.RequestTimeoutSeconds, cfg.Assistant.HistoryLimit, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	archives, err := archive.New(ctx, cfg.Archive, log)
	if err != nil {
		return fmt.Errorf("failed to initialize archive store: %w", err)
	}
	log.Info("Archive store ready", logger.String("driver", archives.Driver()))

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		m.SetRecordCounts(recordStore.Counts())
	}

	router := api.NewRouter(cfg, recordStore, userStore, sessions, statsService,
		assistantService, archives, auditStorage, m, log)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	listener = netutil.LimitListener(listener, cfg.Server.MaxConnections)

	server := &http.Server{
		Handler:           router.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening",
			logger.String("address", addr),
			logger.Int("max_connections", cfg.Server.MaxConnections))
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutdown signal received, draining connections")
	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown did not complete cleanly: %w", err)
	}

	log.Info("Server stopped")
	return nil
}

// loadConfig reads the TOML file, falling back to built-in defaults when no
// file exists at the given path.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := config.Default()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return config.Load(path)
}

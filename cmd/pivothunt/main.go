package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"pivothunt/config"
	"pivothunt/internal/backend"
	"pivothunt/internal/drift"
	"pivothunt/internal/hunt"
	"pivothunt/internal/logger"
	"pivothunt/internal/metrics"
	"pivothunt/internal/server"
	"pivothunt/internal/store"
)

func findConfigFile(configArg string) string {
	if configArg != "" {
		path := configArg
		if _, err := os.Stat(path); err == nil {
			return path
		}
		log.Printf("Warning: config file not found at %s, trying default locations", path)
	}

	if _, err := os.Stat("pivothunt.yml"); err == nil {
		return "pivothunt.yml"
	}

	exePath, err := os.Executable()
	if err == nil {
		exeDir := filepath.Dir(exePath)
		path := filepath.Join(exeDir, "pivothunt.yml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return "pivothunt.yml"
}

func applyDefaults(cfg *config.Config) {
	if cfg.Pivothunt.Indexer.Timeout <= 0 {
		cfg.Pivothunt.Indexer.Timeout = 10 * time.Second
	}
	if cfg.Pivothunt.Indexer.AlertsIndex == "" {
		cfg.Pivothunt.Indexer.AlertsIndex = "security-alerts-*"
	}
	if cfg.Pivothunt.Indexer.ArchivesIndex == "" {
		cfg.Pivothunt.Indexer.ArchivesIndex = "security-archives-*"
	}

	if cfg.Pivothunt.Manager.Timeout <= 0 {
		cfg.Pivothunt.Manager.Timeout = 10 * time.Second
	}
	if cfg.Pivothunt.Manager.RequestsPerSecond <= 0 {
		cfg.Pivothunt.Manager.RequestsPerSecond = 10
	}
	if cfg.Pivothunt.Manager.Burst <= 0 {
		cfg.Pivothunt.Manager.Burst = 20
	}

	if cfg.Pivothunt.Redis.Addr == "" {
		cfg.Pivothunt.Redis.Addr = "127.0.0.1:6379"
	}
	if cfg.Pivothunt.Redis.KeyPrefix == "" {
		cfg.Pivothunt.Redis.KeyPrefix = "pivothunt"
	}

	if cfg.Pivothunt.Server.Listen == "" {
		cfg.Pivothunt.Server.Listen = ":8087"
	}
	if cfg.Pivothunt.Drift.DataSource == "" {
		cfg.Pivothunt.Drift.DataSource = "live"
	}
	if cfg.Pivothunt.Logging.Level == "" {
		cfg.Pivothunt.Logging.Level = "info"
	}
}

func main() {
	configArg := ""
	if len(os.Args) > 1 {
		configArg = os.Args[1]
	}
	configPath := findConfigFile(configArg)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyDefaults(cfg)

	if err := logger.Init(cfg.Pivothunt.Logging.Enabled, cfg.Pivothunt.Logging.Level, cfg.Pivothunt.Logging.File, cfg.Pivothunt.Logging.Console); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	logger.Infof("PivotHunt starting")
	logger.Infof("Config loaded from: %s", configPath)

	var search backend.SearchBackend
	if cfg.Pivothunt.Indexer.URL != "" {
		indexer, err := backend.NewIndexerClient(backend.IndexerConfig{
			URL:      cfg.Pivothunt.Indexer.URL,
			Username: cfg.Pivothunt.Indexer.Username,
			Password: cfg.Pivothunt.Indexer.Password,
			Timeout:  cfg.Pivothunt.Indexer.Timeout,
		})
		if err != nil {
			logger.Errorf("Failed to create indexer client: %v", err)
			log.Fatalf("Failed to create indexer client: %v", err)
		}
		search = indexer
		logger.Infof("Indexer backend: %s", cfg.Pivothunt.Indexer.URL)
	} else {
		logger.Warnf("Indexer URL not configured; index sources will report zero hits")
	}

	var records backend.RecordBackend
	if cfg.Pivothunt.Manager.URL != "" {
		manager, err := backend.NewManagerClient(backend.ManagerConfig{
			URL:      cfg.Pivothunt.Manager.URL,
			Username: cfg.Pivothunt.Manager.Username,
			Password: cfg.Pivothunt.Manager.Password,
			Timeout:  cfg.Pivothunt.Manager.Timeout,
			Limiter:  backend.NewRateLimiter(cfg.Pivothunt.Manager.RequestsPerSecond, cfg.Pivothunt.Manager.Burst),
		})
		if err != nil {
			logger.Errorf("Failed to create manager client: %v", err)
			log.Fatalf("Failed to create manager client: %v", err)
		}
		records = manager
		logger.Infof("Manager backend: %s", cfg.Pivothunt.Manager.URL)
	} else {
		logger.Warnf("Manager URL not configured; API sources will report zero hits")
	}

	redisStore, err := store.NewRedisStore(store.RedisConfig{
		Addr:      cfg.Pivothunt.Redis.Addr,
		Password:  cfg.Pivothunt.Redis.Password,
		DB:        cfg.Pivothunt.Redis.DB,
		KeyPrefix: cfg.Pivothunt.Redis.KeyPrefix,
	})
	if err != nil {
		logger.Errorf("Failed to connect to Redis: %v", err)
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisStore.Close()
	logger.Infof("Redis store: %s", cfg.Pivothunt.Redis.Addr)

	var source drift.SnapshotSource
	switch cfg.Pivothunt.Drift.DataSource {
	case "live":
		if records == nil {
			log.Fatalf("Drift data source 'live' requires a configured manager backend")
		}
		source = drift.NewLiveSource(records)
		logger.Infof("Drift data source: live")
	case "fixture":
		source = drift.NewFixtureSource()
		logger.Infof("Drift data source: fixture")
	default:
		log.Fatalf("Unknown drift data source: %s", cfg.Pivothunt.Drift.DataSource)
	}

	m := metrics.New()
	huntSvc := hunt.NewService(hunt.Config{
		Search:        search,
		Records:       records,
		Metrics:       m,
		AlertsIndex:   cfg.Pivothunt.Indexer.AlertsIndex,
		ArchivesIndex: cfg.Pivothunt.Indexer.ArchivesIndex,
	})
	driftSvc := drift.NewService(source, redisStore, m, store.NewID)

	srv := server.New(server.Config{
		Hunt:     huntSvc,
		Drift:    driftSvc,
		Searches: redisStore,
		Metrics:  m,
		NewID:    store.NewID,
	})

	httpServer := &http.Server{
		Addr:    cfg.Pivothunt.Server.Listen,
		Handler: srv.Handler(),
	}

	go func() {
		logger.Infof("Listening on %s", cfg.Pivothunt.Server.Listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("HTTP server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Infof("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Errorf("Error shutting down HTTP server: %v", err)
	}

	logger.Infof("PivotHunt stopped")
}

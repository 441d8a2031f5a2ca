package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/sleuth/sleuth-agent/internal/api"
	"github.com/sleuth/sleuth-agent/internal/cloud"
	"github.com/sleuth/sleuth-agent/internal/config"
	"github.com/sleuth/sleuth-agent/internal/db"
	"github.com/sleuth/sleuth-agent/internal/logging"
	"github.com/sleuth/sleuth-agent/internal/metrics"
	"github.com/sleuth/sleuth-agent/internal/playback"
	"github.com/sleuth/sleuth-agent/internal/render"
	"github.com/sleuth/sleuth-agent/internal/session"
	"github.com/sleuth/sleuth-agent/internal/store"
	"github.com/sleuth/sleuth-agent/internal/ui"
	"github.com/sleuth/sleuth-agent/internal/view"
	"github.com/sleuth/sleuth-agent/internal/watcher"
)

func main() {
	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "analyze":
			os.Exit(runAnalyze(args[1:], os.Stdout, os.Stderr))
		case "version":
			fmt.Printf("sleuth %s (commit %s, built %s)\n", config.Version, config.GitCommit, config.BuildTime)
			return
		}
	}

	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting sleuth agent", "version", config.Version, "data_dir", cfg.DataDir())

	if created, err := config.EnsureSettingsFile(cfg.SettingsPath()); err != nil {
		logger.Warn("failed to write settings file", "path", cfg.SettingsPath(), "error", err)
	} else if created {
		logger.Info("wrote default settings file", "path", cfg.SettingsPath())
	}

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := store.NewRepository(database.Conn())

	deviceID, err := ensureDeviceID(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure device ID: %w", err)
	}

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	service := cfg.ServiceURL()
	if service == "" {
		service = "(not configured)"
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Printf("║  SLEUTH AGENT v%-43s║\n", config.Version)
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-28d║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s║\n", authToken)
	fmt.Printf("║  Device ID:  %-45s║\n", deviceID[:8]+"...")
	fmt.Printf("║  Service:    %-45s║\n", truncate(service, 45))
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	cloudClient := newCloudClient(cfg, deviceID, logger)

	orch := session.New(session.Config{
		Client:   cloudClient,
		Renderer: render.New(cfg.PublicOrigin()),
		Router:   view.NewRouter(view.DefaultPanes()),
		Recorder: session.Recorders{
			store.NewRecorder(repo, logger),
			metrics.Recorder{},
		},
		Logger:  logger,
		Timeout: cfg.UploadTimeout(),
	})

	// Staged drops only live for one session.
	stagingDir := filepath.Join(cfg.DataDir(), "staging")
	if err := os.RemoveAll(stagingDir); err != nil {
		logger.Warn("failed to clear staging dir", "path", stagingDir, "error", err)
	}
	if err := os.MkdirAll(stagingDir, 0700); err != nil {
		return fmt.Errorf("failed to create staging dir: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	apiServer := api.NewServer(api.ServerConfig{
		Port:           cfg.Port(),
		Session:        orch,
		Cloud:          cloudClient,
		ServiceURL:     cfg.ServiceURL(),
		PlaybackServer: playback.NewServer(logger),
		Repository:     repo,
		StagingDir:     stagingDir,
		AllowedOrigins: cfg.AllowedOrigins(),
		Logger:         logger,
		StartTime:      startTime,
		DeviceID:       deviceID,
	})

	if err := apiServer.Listen(); err != nil {
		return err
	}
	go func() {
		if err := apiServer.Serve(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	var dropWatcher *watcher.FSWatcher
	if dir := cfg.DropDir(); dir != "" {
		w, err := watcher.NewFSWatcher(logging.WithComponent(logger, "watcher"), watcher.DefaultSettle)
		if err != nil {
			logger.Warn("drop folder disabled", "error", err)
		} else {
			w.OnChange(watcher.StageDrops(orch, logger))
			if err := w.Watch(ctx, dir); err != nil {
				logger.Warn("failed to watch drop folder", "path", dir, "error", err)
				_ = w.Stop()
			} else {
				dropWatcher = w
			}
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			close(quitCh)
		case <-quitCh:
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Session: orch,
			Logger:  logging.WithComponent(logger, "tray"),
			SiteURL: cfg.PublicOrigin(),
			OnQuit: func() {
				close(quitCh)
			},
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")
	cancel()

	if dropWatcher != nil {
		if err := dropWatcher.Stop(); err != nil {
			logger.Error("failed to stop drop folder watcher", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func newCloudClient(cfg config.Config, deviceID string, logger *slog.Logger) cloud.Client {
	if cfg.ServiceURL() == "" {
		logger.Warn("no analysis service configured, submissions will fail", "env", config.EnvServiceURL)
		return cloud.NewStubClient(logger)
	}
	client := cloud.NewHTTPClient(cfg.ServiceURL(), cfg.UploadTimeout(), logging.WithComponent(logger, "cloud"))
	if deviceID != "" {
		client.SetDeviceID(deviceID)
	}
	logger.Info("analysis service configured", "base_url", cfg.ServiceURL(), "public_origin", cfg.PublicOrigin())
	return client
}

// configStore is the subset of store.Repository the ensure helpers need.
type configStore interface {
	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

func ensureDeviceID(repo configStore) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, store.ConfigKeyDeviceID)
	if err == nil && existing != "" {
		return existing, nil
	}

	deviceID := uuid.NewString()
	if err := repo.SetConfig(ctx, store.ConfigKeyDeviceID, deviceID); err != nil {
		return "", err
	}

	return deviceID, nil
}

func ensureAuthToken(repo configStore) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, store.ConfigKeyAuthToken)
	if err == nil && existing != "" {
		return existing, nil
	}

	token := strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	if err := repo.SetConfig(ctx, store.ConfigKeyAuthToken, token); err != nil {
		return "", err
	}

	return token, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

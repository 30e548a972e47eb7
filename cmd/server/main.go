package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/macman10536/Adsb-alert/internal/adsb"
	"github.com/macman10536/Adsb-alert/internal/api"
	"github.com/macman10536/Adsb-alert/internal/audio"
	"github.com/macman10536/Adsb-alert/internal/config"
	"github.com/macman10536/Adsb-alert/internal/gps"
	"github.com/macman10536/Adsb-alert/internal/monitor"
	"github.com/macman10536/Adsb-alert/internal/simulation"
	"github.com/macman10536/Adsb-alert/internal/storage/sqlite"
	"github.com/macman10536/Adsb-alert/internal/threat"
	"github.com/macman10536/Adsb-alert/internal/websocket"
	"github.com/macman10536/Adsb-alert/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	cfg, err := config.LoadWithFallback(*configPath)
	switch {
	case errors.Is(err, config.ErrNotFound) && *configPath == "":
		fmt.Fprintln(os.Stderr, "No configuration file found, using defaults")
		cfg = config.Default()
	case err != nil:
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting ADS-B alert engine",
		logger.String("version", Version),
		logger.String("config_path", *configPath),
		logger.String("feed", cfg.Feed.SourceType),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	var (
		db            *sql.DB
		watchlistRepo *sqlite.WatchlistStorage
		alertRepo     *sqlite.AlertStorage
	)
	if cfg.Storage.Enabled {
		if dir := filepath.Dir(cfg.Storage.SQLitePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				log.Error("Failed to create database directory", logger.Error(err), logger.String("path", dir))
				os.Exit(1)
			}
		}
		db, err = sqlite.Open(cfg.Storage.SQLitePath, log)
		if err != nil {
			log.Error("Failed to open SQLite storage", logger.Error(err))
			os.Exit(1)
		}
		defer db.Close()

		if watchlistRepo, err = sqlite.NewWatchlistStorage(db, log); err != nil {
			log.Error("Failed to create watchlist storage", logger.Error(err))
			os.Exit(1)
		}
		if alertRepo, err = sqlite.NewAlertStorage(db, log); err != nil {
			log.Error("Failed to create alert storage", logger.Error(err))
			os.Exit(1)
		}
	}

	watchlist := loadWatchlist(cfg, watchlistRepo, log)

	registry, err := adsb.LoadRegistrationDB(cfg.Feed.RegistrationDBPath, log)
	if err != nil {
		// Registrations are cosmetic; keep running without them
		log.Warn("Failed to load registration database", logger.Error(err))
	}

	acquirer := gps.NewAcquirer(gps.OptionsFromConfig(cfg.GPS), log)
	if err := acquirer.Start(ctx); err != nil {
		log.Error("Failed to start GPS acquirer", logger.Error(err))
		os.Exit(1)
	}

	audioEngine := audio.NewEngine(cfg.Audio, log)

	wsServer := websocket.NewServer(log)
	go wsServer.Run(ctx)

	var (
		feed      monitor.FeedSource
		simulator api.Simulator
	)
	if cfg.Feed.SourceType == "sim" {
		sim := simulation.NewService(cfg.Feed.Simulated, acquirer, log)
		feed, simulator = sim, sim
		log.Warn("Aircraft feed is simulated", logger.Int("aircraft", len(cfg.Feed.Simulated)))
	} else {
		feed = adsb.NewClient(cfg.Feed, log)
	}

	deps := monitor.Deps{
		Feed:      feed,
		GPS:       acquirer,
		Registry:  registry,
		Settings:  config.NewSettings(cfg.Alerts),
		Audio:     audioEngine,
		WebSocket: wsServer,
	}
	// Leave the interfaces nil rather than holding typed nil pointers
	if watchlistRepo != nil {
		deps.Watchlists = watchlistRepo
	}
	var history api.AlertHistory
	if alertRepo != nil {
		deps.Alerts = alertRepo
		history = alertRepo
	}

	monitorService := monitor.NewService(cfg, deps, watchlist, log)
	wsServer.SetMessageHandler(monitor.NewWebSocketHandler(monitorService, log))

	if err := monitorService.Start(ctx); err != nil {
		log.Error("Failed to start monitor", logger.Error(err))
		os.Exit(1)
	}

	var server *http.Server
	if cfg.Server.Enabled {
		router := api.NewRouter(api.NewHandler(monitorService, history, simulator, log), wsServer, cfg.Server, log)
		server = &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
			IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
		}

		go func() {
			log.Info("Starting HTTP server", logger.String("addr", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("HTTP server error", logger.String("addr", server.Addr), logger.Error(err))
			}
		}()
	} else {
		log.Info("HTTP server disabled in configuration")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down...")

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", logger.Error(err))
		}
		shutdownCancel()
	}

	monitorService.Stop()
	acquirer.Stop()
	audioEngine.Wait()
	cancel()

	log.Info("Stopped")
}

// loadWatchlist prefers the persisted watchlist and seeds storage from the configuration on first run
func loadWatchlist(cfg *config.Config, repo *sqlite.WatchlistStorage, log *logger.Logger) threat.Watchlist {
	entries := cfg.Watchlist.Entries
	if repo != nil {
		stored, err := repo.Load()
		switch {
		case err != nil:
			log.Warn("Failed to load stored watchlist, using configuration", logger.Error(err))
		case len(stored) > 0:
			entries = stored
		}
	}

	wl, err := threat.NewWatchlist(entries)
	if err != nil {
		log.Warn("Watchlist rejected, starting empty", logger.Error(err))
		return threat.Watchlist{}
	}

	if repo != nil {
		if err := repo.Save(wl.Entries()); err != nil {
			log.Warn("Failed to save watchlist", logger.Error(err))
		}
	}
	return wl
}

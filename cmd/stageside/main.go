package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/areyoudear/stageside-sub001/internal/api"
	"github.com/areyoudear/stageside-sub001/internal/auth"
	"github.com/areyoudear/stageside-sub001/internal/backup"
	"github.com/areyoudear/stageside-sub001/internal/concert"
	"github.com/areyoudear/stageside-sub001/internal/config"
	"github.com/areyoudear/stageside-sub001/internal/database"
	"github.com/areyoudear/stageside-sub001/internal/encryption"
	"github.com/areyoudear/stageside-sub001/internal/event"
	"github.com/areyoudear/stageside-sub001/internal/festival"
	"github.com/areyoudear/stageside-sub001/internal/logging"
	"github.com/areyoudear/stageside-sub001/internal/maintenance"
	"github.com/areyoudear/stageside-sub001/internal/notify"
	"github.com/areyoudear/stageside-sub001/internal/profile"
	"github.com/areyoudear/stageside-sub001/internal/roster"
	"github.com/areyoudear/stageside-sub001/internal/source"
	"github.com/areyoudear/stageside-sub001/internal/source/deezer"
	"github.com/areyoudear/stageside-sub001/internal/source/lastfm"
	"github.com/areyoudear/stageside-sub001/internal/source/spotify"
	"github.com/areyoudear/stageside-sub001/internal/taste"
	"github.com/areyoudear/stageside-sub001/internal/ticketing"
	"github.com/areyoudear/stageside-sub001/internal/version"
	"github.com/areyoudear/stageside-sub001/internal/watcher"
)

const (
	listingSyncInterval    = 6 * time.Hour
	digestInterval         = 24 * time.Hour
	sessionCleanupInterval = 1 * time.Hour
	maintenanceInterval    = 24 * time.Hour
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	configPath := os.Getenv("STAGESIDE_CONFIG_PATH")
	if configPath == "" {
		configPath = "/data/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Set up structured logging
	logger, logCloser := logging.New(cfg.Logging)
	defer logCloser.Close() //nolint:errcheck
	slog.SetDefault(logger)

	// Open database
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", "error", err)
		}
	}()

	// Run migrations
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("database ready", slog.String("path", cfg.Database.Path))

	// Initialize scorer; a configured affinity file overrides the built-in
	// table and is hot-reloaded by the watcher below.
	scorer := taste.DefaultScorer()
	if cfg.Taste.AffinityPath != "" {
		table, err := taste.LoadAffinityFile(cfg.Taste.AffinityPath)
		if err != nil {
			return fmt.Errorf("loading affinity file: %w", err)
		}
		if table != nil {
			scorer.SetAffinity(table)
			logger.Info("loaded affinity table",
				slog.String("path", cfg.Taste.AffinityPath),
				slog.Int("genres", len(table)))
		}
	}

	// Initialize listening source adapters
	rateLimiters := source.NewRateLimiterMap()
	registry := source.NewRegistry()
	spotifyAdapter := spotify.New(rateLimiters, logger)
	spotifyAdapter.SetAppCredentials(cfg.Sources.Spotify.ClientID, cfg.Sources.Spotify.ClientSecret)
	registry.Register(spotifyAdapter)
	registry.Register(lastfm.New(cfg.Sources.LastFM.APIKey, rateLimiters, logger))
	if cfg.Sources.Deezer.Enabled {
		registry.Register(deezer.New(rateLimiters, logger))
	}

	// Resolve token encryption key: env/config > key file > generate new
	encKey, err := resolveEncryptionKey(cfg, logger)
	if err != nil {
		return fmt.Errorf("resolving encryption key: %w", err)
	}
	encryptor, _, err := encryption.NewEncryptor(encKey)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}

	// Initialize event bus
	eventBus := event.NewBus(logger, 256)
	go eventBus.Start()
	defer eventBus.Stop()

	// Initialize services
	authService := auth.NewService(db)
	profileService := profile.NewService(db, registry, encryptor, eventBus, logger)
	rosterService := roster.NewService(db)
	concertService := concert.NewService(db, eventBus, logger)
	ranker := concert.NewRanker(scorer, profileService, rosterService, eventBus, logger)
	notifyService := notify.NewService(db)
	dispatcher := notify.NewDispatcher(notifyService, logger)

	// Database housekeeping services
	backupDir := cfg.Backup.Path
	if backupDir == "" {
		backupDir = filepath.Join(filepath.Dir(cfg.Database.Path), "backups")
	}
	backupService := backup.NewService(db, backupDir, cfg.Backup.RetentionCount, logger)
	maintenanceService := maintenance.NewService(db, cfg.Database.Path, logger)

	// Subscribe the webhook dispatcher to score-bearing event types
	for _, eventType := range []event.Type{
		event.ConcertMatched, event.GroupScored, event.LineupSynced,
	} {
		eventBus.Subscribe(eventType, dispatcher.HandleEvent)
	}

	// Ticketing feed client, only when credentials are configured
	var ticketingClient *ticketing.Client
	if cfg.Ticketing.APIKey != "" {
		ticketingClient = ticketing.NewClient(cfg.Ticketing.BaseURL, cfg.Ticketing.APIKey, logger)
	} else {
		logger.Warn("ticketing feed not configured; listing sync disabled")
	}

	logger.Info("starting stageside",
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
	)

	// Set up HTTP router
	router := api.NewRouter(api.RouterDeps{
		AuthService:    authService,
		ProfileService: profileService,
		RosterService:  rosterService,
		ConcertService: concertService,
		Ranker:         ranker,
		Scorer:         scorer,
		NotifyService:  notifyService,
		Ticketing:      ticketingClient,
		BackupService:  backupService,
		Maintenance:    maintenanceService,
		FestivalConfig: festival.Config{MaxPerDay: 6, RestBreakMinutes: 30},
		GroupFloor:     cfg.Taste.GroupMatchFloor,
		Logger:         logger,
		BasePath:       cfg.Server.BasePath,
	})

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start backup and maintenance schedulers
	if cfg.Backup.Enabled {
		go backupService.StartScheduler(ctx, time.Duration(cfg.Backup.IntervalHours)*time.Hour)
	}
	go maintenanceService.StartScheduler(ctx, maintenanceInterval)

	// Start session cleanup goroutine
	go func() {
		ticker := time.NewTicker(sessionCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := authService.CleanExpiredSessions(ctx); err != nil {
					logger.Error("session cleanup failed", "error", err)
				}
			}
		}
	}()

	// Start periodic listing sync and daily digest delivery
	if ticketingClient != nil {
		go syncLoop(ctx, ticketingClient, concertService, logger)
	}
	go digestLoop(ctx, notifyService, dispatcher, concertService, ranker, logger)

	// Start affinity file watcher for live table tuning
	if cfg.Taste.AffinityPath != "" {
		reloadFn := func(ctx context.Context, path string) error {
			table, err := taste.LoadAffinityFile(path)
			if err != nil {
				return err
			}
			if table == nil {
				table = taste.DefaultAffinityTable()
			}
			scorer.SetAffinity(table)
			return nil
		}
		watcherService := watcher.NewService(cfg.Taste.AffinityPath, reloadFn, logger)
		go watcherService.Start(ctx)
	}

	go func() {
		logger.Info("server starting", slog.String("addr", addr), slog.String("base_path", cfg.Server.BasePath))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// resolveEncryptionKey determines the key protecting stored service tokens.
// Priority: STAGESIDE_ENCRYPTION_KEY / config > key file next to the
// database > generate and persist a new one.
func resolveEncryptionKey(cfg *config.Config, logger *slog.Logger) (string, error) {
	if cfg.Encryption.Key != "" {
		return cfg.Encryption.Key, nil
	}

	dataDir := filepath.Dir(cfg.Database.Path)
	keyFile := filepath.Join(dataDir, "encryption.key")

	data, err := os.ReadFile(keyFile) //nolint:gosec // G304: path derived from trusted config
	if err == nil {
		key := strings.TrimSpace(string(data))
		if key != "" {
			logger.Debug("loaded encryption key from file", slog.String("path", keyFile))
			return key, nil
		}
	}

	_, key, err := encryption.NewEncryptor("")
	if err != nil {
		return "", fmt.Errorf("generating encryption key: %w", err)
	}

	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		logger.Warn("could not create data directory for encryption key",
			slog.String("path", dataDir), slog.Any("error", err))
		return key, nil
	}

	if err := os.WriteFile(keyFile, []byte(key+"\n"), 0o600); err != nil {
		logger.Warn("could not save encryption key to file",
			slog.String("path", keyFile), slog.Any("error", err))
	} else {
		logger.Warn("generated new encryption key -- back up this file",
			slog.String("path", keyFile))
	}

	return key, nil
}

// syncLoop refreshes stored listings from the ticketing feed on a fixed
// interval, starting with an immediate sync.
func syncLoop(ctx context.Context, client *ticketing.Client, concerts *concert.Service, logger *slog.Logger) {
	sync := func() {
		events, err := client.Events(ctx, ticketing.Query{From: time.Now().UTC()})
		if err != nil {
			logger.Error("listing sync fetch failed", "error", err)
			return
		}
		count, err := concerts.SyncListings(ctx, events)
		if err != nil {
			logger.Error("listing sync store failed", "error", err)
			return
		}
		logger.Info("listing sync complete", slog.Int("synced", count))
	}

	sync()
	ticker := time.NewTicker(listingSyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sync()
		}
	}
}

// digestLoop composes and delivers a daily digest of upcoming matched
// concerts to every target subscribed to the digest event.
func digestLoop(ctx context.Context, targets *notify.Service, dispatcher *notify.Dispatcher, concerts *concert.Service, ranker *concert.Ranker, logger *slog.Logger) {
	ticker := time.NewTicker(digestInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sendDigests(ctx, targets, dispatcher, concerts, ranker, logger)
		}
	}
}

func sendDigests(ctx context.Context, targets *notify.Service, dispatcher *notify.Dispatcher, concerts *concert.Service, ranker *concert.Ranker, logger *slog.Logger) {
	subscribed, err := targets.ListByEvent(ctx, string(event.DigestDue))
	if err != nil {
		logger.Error("listing digest targets", "error", err)
		return
	}
	if len(subscribed) == 0 {
		return
	}

	listings, err := concerts.Listings(ctx, concert.ListQuery{From: time.Now().UTC()})
	if err != nil {
		logger.Error("listing concerts for digest", "error", err)
		return
	}

	// Rank once per distinct user; several targets can share an owner.
	sent := make(map[string]bool)
	for _, target := range subscribed {
		if sent[target.UserID] {
			continue
		}
		sent[target.UserID] = true

		ranked, err := ranker.RankForUser(ctx, target.UserID, listings)
		if err != nil {
			logger.Error("ranking digest concerts", "user_id", target.UserID, "error", err)
			continue
		}
		// Per-target score floors are applied inside SendDigest.
		digest := notify.ComposeDigest(target.UserID, ranked, 0)
		if len(digest.Items) == 0 {
			continue
		}
		if err := dispatcher.SendDigest(ctx, digest); err != nil {
			logger.Error("sending digest", "user_id", target.UserID, "error", err)
		}
	}
}

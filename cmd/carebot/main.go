package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"carebot/internal/airouter"
	"carebot/internal/chat"
	"carebot/internal/config"
	"carebot/internal/httpapi"
	"carebot/internal/metrics"
	"carebot/internal/plugins"
	"carebot/internal/plugins/checkin"
	"carebot/internal/plugins/crisis"
	"carebot/internal/plugins/goals"
	"carebot/internal/plugins/kanban"
	"carebot/internal/plugins/mood"
	"carebot/internal/plugins/recharge"
	"carebot/internal/plugins/taskbreakdown"
	"carebot/internal/secrets"
	"carebot/internal/storage"
	"carebot/internal/suggest"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setupLogger(cfg.Log.Level)
	log.Info().
		Str("listen_addr", cfg.HTTP.ListenAddr).
		Str("db_driver", cfg.DB.Driver).
		Msg("starting carebot")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := storage.Open(ctx, cfg.DB.Driver, cfg.DB.DSN, cfg.DB.AutoMigrate, "migrations")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storage")
	}
	defer store.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer rdb.Close()

	keyring, err := secrets.NewKeyring(cfg.Crypto.CurrentKeyID, cfg.Crypto.Keys)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize keyring")
	}

	m := metrics.Global()

	router := airouter.New(airouter.Config{
		Settings:       store,
		Secrets:        keyring,
		ConnectTimeout: cfg.LLM.ConnectTimeout,
		ReadTimeout:    cfg.LLM.ReadTimeout,
		Logger:         log.Logger,
		Metrics:        m,
	})

	manager := plugins.NewManager(plugins.ManagerConfig{
		Source:  store,
		Logger:  log.Logger,
		Metrics: m,
	})
	rechargePlugin := recharge.New(recharge.Config{Logger: log.Logger})

	manager.Register(checkin.New(store))
	manager.Register(mood.New(store))
	manager.Register(goals.New(store))
	manager.Register(kanban.New())
	manager.Register(crisis.New())
	manager.Register(taskbreakdown.New())
	manager.Register(rechargePlugin)

	chatService := chat.NewService(chat.ServiceConfig{
		Store:   store,
		Brain:   router,
		Plugins: manager,
		Limiter: chat.NewRateLimiter(rdb, cfg.Rate.SendsPerHour),
		Logger:  log.Logger,
		Metrics: m,
	})

	suggestService := suggest.NewService(suggest.ServiceConfig{
		Store:    store,
		Brain:    router,
		Plugins:  manager,
		Redis:    rdb,
		Cooldown: cfg.Redis.SuggestCooldown,
		Logger:   log.Logger,
		Metrics:  m,
	})

	api := httpapi.NewServer(httpapi.Config{
		Store:     store,
		Chat:      chatService,
		Suggest:   suggestService,
		Router:    router,
		Manager:   manager,
		Resources: rechargePlugin,
		Keyring:   keyring,
		Logger:    log.Logger,
	})

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.HTTP.HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle(cfg.HTTP.MetricsPath, promhttp.Handler())
	api.Register(mux)

	httpServer := &http.Server{
		Addr:              cfg.HTTP.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTP.ListenAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("runtime error")
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to stop http server")
	}

	log.Info().Msg("stopped")
}

func setupLogger(level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(parseLogLevel(level))
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

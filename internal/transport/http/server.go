package http

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"kiteretsu_web/internal/auth"
	"kiteretsu_web/internal/backend"
	"kiteretsu_web/internal/cache"
	"kiteretsu_web/internal/config"
	"kiteretsu_web/internal/handler"
	"kiteretsu_web/internal/redis"
	"kiteretsu_web/internal/service"
	"kiteretsu_web/internal/view"
)

// Run wires the application together and serves HTTP until interrupted.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	renderer, err := view.NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}

	client := backend.NewClient(cfg.BackendURL, cfg.BackendKey, cfg.JWTSecret)
	forumService := service.NewForumService(client)
	profileService := service.NewProfileService(client)

	resolver := auth.NewResolver(profileService, cfg.ProfileRetryMax, cfg.ProfileRetryBase, logger)
	bootstrap := auth.NewStore(client, resolver, cfg.SiteURL, logger)

	var sessions cache.SessionCache = cache.NewMemorySessionCache()
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = redisClient.Ping(pingCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()
		sessions = cache.NewRedisSessionCache(redisClient.Client)
		logger.Info().Msg("session records backed by redis")
	}

	router := NewRouter(RouterConfig{
		PageHandler:   handler.NewPageHandler(renderer, logger),
		ForumHandler:  handler.NewForumHandler(forumService, renderer, logger),
		AuthHandler:   handler.NewAuthHandler(bootstrap, sessions, renderer, logger),
		Bootstrap:     bootstrap,
		Sessions:      sessions,
		Logger:        logger,
		AuthRateRPS:   cfg.AuthRateRPS,
		AuthRateBurst: cfg.AuthRateBurst,
	})

	server := &stdhttp.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 20 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newLogger(cfg *config.Config) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	var logger zerolog.Logger
	if cfg.LogPretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger(), nil
}

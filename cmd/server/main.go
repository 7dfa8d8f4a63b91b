package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/marketloft/sessiongate/internal/config"
	"github.com/marketloft/sessiongate/internal/database"
	"github.com/marketloft/sessiongate/internal/handler"
	"github.com/marketloft/sessiongate/internal/jobs"
	"github.com/marketloft/sessiongate/internal/kite"
	"github.com/marketloft/sessiongate/internal/middleware"
	"github.com/marketloft/sessiongate/internal/redis"
	"github.com/marketloft/sessiongate/internal/repository"
	"github.com/marketloft/sessiongate/internal/service"
)

func main() {
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	location, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.ExchangeTimezone).Msg("invalid exchange timezone")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	accountRepo := repository.NewAccountRepository(db.DB)
	sessionRepo := repository.NewSessionRepository(db.DB)
	instrumentRepo := repository.NewInstrumentRepository(db.DB)

	broker := kite.NewClient(cfg.KiteBaseURL, cfg.KiteAPIBaseURL, cfg.HTTPTimeout())

	sessionService := service.NewSessionService(sessionRepo, accountRepo, broker, redisClient).
		WithCredentialKey(cfg.CredentialEncryptionKey)
	instrumentService := service.NewInstrumentService(db, instrumentRepo, broker, location)

	loginRateLimit := middleware.NewLoginRateLimit(redisClient.Client, cfg.LoginRateLimitPerMin)

	sessionHandler := handler.NewSessionHandler(sessionService)
	instrumentHandler := handler.NewInstrumentHandler(instrumentService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.With(loginRateLimit.Handler).Post("/register", sessionHandler.Register)

		r.Route("/session", func(r chi.Router) {
			r.Use(loginRateLimit.Handler)
			r.Mount("/", sessionHandler.Routes())
		})

		r.Route("/instruments", func(r chi.Router) {
			r.Mount("/", instrumentHandler.Routes())
		})
	})

	refreshJob := jobs.NewRefreshJob(instrumentService, config.RefreshJobInterval)
	refreshJob.Start()
	defer refreshJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

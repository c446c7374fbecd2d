package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/weiwei-tsao/overlay-review/internal/business/imports"
	"github.com/weiwei-tsao/overlay-review/internal/business/overlay"
	"github.com/weiwei-tsao/overlay-review/internal/platform/config"
	firestoreclient "github.com/weiwei-tsao/overlay-review/internal/platform/firestore"
	apirouter "github.com/weiwei-tsao/overlay-review/internal/platform/http"
	"github.com/weiwei-tsao/overlay-review/internal/platform/importapi"
	"github.com/weiwei-tsao/overlay-review/internal/platform/logging"
	"github.com/weiwei-tsao/overlay-review/internal/repository"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load(".env.local", ".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load")
	}
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	gin.SetMode(cfg.GinMode)

	firestoreClient, credsSource, err := firestoreclient.New(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("firestore init")
	}
	defer firestoreClient.Close()

	if err := firestoreclient.Ping(ctx, firestoreClient, "import_watches"); err != nil {
		logger.Fatal().Err(err).Msg("firestore ping")
	}
	logger.Info().Str("project", cfg.FirebaseProjectID).Str("credentials", credsSource).Msg("connected to Firestore")

	suggestionRepo := repository.NewSuggestionRepository(firestoreClient)
	watchRepo := repository.NewWatchRepository(firestoreClient)
	overviewRepo := repository.NewOverviewRepository(firestoreClient)

	upstream := importapi.New(nil, importapi.Config{
		BaseURL: cfg.ImportAPIBaseURL,
		Token:   cfg.ImportAPIToken,
	})

	overlaySvc := overlay.NewService(suggestionRepo, upstream, overviewRepo, cfg.OverviewWorkers, logger)
	poller := imports.NewPoller(upstream,
		imports.WithInterval(cfg.PollInterval),
		imports.WithTimeout(cfg.PollTimeout),
		imports.WithLogger(logger.With().Str("component", "import_poller").Logger()),
	)
	watcher := imports.NewWatcher(poller, watchRepo, logger)
	defer watcher.Shutdown()

	router := apirouter.NewRouter(overlaySvc, watcher, upstream, cfg.AllowedOrigins, logger)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()
	logger.Info().Str("port", cfg.Port).Msg("server listening")

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}
	logger.Info().Msg("server exited")
}

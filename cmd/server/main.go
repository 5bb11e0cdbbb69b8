package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/koios/flipdot-renderer/internal/auth"
	"github.com/koios/flipdot-renderer/internal/cache"
	"github.com/koios/flipdot-renderer/internal/config"
	"github.com/koios/flipdot-renderer/internal/font"
	"github.com/koios/flipdot-renderer/internal/notify"
	"github.com/koios/flipdot-renderer/internal/render"
	"github.com/koios/flipdot-renderer/internal/router"
	"github.com/koios/flipdot-renderer/internal/source"
	"github.com/koios/flipdot-renderer/internal/storage"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer store.Close()

	fonts := font.NewStore(cfg.Display.FontsPath, logger)
	fonts.SetDefault(cfg.Display.DefaultFont)
	loaded, err := fonts.LoadDir()
	if err != nil {
		logger.Warn("Failed to load font directory", zap.String("dir", cfg.Display.FontsPath), zap.Error(err))
	}
	if _, err := fonts.Get(""); err != nil {
		logger.Fatal("Default font unavailable", zap.String("font", cfg.Display.DefaultFont), zap.Error(err))
	}

	pool := render.NewPool(cfg.Content.RenderWorkers, logger)
	pool.Start()

	env := source.Env{Fonts: fonts, Width: cfg.Display.Width, Height: cfg.Display.Height}
	rt := router.New(router.NewRegistry(), cache.New(store, logger), pool, env, router.Options{
		DefaultPollMS: cfg.Content.PollIntervalMS,
		PollBufferMS:  cfg.Content.PollBufferMS,
	}, logger)

	if cfg.Clock.Enabled {
		clock, err := ambientClock(cfg.Clock)
		if err != nil {
			logger.Fatal("Invalid clock configuration", zap.Error(err))
		}
		if err := rt.Register(ctx, clock); err != nil {
			logger.Fatal("Failed to register ambient clock", zap.Error(err))
		}
	}

	authenticator := auth.New(cfg.Auth, logger)
	if !authenticator.Enabled() {
		logger.Warn("No API credentials configured, the API is open")
	}

	notifier, err := notify.New(cfg.MQTT, logger)
	if err != nil {
		logger.Warn("Refresh notifications disabled", zap.Error(err))
		notifier = notify.Nop{}
	}
	defer notifier.Close()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      newEngine(cfg, rt, fonts, authenticator, notifier, logger),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start HTTP server
	go func() {
		logger.Info("Starting HTTP server", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", zap.Error(err))
			cancel()
		}
	}()

	logger.Info("Server started",
		zap.Int("port", cfg.Server.Port),
		zap.Int("display_width", cfg.Display.Width),
		zap.Int("display_height", cfg.Display.Height),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.Int("fonts_loaded", loaded))

	// Wait for interrupt signal or a failed listener
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")

	// Give outstanding requests a deadline for completion
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	// Stop the render pool after the last request has finished
	pool.Stop()
	cancel()

	logger.Info("Server shutdown complete")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

// ambientClock is the lowest priority source that fills the display when
// nothing else is registered. It never expires and is re-rendered every
// second so the minute rolls over on time.
func ambientClock(cfg config.ClockConfig) (*source.Source, error) {
	style, err := source.ParseClockStyle(cfg.Style)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid CLOCK_TIMEZONE %q: %w", cfg.Timezone, err)
	}
	return &source.Source{
		ID:            source.AmbientClockID,
		Priority:      source.MinPriority,
		Interruptible: true,
		TTLMS:         source.MinTTLMS,
		Variant: &source.Clock{
			Style:    style,
			Location: loc,
			Hour24:   cfg.Hour24,
		},
	}, nil
}

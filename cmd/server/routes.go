package main

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/koios/flipdot-renderer/internal/auth"
	"github.com/koios/flipdot-renderer/internal/config"
	"github.com/koios/flipdot-renderer/internal/font"
	"github.com/koios/flipdot-renderer/internal/handlers"
	"github.com/koios/flipdot-renderer/internal/notify"
	"github.com/koios/flipdot-renderer/internal/router"
	"go.uber.org/zap"
)

// newEngine builds the HTTP API. /health is open; everything under /api goes
// through the authenticator.
func newEngine(cfg *config.Config, rt *router.Router, fonts *font.Store, authenticator *auth.Authenticator, notifier notify.Notifier, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))
	r.Use(cors.New(corsConfig(cfg)))

	content := handlers.NewContentHandler(rt, fonts, notifier, logger)
	content.RegisterHealth(r)

	api := r.Group("/api")
	api.Use(authenticator.Middleware())
	content.RegisterRoutes(api)
	handlers.NewPaintHandler(rt, notifier, logger).RegisterRoutes(api)

	return r
}

func corsConfig(cfg *config.Config) cors.Config {
	allowed := make(map[string]bool, len(cfg.Server.AllowedOrigins))
	for _, o := range cfg.Server.AllowedOrigins {
		allowed[o] = true
	}

	headers := []string{"Origin", "Content-Type", "Authorization", "Accept"}
	if h := cfg.Auth.APIKeyHeader; h != "" {
		headers = append(headers, h)
	}

	return cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return allowed["*"] || allowed[origin]
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:     headers,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
}

// requestLogger logs every request through zap
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

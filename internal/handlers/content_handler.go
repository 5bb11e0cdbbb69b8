package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/koios/flipdot-renderer/internal/font"
	"github.com/koios/flipdot-renderer/internal/notify"
	"github.com/koios/flipdot-renderer/internal/pattern"
	"github.com/koios/flipdot-renderer/internal/router"
	"github.com/koios/flipdot-renderer/internal/source"
	"github.com/koios/flipdot-renderer/internal/transition"
	"go.uber.org/zap"
)

const notifyTimeout = 2 * time.Second

// ContentHandler serves the poll endpoint and the submission API
type ContentHandler struct {
	router   *router.Router
	fonts    *font.Store
	notifier notify.Notifier
	logger   *zap.Logger
}

// NewContentHandler creates a new content handler
func NewContentHandler(rt *router.Router, fonts *font.Store, notifier notify.Notifier, logger *zap.Logger) *ContentHandler {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &ContentHandler{
		router:   rt,
		fonts:    fonts,
		notifier: notifier,
		logger:   logger,
	}
}

// RegisterHealth registers the unauthenticated health route
func (h *ContentHandler) RegisterHealth(r gin.IRoutes) {
	r.GET("/health", h.handleHealth)
}

// RegisterRoutes registers the content routes on the API group
func (h *ContentHandler) RegisterRoutes(api gin.IRoutes) {
	api.GET("/content", h.handleContent)
	api.POST("/content/text", h.handleText)
	api.POST("/content/pattern", h.handlePattern)
	api.POST("/content/transition", h.handleTransition)
	api.POST("/content/playlist", h.handlePlaylist)

	api.GET("/sources", h.handleListSources)
	api.DELETE("/sources", h.handleClearSources)
	api.DELETE("/sources/:id", h.handleDeleteSource)

	api.GET("/patterns", h.handlePatterns)
	api.GET("/transitions", h.handleTransitions)
	api.GET("/fonts", h.handleFonts)
}

// handleHealth handles GET /health
func (h *ContentHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "flipdot-renderer",
		"sources": h.router.Registry().Len(),
	})
}

// handleContent handles GET /api/content, the display agent's poll
func (h *ContentHandler) handleContent(c *gin.Context) {
	resp := h.router.Compose(c.Request.Context())
	h.logger.Debug("Served content",
		zap.String("status", string(resp.Status)),
		zap.Int("playlist_len", len(resp.Playlist)),
		zap.Int("poll_interval_ms", resp.PollIntervalMS))
	c.JSON(http.StatusOK, resp)
}

// handleText handles POST /api/content/text
func (h *ContentHandler) handleText(c *gin.Context) {
	var req TextRequest
	if !bindJSON(c, &req) {
		return
	}
	if errs := req.validate(h.router.Env().Fonts); len(errs) > 0 {
		respondValidation(c, errs)
		return
	}

	scroll, _ := source.ParseScrollMode(req.Scroll)
	delay := source.DefaultScrollDelayMS
	if req.FrameDelayMS != nil {
		delay = *req.FrameDelayMS
	}
	h.submit(c, req.Scheduling, &source.Text{
		Text:         req.Text,
		Font:         req.Font,
		Scroll:       scroll,
		FrameDelayMS: delay,
		LoopCount:    req.LoopCount,
	})
}

// handlePattern handles POST /api/content/pattern
func (h *ContentHandler) handlePattern(c *gin.Context) {
	var req PatternRequest
	if !bindJSON(c, &req) {
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		respondValidation(c, errs)
		return
	}
	h.submit(c, req.Scheduling, &source.Pattern{Config: req.config(), LoopCount: req.LoopCount})
}

// handleTransition handles POST /api/content/transition
func (h *ContentHandler) handleTransition(c *gin.Context) {
	var req TransitionRequest
	if !bindJSON(c, &req) {
		return
	}
	env := h.router.Env()
	if errs := req.validate(env.Fonts, env.Width, env.Height); len(errs) > 0 {
		respondValidation(c, errs)
		return
	}
	h.submit(c, req.Scheduling, &source.Transition{Config: req.config(), From: req.From, To: req.To})
}

// handlePlaylist handles POST /api/content/playlist. The submitted items
// replace every user source and keep their order.
func (h *ContentHandler) handlePlaylist(c *gin.Context) {
	var req PlaylistRequest
	if !bindJSON(c, &req) {
		return
	}
	env := h.router.Env()
	if errs := req.validate(env.Width, env.Height); len(errs) > 0 {
		respondValidation(c, errs)
		return
	}

	ctx := c.Request.Context()
	now := h.router.Now()
	sources := make([]*source.Source, 0, len(req.Playlist))
	for i := range req.Playlist {
		content := req.Playlist[i]
		s := &source.Source{
			ID:           uuid.NewString(),
			RegisteredAt: now,
			Variant:      &source.Paint{Content: &content},
		}
		req.Scheduling.apply(s, now, source.DefaultTTLMS, true)
		sources = append(sources, s)
	}

	removed := h.router.RemoveWhere(ctx, isUserSource)
	ids := make([]string, 0, len(sources))
	for _, s := range sources {
		if err := h.router.Register(ctx, s); err != nil {
			h.logger.Error("Failed to register playlist item", zap.String("source_id", s.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register playlist"})
			return
		}
		ids = append(ids, s.ID)
	}

	h.logger.Info("Replaced playlist",
		zap.Int("removed", len(removed)),
		zap.Int("registered", len(ids)))
	h.nudge(ctx, "playlist_replaced")

	c.JSON(http.StatusCreated, gin.H{
		"source_ids": ids,
		"expires_at": sources[0].ExpiresAt,
	})
}

// handleListSources handles GET /api/sources
func (h *ContentHandler) handleListSources(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sources": h.router.Registry().List()})
}

// handleDeleteSource handles DELETE /api/sources/:id
func (h *ContentHandler) handleDeleteSource(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()
	if err := h.router.Unregister(ctx, id); err != nil {
		if errors.Is(err, router.ErrSourceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "source not found", "source_id": id})
			return
		}
		h.logger.Error("Failed to unregister source", zap.String("source_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	h.nudge(ctx, "source_removed")
	c.Status(http.StatusNoContent)
}

// handleClearSources handles DELETE /api/sources. The ambient clock stays.
func (h *ContentHandler) handleClearSources(c *gin.Context) {
	ctx := c.Request.Context()
	removed := h.router.RemoveWhere(ctx, isUserSource)
	if len(removed) > 0 {
		h.nudge(ctx, "sources_cleared")
	}
	if removed == nil {
		removed = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// handlePatterns handles GET /api/patterns
func (h *ContentHandler) handlePatterns(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"patterns": pattern.TypeNames(),
		"duration_ms": gin.H{
			"min": pattern.MinDurationMS, "max": pattern.MaxDurationMS, "default": DefaultPatternDurationMS,
		},
		"frame_delay_ms": gin.H{
			"min": pattern.MinFrameDelayMS, "max": pattern.MaxFrameDelayMS, "default": DefaultPatternFrameDelayMS,
		},
	})
}

// handleTransitions handles GET /api/transitions
func (h *ContentHandler) handleTransitions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"transitions": transition.TypeNames(),
		"duration_ms": gin.H{
			"min": transition.MinDurationMS, "max": transition.MaxDurationMS, "default": DefaultTransitionDurationMS,
		},
		"frame_delay_ms": gin.H{
			"min": transition.MinFrameDelayMS, "max": transition.MaxFrameDelayMS, "default": DefaultTransitionFrameDelayMS,
		},
	})
}

// handleFonts handles GET /api/fonts
func (h *ContentHandler) handleFonts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"fonts":   h.fonts.Names(),
		"default": h.fonts.Default(),
	})
}

// submit builds a user source around v, dry-runs it so generation errors
// surface as a 400, and registers it
func (h *ContentHandler) submit(c *gin.Context, sched Scheduling, v source.Variant) {
	ctx := c.Request.Context()
	now := h.router.Now()
	s := &source.Source{
		ID:           uuid.NewString(),
		RegisteredAt: now,
		Variant:      v,
	}
	sched.apply(s, now, source.DefaultTTLMS, true)

	if _, err := s.Generate(ctx, h.router.Env(), now); err != nil {
		h.logger.Warn("Rejected submission",
			zap.String("type", string(s.Kind())),
			zap.Error(err))
		respondValidation(c, []ValidationError{generationError(err)})
		return
	}

	if err := h.router.Register(ctx, s); err != nil {
		h.logger.Error("Failed to register source", zap.String("source_id", s.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register source"})
		return
	}
	h.nudge(ctx, "source_registered")

	c.JSON(http.StatusCreated, gin.H{
		"source_id":  s.ID,
		"expires_at": s.ExpiresAt,
	})
}

// bindJSON decodes the JSON body, answering 400 itself when that fails
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "message": err.Error()})
		return false
	}
	return true
}

// nudge publishes a refresh hint. Failures are logged only; agents still
// pick up the change on their next poll.
func (h *ContentHandler) nudge(ctx context.Context, reason string) {
	nudge(ctx, h.notifier, h.logger, reason)
}

func nudge(ctx context.Context, n notify.Notifier, logger *zap.Logger, reason string) {
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := n.Notify(notifyCtx, reason); err != nil {
		logger.Warn("Failed to publish refresh hint", zap.String("reason", reason), zap.Error(err))
	}
}

func isUserSource(s *source.Source) bool {
	return s.ID != source.AmbientClockID
}

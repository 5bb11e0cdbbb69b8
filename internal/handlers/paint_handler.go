package handlers

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/koios/flipdot-renderer/internal/notify"
	"github.com/koios/flipdot-renderer/internal/paint"
	"github.com/koios/flipdot-renderer/internal/router"
	"github.com/koios/flipdot-renderer/internal/source"
	"go.uber.org/zap"
)

// PaintHandler drives the single live paint session. The session's board is
// shown through a paint source; it ends when deleted, when its source is
// cleared, or after the board's inactivity TTL.
type PaintHandler struct {
	router   *router.Router
	notifier notify.Notifier
	logger   *zap.Logger

	mu        sync.Mutex
	sessionID string
	board     *paint.Board
}

// NewPaintHandler creates a new paint handler
func NewPaintHandler(rt *router.Router, notifier notify.Notifier, logger *zap.Logger) *PaintHandler {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &PaintHandler{
		router:   rt,
		notifier: notifier,
		logger:   logger,
	}
}

// RegisterRoutes registers the paint routes on the API group
func (h *PaintHandler) RegisterRoutes(api gin.IRoutes) {
	api.POST("/paint", h.handleStart)
	api.PUT("/paint/pixels", h.handlePixels)
	api.PUT("/paint/frame", h.handleFrame)
	api.DELETE("/paint", h.handleEnd)
}

type pixelsRequest struct {
	Pixels []paint.Pixel `json:"pixels"`
}

type frameRequest struct {
	Bits []uint8 `json:"bits"`
}

// handleStart handles POST /api/paint. A running session is replaced.
func (h *PaintHandler) handleStart(c *gin.Context) {
	var req PaintRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	env := h.router.Env()
	if errs := req.validate(env.Width, env.Height); len(errs) > 0 {
		respondValidation(c, errs)
		return
	}

	ctx := c.Request.Context()
	now := h.router.Now()
	id := uuid.NewString()
	board := paint.NewBoard(env.Width, env.Height, now, func() {
		h.router.Invalidate(context.Background(), id)
	})
	if req.Bits != nil {
		if err := board.Load(req.Bits, now); err != nil {
			respondValidation(c, []ValidationError{{Field: "bits", Message: err.Error(), Code: "invalid_bits"}})
			return
		}
	} else if req.Fill != nil && *req.Fill {
		board.Fill(true, now)
	}

	s := &source.Source{
		ID:           id,
		RegisteredAt: now,
		Variant:      &source.Paint{Board: board},
	}
	// The board changes on every edit, so its content is cached only briefly.
	req.Scheduling.apply(s, now, source.MinTTLMS, false)

	h.mu.Lock()
	previous := h.sessionID
	h.sessionID = id
	h.board = board
	h.mu.Unlock()

	if previous != "" {
		_ = h.router.Unregister(ctx, previous)
	}
	if err := h.router.Register(ctx, s); err != nil {
		h.logger.Error("Failed to register paint source", zap.String("source_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start paint session"})
		return
	}

	h.logger.Info("Started paint session", zap.String("source_id", id))
	nudge(ctx, h.notifier, h.logger, "paint_started")

	c.JSON(http.StatusCreated, gin.H{
		"source_id":  id,
		"expires_at": board.ExpiresAt(),
	})
}

// handlePixels handles PUT /api/paint/pixels
func (h *PaintHandler) handlePixels(c *gin.Context) {
	var req pixelsRequest
	if !bindJSON(c, &req) {
		return
	}
	id, board, ok := h.session(c)
	if !ok {
		return
	}
	if err := board.SetPixels(req.Pixels, h.router.Now()); err != nil {
		respondValidation(c, []ValidationError{{Field: "pixels", Message: err.Error(), Code: "out_of_range"}})
		return
	}
	h.edited(c, id, board)
}

// handleFrame handles PUT /api/paint/frame
func (h *PaintHandler) handleFrame(c *gin.Context) {
	var req frameRequest
	if !bindJSON(c, &req) {
		return
	}
	id, board, ok := h.session(c)
	if !ok {
		return
	}
	env := h.router.Env()
	var errs validationErrors
	validateBits(&errs, "bits", req.Bits, env.Width, env.Height)
	if len(errs) > 0 {
		respondValidation(c, errs)
		return
	}
	if err := board.Load(req.Bits, h.router.Now()); err != nil {
		respondValidation(c, []ValidationError{{Field: "bits", Message: err.Error(), Code: "invalid_bits"}})
		return
	}
	h.edited(c, id, board)
}

// handleEnd handles DELETE /api/paint
func (h *PaintHandler) handleEnd(c *gin.Context) {
	h.mu.Lock()
	id := h.sessionID
	h.sessionID = ""
	h.board = nil
	h.mu.Unlock()

	ctx := c.Request.Context()
	if id == "" || h.router.Unregister(ctx, id) != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active paint session"})
		return
	}
	h.logger.Info("Ended paint session", zap.String("source_id", id))
	nudge(ctx, h.notifier, h.logger, "paint_ended")
	c.Status(http.StatusNoContent)
}

// session returns the live session, answering 404 itself when there is
// none. A session whose board went idle or whose source was removed is
// dropped here.
func (h *PaintHandler) session(c *gin.Context) (string, *paint.Board, bool) {
	h.mu.Lock()
	id, board := h.sessionID, h.board
	h.mu.Unlock()

	if id != "" {
		_, registered := h.router.Registry().Get(id)
		if registered && !board.Expired(h.router.Now()) {
			return id, board, true
		}
		h.end(c.Request.Context(), id)
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "no active paint session"})
	return "", nil, false
}

func (h *PaintHandler) end(ctx context.Context, id string) {
	h.mu.Lock()
	if h.sessionID == id {
		h.sessionID = ""
		h.board = nil
	}
	h.mu.Unlock()
	_ = h.router.Unregister(ctx, id)
	h.logger.Info("Paint session ended", zap.String("source_id", id))
}

func (h *PaintHandler) edited(c *gin.Context, id string, board *paint.Board) {
	nudge(c.Request.Context(), h.notifier, h.logger, "paint_updated")
	c.JSON(http.StatusOK, gin.H{
		"source_id":  id,
		"expires_at": board.ExpiresAt(),
	})
}

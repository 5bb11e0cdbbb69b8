package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/koios/flipdot-renderer/internal/codec"
	"github.com/koios/flipdot-renderer/internal/font"
	"github.com/koios/flipdot-renderer/internal/pattern"
	"github.com/koios/flipdot-renderer/internal/source"
	"github.com/koios/flipdot-renderer/internal/transition"
	"github.com/koios/flipdot-renderer/pkg/models"
)

// MaxTextLength bounds text submissions
const MaxTextLength = 500

// ValidationError represents a validation error for a specific field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// validationErrors collects field errors for one request
type validationErrors []ValidationError

func (v *validationErrors) add(field, code, format string, args ...interface{}) {
	*v = append(*v, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Code: code})
}

func (v *validationErrors) checkRange(field string, value, min, max int) {
	if value < min || value > max {
		v.add(field, "out_of_range", "%s must be between %d and %d, got %d", field, min, max, value)
	}
}

// respondValidation writes the 400 body shared by every submission endpoint
func respondValidation(c *gin.Context, errs []ValidationError) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "validation failed",
		"details": errs,
	})
}

// Scheduling holds the fields common to every submission
type Scheduling struct {
	Priority      *int  `json:"priority"`
	TTLMS         *int  `json:"ttl_ms"`
	Interruptible *bool `json:"interruptible"`
	ExpiresInMS   *int  `json:"expires_in_ms"`
}

func (s Scheduling) validate(errs *validationErrors) {
	if s.Priority != nil {
		errs.checkRange("priority", *s.Priority, source.MinPriority, source.MaxPriority)
	}
	if s.TTLMS != nil {
		errs.checkRange("ttl_ms", *s.TTLMS, source.MinTTLMS, source.MaxTTLMS)
	}
	if s.ExpiresInMS != nil && *s.ExpiresInMS <= 0 {
		errs.add("expires_in_ms", "out_of_range", "expires_in_ms must be positive, got %d", *s.ExpiresInMS)
	}
}

// apply fills the scheduling metadata of s. The expiry defaults to the ttl
// unless expireByDefault is false.
func (s Scheduling) apply(src *source.Source, now time.Time, defaultTTL int, expireByDefault bool) {
	src.Priority = source.DefaultPriority
	if s.Priority != nil {
		src.Priority = *s.Priority
	}
	src.TTLMS = defaultTTL
	if s.TTLMS != nil {
		src.TTLMS = *s.TTLMS
	}
	src.Interruptible = true
	if s.Interruptible != nil {
		src.Interruptible = *s.Interruptible
	}

	var expiresIn int
	switch {
	case s.ExpiresInMS != nil:
		expiresIn = *s.ExpiresInMS
	case expireByDefault:
		expiresIn = src.TTLMS
	}
	if expiresIn > 0 {
		at := now.Add(time.Duration(expiresIn) * time.Millisecond)
		src.ExpiresAt = &at
	}
}

// TextRequest registers a text or scrolling text source
type TextRequest struct {
	Scheduling
	Text         string `json:"text"`
	Font         string `json:"font"`
	Scroll       string `json:"scroll"`
	FrameDelayMS *int   `json:"frame_delay_ms"`
	LoopCount    *int   `json:"loop_count"`
}

func (r TextRequest) validate(fonts source.FontProvider) []ValidationError {
	var errs validationErrors
	r.Scheduling.validate(&errs)

	switch {
	case strings.TrimSpace(r.Text) == "":
		errs.add("text", "required", "text is required")
	case len([]rune(r.Text)) > MaxTextLength:
		errs.add("text", "too_long", "text exceeds %d characters", MaxTextLength)
	}
	if _, err := fonts.Get(r.Font); err != nil {
		errs.add("font", "unknown_font", "%v", err)
	}
	if _, err := source.ParseScrollMode(r.Scroll); err != nil {
		errs.add("scroll", "invalid_value", "%v", err)
	}
	if r.FrameDelayMS != nil {
		errs.checkRange("frame_delay_ms", *r.FrameDelayMS, pattern.MinFrameDelayMS, pattern.MaxFrameDelayMS)
	}
	validateLoopCount(&errs, r.LoopCount)
	return errs
}

// PatternRequest registers a procedural pattern source
type PatternRequest struct {
	Scheduling
	Type         string          `json:"type"`
	DurationMS   *int            `json:"duration_ms"`
	FrameDelayMS *int            `json:"frame_delay_ms"`
	Options      pattern.Options `json:"options"`
	LoopCount    *int            `json:"loop_count"`
}

// Pattern request defaults
const (
	DefaultPatternDurationMS   = 5000
	DefaultPatternFrameDelayMS = 100
)

func (r PatternRequest) validate() []ValidationError {
	var errs validationErrors
	r.Scheduling.validate(&errs)

	t, err := pattern.ParseType(r.Type)
	if err != nil {
		errs.add("type", "unknown_type", "%v", err)
	}
	if r.DurationMS != nil {
		errs.checkRange("duration_ms", *r.DurationMS, pattern.MinDurationMS, pattern.MaxDurationMS)
	}
	if r.FrameDelayMS != nil {
		errs.checkRange("frame_delay_ms", *r.FrameDelayMS, pattern.MinFrameDelayMS, pattern.MaxFrameDelayMS)
	}
	if d := r.Options.Density; d != nil && (*d < 0 || *d > 1) {
		errs.add("options.density", "out_of_range", "options.density must be between 0 and 1, got %g", *d)
	}
	if t == pattern.Script {
		if _, err := pattern.CompileScript(r.Options.Source); err != nil {
			errs.add("options.source", "invalid_script", "%v", err)
		}
	}
	validateLoopCount(&errs, r.LoopCount)
	return errs
}

func (r PatternRequest) config() pattern.Config {
	return pattern.Config{
		Type:         pattern.Type(r.Type),
		DurationMS:   intOr(r.DurationMS, DefaultPatternDurationMS),
		FrameDelayMS: intOr(r.FrameDelayMS, DefaultPatternFrameDelayMS),
		Options:      r.Options,
	}
}

// TransitionRequest registers a one-shot transition source
type TransitionRequest struct {
	Scheduling
	Type         string          `json:"type"`
	DurationMS   *int            `json:"duration_ms"`
	FrameDelayMS *int            `json:"frame_delay_ms"`
	Direction    string          `json:"direction"`
	Options      transitionOpts  `json:"options"`
	From         source.Endpoint `json:"from"`
	To           source.Endpoint `json:"to"`
}

type transitionOpts struct {
	Seed  float64 `json:"seed"`
	Bands int     `json:"bands"`
	Size  int     `json:"size"`
}

// Transition request defaults
const (
	DefaultTransitionDurationMS   = 1000
	DefaultTransitionFrameDelayMS = 50
)

func (r TransitionRequest) validate(fonts source.FontProvider, width, height int) []ValidationError {
	var errs validationErrors
	r.Scheduling.validate(&errs)

	if _, err := transition.ParseType(r.Type); err != nil {
		errs.add("type", "unknown_type", "%v", err)
	}
	if r.DurationMS != nil {
		errs.checkRange("duration_ms", *r.DurationMS, transition.MinDurationMS, transition.MaxDurationMS)
	}
	if r.FrameDelayMS != nil {
		errs.checkRange("frame_delay_ms", *r.FrameDelayMS, transition.MinFrameDelayMS, transition.MaxFrameDelayMS)
	}
	if !transition.ValidDirection(r.Direction) {
		errs.add("direction", "invalid_value", "unknown direction %q: valid directions are %s", r.Direction,
			strings.Join([]string{transition.Left, transition.Right, transition.Up, transition.Down, transition.Horizontal, transition.Vertical}, ", "))
	}
	if r.Options.Bands < 0 || r.Options.Size < 0 {
		errs.add("options", "out_of_range", "options.bands and options.size must not be negative")
	}
	validateEndpoint(&errs, "from", r.From, fonts, width, height)
	validateEndpoint(&errs, "to", r.To, fonts, width, height)
	return errs
}

func (r TransitionRequest) config() transition.Config {
	return transition.Config{
		Type:         transition.Type(r.Type),
		DurationMS:   intOr(r.DurationMS, DefaultTransitionDurationMS),
		FrameDelayMS: intOr(r.FrameDelayMS, DefaultTransitionFrameDelayMS),
		Options: transition.Options{
			Direction: r.Direction,
			Seed:      r.Options.Seed,
			Bands:     r.Options.Bands,
			Size:      r.Options.Size,
		},
	}
}

func validateEndpoint(errs *validationErrors, field string, e source.Endpoint, fonts source.FontProvider, width, height int) {
	if e.Bits != nil {
		validateBits(errs, field+".bits", e.Bits, width, height)
		return
	}
	if e.Text != "" {
		if _, err := fonts.Get(e.Font); err != nil {
			errs.add(field+".font", "unknown_font", "%v", err)
		}
	}
}

func validateBits(errs *validationErrors, field string, bits []uint8, width, height int) {
	if len(bits) != width*height {
		errs.add(field, "size_mismatch", "%s has %d values, expected %d for %dx%d", field, len(bits), width*height, width, height)
		return
	}
	for i, b := range bits {
		if b > 1 {
			errs.add(field, "invalid_value", "%s[%d] is %d, expected 0 or 1", field, i, b)
			return
		}
	}
}

// PlaylistRequest replaces every user source with pre-encoded content items,
// shown in the submitted order
type PlaylistRequest struct {
	Scheduling
	Playlist []models.Content `json:"playlist"`
}

func (r PlaylistRequest) validate(width, height int) []ValidationError {
	var errs validationErrors
	r.Scheduling.validate(&errs)

	if len(r.Playlist) == 0 {
		errs.add("playlist", "required", "playlist must contain at least one content item")
	}
	for i, c := range r.Playlist {
		field := fmt.Sprintf("playlist[%d]", i)
		if err := codec.ValidateContent(c); err != nil {
			errs.add(field, "invalid_content", "%v", err)
			continue
		}
		if f := c.Frames[0]; f.Width != width || f.Height != height {
			errs.add(field, "size_mismatch", "frames are %dx%d, display is %dx%d", f.Width, f.Height, width, height)
		}
	}
	return errs
}

// PaintRequest starts a paint session
type PaintRequest struct {
	Scheduling
	Fill *bool   `json:"fill"`
	Bits []uint8 `json:"bits"`
}

func (r PaintRequest) validate(width, height int) []ValidationError {
	var errs validationErrors
	r.Scheduling.validate(&errs)
	if r.Bits != nil {
		validateBits(&errs, "bits", r.Bits, width, height)
	}
	return errs
}

func validateLoopCount(errs *validationErrors, n *int) {
	if n != nil && *n < 1 {
		errs.add("loop_count", "out_of_range", "loop_count must be at least 1, got %d", *n)
	}
}

// generationError maps a failed dry run to the field that caused it
func generationError(err error) ValidationError {
	switch {
	case errors.Is(err, font.ErrFontNotFound):
		return ValidationError{Field: "font", Message: err.Error(), Code: "unknown_font"}
	case errors.Is(err, pattern.ErrInvalidScript):
		return ValidationError{Field: "options.source", Message: err.Error(), Code: "invalid_script"}
	case errors.Is(err, codec.ErrInvalidFrameData):
		return ValidationError{Field: "bits", Message: err.Error(), Code: "invalid_bits"}
	case errors.Is(err, codec.ErrInvalidContent):
		return ValidationError{Field: "content", Message: err.Error(), Code: "content_limit"}
	}
	return ValidationError{Field: "", Message: err.Error(), Code: "generation_failed"}
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

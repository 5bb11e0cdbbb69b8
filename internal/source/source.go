// Package source defines the registered content producers. A Source carries
// the scheduling metadata (priority, TTL, expiry) and one Variant holding
// the strongly typed configuration of a clock, text, pattern, transition or
// paint producer.
package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/koios/flipdot-renderer/internal/font"
	"github.com/koios/flipdot-renderer/pkg/models"
)

// Scheduling limits for registered sources
const (
	MinPriority = 0
	MaxPriority = 99
	MinTTLMS    = 1000
	MaxTTLMS    = 3600000

	DefaultPriority = 50
	DefaultTTLMS    = 60000
)

var (
	// ErrInactive is returned by sources that ended on their own, such as an
	// idle paint board. The router unregisters them without logging an error.
	ErrInactive = errors.New("source inactive")
	// ErrInvalidSource is returned when scheduling metadata is out of range
	ErrInvalidSource = errors.New("invalid source")
)

// Kind is the wire name of a source type
type Kind string

const (
	KindClock         Kind = "clock"
	KindText          Kind = "text"
	KindScrollingText Kind = "scrolling_text"
	KindPattern       Kind = "pattern"
	KindTransition    Kind = "transition"
	KindPaint         Kind = "paint"
)

// Variant is the closed set of source configurations: *Clock, *Text,
// *Pattern, *Transition and *Paint.
type Variant interface {
	Kind() Kind
	variant()
}

// FontProvider resolves fonts by name
type FontProvider interface {
	Get(name string) (*font.Font, error)
}

// Env is what a source needs to render
type Env struct {
	Fonts  FontProvider
	Width  int
	Height int
}

// Source is a registered producer of content
type Source struct {
	ID            string
	Priority      int
	Interruptible bool
	TTLMS         int
	ExpiresAt     *time.Time
	RegisteredAt  time.Time
	Variant       Variant
}

// Kind of the underlying variant
func (s *Source) Kind() Kind {
	if s.Variant == nil {
		return ""
	}
	return s.Variant.Kind()
}

// Validate checks the scheduling metadata
func (s *Source) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidSource)
	}
	if s.Variant == nil {
		return fmt.Errorf("%w: %s has no content configuration", ErrInvalidSource, s.ID)
	}
	if s.Priority < MinPriority || s.Priority > MaxPriority {
		return fmt.Errorf("%w: priority %d outside [%d, %d]", ErrInvalidSource, s.Priority, MinPriority, MaxPriority)
	}
	if s.TTLMS < MinTTLMS || s.TTLMS > MaxTTLMS {
		return fmt.Errorf("%w: ttl_ms %d outside [%d, %d]", ErrInvalidSource, s.TTLMS, MinTTLMS, MaxTTLMS)
	}
	return nil
}

// Expired reports whether the source's expiry has passed
func (s *Source) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}

// Active reports ErrInactive for a source that ended on its own. It does
// not render, so callers can check it before serving cached content.
func (s *Source) Active(now time.Time) error {
	if p, ok := s.Variant.(*Paint); ok && p.Board != nil && p.Board.Expired(now) {
		return fmt.Errorf("%w: paint board %s expired at %s", ErrInactive, s.ID, p.Board.ExpiresAt().Format(time.RFC3339))
	}
	return nil
}

// Info is the public view of the source
func (s *Source) Info() models.SourceInfo {
	return models.SourceInfo{
		ID:            s.ID,
		Type:          string(s.Kind()),
		Priority:      s.Priority,
		Interruptible: s.Interruptible,
		TTLMS:         s.TTLMS,
		ExpiresAt:     s.ExpiresAt,
		RegisteredAt:  s.RegisteredAt,
	}
}

// Generate renders the source's current content. It never mutates the
// source, so a failed call can simply be retried.
func (s *Source) Generate(ctx context.Context, env Env, now time.Time) (models.Content, error) {
	if err := ctx.Err(); err != nil {
		return models.Content{}, err
	}
	if env.Width <= 0 || env.Height <= 0 {
		return models.Content{}, fmt.Errorf("invalid display size %dx%d", env.Width, env.Height)
	}

	switch v := s.Variant.(type) {
	case *Clock:
		return v.generate(env, now)
	case *Text:
		return v.generate(env)
	case *Pattern:
		return v.generate(env)
	case *Transition:
		return v.generate(env)
	case *Paint:
		return v.generate(s.ID, env, now)
	default:
		return models.Content{}, fmt.Errorf("source %s has unsupported variant %T", s.ID, s.Variant)
	}
}

// contentID derives a stable id from the semantic inputs of a source, so
// unchanged content keeps its id across regenerations
func contentID(prefix string, inputs ...interface{}) string {
	h := sha256.New()
	for _, in := range inputs {
		raw, err := json.Marshal(in)
		if err != nil {
			raw = []byte(fmt.Sprint(in))
		}
		h.Write(raw)
		h.Write([]byte{0})
	}
	return prefix + "-" + hex.EncodeToString(h.Sum(nil))[:12]
}

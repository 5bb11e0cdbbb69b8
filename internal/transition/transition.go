// Package transition interpolates between two bitmaps. Each effect is a pure
// function of (from, to, progress, options); there are no frame counters, so
// any frame of a transition can be rendered on its own.
package transition

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/koios/flipdot-renderer/internal/bitmap"
	"github.com/koios/flipdot-renderer/pkg/models"
)

var (
	// ErrUnknownType is returned for transition names outside Types()
	ErrUnknownType = errors.New("unknown transition type")
	// ErrSizeMismatch is returned when from and to differ in size
	ErrSizeMismatch = errors.New("transition bitmaps differ in size")
)

// Type names a transition effect
type Type string

const (
	Wipe         Type = "wipe"
	Fade         Type = "fade"
	Dissolve     Type = "dissolve"
	Slide        Type = "slide"
	Checkerboard Type = "checkerboard"
	Blinds       Type = "blinds"
	CenterOut    Type = "center_out"
	Corners      Type = "corners"
	Spiral       Type = "spiral"
)

// Validated ranges for transition requests
const (
	MinDurationMS   = 100
	MaxDurationMS   = 10000
	MinFrameDelayMS = 20
	MaxFrameDelayMS = 500
)

// Directions understood by wipe, slide and blinds. Wipe and slide move
// content towards the named edge; blinds take the band orientation.
const (
	Left       = "left"
	Right      = "right"
	Up         = "up"
	Down       = "down"
	Horizontal = "horizontal"
	Vertical   = "vertical"
)

// Options tunes an effect. Zero values select defaults.
type Options struct {
	Direction string  `json:"direction,omitempty"`
	Seed      float64 `json:"seed,omitempty"`
	Bands     int     `json:"bands,omitempty"`
	Size      int     `json:"size,omitempty"`
}

type effect func(from, to bitmap.Bitmap, progress float64, o Options) bitmap.Bitmap

var effects = map[Type]effect{
	Wipe:         wipe,
	Fade:         fade,
	Dissolve:     dissolve,
	Slide:        slide,
	Checkerboard: checkerboard,
	Blinds:       blinds,
	CenterOut:    centerOut,
	Corners:      corners,
	Spiral:       spiral,
}

// Types lists every valid transition type, sorted
func Types() []Type {
	types := make([]Type, 0, len(effects))
	for t := range effects {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// TypeNames is Types as strings
func TypeNames() []string {
	types := Types()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}

// ParseType validates a transition name
func ParseType(name string) (Type, error) {
	t := Type(name)
	if _, ok := effects[t]; ok {
		return t, nil
	}
	return "", fmt.Errorf("%w %q: valid types are %s", ErrUnknownType, name, strings.Join(TypeNames(), ", "))
}

// ValidDirection reports whether d is accepted by the transition options
func ValidDirection(d string) bool {
	switch d {
	case "", Left, Right, Up, Down, Horizontal, Vertical:
		return true
	}
	return false
}

// Generate renders the frame at progress, clamped to [0, 1]. Progress 0 is
// always from and progress 1 is always to.
func Generate(t Type, from, to bitmap.Bitmap, progress float64, opts Options) (bitmap.Bitmap, error) {
	fx, ok := effects[t]
	if !ok {
		_, err := ParseType(string(t))
		return bitmap.Bitmap{}, err
	}
	if from.Width != to.Width || from.Height != to.Height {
		return bitmap.Bitmap{}, fmt.Errorf("%w: %dx%d vs %dx%d", ErrSizeMismatch, from.Width, from.Height, to.Width, to.Height)
	}

	switch {
	case progress <= 0:
		return from.Clone(), nil
	case progress >= 1:
		return to.Clone(), nil
	}
	return fx(from, to, progress, withDefaults(t, opts)), nil
}

// Config describes a transition animation request
type Config struct {
	Type         Type    `json:"type"`
	DurationMS   int     `json:"duration_ms"`
	FrameDelayMS int     `json:"frame_delay_ms"`
	Options      Options `json:"options"`
}

// FrameCount is duration / delay, at least one frame
func (c Config) FrameCount() int {
	if c.FrameDelayMS <= 0 {
		return 1
	}
	n := c.DurationMS / c.FrameDelayMS
	if n < 1 {
		n = 1
	}
	if n > models.MaxFramesPerContent {
		n = models.MaxFramesPerContent
	}
	return n
}

// Progress of frame i out of count. The first frame is already one step in
// and the last frame lands exactly on 1.
func Progress(i, count int) float64 {
	if count <= 0 {
		return 1
	}
	return float64(i+1) / float64(count)
}

// Frames renders the whole transition
func Frames(c Config, from, to bitmap.Bitmap) ([]bitmap.Bitmap, error) {
	if _, err := ParseType(string(c.Type)); err != nil {
		return nil, err
	}
	count := c.FrameCount()
	frames := make([]bitmap.Bitmap, 0, count)
	for i := 0; i < count; i++ {
		b, err := Generate(c.Type, from, to, Progress(i, count), c.Options)
		if err != nil {
			return nil, err
		}
		frames = append(frames, b)
	}
	return frames, nil
}

func withDefaults(t Type, o Options) Options {
	if o.Direction == "" {
		switch t {
		case Blinds:
			o.Direction = Horizontal
		default:
			o.Direction = Left
		}
	}
	if o.Bands <= 0 {
		o.Bands = 4
	}
	if o.Size <= 0 {
		o.Size = 4
	}
	return o
}

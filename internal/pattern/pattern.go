// Package pattern synthesizes ambient animations. Every generator is a pure
// function of (width, height, frame index, options): the same inputs always
// produce the same bitmap, so frames can be cached and replayed
// independently.
package pattern

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/koios/flipdot-renderer/internal/bitmap"
	"github.com/koios/flipdot-renderer/pkg/models"
)

// ErrUnknownType is returned for pattern names outside Types()
var ErrUnknownType = errors.New("unknown pattern type")

// Type names a pattern generator
type Type string

const (
	Wave         Type = "wave"
	Rain         Type = "rain"
	Spiral       Type = "spiral"
	Checkerboard Type = "checkerboard"
	Random       Type = "random"
	Expand       Type = "expand"
	GameOfLife   Type = "gameoflife"
	Matrix       Type = "matrix"
	Sparkle      Type = "sparkle"
	Pulse        Type = "pulse"
	Scan         Type = "scan"
	Fire         Type = "fire"
	Snake        Type = "snake"
	Script       Type = "script"
)

// Validated ranges for pattern requests
const (
	MinDurationMS   = 100
	MaxDurationMS   = 60000
	MinFrameDelayMS = 20
	MaxFrameDelayMS = 1000
)

// Options tunes a generator. Zero values select per-type defaults, except
// Density where only an absent value does, so 0 asks for an empty field.
type Options struct {
	Amplitude float64  `json:"amplitude,omitempty"`
	Frequency float64  `json:"frequency,omitempty"`
	Speed     float64  `json:"speed,omitempty"`
	Density   *float64 `json:"density,omitempty"`
	Direction string   `json:"direction,omitempty"`
	Shape     string   `json:"shape,omitempty"`
	Length    int      `json:"length,omitempty"`
	Size      int      `json:"size,omitempty"`
	Arms      int      `json:"arms,omitempty"`
	Seed      float64  `json:"seed,omitempty"`
	Reseed    bool     `json:"reseed,omitempty"`
	Source    string   `json:"source,omitempty"`

	// density is Density resolved against the per-type default
	density float64
}

// DensityOf is a convenience for building Options literals
func DensityOf(v float64) *float64 {
	return &v
}

// Generator renders one frame of a pattern
type Generator func(width, height, frame int, opts Options) bitmap.Bitmap

var generators = map[Type]Generator{
	Wave:         wave,
	Rain:         rain,
	Spiral:       spiral,
	Checkerboard: checkerboard,
	Random:       random,
	Expand:       expand,
	GameOfLife:   gameOfLife,
	Matrix:       matrix,
	Sparkle:      sparkle,
	Pulse:        pulse,
	Scan:         scan,
	Fire:         fire,
	Snake:        snake,
}

// Types lists every valid pattern type, sorted
func Types() []Type {
	types := make([]Type, 0, len(generators)+1)
	for t := range generators {
		types = append(types, t)
	}
	types = append(types, Script)
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

// ParseType validates a pattern name
func ParseType(name string) (Type, error) {
	t := Type(name)
	if _, ok := generators[t]; ok || t == Script {
		return t, nil
	}
	return "", fmt.Errorf("%w %q: valid types are %s", ErrUnknownType, name, strings.Join(TypeNames(), ", "))
}

// Generate renders a single frame
func Generate(t Type, width, height, frame int, opts Options) (bitmap.Bitmap, error) {
	if t == Script {
		prog, err := CompileScript(opts.Source)
		if err != nil {
			return bitmap.Bitmap{}, err
		}
		return prog.Render(width, height, frame)
	}
	gen, ok := generators[t]
	if !ok {
		_, err := ParseType(string(t))
		return bitmap.Bitmap{}, err
	}
	return gen(width, height, frame, withDefaults(t, opts)), nil
}

// Config describes a pattern animation request
type Config struct {
	Type         Type    `json:"type"`
	DurationMS   int     `json:"duration_ms"`
	FrameDelayMS int     `json:"frame_delay_ms"`
	Options      Options `json:"options"`
}

// FrameCount is duration / delay, at least one frame and capped at the
// per-content frame limit
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

// Frames renders the full animation. Game of Life threads a single board
// through the sequence instead of replaying from the seed for every frame.
// Scripts are compiled once and share one step budget across all frames.
func Frames(c Config, width, height int) ([]bitmap.Bitmap, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid display size %dx%d", width, height)
	}
	if _, err := ParseType(string(c.Type)); err != nil {
		return nil, err
	}

	count := c.FrameCount()
	frames := make([]bitmap.Bitmap, 0, count)

	switch {
	case c.Type == Script:
		prog, err := CompileScript(c.Options.Source)
		if err != nil {
			return nil, err
		}
		prog.Limit(scriptStepBudget)
		for i := 0; i < count; i++ {
			b, err := prog.Render(width, height, i)
			if err != nil {
				return nil, fmt.Errorf("frame %d: %w", i, err)
			}
			frames = append(frames, b)
		}

	case c.Type == GameOfLife && !c.Options.Reseed:
		life := NewLife(width, height, withDefaults(GameOfLife, c.Options))
		for i := 0; i < count; i++ {
			frames = append(frames, life.Board())
			life.Step()
		}

	default:
		gen := generators[c.Type]
		opts := withDefaults(c.Type, c.Options)
		for i := 0; i < count; i++ {
			frames = append(frames, gen(width, height, i, opts))
		}
	}

	return frames, nil
}

func withDefaults(t Type, o Options) Options {
	if o.Speed == 0 {
		o.Speed = 1
	}
	if o.Frequency == 0 {
		o.Frequency = 0.5
	}
	if o.Direction == "" {
		o.Direction = "horizontal"
	}
	if o.Shape == "" {
		o.Shape = "circle"
	}
	if o.Size <= 0 {
		o.Size = 2
	}
	if o.Arms <= 0 {
		o.Arms = 3
	}
	switch {
	case o.Density != nil:
		o.density = math.Max(0, math.Min(1, *o.Density))
	case t == Rain, t == Matrix, t == Fire:
		o.density = 0.6
	case t == Sparkle:
		o.density = 0.25
	default:
		o.density = 0.35
	}
	if o.Length <= 0 {
		switch t {
		case Snake:
			o.Length = 8
		case Sparkle:
			o.Length = 8
		default:
			o.Length = 4
		}
	}
	return o
}

package source

import (
	"fmt"

	"github.com/koios/flipdot-renderer/internal/bitmap"
	"github.com/koios/flipdot-renderer/internal/codec"
	"github.com/koios/flipdot-renderer/internal/pattern"
	"github.com/koios/flipdot-renderer/internal/transition"
	"github.com/koios/flipdot-renderer/pkg/models"
)

// Pattern plays a looping procedural animation
type Pattern struct {
	Config    pattern.Config
	LoopCount *int
}

func (*Pattern) variant() {}

// Kind implements Variant
func (*Pattern) Kind() Kind { return KindPattern }

func (p *Pattern) generate(env Env) (models.Content, error) {
	frames, err := pattern.Frames(p.Config, env.Width, env.Height)
	if err != nil {
		return models.Content{}, err
	}
	id := contentID("pattern", p.Config, env.Width, env.Height)
	delay := p.Config.FrameDelayMS
	return codec.NewContent(id, frames, &delay, models.Playback{Loop: true, LoopCount: p.LoopCount}, map[string]interface{}{
		"type":    string(KindPattern),
		"pattern": string(p.Config.Type),
	})
}

// Endpoint is one side of a transition: raw bits, text, or blank when both
// are empty
type Endpoint struct {
	Bits []uint8 `json:"bits,omitempty"`
	Text string  `json:"text,omitempty"`
	Font string  `json:"font,omitempty"`
}

func (e Endpoint) render(env Env) (bitmap.Bitmap, error) {
	switch {
	case e.Bits != nil:
		b, err := bitmap.FromBits(e.Bits, env.Width, env.Height)
		if err != nil {
			return bitmap.Bitmap{}, fmt.Errorf("%w: %v", codec.ErrInvalidFrameData, err)
		}
		return b, nil
	case e.Text != "":
		f, err := env.Fonts.Get(e.Font)
		if err != nil {
			return bitmap.Bitmap{}, err
		}
		return f.RenderStatic(e.Text, env.Width, env.Height), nil
	default:
		return bitmap.New(env.Width, env.Height), nil
	}
}

// Transition plays once from one bitmap to another
type Transition struct {
	Config transition.Config
	From   Endpoint
	To     Endpoint
}

func (*Transition) variant() {}

// Kind implements Variant
func (*Transition) Kind() Kind { return KindTransition }

func (t *Transition) generate(env Env) (models.Content, error) {
	from, err := t.From.render(env)
	if err != nil {
		return models.Content{}, fmt.Errorf("from: %w", err)
	}
	to, err := t.To.render(env)
	if err != nil {
		return models.Content{}, fmt.Errorf("to: %w", err)
	}
	frames, err := transition.Frames(t.Config, from, to)
	if err != nil {
		return models.Content{}, err
	}
	id := contentID("transition", t.Config, t.From, t.To, env.Width, env.Height)
	delay := t.Config.FrameDelayMS
	return codec.NewContent(id, frames, &delay, models.Playback{}, map[string]interface{}{
		"type":       string(KindTransition),
		"transition": string(t.Config.Type),
	})
}

package source

import (
	"fmt"

	"github.com/koios/flipdot-renderer/internal/bitmap"
	"github.com/koios/flipdot-renderer/internal/codec"
	"github.com/koios/flipdot-renderer/pkg/models"
)

// ScrollMode controls when text scrolls
type ScrollMode string

const (
	// ScrollAuto scrolls only when the text is wider than the display
	ScrollAuto ScrollMode = "auto"
	// ScrollAlways scrolls even short text
	ScrollAlways ScrollMode = "always"
	// ScrollNever renders a single centered frame, clipping wide text
	ScrollNever ScrollMode = "never"
)

// DefaultScrollDelayMS is the per-step delay of scrolling text
const DefaultScrollDelayMS = 75

// ParseScrollMode validates a scroll mode
func ParseScrollMode(s string) (ScrollMode, error) {
	switch ScrollMode(s) {
	case ScrollAuto, ScrollAlways, ScrollNever:
		return ScrollMode(s), nil
	case "":
		return ScrollAuto, nil
	}
	return "", fmt.Errorf("unknown scroll mode %q: valid modes are auto, always, never", s)
}

// Text renders a string, scrolling it when it does not fit
type Text struct {
	Text         string
	Font         string
	Scroll       ScrollMode
	FrameDelayMS int
	LoopCount    *int
}

func (*Text) variant() {}

// Kind implements Variant
func (t *Text) Kind() Kind {
	if t.Scroll == ScrollAlways {
		return KindScrollingText
	}
	return KindText
}

func (t *Text) generate(env Env) (models.Content, error) {
	f, err := env.Fonts.Get(t.Font)
	if err != nil {
		return models.Content{}, err
	}

	width := f.Measure(t.Text)
	scroll := t.Scroll == ScrollAlways || (t.Scroll != ScrollNever && width > env.Width)
	delay := t.FrameDelayMS
	if delay <= 0 {
		delay = DefaultScrollDelayMS
	}
	id := contentID("text", t.Text, f.Name, scroll, delay)
	meta := map[string]interface{}{
		"type": string(KindText),
		"text": t.Text,
	}

	if !scroll {
		frame := f.RenderStatic(t.Text, env.Width, env.Height)
		return codec.NewContent(id, []bitmap.Bitmap{frame}, nil, models.Playback{}, meta)
	}

	meta["type"] = string(KindScrollingText)
	frames := f.RenderScroll(t.Text, env.Width, env.Height)
	return codec.NewContent(id, frames, &delay, models.Playback{Loop: true, LoopCount: t.LoopCount}, meta)
}

// Package font lays out text on binary bitmaps using pre-rendered glyph sets.
package font

import (
	"fmt"
	"unicode"

	"github.com/koios/flipdot-renderer/internal/bitmap"
)

// Font is a glyph set where every glyph is Height rows tall and already
// aligned to the baseline. BaselineOffset counts the rows from the top of the
// cell down to the baseline; rows below it hold descenders.
type Font struct {
	Name           string
	Height         int
	BaselineOffset int
	CharSpacing    int
	SpaceWidth     int

	glyphs map[rune]bitmap.Bitmap
}

// New creates a font from glyph bitmaps. Every glyph must be exactly height
// rows tall.
func New(name string, height, baselineOffset, charSpacing, spaceWidth int, glyphs map[rune]bitmap.Bitmap) (*Font, error) {
	if height <= 0 {
		return nil, fmt.Errorf("font %s: height must be positive", name)
	}
	if charSpacing < 0 || spaceWidth < 0 {
		return nil, fmt.Errorf("font %s: spacing must not be negative", name)
	}
	for r, g := range glyphs {
		if g.Height != height {
			return nil, fmt.Errorf("font %s: glyph %q is %d rows, expected %d", name, r, g.Height, height)
		}
	}
	if baselineOffset <= 0 {
		baselineOffset = height
	}
	return &Font{
		Name:           name,
		Height:         height,
		BaselineOffset: baselineOffset,
		CharSpacing:    charSpacing,
		SpaceWidth:     spaceWidth,
		glyphs:         glyphs,
	}, nil
}

// Glyph resolves a character: the exact glyph, then its uppercase form, then
// the space glyph. It never fails.
func (f *Font) Glyph(r rune) bitmap.Bitmap {
	if g, ok := f.glyphs[r]; ok {
		return g
	}
	if g, ok := f.glyphs[unicode.ToUpper(r)]; ok {
		return g
	}
	if g, ok := f.glyphs[' ']; ok {
		return g
	}
	return bitmap.New(f.SpaceWidth, f.Height)
}

// Has reports whether the font defines a glyph for r without fallback
func (f *Font) Has(r rune) bool {
	_, ok := f.glyphs[r]
	return ok
}

// GlyphCount returns the number of defined glyphs
func (f *Font) GlyphCount() int {
	return len(f.glyphs)
}

// Measure returns the rendered width of text: glyph widths plus CharSpacing
// between adjacent characters, without trailing spacing
func (f *Font) Measure(text string) int {
	width := 0
	n := 0
	for _, r := range text {
		if n > 0 {
			width += f.CharSpacing
		}
		width += f.Glyph(r).Width
		n++
	}
	return width
}

// Render draws text onto a bitmap exactly Measure(text) wide and Height tall
func (f *Font) Render(text string) bitmap.Bitmap {
	out := bitmap.New(f.Measure(text), f.Height)
	f.draw(out, text, 0, 0)
	return out
}

func (f *Font) draw(dst bitmap.Bitmap, text string, x, y int) {
	n := 0
	for _, r := range text {
		if n > 0 {
			x += f.CharSpacing
		}
		g := f.Glyph(r)
		dst.Blit(g, x, y)
		x += g.Width
		n++
	}
}

// Baseline returns the display row the text baseline sits on: the part of
// the cell above the baseline is centered and descenders hang below it.
func (f *Font) Baseline(displayHeight int) int {
	return floorDiv(displayHeight+f.BaselineOffset, 2)
}

// Top returns the row where the glyph cell starts when the font is placed on
// a display of the given height. A cell that fits the display is moved up
// rather than letting descenders fall off the bottom.
func (f *Font) Top(displayHeight int) int {
	top := f.Baseline(displayHeight) - f.BaselineOffset
	if f.Height <= displayHeight && top+f.Height > displayHeight {
		top = displayHeight - f.Height
	}
	return top
}

// RenderStatic centers text horizontally on a display-sized bitmap. Text
// wider than the display is clipped on both sides.
func (f *Font) RenderStatic(text string, width, height int) bitmap.Bitmap {
	out := bitmap.New(width, height)
	x := floorDiv(width-f.Measure(text), 2)
	f.draw(out, text, x, f.Top(height))
	return out
}

// RenderScroll produces one frame per pixel step, from the text fully
// off-screen right (x = width) to fully off-screen left (x = -textWidth).
// The sequence has width + textWidth + 1 frames.
func (f *Font) RenderScroll(text string, width, height int) []bitmap.Bitmap {
	textWidth := f.Measure(text)
	line := f.Render(text)
	top := f.Top(height)

	frames := make([]bitmap.Bitmap, 0, width+textWidth+1)
	for x := width; x >= -textWidth; x-- {
		frame := bitmap.New(width, height)
		frame.Blit(line, x, top)
		frames = append(frames, frame)
	}
	return frames
}

// ScrollFrameCount returns the number of frames RenderScroll produces
func (f *Font) ScrollFrameCount(text string, width int) int {
	return width + f.Measure(text) + 1
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

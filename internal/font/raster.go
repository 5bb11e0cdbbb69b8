package font

import (
	"fmt"
	"image"

	"github.com/koios/flipdot-renderer/internal/bitmap"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// printable ASCII
const rasterCharset = " !\"#$%&'()*+,-./0123456789:;<=>?@ABCDEFGHIJKLMNOPQRSTUVWXYZ[\\]^_`abcdefghijklmnopqrstuvwxyz{|}~"

// alpha at or above this value becomes an on dot
const rasterThreshold = 128

// Rasterize renders a TrueType/OpenType font at a pixel size into a glyph
// set. The advance width of each glyph becomes its cell width, so the font
// needs no extra character spacing.
func Rasterize(name string, ttf []byte, px int) (*Font, error) {
	if px < 4 || px > 64 {
		return nil, fmt.Errorf("font %s: pixel size %d out of range [4,64]", name, px)
	}

	parsed, err := opentype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font %s: %w", name, err)
	}

	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    float64(px),
		DPI:     72,
		Hinting: xfont.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create face for %s: %w", name, err)
	}
	defer func() {
		_ = face.Close()
	}()

	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	height := ascent + metrics.Descent.Ceil()

	glyphs := make(map[rune]bitmap.Bitmap, len(rasterCharset))
	spaceWidth := 0
	for _, r := range rasterCharset {
		advance, ok := face.GlyphAdvance(r)
		if !ok {
			continue
		}
		width := advance.Ceil()
		if r == ' ' {
			spaceWidth = width
		}

		mask := image.NewAlpha(image.Rect(0, 0, width, height))
		drawer := &xfont.Drawer{
			Dst:  mask,
			Src:  image.White,
			Face: face,
			Dot:  fixed.P(0, ascent),
		}
		drawer.DrawString(string(r))

		g := bitmap.New(width, height)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				if mask.AlphaAt(x, y).A >= rasterThreshold {
					g.Set(x, y, true)
				}
			}
		}
		glyphs[r] = g
	}

	return New(name, height, ascent, 0, spaceWidth, glyphs)
}

package font

import (
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/koios/flipdot-renderer/internal/bitmap"
	"gopkg.in/yaml.v3"
)

// GlyphSet is the on-disk form of a pre-rendered font. Glyph rows use '#'
// for an on dot and '.' for an off dot.
type GlyphSet struct {
	Name           string              `yaml:"name"`
	Height         int                 `yaml:"height"`
	BaselineOffset int                 `yaml:"baseline_offset"`
	CharSpacing    int                 `yaml:"char_spacing"`
	SpaceWidth     int                 `yaml:"space_width"`
	Glyphs         map[string][]string `yaml:"glyphs"`
}

// ParseGlyphSet decodes a YAML glyph set into a font
func ParseGlyphSet(data []byte) (*Font, error) {
	var set GlyphSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse glyph set: %w", err)
	}
	if set.Name == "" {
		return nil, fmt.Errorf("glyph set has no name")
	}

	glyphs := make(map[rune]bitmap.Bitmap, len(set.Glyphs))
	for key, rows := range set.Glyphs {
		if utf8.RuneCountInString(key) != 1 {
			return nil, fmt.Errorf("font %s: glyph key %q must be a single character", set.Name, key)
		}
		r, _ := utf8.DecodeRuneInString(key)
		g, err := bitmap.Parse(rows...)
		if err != nil {
			return nil, fmt.Errorf("font %s: glyph %q: %w", set.Name, key, err)
		}
		glyphs[r] = g
	}

	return New(set.Name, set.Height, set.BaselineOffset, set.CharSpacing, set.SpaceWidth, glyphs)
}

// LoadGlyphSet reads a YAML glyph set file
func LoadGlyphSet(path string) (*Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	return ParseGlyphSet(data)
}

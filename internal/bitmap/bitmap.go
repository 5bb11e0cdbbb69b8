package bitmap

import (
	"fmt"
	"strings"
)

// Bitmap is a binary pixel image stored row-major, top-to-bottom and
// left-to-right. A true pixel is a dot that is set (flipped to its bright side).
type Bitmap struct {
	Width  int
	Height int
	Pix    []bool
}

// New creates an all-off bitmap of the given size
func New(width, height int) Bitmap {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return Bitmap{
		Width:  width,
		Height: height,
		Pix:    make([]bool, width*height),
	}
}

// FromRows builds a bitmap from a matrix of rows. All rows must have the
// same length.
func FromRows(rows [][]bool) (Bitmap, error) {
	if len(rows) == 0 {
		return New(0, 0), nil
	}
	width := len(rows[0])
	b := New(width, len(rows))
	for y, row := range rows {
		if len(row) != width {
			return Bitmap{}, fmt.Errorf("row %d has width %d, expected %d", y, len(row), width)
		}
		copy(b.Pix[y*width:(y+1)*width], row)
	}
	return b, nil
}

// FromBits builds a bitmap from a flat 0/1 sequence
func FromBits(bits []uint8, width, height int) (Bitmap, error) {
	if width < 0 || height < 0 {
		return Bitmap{}, fmt.Errorf("invalid dimensions %dx%d", width, height)
	}
	if len(bits) != width*height {
		return Bitmap{}, fmt.Errorf("got %d bits, expected %d for %dx%d", len(bits), width*height, width, height)
	}
	b := New(width, height)
	for i, v := range bits {
		switch v {
		case 0:
		case 1:
			b.Pix[i] = true
		default:
			return Bitmap{}, fmt.Errorf("bit %d has value %d, expected 0 or 1", i, v)
		}
	}
	return b, nil
}

// Parse reads a bitmap drawn with '#' (on) and '.' (off), one string per row
func Parse(rows ...string) (Bitmap, error) {
	matrix := make([][]bool, len(rows))
	for y, row := range rows {
		matrix[y] = make([]bool, 0, len(row))
		for _, c := range row {
			switch c {
			case '#', '1', 'X':
				matrix[y] = append(matrix[y], true)
			case '.', '0', ' ':
				matrix[y] = append(matrix[y], false)
			default:
				return Bitmap{}, fmt.Errorf("row %d: unexpected character %q", y, c)
			}
		}
	}
	return FromRows(matrix)
}

// MustParse is Parse for fixtures that are known to be valid
func MustParse(rows ...string) Bitmap {
	b, err := Parse(rows...)
	if err != nil {
		panic(err)
	}
	return b
}

func (b Bitmap) inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.Width && y < b.Height
}

// At reports whether the pixel is on. Reads outside the bitmap return false.
func (b Bitmap) At(x, y int) bool {
	if !b.inside(x, y) {
		return false
	}
	return b.Pix[y*b.Width+x]
}

// Set writes a pixel. Writes outside the bitmap are ignored.
func (b Bitmap) Set(x, y int, on bool) {
	if !b.inside(x, y) {
		return
	}
	b.Pix[y*b.Width+x] = on
}

// Bits flattens the bitmap into a 0/1 sequence
func (b Bitmap) Bits() []uint8 {
	bits := make([]uint8, len(b.Pix))
	for i, on := range b.Pix {
		if on {
			bits[i] = 1
		}
	}
	return bits
}

// Rows returns the bitmap as a matrix of rows
func (b Bitmap) Rows() [][]bool {
	rows := make([][]bool, b.Height)
	for y := range rows {
		rows[y] = make([]bool, b.Width)
		copy(rows[y], b.Pix[y*b.Width:(y+1)*b.Width])
	}
	return rows
}

// Clone returns a deep copy
func (b Bitmap) Clone() Bitmap {
	c := Bitmap{Width: b.Width, Height: b.Height, Pix: make([]bool, len(b.Pix))}
	copy(c.Pix, b.Pix)
	return c
}

// Equal reports whether both bitmaps have the same size and pixels
func (b Bitmap) Equal(o Bitmap) bool {
	if b.Width != o.Width || b.Height != o.Height || len(b.Pix) != len(o.Pix) {
		return false
	}
	for i := range b.Pix {
		if b.Pix[i] != o.Pix[i] {
			return false
		}
	}
	return true
}

// Invert returns a copy with every pixel flipped
func (b Bitmap) Invert() Bitmap {
	c := b.Clone()
	for i := range c.Pix {
		c.Pix[i] = !c.Pix[i]
	}
	return c
}

// Fill sets every pixel to on
func (b Bitmap) Fill(on bool) {
	for i := range b.Pix {
		b.Pix[i] = on
	}
}

// Blit copies the on pixels of src onto b with src's top-left corner at
// (dx, dy). Pixels falling outside b are clipped.
func (b Bitmap) Blit(src Bitmap, dx, dy int) {
	for y := 0; y < src.Height; y++ {
		ty := y + dy
		if ty < 0 || ty >= b.Height {
			continue
		}
		for x := 0; x < src.Width; x++ {
			if src.Pix[y*src.Width+x] {
				b.Set(x+dx, ty, true)
			}
		}
	}
}

// Count returns the number of on pixels
func (b Bitmap) Count() int {
	n := 0
	for _, on := range b.Pix {
		if on {
			n++
		}
	}
	return n
}

// String renders the bitmap with '#' and '.' characters
func (b Bitmap) String() string {
	var sb strings.Builder
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			if b.Pix[y*b.Width+x] {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		if y < b.Height-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

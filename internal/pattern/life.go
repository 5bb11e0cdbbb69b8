package pattern

import "github.com/koios/flipdot-renderer/internal/bitmap"

// Life is a Conway (B3/S23) board on a torus. The starting board and every
// reseed are derived from the hash, so generation n is fully determined by
// the options.
type Life struct {
	board      bitmap.Bitmap
	density    float64
	seed       float64
	generation int
}

// NewLife seeds a board at the options' density
func NewLife(width, height int, o Options) *Life {
	o = withDefaults(GameOfLife, o)
	l := &Life{
		density: o.density,
		seed:    o.Seed,
	}
	l.board = l.seedBoard(width, height, 0)
	return l
}

func (l *Life) seedBoard(width, height, generation int) bitmap.Bitmap {
	b := bitmap.New(width, height)
	s := l.seed + float64(generation)*0.618
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if Hash(float64(x)+s*17, float64(y)+s*31) < l.density {
				b.Set(x, y, true)
			}
		}
	}
	return b
}

// Board returns a copy of the current generation
func (l *Life) Board() bitmap.Bitmap {
	return l.board.Clone()
}

// Generation returns the number of steps taken
func (l *Life) Generation() int {
	return l.generation
}

// Step advances one generation. A board that dies out is reseeded so the
// animation never goes dark.
func (l *Life) Step() {
	w, h := l.board.Width, l.board.Height
	next := bitmap.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					if l.board.At(mod(x+dx, w), mod(y+dy, h)) {
						n++
					}
				}
			}
			alive := l.board.At(x, y)
			next.Set(x, y, n == 3 || (alive && n == 2))
		}
	}
	l.generation++
	if next.Count() == 0 {
		next = l.seedBoard(w, h, l.generation)
	}
	l.board = next
}

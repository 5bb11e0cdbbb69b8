package pattern

import (
	"math"

	"github.com/koios/flipdot-renderer/internal/bitmap"
)

// wave draws a sine curve across the display. Horizontal waves run along x
// and displace y; vertical waves swap the axes.
func wave(width, height, frame int, o Options) bitmap.Bitmap {
	b := bitmap.New(width, height)
	along, across := width, height
	if o.Direction == "vertical" {
		along, across = height, width
	}

	mid := float64(across-1) / 2
	amp := o.Amplitude
	if amp <= 0 {
		amp = mid
	}
	phase := float64(frame) * o.Speed * 0.3

	for i := 0; i < along; i++ {
		j := int(math.Round(mid + amp*math.Sin(float64(i)*o.Frequency+phase)))
		if o.Direction == "vertical" {
			b.Set(j, i, true)
		} else {
			b.Set(i, j, true)
		}
	}
	return b
}

// rain drops a streak of Length dots down each gated column. The gate and
// the start offset come from the column's hash, so columns stay stable
// across frames.
func rain(width, height, frame int, o Options) bitmap.Bitmap {
	b := bitmap.New(width, height)
	period := height + o.Length
	for x := 0; x < width; x++ {
		if Hash(float64(x), o.Seed) >= o.density {
			continue
		}
		offset := int(Hash(float64(x), o.Seed+1) * float64(period))
		head := mod(int(float64(frame)*o.Speed)+offset, period)
		for i := 0; i < o.Length; i++ {
			b.Set(x, head-i, true)
		}
	}
	return b
}

// spiral lights the positive half of a rotating arm function over polar
// coordinates
func spiral(width, height, frame int, o Options) bitmap.Bitmap {
	b := bitmap.New(width, height)
	cx, cy := center(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			angle := math.Atan2(dy, dx)
			radius := math.Hypot(dx, dy)
			v := math.Sin(float64(o.Arms)*angle + radius*o.Frequency - float64(frame)*o.Speed*0.3)
			if v > 0 {
				b.Set(x, y, true)
			}
		}
	}
	return b
}

// checkerboard alternates Size-wide cells; the phase inverts every 5 frames
func checkerboard(width, height, frame int, o Options) bitmap.Bitmap {
	b := bitmap.New(width, height)
	inverted := (frame/5)%2 == 1
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			even := (x/o.Size+y/o.Size)%2 == 0
			b.Set(x, y, even != inverted)
		}
	}
	return b
}

// random thresholds a per-pixel, per-frame hash against Density
func random(width, height, frame int, o Options) bitmap.Bitmap {
	b := bitmap.New(width, height)
	f := float64(frame)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if Hash(float64(x)+f*7.31, float64(y)+f*1.13+o.Seed*3.7) < o.density {
				b.Set(x, y, true)
			}
		}
	}
	return b
}

// expand grows a ring from the center, wrapping at the maximum radius.
// Shape "square" uses Chebyshev distance.
func expand(width, height, frame int, o Options) bitmap.Bitmap {
	b := bitmap.New(width, height)
	cx, cy := center(width, height)

	square := o.Shape == "square"
	maxRadius := math.Hypot(float64(width)/2, float64(height)/2)
	if square {
		maxRadius = math.Max(float64(width), float64(height)) / 2
	}
	radius := math.Mod(float64(frame)*o.Speed, maxRadius)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dx, dy := math.Abs(float64(x)-cx), math.Abs(float64(y)-cy)
			d := math.Hypot(dx, dy)
			if square {
				d = math.Max(dx, dy)
			}
			if math.Abs(d-radius) < 0.8 {
				b.Set(x, y, true)
			}
		}
	}
	return b
}

// gameOfLife returns generation `frame` of a board seeded from the hash.
// With Reseed set it falls back to a fresh density field per frame, the
// output of older servers.
func gameOfLife(width, height, frame int, o Options) bitmap.Bitmap {
	if o.Reseed {
		b := bitmap.New(width, height)
		f := float64(frame)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				if Hash(float64(x)+f*13.7, float64(y)+f*7.1+o.Seed) < o.density {
					b.Set(x, y, true)
				}
			}
		}
		return b
	}

	life := NewLife(width, height, o)
	for i := 0; i < frame; i++ {
		life.Step()
	}
	return life.Board()
}

// matrix drops bounded trails down gated columns, each column at its own
// hashed speed
func matrix(width, height, frame int, o Options) bitmap.Bitmap {
	b := bitmap.New(width, height)
	period := height + o.Length
	for x := 0; x < width; x++ {
		fx := float64(x)
		if Hash(fx, o.Seed+3) >= o.density {
			continue
		}
		speed := o.Speed * (0.5 + Hash(fx, o.Seed+5))
		offset := Hash(fx, o.Seed+7) * float64(period)
		head := mod(int(float64(frame)*speed+offset), period)
		for i := 0; i < o.Length; i++ {
			b.Set(x, head-i, true)
		}
	}
	return b
}

// sparkle lights a hashed subset of pixels for a 2-frame window once per
// Length-frame cycle, each pixel at its own hashed phase
func sparkle(width, height, frame int, o Options) bitmap.Bitmap {
	const window = 2
	b := bitmap.New(width, height)
	period := o.Length
	if period <= window {
		period = window + 1
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			fx, fy := float64(x), float64(y)
			if Hash(fx+o.Seed, fy) >= o.density {
				continue
			}
			phase := int(Hash(fy+o.Seed, fx) * float64(period))
			if mod(frame+phase, period) < window {
				b.Set(x, y, true)
			}
		}
	}
	return b
}

// pulse fills a disc whose radius breathes sinusoidally
func pulse(width, height, frame int, o Options) bitmap.Bitmap {
	b := bitmap.New(width, height)
	cx, cy := center(width, height)
	maxRadius := math.Hypot(float64(width)/2, float64(height)/2)
	radius := (math.Sin(float64(frame)*o.Speed*0.3) + 1) / 2 * maxRadius
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if math.Hypot(float64(x)-cx, float64(y)-cy) <= radius {
				b.Set(x, y, true)
			}
		}
	}
	return b
}

// scan bounces a one-pixel beam between the edges, leaving a one-pixel trail
// at its previous position. The first frame has no trail.
func scan(width, height, frame int, o Options) bitmap.Bitmap {
	b := bitmap.New(width, height)
	vertical := o.Direction == "vertical"
	n := width
	if vertical {
		n = height
	}

	position := func(f int) int {
		if n <= 1 {
			return 0
		}
		period := 2 * (n - 1)
		p := mod(int(float64(f)*o.Speed), period)
		if p < n {
			return p
		}
		return period - p
	}

	positions := []int{position(frame)}
	if frame > 0 {
		positions = append(positions, position(frame-1))
	}
	for _, pos := range positions {
		if vertical {
			for x := 0; x < width; x++ {
				b.Set(x, pos, true)
			}
		} else {
			for y := 0; y < height; y++ {
				b.Set(pos, y, true)
			}
		}
	}
	return b
}

// fire scales a flickering per-pixel hash by heat that falls off towards
// the top of the display
func fire(width, height, frame int, o Options) bitmap.Bitmap {
	b := bitmap.New(width, height)
	threshold := 1 - o.density
	f := float64(frame) * o.Speed
	for y := 0; y < height; y++ {
		heat := float64(y+1) / float64(height)
		for x := 0; x < width; x++ {
			intensity := Hash(float64(x)+f*0.37, float64(y)*1.7+f)
			if intensity*heat > threshold {
				b.Set(x, y, true)
			}
		}
	}
	return b
}

// snake follows a figure-eight path; the body is Length samples trailing
// the head
func snake(width, height, frame int, o Options) bitmap.Bitmap {
	const step = 0.15
	b := bitmap.New(width, height)
	cx, cy := center(width, height)
	rx, ry := float64(width-1)/2, float64(height-1)/2
	head := float64(frame) * o.Speed * step
	for i := 0; i < o.Length; i++ {
		t := head - float64(i)*step
		x := int(math.Round(cx + rx*math.Sin(t)))
		y := int(math.Round(cy + ry*math.Sin(2*t)))
		b.Set(x, y, true)
	}
	return b
}

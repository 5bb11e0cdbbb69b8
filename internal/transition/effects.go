package transition

import (
	"math"

	"github.com/koios/flipdot-renderer/internal/bitmap"
	"github.com/koios/flipdot-renderer/internal/pattern"
)

// 4x4 Bayer threshold matrix
var bayer = [4][4]float64{
	{0, 8, 2, 10},
	{12, 4, 14, 6},
	{3, 11, 1, 9},
	{15, 7, 13, 5},
}

const blindsStagger = 0.5

// mix takes each pixel from to where reveal is true and from elsewhere
func mix(from, to bitmap.Bitmap, reveal func(x, y int) bool) bitmap.Bitmap {
	out := bitmap.New(from.Width, from.Height)
	for y := 0; y < from.Height; y++ {
		for x := 0; x < from.Width; x++ {
			if reveal(x, y) {
				out.Set(x, y, to.At(x, y))
			} else {
				out.Set(x, y, from.At(x, y))
			}
		}
	}
	return out
}

func wipe(from, to bitmap.Bitmap, p float64, o Options) bitmap.Bitmap {
	w, h := from.Width, from.Height
	return mix(from, to, func(x, y int) bool {
		switch o.Direction {
		case Right, Horizontal:
			return float64(x) < p*float64(w)
		case Up:
			return float64(h-1-y) < p*float64(h)
		case Down, Vertical:
			return float64(y) < p*float64(h)
		default:
			return float64(w-1-x) < p*float64(w)
		}
	})
}

func fade(from, to bitmap.Bitmap, p float64, _ Options) bitmap.Bitmap {
	threshold := p * 16
	return mix(from, to, func(x, y int) bool {
		return bayer[y%4][x%4] < threshold
	})
}

func dissolve(from, to bitmap.Bitmap, p float64, o Options) bitmap.Bitmap {
	return mix(from, to, func(x, y int) bool {
		return pattern.Hash(float64(x)+o.Seed*7.7, float64(y)+o.Seed*3.3) < p
	})
}

// slide pushes from out towards the direction edge while to follows it in
// from the opposite edge
func slide(from, to bitmap.Bitmap, p float64, o Options) bitmap.Bitmap {
	w, h := from.Width, from.Height
	out := bitmap.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var on bool
			switch o.Direction {
			case Right, Horizontal:
				off := int(math.Round(p * float64(w)))
				if sx := x - off; sx >= 0 {
					on = from.At(sx, y)
				} else {
					on = to.At(sx+w, y)
				}
			case Up:
				off := int(math.Round(p * float64(h)))
				if sy := y + off; sy < h {
					on = from.At(x, sy)
				} else {
					on = to.At(x, sy-h)
				}
			case Down, Vertical:
				off := int(math.Round(p * float64(h)))
				if sy := y - off; sy >= 0 {
					on = from.At(x, sy)
				} else {
					on = to.At(x, sy+h)
				}
			default:
				off := int(math.Round(p * float64(w)))
				if sx := x + off; sx < w {
					on = from.At(sx, y)
				} else {
					on = to.At(sx-w, y)
				}
			}
			out.Set(x, y, on)
		}
	}
	return out
}

// checkerboard reveals even cells during the middle half of the transition
// and odd cells after it
func checkerboard(from, to bitmap.Bitmap, p float64, o Options) bitmap.Bitmap {
	return mix(from, to, func(x, y int) bool {
		switch {
		case p < 0.25:
			return false
		case p < 0.75:
			return (x/o.Size+y/o.Size)%2 == 0
		default:
			return true
		}
	})
}

// blinds splits the display into bands that open one after another; each
// band starts later by its share of the stagger
func blinds(from, to bitmap.Bitmap, p float64, o Options) bitmap.Bitmap {
	vertical := o.Direction == Vertical || o.Direction == Left || o.Direction == Right
	dim := from.Height
	if vertical {
		dim = from.Width
	}
	bands := o.Bands
	if bands > dim {
		bands = dim
	}
	if bands < 1 {
		bands = 1
	}
	size := (dim + bands - 1) / bands

	return mix(from, to, func(x, y int) bool {
		pos := y
		if vertical {
			pos = x
		}
		band, offset := pos/size, pos%size
		bp := (p - blindsStagger*float64(band)/float64(bands)) / (1 - blindsStagger)
		bp = math.Max(0, math.Min(1, bp))
		return float64(offset) < bp*float64(size)
	})
}

func centerOut(from, to bitmap.Bitmap, p float64, _ Options) bitmap.Bitmap {
	cx, cy := float64(from.Width-1)/2, float64(from.Height-1)/2
	maxRadius := math.Hypot(cx, cy)
	return mix(from, to, func(x, y int) bool {
		return math.Hypot(float64(x)-cx, float64(y)-cy) < p*maxRadius
	})
}

func corners(from, to bitmap.Bitmap, p float64, _ Options) bitmap.Bitmap {
	w, h := float64(from.Width-1), float64(from.Height-1)
	maxDist := math.Hypot(w/2, h/2)
	return mix(from, to, func(x, y int) bool {
		fx, fy := float64(x), float64(y)
		d := math.Min(
			math.Min(math.Hypot(fx, fy), math.Hypot(w-fx, fy)),
			math.Min(math.Hypot(fx, h-fy), math.Hypot(w-fx, h-fy)),
		)
		return d < p*maxDist
	})
}

// spiral averages the normalized polar angle and radius, so the reveal
// sweeps around while moving outwards
func spiral(from, to bitmap.Bitmap, p float64, _ Options) bitmap.Bitmap {
	cx, cy := float64(from.Width-1)/2, float64(from.Height-1)/2
	maxRadius := math.Hypot(cx, cy)
	if maxRadius == 0 {
		maxRadius = 1
	}
	return mix(from, to, func(x, y int) bool {
		dx, dy := float64(x)-cx, float64(y)-cy
		angle := (math.Atan2(dy, dx) + math.Pi) / (2 * math.Pi)
		radius := math.Hypot(dx, dy) / maxRadius
		return (angle+radius)/2 < p
	})
}

package pattern

import "math"

// Hash is the deterministic trigonometric hash shared by the pattern and
// transition generators: fract(sin(a*12.9898 + b*78.233) * 43758.5453).
// The formula is part of the output contract; changing any constant changes
// every cached bitmap.
func Hash(a, b float64) float64 {
	v := math.Sin(a*12.9898+b*78.233) * 43758.5453
	return v - math.Floor(v)
}

func center(width, height int) (float64, float64) {
	return float64(width-1) / 2, float64(height-1) / 2
}

func mod(a, n int) int {
	if n <= 0 {
		return 0
	}
	return ((a % n) + n) % n
}

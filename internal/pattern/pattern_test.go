package pattern

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestHashIsDeterministicAndBounded(t *testing.T) {
	for i := 0; i < 200; i++ {
		a, b := float64(i)*0.7, float64(i%13)
		v1, v2 := Hash(a, b), Hash(a, b)
		if v1 != v2 {
			t.Fatalf("Hash(%v, %v) not deterministic: %v != %v", a, b, v1, v2)
		}
		if v1 < 0 || v1 >= 1 {
			t.Fatalf("Hash(%v, %v) = %v, want [0,1)", a, b, v1)
		}
	}
}

func TestWaveDeterminism(t *testing.T) {
	a, err := Generate(Wave, 28, 14, 5, Options{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, err := Generate(Wave, 28, 14, 5, Options{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !a.Equal(b) {
		t.Fatalf("wave(28,14,5) differs between calls:\n%s\n\n%s", a, b)
	}
	if a.Width != 28 || a.Height != 14 {
		t.Errorf("size = %dx%d", a.Width, a.Height)
	}
}

func TestEveryGeneratorIsPure(t *testing.T) {
	for _, typ := range Types() {
		if typ == Script {
			continue
		}
		t.Run(string(typ), func(t *testing.T) {
			for frame := 0; frame < 12; frame++ {
				first, err := Generate(typ, 28, 14, frame, Options{Seed: 2})
				if err != nil {
					t.Fatalf("Generate: %v", err)
				}
				// render a different frame in between to catch hidden state
				if _, err := Generate(typ, 28, 14, frame+7, Options{Seed: 2}); err != nil {
					t.Fatalf("Generate: %v", err)
				}
				again, _ := Generate(typ, 28, 14, frame, Options{Seed: 2})
				if !first.Equal(again) {
					t.Fatalf("frame %d not reproducible", frame)
				}
				if first.Width != 28 || first.Height != 14 {
					t.Fatalf("frame %d size = %dx%d", frame, first.Width, first.Height)
				}
			}
		})
	}
}

func TestGeneratorsAnimate(t *testing.T) {
	for _, typ := range []Type{Wave, Rain, Spiral, Checkerboard, Random, Expand, GameOfLife, Matrix, Sparkle, Pulse, Scan, Fire, Snake} {
		t.Run(string(typ), func(t *testing.T) {
			first, _ := Generate(typ, 28, 14, 0, Options{})
			changed := false
			for frame := 1; frame < 20 && !changed; frame++ {
				b, _ := Generate(typ, 28, 14, frame, Options{})
				changed = !b.Equal(first)
			}
			if !changed {
				t.Errorf("%s produced the same bitmap for 20 frames", typ)
			}
		})
	}
}

func TestCheckerboardPhase(t *testing.T) {
	f0, _ := Generate(Checkerboard, 8, 4, 0, Options{Size: 1})
	f4, _ := Generate(Checkerboard, 8, 4, 4, Options{Size: 1})
	f5, _ := Generate(Checkerboard, 8, 4, 5, Options{Size: 1})

	if !f0.Equal(f4) {
		t.Error("phase must hold for the first 5 frames")
	}
	if !f5.Equal(f0.Invert()) {
		t.Errorf("frame 5 should invert frame 0:\n%s\n\n%s", f0, f5)
	}
	if !f0.At(0, 0) || f0.At(1, 0) {
		t.Errorf("unexpected cell parity:\n%s", f0)
	}
}

func TestScanBeamAndTrail(t *testing.T) {
	b, _ := Generate(Scan, 10, 3, 3, Options{})
	for y := 0; y < 3; y++ {
		if !b.At(3, y) || !b.At(2, y) {
			t.Fatalf("expected beam at x=3 and trail at x=2:\n%s", b)
		}
	}
	if b.Count() != 6 {
		t.Errorf("Count = %d, want 6", b.Count())
	}

	first, _ := Generate(Scan, 10, 3, 0, Options{})
	if first.Count() != 3 || !first.At(0, 1) {
		t.Errorf("frame 0 should show only the beam at x=0:\n%s", first)
	}

	// after reaching the right edge the beam travels back
	back, _ := Generate(Scan, 10, 3, 11, Options{})
	if !back.At(7, 0) || !back.At(8, 0) {
		t.Errorf("expected beam at x=7 with trail at x=8:\n%s", back)
	}
}

func TestExpandRingWraps(t *testing.T) {
	a, _ := Generate(Expand, 9, 9, 0, Options{Shape: "square"})
	if !a.At(4, 4) {
		t.Errorf("ring should start at the center:\n%s", a)
	}
	b, _ := Generate(Expand, 9, 9, 2, Options{Shape: "square"})
	if !b.At(2, 2) || !b.At(6, 4) || b.At(4, 4) {
		t.Errorf("square ring of radius 2 expected:\n%s", b)
	}
}

func TestPulseBreathes(t *testing.T) {
	small, _ := Generate(Pulse, 28, 14, 16, Options{})
	large, _ := Generate(Pulse, 28, 14, 5, Options{})
	if small.Count() >= large.Count() {
		t.Errorf("expected frame 5 (%d dots) to be larger than frame 16 (%d dots)", large.Count(), small.Count())
	}
}

func TestSnakeLength(t *testing.T) {
	b, _ := Generate(Snake, 28, 14, 10, Options{Length: 5})
	if b.Count() == 0 || b.Count() > 5 {
		t.Errorf("Count = %d, want 1..5", b.Count())
	}
}

func TestFireIsHotterAtTheBottom(t *testing.T) {
	top, bottom := 0, 0
	for frame := 0; frame < 10; frame++ {
		b, _ := Generate(Fire, 28, 14, frame, Options{})
		for x := 0; x < 28; x++ {
			for y := 0; y < 4; y++ {
				if b.At(x, y) {
					top++
				}
			}
			for y := 10; y < 14; y++ {
				if b.At(x, y) {
					bottom++
				}
			}
		}
	}
	if bottom <= top {
		t.Errorf("bottom rows (%d) should burn more than top rows (%d)", bottom, top)
	}
}

func TestDensityControlsRandom(t *testing.T) {
	sparse, _ := Generate(Random, 28, 14, 3, Options{Density: DensityOf(0.1)})
	dense, _ := Generate(Random, 28, 14, 3, Options{Density: DensityOf(0.9)})
	if sparse.Count() >= dense.Count() {
		t.Errorf("density 0.1 gave %d dots, 0.9 gave %d", sparse.Count(), dense.Count())
	}
}

func TestZeroDensityIsEmpty(t *testing.T) {
	var opts Options
	if err := json.Unmarshal([]byte(`{"density": 0}`), &opts); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if opts.Density == nil {
		t.Fatal("explicit density 0 was dropped")
	}
	for _, typ := range []Type{Random, Rain, Matrix, Sparkle, Fire, GameOfLife} {
		b, err := Generate(typ, 28, 14, 2, opts)
		if err != nil {
			t.Fatalf("%s: %v", typ, err)
		}
		if b.Count() != 0 {
			t.Errorf("%s at density 0 lit %d dots", typ, b.Count())
		}
	}

	// absent density keeps the per-type default
	if b, _ := Generate(Random, 28, 14, 2, Options{}); b.Count() == 0 {
		t.Error("default density produced an empty field")
	}
}

func TestParseType(t *testing.T) {
	if _, err := ParseType("wave"); err != nil {
		t.Errorf("wave: %v", err)
	}
	_, err := ParseType("plasma")
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("err = %v, want ErrUnknownType", err)
	}
	for _, name := range []string{"wave", "gameoflife", "snake", "script"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q should list %q", err, name)
		}
	}
	if len(Types()) != 14 {
		t.Errorf("Types() has %d entries, want 14", len(Types()))
	}
}

func TestFrameCount(t *testing.T) {
	tests := []struct {
		cfg  Config
		want int
	}{
		{Config{DurationMS: 1000, FrameDelayMS: 50}, 20},
		{Config{DurationMS: 100, FrameDelayMS: 1000}, 1},
		{Config{DurationMS: 60000, FrameDelayMS: 20}, 1000},
		{Config{DurationMS: 1000, FrameDelayMS: 0}, 1},
	}
	for _, tt := range tests {
		if got := tt.cfg.FrameCount(); got != tt.want {
			t.Errorf("FrameCount(%+v) = %d, want %d", tt.cfg, got, tt.want)
		}
	}
}

func TestFramesMatchesGenerate(t *testing.T) {
	for _, typ := range []Type{Wave, Matrix, GameOfLife, Sparkle} {
		cfg := Config{Type: typ, DurationMS: 1000, FrameDelayMS: 100, Options: Options{Seed: 4}}
		frames, err := Frames(cfg, 28, 14)
		if err != nil {
			t.Fatalf("Frames(%s): %v", typ, err)
		}
		if len(frames) != 10 {
			t.Fatalf("Frames(%s) = %d frames, want 10", typ, len(frames))
		}
		for i, f := range frames {
			want, _ := Generate(typ, 28, 14, i, cfg.Options)
			if !f.Equal(want) {
				t.Fatalf("%s frame %d differs from Generate", typ, i)
			}
		}
	}
}

func TestFramesRejectsUnknownType(t *testing.T) {
	_, err := Frames(Config{Type: "lava", DurationMS: 1000, FrameDelayMS: 100}, 28, 14)
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("err = %v, want ErrUnknownType", err)
	}
}

package transition

import (
	"errors"
	"strings"
	"testing"

	"github.com/koios/flipdot-renderer/internal/bitmap"
)

func blankAndFull(w, h int) (bitmap.Bitmap, bitmap.Bitmap) {
	from := bitmap.New(w, h)
	to := bitmap.New(w, h)
	to.Fill(true)
	return from, to
}

func TestFrameCountAndFinalProgress(t *testing.T) {
	from, to := blankAndFull(28, 14)
	cfg := Config{Type: Dissolve, DurationMS: 1000, FrameDelayMS: 50}

	if got := cfg.FrameCount(); got != 20 {
		t.Fatalf("FrameCount() = %d, want 20", got)
	}
	if got := Progress(19, 20); got != 1.0 {
		t.Fatalf("final progress = %v, want 1.0", got)
	}

	frames, err := Frames(cfg, from, to)
	if err != nil {
		t.Fatalf("Frames: %v", err)
	}
	if len(frames) != 20 {
		t.Fatalf("got %d frames, want 20", len(frames))
	}
	if !frames[19].Equal(to) {
		t.Errorf("final frame should equal the target:\n%s", frames[19])
	}
}

func TestEveryTypeEndsOnTarget(t *testing.T) {
	from := bitmap.MustParse(
		"#.#.#.#.",
		".#.#.#.#",
		"#.#.#.#.",
		".#.#.#.#",
	)
	to := from.Invert()
	for _, typ := range Types() {
		t.Run(string(typ), func(t *testing.T) {
			frames, err := Frames(Config{Type: typ, DurationMS: 500, FrameDelayMS: 100}, from, to)
			if err != nil {
				t.Fatalf("Frames: %v", err)
			}
			if len(frames) != 5 {
				t.Fatalf("got %d frames, want 5", len(frames))
			}
			if !frames[len(frames)-1].Equal(to) {
				t.Errorf("last frame is not the target:\n%s", frames[len(frames)-1])
			}
			start, _ := Generate(typ, from, to, 0, Options{})
			if !start.Equal(from) {
				t.Errorf("progress 0 is not the source")
			}
		})
	}
}

func TestEffectsArePure(t *testing.T) {
	from, to := blankAndFull(28, 14)
	for _, typ := range Types() {
		a, _ := Generate(typ, from, to, 0.4, Options{Seed: 1})
		_, _ = Generate(typ, from, to, 0.9, Options{Seed: 1})
		b, _ := Generate(typ, from, to, 0.4, Options{Seed: 1})
		if !a.Equal(b) {
			t.Errorf("%s: same progress produced different frames", typ)
		}
	}
}

func TestRevealIsMonotonic(t *testing.T) {
	from, to := blankAndFull(28, 14)
	for _, typ := range []Type{Wipe, Fade, Dissolve, CenterOut, Corners, Spiral, Blinds, Checkerboard} {
		prev := 0
		for i := 0; i < 10; i++ {
			b, _ := Generate(typ, from, to, Progress(i, 10), Options{})
			if b.Count() < prev {
				t.Errorf("%s: frame %d shows fewer target pixels (%d) than frame %d (%d)", typ, i, b.Count(), i-1, prev)
			}
			prev = b.Count()
		}
	}
}

func TestWipeDirections(t *testing.T) {
	from, to := blankAndFull(4, 4)
	tests := []struct {
		dir  string
		want bitmap.Bitmap
	}{
		{Left, bitmap.MustParse("..##", "..##", "..##", "..##")},
		{Right, bitmap.MustParse("##..", "##..", "##..", "##..")},
		{Down, bitmap.MustParse("####", "####", "....", "....")},
		{Up, bitmap.MustParse("....", "....", "####", "####")},
	}
	for _, tt := range tests {
		t.Run(tt.dir, func(t *testing.T) {
			got, _ := Generate(Wipe, from, to, 0.5, Options{Direction: tt.dir})
			if !got.Equal(tt.want) {
				t.Errorf("got\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestFadeUsesBayerThresholds(t *testing.T) {
	from, to := blankAndFull(8, 8)
	half, _ := Generate(Fade, from, to, 0.5, Options{})
	if half.Count() != 32 {
		t.Errorf("half fade lit %d of 64 pixels, want 32", half.Count())
	}
	quarter, _ := Generate(Fade, from, to, 0.25, Options{})
	if quarter.Count() != 16 {
		t.Errorf("quarter fade lit %d of 64 pixels, want 16", quarter.Count())
	}
	first, _ := Generate(Fade, from, to, 1.0/16, Options{})
	if !first.At(0, 0) || first.At(1, 0) || !first.At(4, 4) || first.Count() != 4 {
		t.Errorf("only the zero threshold cells should show:\n%s", first)
	}
}

func TestSlideMovesContent(t *testing.T) {
	from := bitmap.MustParse("##..")
	to := bitmap.MustParse("#...")
	tests := []struct {
		dir      string
		progress float64
		want     string
	}{
		{Left, 0.5, "..#."},
		{Left, 0.25, "#..#"},
		{Right, 0.5, "..##"},
	}
	for _, tt := range tests {
		got, _ := Generate(Slide, from, to, tt.progress, Options{Direction: tt.dir})
		if want := bitmap.MustParse(tt.want); !got.Equal(want) {
			t.Errorf("%s at %v: got %s, want %s", tt.dir, tt.progress, got, want)
		}
	}

	col := bitmap.MustParse("#", ".", ".", ".")
	blank := bitmap.New(1, 4)
	got, _ := Generate(Slide, col, blank, 0.5, Options{Direction: Down})
	if want := bitmap.MustParse(".", ".", "#", "."); !got.Equal(want) {
		t.Errorf("down: got\n%s\nwant\n%s", got, want)
	}
}

func TestCheckerboardPhases(t *testing.T) {
	from, to := blankAndFull(8, 8)
	early, _ := Generate(Checkerboard, from, to, 0.2, Options{})
	if early.Count() != 0 {
		t.Errorf("nothing should be revealed before 0.25")
	}
	mid, _ := Generate(Checkerboard, from, to, 0.5, Options{})
	if mid.Count() != 32 || !mid.At(0, 0) || mid.At(4, 0) {
		t.Errorf("even cells should be revealed at 0.5:\n%s", mid)
	}
	late, _ := Generate(Checkerboard, from, to, 0.8, Options{})
	if late.Count() != 64 {
		t.Errorf("everything should be revealed after 0.75")
	}
}

func TestCenterOutStartsInTheMiddle(t *testing.T) {
	from, to := blankAndFull(9, 9)
	b, _ := Generate(CenterOut, from, to, 0.1, Options{})
	if !b.At(4, 4) || b.At(0, 0) {
		t.Errorf("expected only the center:\n%s", b)
	}
	c, _ := Generate(Corners, from, to, 0.1, Options{})
	if !c.At(0, 0) || !c.At(8, 8) || c.At(4, 4) {
		t.Errorf("expected only the corners:\n%s", c)
	}
}

func TestBlindsOpenInOrder(t *testing.T) {
	from, to := blankAndFull(4, 8)
	b, _ := Generate(Blinds, from, to, 0.25, Options{Bands: 2})
	// the first band is half open, the second has not started
	want := bitmap.MustParse("####", "####", "....", "....", "....", "....", "....", "....")
	if !b.Equal(want) {
		t.Errorf("got\n%s\nwant\n%s", b, want)
	}
}

func TestDissolveSeedChangesOrder(t *testing.T) {
	from, to := blankAndFull(28, 14)
	a, _ := Generate(Dissolve, from, to, 0.5, Options{Seed: 1})
	b, _ := Generate(Dissolve, from, to, 0.5, Options{Seed: 2})
	if a.Equal(b) {
		t.Error("different seeds should dissolve in a different order")
	}
}

func TestGenerateErrors(t *testing.T) {
	from, _ := blankAndFull(4, 4)
	other := bitmap.New(5, 4)
	if _, err := Generate(Fade, from, other, 0.5, Options{}); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("err = %v, want ErrSizeMismatch", err)
	}
	_, err := Generate("zoom", from, from, 0.5, Options{})
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("err = %v, want ErrUnknownType", err)
	}
	if !strings.Contains(err.Error(), "center_out") {
		t.Errorf("error should list valid types: %v", err)
	}
}

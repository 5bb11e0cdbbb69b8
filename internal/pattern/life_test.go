package pattern

import (
	"testing"

	"github.com/koios/flipdot-renderer/internal/bitmap"
)

func TestLifeBlinker(t *testing.T) {
	l := &Life{board: bitmap.MustParse(
		".....",
		"..#..",
		"..#..",
		"..#..",
		".....",
	)}
	l.Step()
	want := bitmap.MustParse(
		".....",
		".....",
		".###.",
		".....",
		".....",
	)
	if !l.Board().Equal(want) {
		t.Fatalf("got\n%s\nwant\n%s", l.Board(), want)
	}
	l.Step()
	if l.Board().Count() != 3 || !l.Board().At(2, 1) {
		t.Fatalf("blinker should oscillate back:\n%s", l.Board())
	}
	if l.Generation() != 2 {
		t.Errorf("Generation = %d, want 2", l.Generation())
	}
}

func TestLifeWrapsAroundEdges(t *testing.T) {
	l := &Life{board: bitmap.MustParse(
		"#...#",
		".....",
		".....",
		".....",
		"#....",
	)}
	l.Step()
	// three corner cells are neighbours on a torus, so (4,4) is born
	if !l.Board().At(4, 4) {
		t.Errorf("expected birth across the wrapped corner:\n%s", l.Board())
	}
}

func TestLifeReseedsWhenExtinct(t *testing.T) {
	l := &Life{board: bitmap.MustParse("#....", ".....", "....."), density: 0.5, seed: 1}
	l.Step()
	if l.Board().Count() == 0 {
		t.Error("extinct board should be reseeded")
	}
}

func TestGameOfLifeEvolves(t *testing.T) {
	o := withDefaults(GameOfLife, Options{Seed: 3})
	life := NewLife(28, 14, o)
	for frame := 0; frame < 8; frame++ {
		want := life.Board()
		got := gameOfLife(28, 14, frame, o)
		if !got.Equal(want) {
			t.Fatalf("frame %d: pure generator diverged from the threaded board", frame)
		}
		life.Step()
	}
}

func TestGameOfLifeReseedOption(t *testing.T) {
	o := withDefaults(GameOfLife, Options{Reseed: true})
	a := gameOfLife(28, 14, 4, o)
	b := gameOfLife(28, 14, 4, o)
	if !a.Equal(b) {
		t.Error("reseed mode must be deterministic")
	}
	frames, err := Frames(Config{Type: GameOfLife, DurationMS: 500, FrameDelayMS: 100, Options: Options{Reseed: true}}, 28, 14)
	if err != nil {
		t.Fatalf("Frames: %v", err)
	}
	if !frames[4].Equal(a) {
		t.Error("Frames in reseed mode should match the per-index generator")
	}
}

package source

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/koios/flipdot-renderer/internal/codec"
	"github.com/koios/flipdot-renderer/internal/font"
	"github.com/koios/flipdot-renderer/internal/paint"
	"github.com/koios/flipdot-renderer/internal/pattern"
	"github.com/koios/flipdot-renderer/internal/transition"
	"github.com/koios/flipdot-renderer/pkg/models"
	"go.uber.org/zap"
)

func testEnv() Env {
	return Env{
		Fonts:  font.NewStore("", zap.NewNop()),
		Width:  28,
		Height: 14,
	}
}

var testNow = time.Date(2024, 1, 2, 9, 30, 15, 0, time.UTC)

func generate(t *testing.T, v Variant) models.Content {
	t.Helper()
	s := &Source{ID: "s1", Priority: 50, TTLMS: 60000, Variant: v}
	c, err := s.Generate(context.Background(), testEnv(), testNow)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return c
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		src     Source
		wantErr bool
	}{
		{"valid", Source{ID: "a", Priority: 50, TTLMS: 60000, Variant: &Clock{}}, false},
		{"bounds", Source{ID: "a", Priority: 99, TTLMS: 1000, Variant: &Clock{}}, false},
		{"missing id", Source{Priority: 50, TTLMS: 60000, Variant: &Clock{}}, true},
		{"missing variant", Source{ID: "a", Priority: 50, TTLMS: 60000}, true},
		{"priority too high", Source{ID: "a", Priority: 100, TTLMS: 60000, Variant: &Clock{}}, true},
		{"negative priority", Source{ID: "a", Priority: -1, TTLMS: 60000, Variant: &Clock{}}, true},
		{"ttl too short", Source{ID: "a", Priority: 1, TTLMS: 999, Variant: &Clock{}}, true},
		{"ttl too long", Source{ID: "a", Priority: 1, TTLMS: 3600001, Variant: &Clock{}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.src.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidSource) {
				t.Errorf("error should wrap ErrInvalidSource: %v", err)
			}
		})
	}
}

func TestExpired(t *testing.T) {
	past := testNow.Add(-time.Second)
	future := testNow.Add(time.Second)
	if (&Source{}).Expired(testNow) {
		t.Error("a source without expiry never expires")
	}
	if !(&Source{ExpiresAt: &past}).Expired(testNow) {
		t.Error("past expiry should be expired")
	}
	if (&Source{ExpiresAt: &future}).Expired(testNow) {
		t.Error("future expiry should not be expired")
	}
}

func TestDigitsClock(t *testing.T) {
	c := generate(t, &Clock{Style: ClockDigits})
	if c.ID != "clock-digits-0930" {
		t.Errorf("ID = %q", c.ID)
	}
	if len(c.Frames) != 1 {
		t.Fatalf("got %d frames", len(c.Frames))
	}
	b, err := codec.DecodeFrame(c.Frames[0])
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	f, _ := font.NewStore("", zap.NewNop()).Get("")
	if want := f.RenderStatic("9:30", 28, 14); !b.Equal(want) {
		t.Errorf("got\n%s\nwant\n%s", b, want)
	}

	c24 := generate(t, &Clock{Style: ClockDigits, Hour24: true, Location: time.FixedZone("X", 5*3600)})
	if c24.ID != "clock-digits-1430" {
		t.Errorf("ID = %q, want local time in the zone", c24.ID)
	}
}

func TestDotClock(t *testing.T) {
	face := DotClockFace(13, 7)
	if face.Width != 8 || face.Height != 12 {
		t.Fatalf("face is %dx%d", face.Width, face.Height)
	}
	// 12 + 1 hour dots, 7 minute dots
	if face.Count() != 20 {
		t.Errorf("Count = %d, want 20\n%s", face.Count(), face)
	}
	if !face.At(1, 0) || face.At(1, 1) || face.At(2, 0) {
		t.Errorf("unexpected hour columns:\n%s", face)
	}
	if !face.At(3+1, 1) || face.At(3+2, 1) {
		t.Errorf("unexpected minute columns:\n%s", face)
	}

	c := generate(t, &Clock{Style: ClockDots})
	if c.ID != "clock-dots-0930" {
		t.Errorf("ID = %q", c.ID)
	}
	b, _ := codec.DecodeFrame(c.Frames[0])
	if b.Width != 28 || b.Height != 14 || b.Count() != DotClockFace(9, 30).Count() {
		t.Errorf("unexpected frame:\n%s", b)
	}
	// the face is centered
	if !b.At(10, 1) || b.At(9, 1) {
		t.Errorf("face should start at (10, 1):\n%s", b)
	}
}

func TestStaticText(t *testing.T) {
	c := generate(t, &Text{Text: "HI", Scroll: ScrollAuto})
	if len(c.Frames) != 1 || c.Playback.Loop {
		t.Fatalf("static text should be one frame without looping: %d frames", len(c.Frames))
	}
	again := generate(t, &Text{Text: "HI", Scroll: ScrollAuto})
	if c.ID != again.ID {
		t.Errorf("id changed between calls: %s vs %s", c.ID, again.ID)
	}
	other := generate(t, &Text{Text: "HO", Scroll: ScrollAuto})
	if c.ID == other.ID {
		t.Error("different text must produce a different id")
	}
	if !strings.HasPrefix(c.ID, "text-") {
		t.Errorf("ID = %q", c.ID)
	}
}

func TestScrollingText(t *testing.T) {
	f, _ := font.NewStore("", zap.NewNop()).Get("")
	text := "HELLO WORLD"
	want := 28 + f.Measure(text) + 1

	c := generate(t, &Text{Text: text, Scroll: ScrollAuto, FrameDelayMS: 60})
	if len(c.Frames) != want {
		t.Fatalf("got %d frames, want %d", len(c.Frames), want)
	}
	if !c.Playback.Loop {
		t.Error("scrolling text should loop")
	}
	if d := c.Frames[0].DurationMS; d == nil || *d != 60 {
		t.Errorf("frame duration = %v, want 60", d)
	}

	never := generate(t, &Text{Text: text, Scroll: ScrollNever})
	if len(never.Frames) != 1 {
		t.Errorf("scroll=never gave %d frames", len(never.Frames))
	}

	short := &Text{Text: "A", Scroll: ScrollAlways}
	if short.Kind() != KindScrollingText {
		t.Errorf("Kind = %s", short.Kind())
	}
	if c := generate(t, short); len(c.Frames) != 28+f.Measure("A")+1 {
		t.Errorf("forced scroll gave %d frames", len(c.Frames))
	}
}

func TestTextUnknownFont(t *testing.T) {
	s := &Source{ID: "s", Variant: &Text{Text: "x", Font: "nope"}}
	_, err := s.Generate(context.Background(), testEnv(), testNow)
	if !errors.Is(err, font.ErrFontNotFound) {
		t.Fatalf("err = %v, want ErrFontNotFound", err)
	}
}

func TestPatternSource(t *testing.T) {
	cfg := pattern.Config{Type: pattern.Wave, DurationMS: 1000, FrameDelayMS: 100}
	c := generate(t, &Pattern{Config: cfg})
	if len(c.Frames) != 10 {
		t.Fatalf("got %d frames, want 10", len(c.Frames))
	}
	if !c.Playback.Loop || *c.Frames[3].DurationMS != 100 {
		t.Error("pattern should loop with the frame delay as duration")
	}
	if again := generate(t, &Pattern{Config: cfg}); again.ID != c.ID {
		t.Error("pattern id should be stable")
	}
	cfg.Options.Speed = 2
	if other := generate(t, &Pattern{Config: cfg}); other.ID == c.ID {
		t.Error("different options should change the id")
	}
}

func TestTransitionSource(t *testing.T) {
	v := &Transition{
		Config: transition.Config{Type: transition.Wipe, DurationMS: 1000, FrameDelayMS: 50},
		From:   Endpoint{Text: "A"},
		To:     Endpoint{Text: "B"},
	}
	c := generate(t, v)
	if len(c.Frames) != 20 {
		t.Fatalf("got %d frames, want 20", len(c.Frames))
	}
	if c.Playback.Loop {
		t.Error("transitions play once")
	}
	last, _ := codec.DecodeFrame(c.Frames[19])
	f, _ := font.NewStore("", zap.NewNop()).Get("")
	if !last.Equal(f.RenderStatic("B", 28, 14)) {
		t.Errorf("last frame should show the target:\n%s", last)
	}

	bad := &Source{ID: "t", Variant: &Transition{
		Config: transition.Config{Type: transition.Fade, DurationMS: 1000, FrameDelayMS: 50},
		From:   Endpoint{Bits: []uint8{1, 0, 1}},
	}}
	if _, err := bad.Generate(context.Background(), testEnv(), testNow); !errors.Is(err, codec.ErrInvalidFrameData) {
		t.Errorf("err = %v, want ErrInvalidFrameData", err)
	}
}

func TestPaintBoardSource(t *testing.T) {
	board := paint.NewBoard(28, 14, testNow, nil)
	v := &Paint{Board: board}

	first := generate(t, v)
	if first.ID != "paint-s1-0" {
		t.Errorf("ID = %q", first.ID)
	}
	if err := board.SetPixels([]paint.Pixel{{X: 1, Y: 1, On: true}}, testNow); err != nil {
		t.Fatal(err)
	}
	second := generate(t, v)
	if second.ID == first.ID {
		t.Error("an edit should change the content id")
	}
	b, _ := codec.DecodeFrame(second.Frames[0])
	if !b.At(1, 1) || b.Count() != 1 {
		t.Errorf("unexpected frame:\n%s", b)
	}

	s := &Source{ID: "s1", Variant: v}
	_, err := s.Generate(context.Background(), testEnv(), testNow.Add(paint.InactivityTTL+time.Second))
	if !errors.Is(err, ErrInactive) {
		t.Fatalf("err = %v, want ErrInactive", err)
	}
}

func TestPaintFixedContent(t *testing.T) {
	f, _ := codec.EncodeFrame([]uint8{1, 0, 0, 1}, 2, 2, nil)
	content := models.Content{ID: "user-1", Frames: []models.Frame{f}}
	c := generate(t, &Paint{Content: &content})
	if c.ID != "user-1" {
		t.Errorf("ID = %q", c.ID)
	}

	broken := models.Content{ID: "user-2"}
	s := &Source{ID: "p", Variant: &Paint{Content: &broken}}
	if _, err := s.Generate(context.Background(), testEnv(), testNow); !errors.Is(err, codec.ErrInvalidContent) {
		t.Errorf("err = %v, want ErrInvalidContent", err)
	}
}

func TestGenerateHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &Source{ID: "c", Variant: &Clock{}}
	if _, err := s.Generate(ctx, testEnv(), testNow); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestInfo(t *testing.T) {
	s := &Source{ID: "x", Priority: 80, Interruptible: true, TTLMS: 5000, RegisteredAt: testNow, Variant: &Text{Scroll: ScrollAlways}}
	info := s.Info()
	if info.Type != "scrolling_text" || info.Priority != 80 || info.TTLMS != 5000 || !info.Interruptible {
		t.Errorf("Info() = %+v", info)
	}
}

func TestActive(t *testing.T) {
	board := paint.NewBoard(28, 14, testNow, nil)
	live := &Source{ID: "p", Variant: &Paint{Board: board}}
	if err := live.Active(testNow.Add(time.Minute)); err != nil {
		t.Errorf("board within its idle TTL: %v", err)
	}
	if err := live.Active(testNow.Add(3 * time.Minute)); !errors.Is(err, ErrInactive) {
		t.Errorf("idle board: err = %v, want ErrInactive", err)
	}

	clock := &Source{ID: "c", Variant: &Clock{Style: ClockDigits}}
	if err := clock.Active(testNow.Add(24 * time.Hour)); err != nil {
		t.Errorf("clock: %v", err)
	}
}

package paint

import (
	"errors"
	"testing"
	"time"
)

func TestBoardEdits(t *testing.T) {
	now := time.Unix(1700000000, 0)
	changes := 0
	b := NewBoard(4, 2, now, func() { changes++ })

	if err := b.SetPixels([]Pixel{{X: 0, Y: 0, On: true}, {X: 3, Y: 1, On: true}}, now); err != nil {
		t.Fatalf("SetPixels: %v", err)
	}
	snap, rev, err := b.Snapshot(now)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.String() != "#...\n...#" {
		t.Errorf("board =\n%s", snap)
	}
	if rev != 1 || changes != 1 {
		t.Errorf("revision = %d, changes = %d, want 1 and 1", rev, changes)
	}

	if err := b.SetPixels([]Pixel{{X: 1, Y: 1, On: true}, {X: 4, Y: 0, On: true}}, now); err == nil {
		t.Error("expected error for out of range pixel")
	}
	snap, _, _ = b.Snapshot(now)
	if snap.At(1, 1) {
		t.Error("a rejected batch must not be partially applied")
	}

	b.Fill(true, now)
	snap, _, _ = b.Snapshot(now)
	if snap.Count() != 8 {
		t.Errorf("Fill: Count = %d", snap.Count())
	}
	b.Clear(now)
	snap, _, _ = b.Snapshot(now)
	if snap.Count() != 0 {
		t.Errorf("Clear: Count = %d", snap.Count())
	}

	if err := b.Load([]uint8{1, 0, 1, 0, 0, 1, 0, 1}, now); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := b.Load([]uint8{1, 0}, now); err == nil {
		t.Error("expected error for short bits")
	}
	snap, rev, _ = b.Snapshot(now)
	if snap.String() != "#.#.\n.#.#" || rev != 4 {
		t.Errorf("Load: rev %d board\n%s", rev, snap)
	}

	// the snapshot is a copy
	snap.Set(1, 0, true)
	again, _, _ := b.Snapshot(now)
	if again.At(1, 0) {
		t.Error("snapshot shares storage with the board")
	}
}

func TestBoardExpiresAfterInactivity(t *testing.T) {
	start := time.Unix(1700000000, 0)
	b := NewBoard(2, 2, start, nil)

	if _, _, err := b.Snapshot(start.Add(InactivityTTL)); err != nil {
		t.Fatalf("board should still be live at exactly the TTL: %v", err)
	}
	if got := b.ExpiresAt(); !got.Equal(start.Add(InactivityTTL)) {
		t.Errorf("ExpiresAt = %v", got)
	}

	b.Fill(true, start.Add(time.Minute))
	if b.Expired(start.Add(InactivityTTL + time.Second)) {
		t.Error("an edit should extend the board's life")
	}

	_, _, err := b.Snapshot(start.Add(time.Minute + InactivityTTL + time.Millisecond))
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}
}

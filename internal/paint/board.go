// Package paint holds the live freehand drawing buffer.
package paint

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/koios/flipdot-renderer/internal/bitmap"
)

// InactivityTTL is how long a board stays live without an edit
const InactivityTTL = 2 * time.Minute

// ErrExpired is returned once the board has been idle for longer than its TTL
var ErrExpired = errors.New("paint board expired")

// Pixel is a single dot edit
type Pixel struct {
	X  int  `json:"x"`
	Y  int  `json:"y"`
	On bool `json:"on"`
}

// Board is a display-sized drawing buffer shared between the edit endpoints
// and the paint source. Expiry is checked lazily when the board is read;
// there is no background timer.
type Board struct {
	mu       sync.Mutex
	buf      bitmap.Bitmap
	ttl      time.Duration
	lastEdit time.Time
	revision int
	onChange func()
}

// NewBoard creates a blank board. onChange, if set, runs after every edit.
func NewBoard(width, height int, now time.Time, onChange func()) *Board {
	return &Board{
		buf:      bitmap.New(width, height),
		ttl:      InactivityTTL,
		lastEdit: now,
		onChange: onChange,
	}
}

// SetTTL overrides the inactivity TTL
func (b *Board) SetTTL(ttl time.Duration) {
	b.mu.Lock()
	b.ttl = ttl
	b.mu.Unlock()
}

func (b *Board) touch(now time.Time) {
	b.lastEdit = now
	b.revision++
}

func (b *Board) changed() {
	if b.onChange != nil {
		b.onChange()
	}
}

// SetPixels applies a batch of dot edits. Coordinates outside the board are
// rejected before anything is written.
func (b *Board) SetPixels(pixels []Pixel, now time.Time) error {
	b.mu.Lock()
	for _, p := range pixels {
		if p.X < 0 || p.Y < 0 || p.X >= b.buf.Width || p.Y >= b.buf.Height {
			b.mu.Unlock()
			return fmt.Errorf("pixel (%d, %d) is outside the %dx%d board", p.X, p.Y, b.buf.Width, b.buf.Height)
		}
	}
	for _, p := range pixels {
		b.buf.Set(p.X, p.Y, p.On)
	}
	b.touch(now)
	b.mu.Unlock()

	b.changed()
	return nil
}

// Fill sets every dot
func (b *Board) Fill(on bool, now time.Time) {
	b.mu.Lock()
	b.buf.Fill(on)
	b.touch(now)
	b.mu.Unlock()

	b.changed()
}

// Clear turns every dot off
func (b *Board) Clear(now time.Time) {
	b.Fill(false, now)
}

// Load replaces the whole board with a flat 0/1 sequence
func (b *Board) Load(bits []uint8, now time.Time) error {
	b.mu.Lock()
	next, err := bitmap.FromBits(bits, b.buf.Width, b.buf.Height)
	if err != nil {
		b.mu.Unlock()
		return err
	}
	b.buf = next
	b.touch(now)
	b.mu.Unlock()

	b.changed()
	return nil
}

// Expired reports whether the board has been idle past its TTL
func (b *Board) Expired(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.expiredLocked(now)
}

func (b *Board) expiredLocked(now time.Time) bool {
	return now.Sub(b.lastEdit) > b.ttl
}

// Snapshot returns a copy of the board and its revision, or ErrExpired
func (b *Board) Snapshot(now time.Time) (bitmap.Bitmap, int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.expiredLocked(now) {
		return bitmap.Bitmap{}, 0, ErrExpired
	}
	return b.buf.Clone(), b.revision, nil
}

// ExpiresAt is the moment the board goes inactive without further edits
func (b *Board) ExpiresAt() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastEdit.Add(b.ttl)
}

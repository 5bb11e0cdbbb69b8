package codec

import (
	"encoding/base64"
	"errors"
	"math/rand"
	"testing"

	"github.com/koios/flipdot-renderer/internal/bitmap"
	"github.com/koios/flipdot-renderer/pkg/models"
)

func TestPackKnownVector(t *testing.T) {
	packed, err := Pack([]uint8{1, 0, 1, 0, 1, 1, 0, 0})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if len(packed) != 1 || packed[0] != 0x35 {
		t.Fatalf("Pack = %#v, want [0x35]", packed)
	}
}

func TestPackLength(t *testing.T) {
	tests := []struct {
		pixels int
		bytes  int
	}{
		{0, 0},
		{1, 1},
		{8, 1},
		{9, 2},
		{28 * 14, 49},
		{28 * 7, 25},
	}
	for _, tt := range tests {
		packed, err := Pack(make([]uint8, tt.pixels))
		if err != nil {
			t.Fatalf("Pack(%d): %v", tt.pixels, err)
		}
		if len(packed) != tt.bytes {
			t.Errorf("Pack(%d pixels) = %d bytes, want %d", tt.pixels, len(packed), tt.bytes)
		}
	}
}

func TestPackPadsFinalByteWithZeros(t *testing.T) {
	packed, err := Pack([]uint8{1, 1, 1})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if packed[0] != 0x07 {
		t.Errorf("Pack = %#x, want 0x07", packed[0])
	}
}

func TestPackRejectsNonBinary(t *testing.T) {
	_, err := Pack([]uint8{0, 1, 2})
	if !errors.Is(err, ErrInvalidFrameData) {
		t.Fatalf("err = %v, want ErrInvalidFrameData", err)
	}
}

func TestUnpackRejectsShortData(t *testing.T) {
	_, err := Unpack([]byte{0xff}, 9)
	if !errors.Is(err, ErrInvalidFrameData) {
		t.Fatalf("err = %v, want ErrInvalidFrameData", err)
	}
}

func TestEncodeFrameRejectsLengthMismatch(t *testing.T) {
	_, err := EncodeFrame(make([]uint8, 10), 4, 3, nil)
	if !errors.Is(err, ErrInvalidFrameData) {
		t.Fatalf("err = %v, want ErrInvalidFrameData", err)
	}
}

func TestEncodeFrameWireFormat(t *testing.T) {
	f, err := EncodeFrame([]uint8{1, 0, 1, 0, 1, 1, 0, 0, 1}, 3, 3, models.DurationPtr(100))
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(f.Data)
	if err != nil {
		t.Fatalf("data is not standard base64: %v", err)
	}
	if len(raw) != 2 || raw[0] != 0x35 || raw[1] != 0x01 {
		t.Errorf("raw = %#v, want [0x35 0x01]", raw)
	}
	if f.Width != 3 || f.Height != 3 || f.DurationMS == nil || *f.DurationMS != 100 {
		t.Errorf("unexpected frame header: %+v", f)
	}
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	sizes := [][2]int{{1, 1}, {3, 3}, {8, 1}, {28, 7}, {28, 14}, {56, 14}, {13, 5}}

	for _, size := range sizes {
		for trial := 0; trial < 20; trial++ {
			bits := make([]uint8, size[0]*size[1])
			for i := range bits {
				bits[i] = uint8(rng.Intn(2))
			}
			f, err := EncodeFrame(bits, size[0], size[1], nil)
			if err != nil {
				t.Fatalf("EncodeFrame(%v): %v", size, err)
			}
			b, err := DecodeFrame(f)
			if err != nil {
				t.Fatalf("DecodeFrame(%v): %v", size, err)
			}
			got := b.Bits()
			for i := range bits {
				if got[i] != bits[i] {
					t.Fatalf("size %v trial %d: bit %d = %d, want %d", size, trial, i, got[i], bits[i])
				}
			}
		}
	}
}

func TestDecodeFrameRejectsBadBase64(t *testing.T) {
	_, err := DecodeFrame(models.Frame{Data: "!!!", Width: 2, Height: 2})
	if !errors.Is(err, ErrInvalidFrameData) {
		t.Fatalf("err = %v, want ErrInvalidFrameData", err)
	}
}

func TestNewContent(t *testing.T) {
	a := bitmap.MustParse("#.", ".#")
	b := bitmap.MustParse(".#", "#.")

	t.Run("valid", func(t *testing.T) {
		c, err := NewContent("blink", []bitmap.Bitmap{a, b}, models.DurationPtr(500), models.Playback{Loop: true}, nil)
		if err != nil {
			t.Fatalf("NewContent: %v", err)
		}
		if len(c.Frames) != 2 || *c.Frames[1].DurationMS != 500 {
			t.Errorf("unexpected frames: %+v", c.Frames)
		}
	})

	t.Run("mismatched dimensions", func(t *testing.T) {
		_, err := NewContent("x", []bitmap.Bitmap{a, bitmap.New(3, 2)}, nil, models.Playback{}, nil)
		if !errors.Is(err, ErrInvalidContent) {
			t.Fatalf("err = %v, want ErrInvalidContent", err)
		}
	})

	t.Run("no frames", func(t *testing.T) {
		_, err := NewContent("x", nil, nil, models.Playback{}, nil)
		if !errors.Is(err, ErrInvalidContent) {
			t.Fatalf("err = %v, want ErrInvalidContent", err)
		}
	})

	t.Run("too many frames", func(t *testing.T) {
		frames := make([]bitmap.Bitmap, models.MaxFramesPerContent+1)
		for i := range frames {
			frames[i] = a
		}
		_, err := NewContent("x", frames, nil, models.Playback{}, nil)
		if !errors.Is(err, ErrInvalidContent) {
			t.Fatalf("err = %v, want ErrInvalidContent", err)
		}
	})

	t.Run("loop count without loop", func(t *testing.T) {
		count := 3
		_, err := NewContent("x", []bitmap.Bitmap{a}, nil, models.Playback{LoopCount: &count}, nil)
		if !errors.Is(err, ErrInvalidContent) {
			t.Fatalf("err = %v, want ErrInvalidContent", err)
		}
	})

	t.Run("metadata too large", func(t *testing.T) {
		big := make([]byte, models.MaxMetadataBytes)
		for i := range big {
			big[i] = 'a'
		}
		_, err := NewContent("x", []bitmap.Bitmap{a}, nil, models.Playback{}, map[string]interface{}{"blob": string(big)})
		if !errors.Is(err, ErrInvalidContent) {
			t.Fatalf("err = %v, want ErrInvalidContent", err)
		}
	})
}

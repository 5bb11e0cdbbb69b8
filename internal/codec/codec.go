// Package codec packs pixel bitmaps into the wire frame format and back.
//
// Pixels are read row-major (top-to-bottom, left-to-right). Pixel i is stored
// in byte i/8 at bit position i%8 (little-endian bit order), and the byte
// sequence is carried as standard padded base64. Any change here breaks every
// display agent in the field.
package codec

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/koios/flipdot-renderer/internal/bitmap"
	"github.com/koios/flipdot-renderer/pkg/models"
)

// ErrInvalidFrameData is returned when pixel data does not match the frame's
// declared size or contains values other than 0 and 1
var ErrInvalidFrameData = errors.New("invalid frame data")

// PackedLen returns the number of bytes needed for n pixels
func PackedLen(n int) int {
	return (n + 7) / 8
}

// Pack packs a 0/1 sequence into bytes. The final byte is zero-padded.
func Pack(bits []uint8) ([]byte, error) {
	out := make([]byte, PackedLen(len(bits)))
	for i, v := range bits {
		switch v {
		case 0:
		case 1:
			out[i/8] |= 1 << (uint(i) % 8)
		default:
			return nil, fmt.Errorf("%w: element %d is %d", ErrInvalidFrameData, i, v)
		}
	}
	return out, nil
}

// Unpack expands packed bytes into n pixel values
func Unpack(data []byte, n int) ([]uint8, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative pixel count %d", ErrInvalidFrameData, n)
	}
	if len(data) < PackedLen(n) {
		return nil, fmt.Errorf("%w: %d bytes cannot hold %d pixels", ErrInvalidFrameData, len(data), n)
	}
	bits := make([]uint8, n)
	for i := range bits {
		bits[i] = (data[i/8] >> (uint(i) % 8)) & 1
	}
	return bits, nil
}

// EncodeFrame builds a wire frame from a flat pixel sequence. A nil duration
// means the agent shows the frame until the next content change.
func EncodeFrame(bits []uint8, width, height int, duration *int) (models.Frame, error) {
	if width <= 0 || height <= 0 {
		return models.Frame{}, fmt.Errorf("%w: invalid dimensions %dx%d", ErrInvalidFrameData, width, height)
	}
	if len(bits) != width*height {
		return models.Frame{}, fmt.Errorf("%w: got %d pixels, frame is %dx%d (%d)",
			ErrInvalidFrameData, len(bits), width, height, width*height)
	}
	packed, err := Pack(bits)
	if err != nil {
		return models.Frame{}, err
	}
	return models.Frame{
		Data:       base64.StdEncoding.EncodeToString(packed),
		Width:      width,
		Height:     height,
		DurationMS: duration,
	}, nil
}

// EncodeBitmap is EncodeFrame for an in-memory bitmap
func EncodeBitmap(b bitmap.Bitmap, duration *int) (models.Frame, error) {
	return EncodeFrame(b.Bits(), b.Width, b.Height, duration)
}

// FrameBytes returns the decoded packed bytes of a frame
func FrameBytes(f models.Frame) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(f.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: bad base64: %v", ErrInvalidFrameData, err)
	}
	return data, nil
}

// DecodeFrame reverses EncodeFrame
func DecodeFrame(f models.Frame) (bitmap.Bitmap, error) {
	if f.Width <= 0 || f.Height <= 0 {
		return bitmap.Bitmap{}, fmt.Errorf("%w: invalid dimensions %dx%d", ErrInvalidFrameData, f.Width, f.Height)
	}
	data, err := FrameBytes(f)
	if err != nil {
		return bitmap.Bitmap{}, err
	}
	bits, err := Unpack(data, f.Width*f.Height)
	if err != nil {
		return bitmap.Bitmap{}, err
	}
	return bitmap.FromBits(bits, f.Width, f.Height)
}

package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/koios/flipdot-renderer/internal/bitmap"
	"github.com/koios/flipdot-renderer/pkg/models"
)

// ErrInvalidContent is returned when a content item breaks the size or
// dimension limits
var ErrInvalidContent = errors.New("invalid content")

// NewContent encodes a bitmap sequence into a validated content item. Every
// frame gets frameDelay as its duration; a nil delay leaves frames untimed.
func NewContent(id string, frames []bitmap.Bitmap, frameDelay *int, playback models.Playback, metadata map[string]interface{}) (models.Content, error) {
	encoded := make([]models.Frame, 0, len(frames))
	for i, b := range frames {
		var d *int
		if frameDelay != nil {
			d = models.DurationPtr(*frameDelay)
		}
		f, err := EncodeBitmap(b, d)
		if err != nil {
			return models.Content{}, fmt.Errorf("frame %d: %w", i, err)
		}
		encoded = append(encoded, f)
	}

	content := models.Content{
		ID:       id,
		Frames:   encoded,
		Playback: playback,
		Metadata: metadata,
	}
	if err := ValidateContent(content); err != nil {
		return models.Content{}, err
	}
	return content, nil
}

// ValidateContent checks the content invariants: 1..MaxFramesPerContent
// frames, identical dimensions, decodable data, and the byte limits.
func ValidateContent(c models.Content) error {
	if c.ID == "" {
		return fmt.Errorf("%w: content_id is required", ErrInvalidContent)
	}
	if len(c.Frames) == 0 {
		return fmt.Errorf("%w: at least one frame is required", ErrInvalidContent)
	}
	if len(c.Frames) > models.MaxFramesPerContent {
		return fmt.Errorf("%w: too many frames: %d exceeds limit of %d",
			ErrInvalidContent, len(c.Frames), models.MaxFramesPerContent)
	}
	if c.Playback.LoopCount != nil {
		if !c.Playback.Loop {
			return fmt.Errorf("%w: loop_count can only be set when loop is true", ErrInvalidContent)
		}
		if *c.Playback.LoopCount < 1 {
			return fmt.Errorf("%w: loop_count must be at least 1", ErrInvalidContent)
		}
	}

	width, height := c.Frames[0].Width, c.Frames[0].Height
	total := 0
	for i, f := range c.Frames {
		if f.Width != width || f.Height != height {
			return fmt.Errorf("%w: frame %d is %dx%d but frame 0 is %dx%d",
				ErrInvalidContent, i, f.Width, f.Height, width, height)
		}
		if f.DurationMS != nil && *f.DurationMS < 0 {
			return fmt.Errorf("%w: frame %d has negative duration", ErrInvalidContent, i)
		}
		data, err := FrameBytes(f)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if len(data) < PackedLen(f.Width*f.Height) {
			return fmt.Errorf("frame %d: %w: %d bytes cannot hold %dx%d pixels",
				i, ErrInvalidFrameData, len(data), f.Width, f.Height)
		}
		total += len(data)
	}

	if c.Metadata != nil {
		raw, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("%w: metadata is not serializable: %v", ErrInvalidContent, err)
		}
		if len(raw) > models.MaxMetadataBytes {
			return fmt.Errorf("%w: metadata too large: %d bytes exceeds limit of %d",
				ErrInvalidContent, len(raw), models.MaxMetadataBytes)
		}
		total += len(raw)
	}

	if total > models.MaxContentBytes {
		return fmt.Errorf("%w: content too large: %d bytes exceeds limit of %d",
			ErrInvalidContent, total, models.MaxContentBytes)
	}
	return nil
}

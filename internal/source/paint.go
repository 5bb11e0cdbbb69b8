package source

import (
	"errors"
	"fmt"
	"time"

	"github.com/koios/flipdot-renderer/internal/bitmap"
	"github.com/koios/flipdot-renderer/internal/codec"
	"github.com/koios/flipdot-renderer/internal/paint"
	"github.com/koios/flipdot-renderer/pkg/models"
)

// Paint shows either a live drawing board or a fixed, pre-encoded content
// item submitted as part of a playlist. Exactly one of Board and Content is
// set.
type Paint struct {
	Board   *paint.Board
	Content *models.Content
}

func (*Paint) variant() {}

// Kind implements Variant
func (*Paint) Kind() Kind { return KindPaint }

func (p *Paint) generate(sourceID string, env Env, now time.Time) (models.Content, error) {
	if p.Content != nil {
		if err := codec.ValidateContent(*p.Content); err != nil {
			return models.Content{}, err
		}
		return *p.Content, nil
	}
	if p.Board == nil {
		return models.Content{}, fmt.Errorf("paint source %s has no board", sourceID)
	}

	frame, revision, err := p.Board.Snapshot(now)
	if errors.Is(err, paint.ErrExpired) {
		return models.Content{}, fmt.Errorf("%w: %v", ErrInactive, err)
	}
	if err != nil {
		return models.Content{}, err
	}
	if frame.Width != env.Width || frame.Height != env.Height {
		sized := bitmap.New(env.Width, env.Height)
		sized.Blit(frame, 0, 0)
		frame = sized
	}

	id := fmt.Sprintf("paint-%s-%d", sourceID, revision)
	return codec.NewContent(id, []bitmap.Bitmap{frame}, nil, models.Playback{}, map[string]interface{}{
		"type": string(KindPaint),
	})
}

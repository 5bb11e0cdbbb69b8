package source

import (
	"fmt"
	"time"

	"github.com/koios/flipdot-renderer/internal/bitmap"
	"github.com/koios/flipdot-renderer/internal/codec"
	"github.com/koios/flipdot-renderer/pkg/models"
)

// ClockStyle selects how the time is drawn
type ClockStyle string

const (
	// ClockDigits renders the time as text
	ClockDigits ClockStyle = "digits"
	// ClockDots renders one dot per elapsed hour and minute
	ClockDots ClockStyle = "dots"
)

// ParseClockStyle validates a style name
func ParseClockStyle(s string) (ClockStyle, error) {
	switch ClockStyle(s) {
	case ClockDigits, ClockDots:
		return ClockStyle(s), nil
	case "":
		return ClockDigits, nil
	}
	return "", fmt.Errorf("unknown clock style %q: valid styles are digits, dots", s)
}

// AmbientClockID is the id of the clock registered at boot. Clearing user
// sources leaves it in place.
const AmbientClockID = "ambient-clock"

// Clock shows the current time
type Clock struct {
	Style    ClockStyle
	Location *time.Location
	Hour24   bool
	Font     string
}

func (*Clock) variant() {}

// Kind implements Variant
func (*Clock) Kind() Kind { return KindClock }

func (c *Clock) generate(env Env, now time.Time) (models.Content, error) {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)

	var frame bitmap.Bitmap
	switch c.Style {
	case ClockDots:
		frame = bitmap.New(env.Width, env.Height)
		face := DotClockFace(local.Hour(), local.Minute())
		frame.Blit(face, floorDiv(env.Width-face.Width, 2), floorDiv(env.Height-face.Height, 2))
	default:
		f, err := env.Fonts.Get(c.Font)
		if err != nil {
			return models.Content{}, err
		}
		layout := "3:04"
		if c.Hour24 {
			layout = "15:04"
		}
		frame = f.RenderStatic(local.Format(layout), env.Width, env.Height)
	}

	style := c.Style
	if style == "" {
		style = ClockDigits
	}
	id := fmt.Sprintf("clock-%s-%s", style, local.Format("1504"))
	return codec.NewContent(id, []bitmap.Bitmap{frame}, nil, models.Playback{}, map[string]interface{}{
		"type": string(KindClock),
	})
}

// DotClockFace draws the time as a 12-row grid: two hour columns (rows count
// hours 0-11 and 12-23), a blank column, then five minute columns where row
// i holds minutes 5i to 5i+4.
func DotClockFace(hour, minute int) bitmap.Bitmap {
	const rows = 12
	face := bitmap.New(8, rows)
	for i := 0; i < rows; i++ {
		face.Set(0, i, i < hour)
		face.Set(1, i, i+12 < hour)
		for j := 0; j < 5; j++ {
			face.Set(3+j, i, i*5+j < minute)
		}
	}
	return face
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

package pattern

import (
	"errors"
	"fmt"

	"github.com/koios/flipdot-renderer/internal/bitmap"
	"go.starlark.net/lib/math"
	"go.starlark.net/starlark"
)

// MaxScriptBytes bounds the size of a user pattern script
const MaxScriptBytes = 8 * 1024

// per-frame execution budget for a script
const scriptStepsPerFrame = 2_000_000

// scriptStepBudget bounds the steps a whole animation may spend
var scriptStepBudget uint64 = 40_000_000

var (
	// ErrInvalidScript is returned when a script cannot be compiled or run
	ErrInvalidScript = errors.New("invalid pattern script")
	// ErrScriptBudget is returned when an animation runs out of steps
	ErrScriptBudget = fmt.Errorf("%w: animation exceeds its step budget", ErrInvalidScript)
)

// Program is a compiled script pattern. The script must define
//
//	def pixel(x, y, frame, width, height): ...
//
// returning a truthy value for on dots. The math module and hash(a, b) are
// predeclared. Scripts cannot keep state between calls: module globals are
// frozen after execution.
type Program struct {
	thread *starlark.Thread
	pixel  starlark.Callable
	limit  uint64 // absolute step ceiling, 0 when unlimited
}

var hashBuiltin = starlark.NewBuiltin("hash", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var a, c starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &a, &c); err != nil {
		return nil, err
	}
	fa, ok := starlark.AsFloat(a)
	if !ok {
		return nil, fmt.Errorf("hash: got %s, want number", a.Type())
	}
	fc, ok := starlark.AsFloat(c)
	if !ok {
		return nil, fmt.Errorf("hash: got %s, want number", c.Type())
	}
	return starlark.Float(Hash(fa, fc)), nil
})

// CompileScript executes the script source and resolves its pixel function
func CompileScript(src string) (*Program, error) {
	if src == "" {
		return nil, fmt.Errorf("%w: source is empty", ErrInvalidScript)
	}
	if len(src) > MaxScriptBytes {
		return nil, fmt.Errorf("%w: source exceeds %d bytes", ErrInvalidScript, MaxScriptBytes)
	}

	thread := &starlark.Thread{
		Name:  "pattern",
		Print: func(*starlark.Thread, string) {},
	}
	thread.SetMaxExecutionSteps(scriptStepsPerFrame)

	predeclared := starlark.StringDict{
		"math": math.Module,
		"hash": hashBuiltin,
	}

	globals, err := starlark.ExecFile(thread, "pattern.star", src, predeclared)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}
	globals.Freeze()

	fn, ok := globals["pixel"].(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("%w: script must define pixel(x, y, frame, width, height)", ErrInvalidScript)
	}

	return &Program{thread: thread, pixel: fn}, nil
}

// Limit caps the steps that all further Render calls may spend together
func (p *Program) Limit(steps uint64) {
	p.limit = p.thread.ExecutionSteps() + steps
}

// Render evaluates the pixel function for every dot of one frame
func (p *Program) Render(width, height, frame int) (bitmap.Bitmap, error) {
	ceiling := p.thread.ExecutionSteps() + scriptStepsPerFrame
	if p.limit > 0 && ceiling > p.limit {
		ceiling = p.limit
	}
	p.thread.SetMaxExecutionSteps(ceiling)

	b := bitmap.New(width, height)
	w, h, f := starlark.MakeInt(width), starlark.MakeInt(height), starlark.MakeInt(frame)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			args := starlark.Tuple{starlark.MakeInt(x), starlark.MakeInt(y), f, w, h}
			v, err := starlark.Call(p.thread, p.pixel, args, nil)
			if err != nil {
				if p.limit > 0 && p.thread.ExecutionSteps() >= p.limit {
					return bitmap.Bitmap{}, fmt.Errorf("%w at frame %d", ErrScriptBudget, frame)
				}
				return bitmap.Bitmap{}, fmt.Errorf("%w: pixel(%d, %d, %d): %v", ErrInvalidScript, x, y, frame, err)
			}
			if v.Truth() {
				b.Set(x, y, true)
			}
		}
	}
	return b, nil
}

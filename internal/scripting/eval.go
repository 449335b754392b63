package scripting

import (
	"context"
	"fmt"
	"math"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Runner evaluates scenario scripts, each in a fresh sandbox.
type Runner struct {
	instLimit int
	logger    *zap.Logger
}

// NewRunner creates a Runner.
//
// Precondition: logger must be non-nil; instLimit >= 0 (0 uses DefaultInstructionLimit).
func NewRunner(instLimit int, logger *zap.Logger) *Runner {
	if logger == nil {
		panic("scripting.NewRunner: logger must not be nil")
	}
	return &Runner{instLimit: instLimit, logger: logger}
}

// EvalTable runs the script at path and converts the table it returns into Go
// values: nested tables become map[string]any (or []any for arrays),
// integral numbers become int and the rest float64.
//
// Postcondition: Returns an error if the script fails to load or run, exceeds
// its opcode budget, outlives ctx, or does not return a table.
func (r *Runner) EvalTable(ctx context.Context, path string) (map[string]any, error) {
	L, cancel := NewSandboxedState(ctx, r.instLimit)
	defer L.Close()
	defer cancel()
	RegisterDuelModule(L, r.logger, path)

	fn, err := L.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scripting: loading %q: %w", path, err)
	}
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		return nil, fmt.Errorf("scripting: running %q: %w", path, err)
	}
	ret := L.Get(-1)
	L.Pop(1)

	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("scripting: %q returned %s, want a table", path, ret.Type())
	}
	m, ok := ToGo(tbl).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("scripting: %q returned an array, want a table with named fields", path)
	}
	r.logger.Debug("scenario script evaluated", zap.String("script", path), zap.Int("fields", len(m)))
	return m, nil
}

// ToGo converts a Lua value into plain Go values. A table whose keys are
// exactly 1..n becomes []any; any other table becomes map[string]any with
// keys rendered by their Lua string form. Integral numbers within 2^53 of
// zero become int, other numbers float64. Functions and userdata become nil.
func ToGo(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		f := float64(val)
		if f == math.Trunc(f) && math.Abs(f) <= maxExactInt {
			return int(f)
		}
		return f
	case lua.LString:
		return string(val)
	case *lua.LTable:
		if n := val.Len(); n > 0 && countKeys(val) == n {
			arr := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				arr = append(arr, ToGo(val.RawGetInt(i)))
			}
			return arr
		}
		m := make(map[string]any)
		val.ForEach(func(k, v lua.LValue) {
			m[k.String()] = ToGo(v)
		})
		return m
	default:
		return nil
	}
}

// maxExactInt is the largest magnitude a float64 holds without rounding.
const maxExactInt = 1 << 53

func countKeys(t *lua.LTable) int {
	n := 0
	t.ForEach(func(lua.LValue, lua.LValue) { n++ })
	return n
}

// Package scripting evaluates scenario scripts in a GopherLua sandbox. Scripts
// see the safe standard libraries plus a read-only duel module, and each run
// is bounded by an opcode budget and by its caller's context.
package scripting

import (
	"context"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the opcode budget used when none is configured.
const DefaultInstructionLimit = 100_000

// removedGlobals are base-library functions scripts may not reach.
var removedGlobals = []string{"dofile", "loadfile", "load", "loadstring", "collectgarbage", "require", "print"}

// opcodeBudget is a context whose Done channel closes after limit calls.
// The VM polls Done once per opcode, so the budget counts instructions.
type opcodeBudget struct {
	context.Context
	cancel context.CancelFunc
	left   atomic.Int64
}

func (b *opcodeBudget) Done() <-chan struct{} {
	if b.left.Add(-1) <= 0 {
		b.cancel()
	}
	return b.Context.Done()
}

// NewSandboxedState creates an LState with only the base, table, string and
// math libraries, without removedGlobals and string.rep, that stops after
// instLimit opcodes or when parent is done, whichever is first.
//
// Precondition: instLimit >= 0; 0 uses DefaultInstructionLimit.
// Postcondition: The caller must call the returned cancel func and L.Close().
func NewSandboxedState(parent context.Context, instLimit int) (*lua.LState, context.CancelFunc) {
	if instLimit <= 0 {
		instLimit = DefaultInstructionLimit
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, name := range removedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	// string.rep builds arbitrarily large strings in a single opcode.
	if str, ok := L.GetGlobal(lua.StringLibName).(*lua.LTable); ok {
		str.RawSetString("rep", lua.LNil)
	}

	ctx, cancel := context.WithCancel(parent)
	budget := &opcodeBudget{Context: ctx, cancel: cancel}
	budget.left.Store(int64(instLimit))
	L.SetContext(budget)
	return L, cancel
}

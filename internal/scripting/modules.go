package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/spellduel/internal/game/duel"
)

// RegisterDuelModule defines the global duel table in L:
//   - duel.spells: array of {name, cost, duration} in catalog order
//   - duel.spell(name): the matching entry, or nil for an unknown name
//   - duel.log.debug/info/warn(msg): write to logger under the "script" field
//
// Precondition: L must be from NewSandboxedState; logger must not be nil.
// Postcondition: the duel global is defined in L.
func RegisterDuelModule(L *lua.LState, logger *zap.Logger, script string) {
	mod := L.NewTable()

	spells := L.NewTable()
	for _, sp := range duel.Catalog() {
		spells.Append(spellTable(L, sp))
	}
	mod.RawSetString("spells", spells)

	mod.RawSetString("spell", L.NewFunction(func(L *lua.LState) int {
		sp, err := duel.ParseSpell(L.CheckString(1))
		if err != nil {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(spellTable(L, sp))
		return 1
	}))

	logTbl := L.NewTable()
	for name, fn := range map[string]func(string, ...zap.Field){
		"debug": logger.Debug,
		"info":  logger.Info,
		"warn":  logger.Warn,
	} {
		logTbl.RawSetString(name, L.NewFunction(func(L *lua.LState) int {
			fn(L.CheckString(1), zap.String("script", script))
			return 0
		}))
	}
	mod.RawSetString("log", logTbl)

	L.SetGlobal("duel", mod)
}

func spellTable(L *lua.LState, sp duel.Spell) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("name", lua.LString(sp.String()))
	t.RawSetString("cost", lua.LNumber(sp.Cost()))
	t.RawSetString("duration", lua.LNumber(sp.Duration()))
	return t
}

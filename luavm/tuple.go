package luavm

import (
	"reflect"

	lua "github.com/yuin/gopher-lua"
)

// pullTuple parses call results positionally into a Results struct, one
// visible field per result slot. A single table where several slots are
// expected means the keyed form of the same aggregate and is parsed as a
// record; the same reinterpretation applies when the first slot refuses its
// field and holds a table. Any other shortfall or later-slot failure is a
// genuine mismatch and reported as such.
func (vm *VM) pullTuple(rets []lua.LValue, target reflect.Value) error {
	typ := target.Type()
	fields := visibleFields(typ)
	target.SetZero()

	if len(rets) < len(fields) {
		if len(rets) == 1 {
			if tbl, ok := rets[0].(*lua.LTable); ok {
				return vm.pullRecord(tbl, target, 0)
			}
		}
		return &ArgumentCountError{
			Name: "result tuple",
			Min:  len(fields),
			Max:  len(fields),
			Got:  len(rets),
		}
	}

	for n, i := range fields {
		err := vm.fromLua(rets[n], target.Field(i), 0)
		if err == nil {
			continue
		}
		if n == 0 {
			if tbl, ok := rets[0].(*lua.LTable); ok {
				target.SetZero()
				return vm.pullRecord(tbl, target, 0)
			}
		}
		return err
	}
	return nil
}

// pullResults parses call results positionally into preallocated targets,
// one result per target. Fewer results than targets is a count error, not a
// partial fill.
func (vm *VM) pullResults(rets []lua.LValue, targets []reflect.Value) error {
	if len(rets) < len(targets) {
		return &ArgumentCountError{
			Name: "results",
			Min:  len(targets),
			Max:  len(targets),
			Got:  len(rets),
		}
	}
	for i, target := range targets {
		if err := vm.fromLua(rets[i], target, 0); err != nil {
			return err
		}
	}
	return nil
}

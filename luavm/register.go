package luavm

import (
	"fmt"
	"reflect"

	lua "github.com/yuin/gopher-lua"
)

// Register exposes a callable to scripts under a global name. Accepted
// callables: *GoFunc, GoFunc, *Overload, a raw lua.LGFunction, or any bare
// Go function (wrapped as a GoFunc named after the global).
func (vm *VM) Register(name string, fn any) error {
	lv, err := vm.callableToLua(name, fn)
	if err != nil {
		return err
	}
	vm.L.SetGlobal(name, lv)
	return nil
}

// RegisterLibrary exposes a set of callables as fields of one global table,
// returning a handle to the table for further population.
func (vm *VM) RegisterLibrary(name string, fns map[string]any) (*Table, error) {
	tbl := vm.L.NewTable()
	for fname, fn := range fns {
		lv, err := vm.callableToLua(name+"."+fname, fn)
		if err != nil {
			return nil, err
		}
		tbl.RawSetString(fname, lv)
	}
	vm.L.SetGlobal(name, tbl)
	return vm.anchorTable(tbl), nil
}

func (vm *VM) callableToLua(name string, fn any) (lua.LValue, error) {
	switch f := fn.(type) {
	case *GoFunc:
		if f.Name == "" {
			f.Name = name
		}
		return vm.L.NewFunction(f.entry(vm)), nil
	case GoFunc:
		if f.Name == "" {
			f.Name = name
		}
		return vm.L.NewFunction(f.entry(vm)), nil
	case *Overload:
		if f.Name == "" {
			f.Name = name
		}
		return vm.L.NewFunction(f.entry(vm)), nil
	case lua.LGFunction:
		return vm.L.NewFunction(f), nil
	case func(*lua.LState) int:
		return vm.L.NewFunction(f), nil
	}
	if reflect.ValueOf(fn).Kind() != reflect.Func {
		return nil, fmt.Errorf("register %s: not a function: %T", name, fn)
	}
	g := &GoFunc{
		Name: name,
		Func: fn,
	}
	return vm.L.NewFunction(g.entry(vm)), nil
}

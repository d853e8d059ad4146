package luavm

import (
	"os"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// ExecString compiles and runs a chunk of source, returning everything the
// chunk returned as owned values. The chunk name shows up in error positions
// and tracebacks.
func (vm *VM) ExecString(source string, name string) ([]Value, error) {
	return vm.exec(source, name, nil)
}

// ExecStringIn runs a chunk with env as its environment table instead of the
// globals. Chunks running in separate environment tables cannot see each
// other's names, which is the whole of the isolation offered: they still
// share the interpreter and anything reachable through shared values.
func (vm *VM) ExecStringIn(env *Table, source string, name string) ([]Value, error) {
	return vm.exec(source, name, env)
}

// ExecFile reads and runs a source file, named after its path.
func (vm *VM) ExecFile(path string) ([]Value, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, we(err)
	}
	return vm.exec(string(content), path, nil)
}

// ExecFileIn reads and runs a source file in the given environment table.
func (vm *VM) ExecFileIn(env *Table, path string) ([]Value, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, we(err)
	}
	return vm.exec(string(content), path, env)
}

func (vm *VM) exec(source string, name string, env *Table) ([]Value, error) {
	fn, err := vm.L.Load(strings.NewReader(source), name)
	if err != nil {
		return nil, asRuntimeError(err)
	}
	if env != nil {
		tbl, err := env.table()
		if err != nil {
			return nil, err
		}
		vm.L.SetFEnv(fn, tbl)
	}

	base := vm.Top()
	vm.L.Push(fn)
	if err := vm.ProtectedCall(0, lua.MultRet); err != nil {
		vm.SetTop(base)
		return nil, err
	}
	return vm.takeResults(base), nil
}

// takeResults drains everything above base off the stack as owned values.
func (vm *VM) takeResults(base int) []Value {
	top := vm.Top()
	if top <= base {
		return nil
	}
	values := make([]Value, 0, top-base)
	for i := base + 1; i <= top; i++ {
		values = append(values, vm.ownedValueAt(i))
	}
	vm.SetTop(base)
	return values
}

// Global reads a global by name as an owned value.
func (vm *VM) Global(name string) Value {
	return vm.ownedValue(vm.L.GetGlobal(name))
}

// SetGlobal writes a global by name.
func (vm *VM) SetGlobal(name string, value any) error {
	lv, err := vm.toLua(value)
	if err != nil {
		return err
	}
	vm.L.SetGlobal(name, lv)
	return nil
}

// GlobalAs reads a global converted to T.
func GlobalAs[T any](vm *VM, name string) (ret T, err error) {
	err = FromLua(vm, vm.L.GetGlobal(name), &ret)
	return
}

// NewEnv builds an environment table for sandboxed execution, copying the
// named globals into it. An empty list gives a bare environment where even
// print is absent.
func (vm *VM) NewEnv(names ...string) *Table {
	tbl := vm.L.NewTable()
	for _, name := range names {
		tbl.RawSetString(name, vm.L.GetGlobal(name))
	}
	return vm.anchorTable(tbl)
}

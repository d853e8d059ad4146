package luavm

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// VM wraps a single Lua state together with the bridge-owned anchor table
// used to keep strong-referenced values alive. A VM and everything derived
// from it must be driven by one goroutine at a time; re-entrant
// host→script→host chains on the same call stack are fine.
type VM struct {
	L    *lua.LState
	reg  *anchorRegistry
	owns bool
}

func New() *VM {
	L := lua.NewState(lua.Options{
		IncludeGoStackTrace: true,
	})
	vm := Wrap(L)
	vm.owns = true
	return vm
}

// Wrap adapts an externally managed state. Closing stays with the owner,
// and strong references created through the returned VM never free their
// anchor slots: the registry belongs to a state this bridge does not own.
func Wrap(L *lua.LState) *VM {
	return &VM{
		L: L,
		reg: &anchorRegistry{
			tbl: L.NewTable(),
		},
	}
}

func (vm *VM) Close() {
	if vm.owns {
		vm.L.Close()
	}
}

// forState returns a view of vm bound to L, sharing the anchor registry.
// Entry points use it so that calls arriving on a coroutine thread operate
// on the stack they were invoked on.
func (vm *VM) forState(L *lua.LState) *VM {
	if L == vm.L {
		return vm
	}
	fork := *vm
	fork.L = L
	return &fork
}

// Stack adapter: thin, index-checked wrappers over the state's stack.
// Every operation below mutates or reads the single shared stack.

func (vm *VM) Top() int {
	return vm.L.GetTop()
}

func (vm *VM) SetTop(top int) {
	vm.L.SetTop(top)
}

func (vm *VM) PopN(n int) {
	vm.L.Pop(n)
}

func (vm *VM) At(index int) lua.LValue {
	vm.checkIndex(index)
	return vm.L.Get(index)
}

// Dup pushes a copy of the value at index onto the top of the stack.
func (vm *VM) Dup(index int) {
	vm.checkIndex(index)
	vm.L.Push(vm.L.Get(index))
}

func (vm *VM) TypeAt(index int) lua.LValueType {
	vm.checkIndex(index)
	return vm.L.Get(index).Type()
}

// checkIndex panics on out-of-range indices: that is adapter misuse by the
// host, not script misbehavior, so it fails fast instead of returning an
// error the caller would have to thread through every stack operation.
func (vm *VM) checkIndex(index int) {
	top := vm.L.GetTop()
	if index == 0 || index > top || index < -top {
		panic(fmt.Errorf("luavm: stack index %d out of range, top is %d", index, top))
	}
}

func (vm *VM) absIndex(index int) int {
	if index < 0 {
		return vm.L.GetTop() + index + 1
	}
	return index
}

// ProtectedCall runs the function below nargs arguments on the stack under
// the VM's pcall boundary. A script failure comes back as *VMRuntimeError.
func (vm *VM) ProtectedCall(nargs, nresults int) error {
	if err := vm.L.PCall(nargs, nresults, nil); err != nil {
		return asRuntimeError(err)
	}
	return nil
}

// Raise converts a host message into a VM-level runtime error, unwinding
// through active protected calls. It does not return.
func (vm *VM) Raise(format string, args ...any) {
	vm.L.RaiseError(format, args...)
}

package luavm

import (
	"fmt"
	"reflect"

	lua "github.com/yuin/gopher-lua"
)

// callRaw pushes the function and its arguments, runs a protected call, and
// collects nresults values off the stack. Whatever happens, the stack is
// back at its pre-call height on return.
func (f *Function) callRaw(nresults int, args []any) ([]lua.LValue, error) {
	vm := f.a.vm
	base := vm.Top()

	if err := f.Push(); err != nil {
		return nil, err
	}
	for _, arg := range args {
		if err := Push(vm, arg); err != nil {
			vm.SetTop(base)
			return nil, err
		}
	}

	if err := vm.ProtectedCall(len(args), nresults); err != nil {
		vm.SetTop(base)
		return nil, err
	}

	top := vm.Top()
	rets := make([]lua.LValue, 0, top-base)
	for i := base + 1; i <= top; i++ {
		rets = append(rets, vm.At(i))
	}
	vm.SetTop(base)
	return rets, nil
}

// Call invokes the function and returns every result as an owned value.
// Table and function results come back strongly anchored.
func (f *Function) Call(args ...any) ([]Value, error) {
	rets, err := f.callRaw(lua.MultRet, args)
	if err != nil {
		return nil, err
	}
	values := make([]Value, len(rets))
	for i, lv := range rets {
		values[i] = f.a.vm.ownedValue(lv)
	}
	return values, nil
}

// CallInto invokes the function and parses its results into out. A nil out
// discards all results. A pointer to a Results struct consumes one result
// per visible field; any other pointer consumes a single result.
func (f *Function) CallInto(out any, args ...any) error {
	if out == nil {
		_, err := f.callRaw(0, args)
		return err
	}

	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("call into: target must be a non-nil pointer, got %T", out)
	}
	elem := rv.Elem()

	if isResultsStruct(elem.Type()) {
		rets, err := f.callRaw(lua.MultRet, args)
		if err != nil {
			return err
		}
		return f.a.vm.pullTuple(rets, elem)
	}

	rets, err := f.callRaw(1, args)
	if err != nil {
		return err
	}
	var ret lua.LValue = lua.LNil
	if len(rets) > 0 {
		ret = rets[0]
	}
	return f.a.vm.fromLua(ret, elem, 0)
}

package luavm

import (
	"fmt"
	"strconv"

	lua "github.com/yuin/gopher-lua"
)

type Kind uint8

const (
	KindNil Kind = iota
	KindNumber
	KindText
	KindBoolean
	KindTable
	KindWeakTable
	KindFunction
	KindWeakFunction
	KindPointer
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindBoolean:
		return "boolean"
	case KindTable:
		return "table"
	case KindWeakTable:
		return "weak table"
	case KindFunction:
		return "function"
	case KindWeakFunction:
		return "weak function"
	case KindPointer:
		return "pointer"
	}
	return "invalid"
}

// Value is a closed union over the kinds of values the VM can hold. Exactly
// one variant is inhabited; accessing the wrong variant returns a
// *TypeMismatchError, never a silently coerced zero value.
type Value struct {
	kind Kind
	num  float64
	text string
	b    bool
	tbl  *Table
	wtbl WeakTable
	fn   *Function
	wfn  WeakFunction
	ptr  any
}

func Nil() Value {
	return Value{kind: KindNil}
}

func Number(n float64) Value {
	return Value{kind: KindNumber, num: n}
}

func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

func Boolean(b bool) Value {
	return Value{kind: KindBoolean, b: b}
}

func TableValue(t *Table) Value {
	return Value{kind: KindTable, tbl: t}
}

func WeakTableValue(w WeakTable) Value {
	return Value{kind: KindWeakTable, wtbl: w}
}

func FunctionValue(f *Function) Value {
	return Value{kind: KindFunction, fn: f}
}

func WeakFunctionValue(w WeakFunction) Value {
	return Value{kind: KindWeakFunction, wfn: w}
}

func Pointer(p any) Value {
	return Value{kind: KindPointer, ptr: p}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsNil() bool {
	return v.kind == KindNil
}

func (v Value) mismatch(want Kind) error {
	return &TypeMismatchError{Want: want.String(), Got: v.kind.String()}
}

func (v Value) Number() (float64, error) {
	if v.kind != KindNumber {
		return 0, v.mismatch(KindNumber)
	}
	return v.num, nil
}

func (v Value) Text() (string, error) {
	if v.kind != KindText {
		return "", v.mismatch(KindText)
	}
	return v.text, nil
}

func (v Value) Boolean() (bool, error) {
	if v.kind != KindBoolean {
		return false, v.mismatch(KindBoolean)
	}
	return v.b, nil
}

func (v Value) Table() (*Table, error) {
	if v.kind != KindTable {
		return nil, v.mismatch(KindTable)
	}
	return v.tbl, nil
}

func (v Value) WeakTable() (WeakTable, error) {
	if v.kind != KindWeakTable {
		return WeakTable{}, v.mismatch(KindWeakTable)
	}
	return v.wtbl, nil
}

func (v Value) Function() (*Function, error) {
	if v.kind != KindFunction {
		return nil, v.mismatch(KindFunction)
	}
	return v.fn, nil
}

func (v Value) WeakFunction() (WeakFunction, error) {
	if v.kind != KindWeakFunction {
		return WeakFunction{}, v.mismatch(KindWeakFunction)
	}
	return v.wfn, nil
}

func (v Value) Pointer() (any, error) {
	if v.kind != KindPointer {
		return nil, v.mismatch(KindPointer)
	}
	return v.ptr, nil
}

func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindText:
		return v.text
	case KindBoolean:
		return strconv.FormatBool(v.b)
	case KindPointer:
		return fmt.Sprintf("pointer(%T)", v.ptr)
	}
	return v.kind.String()
}

// valueAt captures the value at a stack position. Tables and functions come
// back as weak references bounded by the current frame; use ownedValueAt for
// values that must outlive it.
func (vm *VM) valueAt(index int) Value {
	idx := vm.absIndex(index)
	lv := vm.At(idx)
	switch lv := lv.(type) {
	case *lua.LNilType:
		return Nil()
	case lua.LBool:
		return Boolean(bool(lv))
	case lua.LNumber:
		return Number(float64(lv))
	case lua.LString:
		return Text(string(lv))
	case *lua.LTable:
		return WeakTableValue(WeakTable{vm: vm, index: idx})
	case *lua.LFunction:
		return WeakFunctionValue(WeakFunction{vm: vm, index: idx})
	case *lua.LUserData:
		return Pointer(lv.Value)
	}
	// threads and the like are carried opaquely
	return Pointer(lv)
}

func (vm *VM) ownedValueAt(index int) Value {
	return vm.ownedValue(vm.At(index))
}

// ownedValue captures lv with strong references for tables and functions,
// safe to hold after the producing stack slots are gone.
func (vm *VM) ownedValue(lv lua.LValue) Value {
	switch lv := lv.(type) {
	case *lua.LNilType:
		return Nil()
	case lua.LBool:
		return Boolean(bool(lv))
	case lua.LNumber:
		return Number(float64(lv))
	case lua.LString:
		return Text(string(lv))
	case *lua.LTable:
		return TableValue(vm.anchorTable(lv))
	case *lua.LFunction:
		return FunctionValue(vm.anchorFunction(lv))
	case *lua.LUserData:
		return Pointer(lv.Value)
	}
	return Pointer(lv)
}

// toLua resolves a Value back into a VM value. References must belong to
// this VM: resolving them against a different state would corrupt both.
func (vm *VM) valueToLua(v Value) (lua.LValue, error) {
	switch v.kind {

	case KindNil:
		return lua.LNil, nil

	case KindNumber:
		return lua.LNumber(v.num), nil

	case KindText:
		return lua.LString(v.text), nil

	case KindBoolean:
		return lua.LBool(v.b), nil

	case KindTable:
		if v.tbl.a.vm.reg != vm.reg {
			return nil, fmt.Errorf("table reference belongs to a different VM")
		}
		lv, err := v.tbl.a.get(lua.LTTable, "push")
		if err != nil {
			return nil, err
		}
		return lv, nil

	case KindWeakTable:
		if v.wtbl.vm.reg != vm.reg {
			return nil, fmt.Errorf("table reference belongs to a different VM")
		}
		return v.wtbl.table()

	case KindFunction:
		if v.fn.a.vm.reg != vm.reg {
			return nil, fmt.Errorf("function reference belongs to a different VM")
		}
		lv, err := v.fn.a.get(lua.LTFunction, "push")
		if err != nil {
			return nil, err
		}
		return lv, nil

	case KindWeakFunction:
		if v.wfn.vm.reg != vm.reg {
			return nil, fmt.Errorf("function reference belongs to a different VM")
		}
		return v.wfn.function()

	case KindPointer:
		if lv, ok := v.ptr.(lua.LValue); ok {
			return lv, nil
		}
		ud := vm.L.NewUserData()
		ud.Value = v.ptr
		return ud, nil
	}

	return nil, fmt.Errorf("invalid value kind %d", v.kind)
}

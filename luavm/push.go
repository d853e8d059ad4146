package luavm

import (
	"fmt"
	"reflect"

	lua "github.com/yuin/gopher-lua"
)

// Push converts a Go value into a VM value and puts it on the stack.
// Stack effect: +1.
func Push(vm *VM, v any) error {
	lv, err := vm.toLua(v)
	if err != nil {
		return err
	}
	vm.L.Push(lv)
	return nil
}

// toLua converts a Go value into a value owned by vm's state. Strings and
// byte slices are copied, sequences and maps become fresh tables, funcs are
// wrapped through the call adapter, structs become tables of their visible
// fields.
func (vm *VM) toLua(v any) (lua.LValue, error) {
	switch v := v.(type) {

	case nil:
		return lua.LNil, nil

	case lua.LValue:
		return v, nil

	case bool:
		return lua.LBool(v), nil

	case string:
		return lua.LString(v), nil
	case []byte:
		return lua.LString(v), nil

	case int:
		return lua.LNumber(v), nil
	case int8:
		return lua.LNumber(v), nil
	case int16:
		return lua.LNumber(v), nil
	case int32:
		return lua.LNumber(v), nil
	case int64:
		return lua.LNumber(v), nil

	case uint:
		return lua.LNumber(v), nil
	case uint8:
		return lua.LNumber(v), nil
	case uint16:
		return lua.LNumber(v), nil
	case uint32:
		return lua.LNumber(v), nil
	case uint64:
		return lua.LNumber(v), nil

	case float32:
		return lua.LNumber(v), nil
	case float64:
		return lua.LNumber(v), nil

	case Value:
		return vm.valueToLua(v)

	case *Table:
		return vm.valueToLua(TableValue(v))
	case *Function:
		return vm.valueToLua(FunctionValue(v))
	case WeakTable:
		return vm.valueToLua(WeakTableValue(v))
	case WeakFunction:
		return vm.valueToLua(WeakFunctionValue(v))

	case *GoFunc:
		return vm.L.NewFunction(v.entry(vm)), nil
	case GoFunc:
		fn := v
		return vm.L.NewFunction(fn.entry(vm)), nil
	case *Overload:
		return vm.L.NewFunction(v.entry(vm)), nil
	case lua.LGFunction:
		// escape hatch: the function manages the stack itself
		return vm.L.NewFunction(v), nil
	case func(*lua.LState) int:
		return vm.L.NewFunction(v), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {

	case reflect.Bool:
		return lua.LBool(rv.Bool()), nil

	case reflect.String:
		return lua.LString(rv.String()), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return lua.LNumber(rv.Int()), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return lua.LNumber(rv.Uint()), nil

	case reflect.Float32, reflect.Float64:
		return lua.LNumber(rv.Float()), nil

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return lua.LString(rv.Bytes()), nil
		}
		n := rv.Len()
		tbl := vm.L.CreateTable(n, 0)
		for i := range n {
			lv, err := vm.toLua(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			tbl.RawSetInt(i+1, lv)
		}
		return tbl, nil

	case reflect.Map:
		tbl := vm.L.CreateTable(0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key, err := vm.toLua(iter.Key().Interface())
			if err != nil {
				return nil, err
			}
			val, err := vm.toLua(iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			tbl.RawSet(key, val)
		}
		return tbl, nil

	case reflect.Pointer:
		if rv.IsNil() {
			return lua.LNil, nil
		}
		return vm.toLua(rv.Elem().Interface())

	case reflect.Interface:
		elem := rv.Elem()
		if !elem.IsValid() {
			return lua.LNil, nil
		}
		return vm.toLua(elem.Interface())

	case reflect.Struct:
		return vm.recordToLua(rv)

	case reflect.Func:
		fn := &GoFunc{Func: v}
		return vm.L.NewFunction(fn.entry(vm)), nil
	}

	return nil, fmt.Errorf("unsupported type for VM: %T", v)
}

func (vm *VM) recordToLua(rv reflect.Value) (lua.LValue, error) {
	typ := rv.Type()
	tbl := vm.L.NewTable()
	for i := range typ.NumField() {
		name, ok := fieldName(typ.Field(i))
		if !ok {
			continue
		}
		lv, err := vm.toLua(rv.Field(i).Interface())
		if err != nil {
			return nil, err
		}
		tbl.RawSetString(name, lv)
	}
	return tbl, nil
}

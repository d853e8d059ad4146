package luavm

import (
	"fmt"
	"math"
	"reflect"

	lua "github.com/yuin/gopher-lua"
)

var (
	errorType        = reflect.TypeFor[error]()
	vmType           = reflect.TypeFor[*VM]()
	valueType        = reflect.TypeFor[Value]()
	lvalueType       = reflect.TypeFor[lua.LValue]()
	tableRefType     = reflect.TypeFor[*Table]()
	functionRefType  = reflect.TypeFor[*Function]()
	weakTableType    = reflect.TypeFor[WeakTable]()
	weakFunctionType = reflect.TypeFor[WeakFunction]()
)

// Pull converts the value at a stack position into T. The slot's kind is
// checked first; a wrong kind fails with *TypeMismatchError, it is never
// coerced.
func Pull[T any](vm *VM, index int) (T, error) {
	var ret T
	idx := vm.absIndex(index)
	if err := vm.fromLuaAt(idx, reflect.ValueOf(&ret).Elem()); err != nil {
		return ret, err
	}
	return ret, nil
}

// FromLua converts lv into *target.
func FromLua(vm *VM, lv lua.LValue, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("target must be a non-nil pointer, got %T", target)
	}
	return vm.fromLua(lv, rv.Elem(), 0)
}

// fromLuaAt pulls the value at a stack index, attributing failures to that
// position. Value targets capture weak references bounded by the frame.
func (vm *VM) fromLuaAt(index int, target reflect.Value) error {
	if target.Type() == valueType {
		target.Set(reflect.ValueOf(vm.valueAt(index)))
		return nil
	}
	return vm.fromLua(vm.At(index), target, index)
}

func (vm *VM) fromLua(lv lua.LValue, target reflect.Value, at int) error {
	typ := target.Type()

	switch typ {

	case valueType:
		target.Set(reflect.ValueOf(vm.ownedValue(lv)))
		return nil

	case lvalueType:
		target.Set(reflect.ValueOf(lv))
		return nil

	case tableRefType:
		tbl, ok := lv.(*lua.LTable)
		if !ok {
			return typeMismatch("table", lv, at)
		}
		target.Set(reflect.ValueOf(vm.anchorTable(tbl)))
		return nil

	case functionRefType:
		fn, ok := lv.(*lua.LFunction)
		if !ok {
			return typeMismatch("function", lv, at)
		}
		target.Set(reflect.ValueOf(vm.anchorFunction(fn)))
		return nil

	case weakTableType:
		if at == 0 {
			return fmt.Errorf("weak table reference requires a stack position")
		}
		w, err := WeakTableAt(vm, at)
		if err != nil {
			return err
		}
		target.Set(reflect.ValueOf(w))
		return nil

	case weakFunctionType:
		if at == 0 {
			return fmt.Errorf("weak function reference requires a stack position")
		}
		w, err := WeakFunctionAt(vm, at)
		if err != nil {
			return err
		}
		target.Set(reflect.ValueOf(w))
		return nil
	}

	switch typ.Kind() {

	case reflect.Bool:
		b, ok := lv.(lua.LBool)
		if !ok {
			return typeMismatch("boolean", lv, at)
		}
		target.SetBool(bool(b))
		return nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := lv.(lua.LNumber)
		if !ok {
			return typeMismatch("number", lv, at)
		}
		f := float64(n)
		if f != math.Trunc(f) {
			return &TypeMismatchError{Want: "integer", Got: "fractional number", Index: at}
		}
		i := int64(f)
		if target.OverflowInt(i) {
			return &TypeMismatchError{Want: typ.String(), Got: "out-of-range number", Index: at}
		}
		target.SetInt(i)
		return nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, ok := lv.(lua.LNumber)
		if !ok {
			return typeMismatch("number", lv, at)
		}
		f := float64(n)
		if f != math.Trunc(f) {
			return &TypeMismatchError{Want: "integer", Got: "fractional number", Index: at}
		}
		if f < 0 {
			return &TypeMismatchError{Want: typ.String(), Got: "negative number", Index: at}
		}
		u := uint64(f)
		if target.OverflowUint(u) {
			return &TypeMismatchError{Want: typ.String(), Got: "out-of-range number", Index: at}
		}
		target.SetUint(u)
		return nil

	case reflect.Float32, reflect.Float64:
		n, ok := lv.(lua.LNumber)
		if !ok {
			return typeMismatch("number", lv, at)
		}
		target.SetFloat(float64(n))
		return nil

	case reflect.String:
		s, ok := lv.(lua.LString)
		if !ok {
			return typeMismatch("string", lv, at)
		}
		target.SetString(string(s))
		return nil

	case reflect.Slice:
		if typ.Elem().Kind() == reflect.Uint8 {
			if s, ok := lv.(lua.LString); ok {
				target.SetBytes([]byte(s))
				return nil
			}
		}
		tbl, ok := lv.(*lua.LTable)
		if !ok {
			return typeMismatch("table", lv, at)
		}
		n := tbl.Len()
		slice := reflect.MakeSlice(typ, n, n)
		for i := 1; i <= n; i++ {
			if err := vm.fromLua(tbl.RawGetInt(i), slice.Index(i-1), at); err != nil {
				return err
			}
		}
		target.Set(slice)
		return nil

	case reflect.Array:
		tbl, ok := lv.(*lua.LTable)
		if !ok {
			return typeMismatch("table", lv, at)
		}
		if n := tbl.Len(); n != typ.Len() {
			return &TypeMismatchError{
				Want:  fmt.Sprintf("sequence of length %d", typ.Len()),
				Got:   fmt.Sprintf("sequence of length %d", n),
				Index: at,
			}
		}
		for i := range typ.Len() {
			if err := vm.fromLua(tbl.RawGetInt(i+1), target.Index(i), at); err != nil {
				return err
			}
		}
		return nil

	case reflect.Map:
		tbl, ok := lv.(*lua.LTable)
		if !ok {
			return typeMismatch("table", lv, at)
		}
		m := reflect.MakeMap(typ)
		var key lua.LValue = lua.LNil
		for {
			k, v := tbl.Next(key)
			if k == lua.LNil {
				break
			}
			mk := reflect.New(typ.Key()).Elem()
			if err := vm.fromLua(k, mk, at); err != nil {
				return err
			}
			mv := reflect.New(typ.Elem()).Elem()
			if err := vm.fromLua(v, mv, at); err != nil {
				return err
			}
			m.SetMapIndex(mk, mv)
			key = k
		}
		target.Set(m)
		return nil

	case reflect.Pointer:
		if lv == lua.LNil {
			target.Set(reflect.Zero(typ))
			return nil
		}
		elem := reflect.New(typ.Elem())
		if err := vm.fromLua(lv, elem.Elem(), at); err != nil {
			return err
		}
		target.Set(elem)
		return nil

	case reflect.Struct:
		tbl, ok := lv.(*lua.LTable)
		if !ok {
			return typeMismatch("table", lv, at)
		}
		target.Set(reflect.Zero(typ))
		return vm.pullRecord(tbl, target, at)

	case reflect.Func:
		fn, ok := lv.(*lua.LFunction)
		if !ok {
			return typeMismatch("function", lv, at)
		}
		target.Set(vm.bindFunc(typ, vm.anchorFunction(fn)))
		return nil

	case reflect.Interface:
		if typ.NumMethod() == 0 {
			v := vm.anyFromLua(lv)
			if v == nil {
				target.Set(reflect.Zero(typ))
			} else {
				target.Set(reflect.ValueOf(v))
			}
			return nil
		}
	}

	return fmt.Errorf("unsupported target type %v", typ)
}

// anyFromLua maps a VM value onto the natural Go shape: float64, string,
// bool, []any for dense sequences, map[any]any otherwise, strong references
// for functions.
func (vm *VM) anyFromLua(lv lua.LValue) any {
	switch lv := lv.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(lv)
	case lua.LNumber:
		return float64(lv)
	case lua.LString:
		return string(lv)
	case *lua.LFunction:
		return vm.anchorFunction(lv)
	case *lua.LUserData:
		return lv.Value
	case *lua.LTable:
		if n := lv.Len(); n > 0 && tableEntryCount(lv) == n {
			seq := make([]any, n)
			for i := 1; i <= n; i++ {
				seq[i-1] = vm.anyFromLua(lv.RawGetInt(i))
			}
			return seq
		}
		m := make(map[any]any)
		var key lua.LValue = lua.LNil
		for {
			k, v := lv.Next(key)
			if k == lua.LNil {
				break
			}
			m[vm.anyFromLua(k)] = vm.anyFromLua(v)
			key = k
		}
		return m
	}
	return lv
}

func tableEntryCount(tbl *lua.LTable) int {
	count := 0
	var key lua.LValue = lua.LNil
	for {
		k, _ := tbl.Next(key)
		if k == lua.LNil {
			break
		}
		count++
		key = k
	}
	return count
}

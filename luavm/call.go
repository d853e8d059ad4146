package luavm

import (
	"fmt"
	"reflect"

	lua "github.com/yuin/gopher-lua"
)

// GoFunc adapts a Go function into a VM-callable entry point. A leading
// *VM parameter receives the calling state and is not counted as a script
// argument. A Go variadic tail captures surplus arguments; use []Value for
// a dynamic, kind-preserving capture. Defaults supplies values for the last
// fixed parameters, making them optional for the script.
type GoFunc struct {
	Name     string
	Func     any
	Defaults []any

	cache *callCache
}

type callCache struct {
	fn       reflect.Value
	numIn    int
	inTypes  []reflect.Type
	variadic bool
	wantsVM  bool
	fixed    int // script-visible fixed parameter count
	min      int
	max      int // -1 when variadic
	defaults []reflect.Value
	errIndex int
}

// init computes the binding shape once. Misdeclared functions are a
// programming error and panic, mirroring how a bad registration would be
// caught at startup rather than mid-script.
func (g *GoFunc) init() {
	if g.cache != nil {
		return
	}

	c := &callCache{}
	c.fn = reflect.ValueOf(g.Func)
	if c.fn.Kind() != reflect.Func {
		panic(fmt.Errorf("GoFunc %q: must be a function, got %T", g.Name, g.Func))
	}
	typ := c.fn.Type()
	c.numIn = typ.NumIn()
	c.variadic = typ.IsVariadic()
	c.inTypes = make([]reflect.Type, c.numIn)
	for i := range c.numIn {
		c.inTypes[i] = typ.In(i)
	}

	c.wantsVM = c.numIn > 0 && c.inTypes[0] == vmType
	c.fixed = c.numIn
	if c.wantsVM {
		c.fixed--
	}
	if c.variadic {
		c.fixed--
	}

	if len(g.Defaults) > c.fixed {
		panic(fmt.Errorf("GoFunc %q: %d defaults for %d fixed parameters", g.Name, len(g.Defaults), c.fixed))
	}
	c.defaults = make([]reflect.Value, len(g.Defaults))
	offset := 0
	if c.wantsVM {
		offset = 1
	}
	for i, d := range g.Defaults {
		paramType := c.inTypes[offset+c.fixed-len(g.Defaults)+i]
		dv, err := prepareValue(d, paramType)
		if err != nil {
			panic(fmt.Errorf("GoFunc %q: default %d: %w", g.Name, i, err))
		}
		c.defaults[i] = dv
	}

	c.min = c.fixed - len(g.Defaults)
	c.max = c.fixed
	if c.variadic {
		c.max = -1
	}

	c.errIndex = -1
	if n := typ.NumOut(); n > 0 && typ.Out(n-1).Implements(errorType) {
		c.errIndex = n - 1
	}

	g.cache = c
}

// entry wraps g for registration with the VM. The returned function is the
// outer boundary: any host-side failure inside it is converted into a VM
// error instead of unwinding raw into the interpreter.
func (g *GoFunc) entry(vm *VM) lua.LGFunction {
	g.init()
	return func(L *lua.LState) int {
		call := vm.forState(L)
		args, err := g.bind(call)
		if err != nil {
			call.raiseHostError(err)
			return 0
		}
		rets, err := g.invoke(args)
		if err != nil {
			call.raiseHostError(err)
			return 0
		}
		n, err := pushResults(call, rets)
		if err != nil {
			call.raiseHostError(err)
			return 0
		}
		return n
	}
}

// bind maps the stack's arguments onto the function's parameters: typed
// pulls for fixed slots, defaults for omitted trailing slots, a capture
// loop for a variadic tail. It only reads the stack.
func (g *GoFunc) bind(vm *VM) ([]reflect.Value, error) {
	c := g.cache
	nargs := vm.L.GetTop()

	if nargs < c.min || (c.max >= 0 && nargs > c.max) {
		return nil, &ArgumentCountError{
			Name: g.Name,
			Min:  c.min,
			Max:  c.max,
			Got:  nargs,
		}
	}

	args := make([]reflect.Value, 0, c.numIn)
	offset := 0
	if c.wantsVM {
		args = append(args, reflect.ValueOf(vm))
		offset = 1
	}

	for i := range c.fixed {
		paramType := c.inTypes[offset+i]
		if i < nargs {
			arg := reflect.New(paramType).Elem()
			if err := vm.fromLuaAt(i+1, arg); err != nil {
				return nil, err
			}
			args = append(args, arg)
		} else {
			args = append(args, c.defaults[i-c.min])
		}
	}

	if c.variadic {
		elemType := c.inTypes[c.numIn-1].Elem()
		for i := c.fixed; i < nargs; i++ {
			arg := reflect.New(elemType).Elem()
			if err := vm.fromLuaAt(i+1, arg); err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
	}

	return args, nil
}

// invoke runs the host function, trapping panics and the trailing error
// return. A VM error already unwinding through here keeps going.
func (g *GoFunc) invoke(args []reflect.Value) (rets []reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ae, ok := r.(*lua.ApiError); ok {
				panic(ae)
			}
			err = fmt.Errorf("%v", r)
		}
	}()

	c := g.cache
	rets = c.fn.Call(args)

	if c.errIndex >= 0 {
		if e := rets[c.errIndex]; !e.IsNil() {
			return nil, e.Interface().(error)
		}
		rets = rets[:c.errIndex]
	}
	return rets, nil
}

// pushResults converts host return values into VM results: none, one, a
// []Value dynamic list, or a Results struct pushed field by field.
func pushResults(vm *VM, rets []reflect.Value) (int, error) {
	n := 0
	for _, ret := range rets {
		k, err := pushResult(vm, ret)
		if err != nil {
			return 0, err
		}
		n += k
	}
	return n, nil
}

func pushResult(vm *VM, ret reflect.Value) (int, error) {
	if vs, ok := ret.Interface().([]Value); ok {
		for _, v := range vs {
			if err := Push(vm, v); err != nil {
				return 0, err
			}
		}
		return len(vs), nil
	}

	if isResultsStruct(ret.Type()) {
		fields := visibleFields(ret.Type())
		for _, i := range fields {
			if err := Push(vm, ret.Field(i).Interface()); err != nil {
				return 0, err
			}
		}
		return len(fields), nil
	}

	if err := Push(vm, ret.Interface()); err != nil {
		return 0, err
	}
	return 1, nil
}

// raiseHostError re-raises a host failure as a VM runtime error, unwinding
// to the nearest protected call. The raise path adds the source position of
// the call site itself.
func (vm *VM) raiseHostError(err error) {
	vm.L.RaiseError("%s", err.Error())
}

// prepareValue converts a Go value for assignment to a parameter type,
// allowing the numeric widenings a literal default usually needs.
func prepareValue(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		switch t.Kind() {
		case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot use nil as %v", t)
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if isNumericKind(rv.Kind()) && isNumericKind(t.Kind()) {
		return rv.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %v (type %v) as %v", v, rv.Type(), t)
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

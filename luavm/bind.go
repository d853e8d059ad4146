package luavm

import (
	"fmt"
	"reflect"

	lua "github.com/yuin/gopher-lua"
)

// BindFunc wraps a VM function handle as a typed Go function. Arguments are
// converted on the way in and results parsed on the way out according to F's
// signature. If F's last result is an error it receives call failures;
// otherwise a failing call panics with the error, there being nowhere else
// to report it.
func BindFunc[F any](f *Function) (F, error) {
	typ := reflect.TypeFor[F]()
	if typ.Kind() != reflect.Func {
		var zero F
		return zero, fmt.Errorf("bind: %v is not a function type", typ)
	}
	return f.a.vm.bindFunc(typ, f).Interface().(F), nil
}

func (vm *VM) bindFunc(typ reflect.Type, fn *Function) reflect.Value {
	numOut := typ.NumOut()
	wantsErr := numOut > 0 && typ.Out(numOut-1) == errorType

	outTypes := make([]reflect.Type, numOut)
	for i := range numOut {
		outTypes[i] = typ.Out(i)
	}
	valueOuts := numOut
	if wantsErr {
		valueOuts--
	}

	// a single Results struct output consumes one result per visible field
	tupleOut := valueOuts == 1 && isResultsStruct(outTypes[0])

	return reflect.MakeFunc(typ, func(in []reflect.Value) []reflect.Value {
		args := make([]any, 0, len(in))
		for i, arg := range in {
			if typ.IsVariadic() && i == len(in)-1 {
				for j := range arg.Len() {
					args = append(args, arg.Index(j).Interface())
				}
				continue
			}
			args = append(args, arg.Interface())
		}

		outs := make([]reflect.Value, numOut)
		for i := range numOut {
			outs[i] = reflect.New(outTypes[i]).Elem()
		}

		fail := func(err error) []reflect.Value {
			if wantsErr {
				outs[numOut-1].Set(reflect.ValueOf(err))
				return outs
			}
			panic(err)
		}

		rets, err := fn.callRaw(lua.MultRet, args)
		if err != nil {
			return fail(err)
		}

		if tupleOut {
			if err := vm.pullTuple(rets, outs[0]); err != nil {
				return fail(err)
			}
		} else if err := vm.pullResults(rets, outs[:valueOuts]); err != nil {
			return fail(err)
		}
		return outs
	})
}

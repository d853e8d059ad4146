package luavm

import (
	lua "github.com/yuin/gopher-lua"
)

// Overload groups candidate functions under one VM-visible name. Candidates
// are tried in declaration order and the first whose binding accepts the
// arguments wins, so cheaper or more specific candidates belong first.
type Overload struct {
	Name       string
	Candidates []*GoFunc
}

func (o *Overload) entry(vm *VM) lua.LGFunction {
	for _, cand := range o.Candidates {
		cand.init()
	}
	return func(L *lua.LState) int {
		call := vm.forState(L)
		rejections := make([]error, 0, len(o.Candidates))
		for _, cand := range o.Candidates {
			args, err := cand.bind(call)
			if err != nil {
				// only binding shape failures move resolution along,
				// anything else aborts immediately
				if isBindingReject(err) {
					rejections = append(rejections, err)
					continue
				}
				call.raiseHostError(err)
				return 0
			}
			rets, err := cand.invoke(args)
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
		call.raiseHostError(&NoOverloadMatchedError{
			Name:       o.Name,
			Rejections: rejections,
		})
		return 0
	}
}

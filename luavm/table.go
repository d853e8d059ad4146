package luavm

import (
	"iter"

	lua "github.com/yuin/gopher-lua"
)

// Get reads a field by key without invoking metamethods. The key may be any
// pushable Go value. Table and function results come back strongly anchored.
func (t *Table) Get(key any) (Value, error) {
	tbl, err := t.table()
	if err != nil {
		return Nil(), err
	}
	k, err := t.a.vm.toLua(key)
	if err != nil {
		return Nil(), err
	}
	return t.a.vm.ownedValue(tbl.RawGet(k)), nil
}

// Set writes a field by key without invoking metamethods.
func (t *Table) Set(key, value any) error {
	tbl, err := t.table()
	if err != nil {
		return err
	}
	k, err := t.a.vm.toLua(key)
	if err != nil {
		return err
	}
	v, err := t.a.vm.toLua(value)
	if err != nil {
		return err
	}
	tbl.RawSet(k, v)
	return nil
}

// Len returns the table's sequence length.
func (t *Table) Len() (int, error) {
	tbl, err := t.table()
	if err != nil {
		return 0, err
	}
	return tbl.Len(), nil
}

// Append sets the value at sequence position Len+1.
func (t *Table) Append(value any) error {
	tbl, err := t.table()
	if err != nil {
		return err
	}
	v, err := t.a.vm.toLua(value)
	if err != nil {
		return err
	}
	tbl.Append(v)
	return nil
}

// TableGet reads a field and converts it to T.
func TableGet[T any](t *Table, key any) (ret T, err error) {
	tbl, err := t.table()
	if err != nil {
		return
	}
	k, err := t.a.vm.toLua(key)
	if err != nil {
		return
	}
	err = FromLua(t.a.vm, tbl.RawGet(k), &ret)
	return
}

// TableSet writes a typed value to a field.
func TableSet[T any](t *Table, key any, value T) error {
	return t.Set(key, value)
}

// Ipairs iterates the table's sequence part in order, stopping at the first
// nil. Yielded tables and functions are strongly anchored; the consumer
// releases what it keeps.
func (t *Table) Ipairs() (iter.Seq2[int, Value], error) {
	tbl, err := t.table()
	if err != nil {
		return nil, err
	}
	vm := t.a.vm
	return func(yield func(int, Value) bool) {
		for i := 1; ; i++ {
			lv := tbl.RawGetInt(i)
			if lv == lua.LNil {
				return
			}
			if !yield(i, vm.ownedValue(lv)) {
				return
			}
		}
	}, nil
}

// Pairs iterates every entry of the table in VM order.
func (t *Table) Pairs() (iter.Seq2[Value, Value], error) {
	tbl, err := t.table()
	if err != nil {
		return nil, err
	}
	vm := t.a.vm
	return func(yield func(Value, Value) bool) {
		key := lua.LValue(lua.LNil)
		for {
			k, v := tbl.Next(key)
			if k == lua.LNil {
				return
			}
			if !yield(vm.ownedValue(k), vm.ownedValue(v)) {
				return
			}
			key = k
		}
	}, nil
}

// TableIpairs iterates the sequence part with elements converted to T.
// Conversion failures panic; use Ipairs for kind-by-kind handling.
func TableIpairs[T any](t *Table) iter.Seq2[int, T] {
	tbl, err := t.table()
	if err != nil {
		panic(err)
	}
	vm := t.a.vm
	return func(yield func(int, T) bool) {
		for i := 1; ; i++ {
			lv := tbl.RawGetInt(i)
			if lv == lua.LNil {
				return
			}
			var elem T
			if err := FromLua(vm, lv, &elem); err != nil {
				panic(err)
			}
			if !yield(i, elem) {
				return
			}
		}
	}
}

// TablePairs iterates every entry with keys and values converted to K and V.
// Conversion failures panic; use Pairs for kind-by-kind handling.
func TablePairs[K comparable, V any](t *Table) iter.Seq2[K, V] {
	tbl, err := t.table()
	if err != nil {
		panic(err)
	}
	vm := t.a.vm
	return func(yield func(K, V) bool) {
		key := lua.LValue(lua.LNil)
		for {
			k, v := tbl.Next(key)
			if k == lua.LNil {
				return
			}
			var gk K
			if err := FromLua(vm, k, &gk); err != nil {
				panic(err)
			}
			var gv V
			if err := FromLua(vm, v, &gv); err != nil {
				panic(err)
			}
			if !yield(gk, gv) {
				return
			}
			key = k
		}
	}
}

// Metatable returns the table's metatable, or nil when it has none.
func (t *Table) Metatable() (*Table, error) {
	tbl, err := t.table()
	if err != nil {
		return nil, err
	}
	mt := t.a.vm.L.GetMetatable(tbl)
	mtbl, ok := mt.(*lua.LTable)
	if !ok {
		return nil, nil
	}
	return t.a.vm.anchorTable(mtbl), nil
}

// SetMetatable attaches mt as the table's metatable. A nil mt detaches it.
func (t *Table) SetMetatable(mt *Table) error {
	tbl, err := t.table()
	if err != nil {
		return err
	}
	if mt == nil {
		t.a.vm.L.SetMetatable(tbl, lua.LNil)
		return nil
	}
	mtbl, err := mt.table()
	if err != nil {
		return err
	}
	t.a.vm.L.SetMetatable(tbl, mtbl)
	return nil
}

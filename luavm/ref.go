package luavm

import (
	lua "github.com/yuin/gopher-lua"
)

// anchorRegistry hands out slots in the bridge-held anchor table. The table
// itself is reachable from the VM struct for the whole life of the state, so
// anchored values survive any stack movement. Freed slots are recycled.
type anchorRegistry struct {
	tbl  *lua.LTable
	free []int
	next int
}

func (r *anchorRegistry) alloc() int {
	if n := len(r.free); n > 0 {
		slot := r.free[n-1]
		r.free = r.free[:n-1]
		return slot
	}
	r.next++
	return r.next
}

// anchor is the shared, reference-counted core of a strong reference.
// Handles duplicated from one another share a single anchor, so they share
// one slot and one count. The slot is freed exactly once, when the count
// reaches zero, and never for a VM the bridge does not own.
type anchor struct {
	vm    *VM
	slot  int
	count int
	owns  bool
}

func (a *anchor) retain() {
	a.count++
}

func (a *anchor) release() {
	if a.count <= 0 {
		return
	}
	a.count--
	if a.count > 0 {
		return
	}
	if !a.owns {
		return
	}
	a.vm.reg.tbl.RawSetInt(a.slot, lua.LNil)
	a.vm.reg.free = append(a.vm.reg.free, a.slot)
}

func (a *anchor) get(want lua.LValueType, op string) (lua.LValue, error) {
	if a.count <= 0 {
		return nil, &ReferenceStateError{Op: op, Reason: "reference already released"}
	}
	lv := a.vm.reg.tbl.RawGetInt(a.slot)
	if lv.Type() != want {
		return nil, &ReferenceStateError{
			Op:     op,
			Reason: "slot holds " + lv.Type().String() + ", not " + want.String(),
		}
	}
	return lv, nil
}

func (vm *VM) anchorValue(lv lua.LValue) *anchor {
	slot := vm.reg.alloc()
	vm.reg.tbl.RawSetInt(slot, lv)
	return &anchor{
		vm:    vm,
		slot:  slot,
		count: 1,
		owns:  vm.owns,
	}
}

// Table is a strong, reference-counted handle to a VM table.
type Table struct {
	a        *anchor
	released bool
}

// Function is a strong, reference-counted handle to a VM function.
type Function struct {
	a        *anchor
	released bool
}

// NewTable creates a fresh table in the VM and returns a strong handle.
func NewTable(vm *VM) *Table {
	return &Table{a: vm.anchorValue(vm.L.NewTable())}
}

func (vm *VM) anchorTable(tbl *lua.LTable) *Table {
	return &Table{a: vm.anchorValue(tbl)}
}

func (vm *VM) anchorFunction(fn *lua.LFunction) *Function {
	return &Function{a: vm.anchorValue(fn)}
}

// TakeTable anchors the value at the top of the stack, consuming the slot.
func (vm *VM) TakeTable() (*Table, error) {
	lv := vm.At(-1)
	tbl, ok := lv.(*lua.LTable)
	if !ok {
		return nil, typeMismatch("table", lv, vm.Top())
	}
	vm.PopN(1)
	return vm.anchorTable(tbl), nil
}

// TakeFunction anchors the value at the top of the stack, consuming the slot.
func (vm *VM) TakeFunction() (*Function, error) {
	lv := vm.At(-1)
	fn, ok := lv.(*lua.LFunction)
	if !ok {
		return nil, typeMismatch("function", lv, vm.Top())
	}
	vm.PopN(1)
	return vm.anchorFunction(fn), nil
}

// Clone shares the anchor slot: both handles stay valid until each has been
// released.
func (t *Table) Clone() *Table {
	t.a.retain()
	return &Table{a: t.a}
}

// Release drops this handle's share of the slot. Releasing the same handle
// twice is a no-op.
func (t *Table) Release() {
	if t.released {
		return
	}
	t.released = true
	t.a.release()
}

// Push puts the referenced table on top of the stack.
func (t *Table) Push() error {
	lv, err := t.table()
	if err != nil {
		return err
	}
	t.a.vm.L.Push(lv)
	return nil
}

func (t *Table) table() (*lua.LTable, error) {
	if t.released {
		return nil, &ReferenceStateError{Op: "table", Reason: "handle already released"}
	}
	lv, err := t.a.get(lua.LTTable, "table")
	if err != nil {
		return nil, err
	}
	return lv.(*lua.LTable), nil
}

func (f *Function) Clone() *Function {
	f.a.retain()
	return &Function{a: f.a}
}

func (f *Function) Release() {
	if f.released {
		return
	}
	f.released = true
	f.a.release()
}

func (f *Function) Push() error {
	lv, err := f.function()
	if err != nil {
		return err
	}
	f.a.vm.L.Push(lv)
	return nil
}

func (f *Function) function() (*lua.LFunction, error) {
	if f.released {
		return nil, &ReferenceStateError{Op: "function", Reason: "handle already released"}
	}
	lv, err := f.a.get(lua.LTFunction, "function")
	if err != nil {
		return nil, err
	}
	return lv.(*lua.LFunction), nil
}

// Env returns the function's environment table.
func (f *Function) Env() (*Table, error) {
	fn, err := f.function()
	if err != nil {
		return nil, err
	}
	env := f.a.vm.L.GetFEnv(fn)
	tbl, ok := env.(*lua.LTable)
	if !ok {
		return nil, typeMismatch("table", env, 0)
	}
	return f.a.vm.anchorTable(tbl), nil
}

// SetEnv replaces the function's environment table.
func (f *Function) SetEnv(env *Table) error {
	fn, err := f.function()
	if err != nil {
		return err
	}
	tbl, err := env.table()
	if err != nil {
		return err
	}
	f.a.vm.L.SetFEnv(fn, tbl)
	return nil
}

// WeakTable addresses a table by stack position. It owns nothing: the
// position is only as durable as the caller keeps the slot alive, and the
// slot's type is re-checked on every access. Staleness that happens to leave
// a table of the wrong identity in the slot cannot be detected; that is a
// documented hazard, not memory unsafety.
type WeakTable struct {
	vm    *VM
	index int
}

// WeakFunction addresses a function by stack position. Same validity rules
// as WeakTable.
type WeakFunction struct {
	vm    *VM
	index int
}

func WeakTableAt(vm *VM, index int) (WeakTable, error) {
	idx := vm.absIndex(index)
	if lv := vm.At(idx); lv.Type() != lua.LTTable {
		return WeakTable{}, typeMismatch("table", lv, idx)
	}
	return WeakTable{vm: vm, index: idx}, nil
}

func WeakFunctionAt(vm *VM, index int) (WeakFunction, error) {
	idx := vm.absIndex(index)
	if lv := vm.At(idx); lv.Type() != lua.LTFunction {
		return WeakFunction{}, typeMismatch("function", lv, idx)
	}
	return WeakFunction{vm: vm, index: idx}, nil
}

func (w WeakTable) table() (*lua.LTable, error) {
	lv := w.vm.L.Get(w.index)
	tbl, ok := lv.(*lua.LTable)
	if !ok {
		return nil, typeMismatch("table", lv, w.index)
	}
	return tbl, nil
}

func (w WeakTable) Push() error {
	tbl, err := w.table()
	if err != nil {
		return err
	}
	w.vm.L.Push(tbl)
	return nil
}

// Pin promotes the weak reference into a strong one.
func (w WeakTable) Pin() (*Table, error) {
	tbl, err := w.table()
	if err != nil {
		return nil, err
	}
	return w.vm.anchorTable(tbl), nil
}

func (w WeakFunction) function() (*lua.LFunction, error) {
	lv := w.vm.L.Get(w.index)
	fn, ok := lv.(*lua.LFunction)
	if !ok {
		return nil, typeMismatch("function", lv, w.index)
	}
	return fn, nil
}

func (w WeakFunction) Push() error {
	fn, err := w.function()
	if err != nil {
		return err
	}
	w.vm.L.Push(fn)
	return nil
}

func (w WeakFunction) Pin() (*Function, error) {
	fn, err := w.function()
	if err != nil {
		return nil, err
	}
	return w.vm.anchorFunction(fn), nil
}

package luavm

import (
	"errors"
	"strings"
	"testing"

	lua "github.com/yuin/gopher-lua"
)

func TestPushPullRoundTrip(t *testing.T) {
	vm := New()
	defer vm.Close()

	if err := Push(vm, 42); err != nil {
		t.Fatal(err)
	}
	n, err := Pull[int](vm, -1)
	if err != nil {
		t.Fatal(err)
	}
	if n != 42 {
		t.Fatalf("expected 42, got %d", n)
	}
	vm.PopN(1)

	if err := Push(vm, "hello"); err != nil {
		t.Fatal(err)
	}
	s, err := Pull[string](vm, -1)
	if err != nil {
		t.Fatal(err)
	}
	if s != "hello" {
		t.Fatalf("expected hello, got %q", s)
	}
	vm.PopN(1)

	if err := Push(vm, true); err != nil {
		t.Fatal(err)
	}
	b, err := Pull[bool](vm, -1)
	if err != nil {
		t.Fatal(err)
	}
	if !b {
		t.Fatal("expected true")
	}
	vm.PopN(1)

	if err := Push(vm, []int{3, 1, 4}); err != nil {
		t.Fatal(err)
	}
	nums, err := Pull[[]int](vm, -1)
	if err != nil {
		t.Fatal(err)
	}
	if len(nums) != 3 || nums[0] != 3 || nums[1] != 1 || nums[2] != 4 {
		t.Fatalf("unexpected slice: %v", nums)
	}
	vm.PopN(1)

	if err := Push(vm, map[string]int{"a": 1, "b": 2}); err != nil {
		t.Fatal(err)
	}
	m, err := Pull[map[string]int](vm, -1)
	if err != nil {
		t.Fatal(err)
	}
	if len(m) != 2 || m["a"] != 1 || m["b"] != 2 {
		t.Fatalf("unexpected map: %v", m)
	}
	vm.PopN(1)

	if vm.Top() != 0 {
		t.Fatalf("stack not balanced, top is %d", vm.Top())
	}
}

func TestPullNoCoercion(t *testing.T) {
	vm := New()
	defer vm.Close()

	// a numeric string never becomes a number
	if err := Push(vm, "42"); err != nil {
		t.Fatal(err)
	}
	_, err := Pull[int](vm, -1)
	var tm *TypeMismatchError
	if !errors.As(err, &tm) {
		t.Fatalf("expected *TypeMismatchError, got %v", err)
	}
	vm.PopN(1)

	// nor a number a string
	if err := Push(vm, 42); err != nil {
		t.Fatal(err)
	}
	if _, err := Pull[string](vm, -1); !errors.As(err, &tm) {
		t.Fatalf("expected *TypeMismatchError, got %v", err)
	}
	vm.PopN(1)

	// boolean is not truthiness
	if err := Push(vm, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := Pull[bool](vm, -1); !errors.As(err, &tm) {
		t.Fatalf("expected *TypeMismatchError, got %v", err)
	}
	vm.PopN(1)
}

func TestPullIntegerStrictness(t *testing.T) {
	vm := New()
	defer vm.Close()

	if err := Push(vm, 1.5); err != nil {
		t.Fatal(err)
	}
	_, err := Pull[int](vm, -1)
	if err == nil || !strings.Contains(err.Error(), "fractional") {
		t.Fatalf("expected fractional error, got %v", err)
	}
	vm.PopN(1)

	if err := Push(vm, -1); err != nil {
		t.Fatal(err)
	}
	if _, err := Pull[uint](vm, -1); err == nil {
		t.Fatal("expected error for negative to uint")
	}
	vm.PopN(1)

	if err := Push(vm, 300); err != nil {
		t.Fatal(err)
	}
	if _, err := Pull[int8](vm, -1); err == nil {
		t.Fatal("expected overflow error")
	}
	// a whole float is still an integer
	f, err := Pull[float64](vm, -1)
	if err != nil {
		t.Fatal(err)
	}
	if f != 300 {
		t.Fatalf("expected 300, got %v", f)
	}
	vm.PopN(1)
}

func TestPushStruct(t *testing.T) {
	vm := New()
	defer vm.Close()

	type point struct {
		X      int
		Y      int
		Label  string `lua:"label"`
		Secret string `lua:"-"`
		hidden int
	}

	if err := Push(vm, point{X: 3, Y: 4, Label: "p", Secret: "s", hidden: 9}); err != nil {
		t.Fatal(err)
	}
	tbl, ok := vm.At(-1).(*lua.LTable)
	if !ok {
		t.Fatalf("expected table, got %v", vm.At(-1))
	}
	if tbl.RawGetString("X") != lua.LNumber(3) {
		t.Fatalf("unexpected X: %v", tbl.RawGetString("X"))
	}
	if tbl.RawGetString("label") != lua.LString("p") {
		t.Fatalf("unexpected label: %v", tbl.RawGetString("label"))
	}
	if tbl.RawGetString("Secret") != lua.LNil {
		t.Fatal("tagged-out field leaked")
	}
	if tbl.RawGetString("hidden") != lua.LNil {
		t.Fatal("unexported field leaked")
	}

	got, err := Pull[point](vm, -1)
	if err != nil {
		t.Fatal(err)
	}
	if got.X != 3 || got.Y != 4 || got.Label != "p" {
		t.Fatalf("unexpected round trip: %+v", got)
	}
	if got.Secret != "" || got.hidden != 0 {
		t.Fatalf("hidden fields should stay zero: %+v", got)
	}
	vm.PopN(1)
}

func TestPullRecordPermissive(t *testing.T) {
	vm := New()
	defer vm.Close()

	type config struct {
		Host string
		Port int
	}

	res, err := vm.ExecString(`return { Host = "db", Extra = true }`, "chunk")
	if err != nil {
		t.Fatal(err)
	}
	tbl, err := res[0].Table()
	if err != nil {
		t.Fatal(err)
	}
	if err := tbl.Push(); err != nil {
		t.Fatal(err)
	}

	got, err := Pull[config](vm, -1)
	if err != nil {
		t.Fatal(err)
	}
	// unknown keys ignored, missing fields keep their zero value
	if got.Host != "db" || got.Port != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}
	vm.PopN(1)
	tbl.Release()
}

func TestPullAny(t *testing.T) {
	vm := New()
	defer vm.Close()

	res, err := vm.ExecString(`return 1.5, "s", true, {10, 20}, {a = 1}`, "chunk")
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 5 {
		t.Fatalf("expected 5 results, got %d", len(res))
	}

	check := func(v Value, want any) {
		t.Helper()
		lv, err := vm.valueToLua(v)
		if err != nil {
			t.Fatal(err)
		}
		var got any
		if err := FromLua(vm, lv, &got); err != nil {
			t.Fatal(err)
		}
		switch want := want.(type) {
		case []any:
			seq, ok := got.([]any)
			if !ok || len(seq) != len(want) {
				t.Fatalf("expected %v, got %v", want, got)
			}
			for i := range want {
				if seq[i] != want[i] {
					t.Fatalf("expected %v, got %v", want, got)
				}
			}
		case map[any]any:
			m, ok := got.(map[any]any)
			if !ok || len(m) != len(want) {
				t.Fatalf("expected %v, got %v", want, got)
			}
			for k, v := range want {
				if m[k] != v {
					t.Fatalf("expected %v, got %v", want, got)
				}
			}
		default:
			if got != want {
				t.Fatalf("expected %v (%T), got %v (%T)", want, want, got, got)
			}
		}
	}

	check(res[0], 1.5)
	check(res[1], "s")
	check(res[2], true)
	check(res[3], []any{float64(10), float64(20)})
	check(res[4], map[any]any{"a": float64(1)})
}

func TestPushBytes(t *testing.T) {
	vm := New()
	defer vm.Close()

	if err := Push(vm, []byte{0x00, 0xff, 0x10}); err != nil {
		t.Fatal(err)
	}
	if vm.TypeAt(-1) != lua.LTString {
		t.Fatalf("expected string, got %v", vm.TypeAt(-1))
	}
	b, err := Pull[[]byte](vm, -1)
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != 3 || b[0] != 0x00 || b[1] != 0xff || b[2] != 0x10 {
		t.Fatalf("unexpected bytes: %v", b)
	}
	vm.PopN(1)
}

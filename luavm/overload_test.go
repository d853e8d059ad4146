package luavm

import (
	"fmt"
	"strings"
	"testing"
)

func TestOverloadResolution(t *testing.T) {
	vm := New()
	defer vm.Close()

	err := vm.Register("describe", &Overload{
		Candidates: []*GoFunc{
			{Func: func(n float64) string {
				return fmt.Sprintf("number %v", n)
			}},
			{Func: func(s string) string {
				return "text " + s
			}},
			{Func: func(a, b float64) string {
				return fmt.Sprintf("pair %v %v", a, b)
			}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	run := func(src string) string {
		t.Helper()
		res, err := vm.ExecString(src, "chunk")
		if err != nil {
			t.Fatal(err)
		}
		s, err := res[0].Text()
		if err != nil {
			t.Fatal(err)
		}
		return s
	}

	if got := run("return describe(3)"); got != "number 3" {
		t.Fatalf("unexpected: %q", got)
	}
	if got := run(`return describe("x")`); got != "text x" {
		t.Fatalf("unexpected: %q", got)
	}
	if got := run("return describe(1, 2)"); got != "pair 1 2" {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestOverloadDeclarationOrderWins(t *testing.T) {
	vm := New()
	defer vm.Close()

	// both candidates accept a single number; the first declared wins
	err := vm.Register("pick", &Overload{
		Candidates: []*GoFunc{
			{Func: func(n float64) string { return "first" }},
			{Func: func(n float64) string { return "second" }},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := vm.ExecString("return pick(1)", "chunk")
	if err != nil {
		t.Fatal(err)
	}
	if s, _ := res[0].Text(); s != "first" {
		t.Fatalf("expected first candidate, got %q", s)
	}
}

func TestOverloadNoMatch(t *testing.T) {
	vm := New()
	defer vm.Close()

	err := vm.Register("f", &Overload{
		Candidates: []*GoFunc{
			{Func: func(n float64) float64 { return n }},
			{Func: func(s string) string { return s }},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = vm.ExecString("return f(true)", "chunk")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "no overload of f matched") {
		t.Fatalf("unexpected error: %v", err)
	}
	// every rejection reason is carried
	if !strings.Contains(err.Error(), "candidate 1") || !strings.Contains(err.Error(), "candidate 2") {
		t.Fatalf("expected per-candidate reasons: %v", err)
	}
}

func TestOverloadAbortsOnApplicationError(t *testing.T) {
	vm := New()
	defer vm.Close()

	second := false
	err := vm.Register("f", &Overload{
		Candidates: []*GoFunc{
			{Func: func(n float64) (float64, error) {
				return 0, fmt.Errorf("storage offline")
			}},
			{Func: func(n float64) float64 {
				second = true
				return n
			}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	// a matched candidate's failure is final, resolution does not resume
	_, err = vm.ExecString("return f(1)", "chunk")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "storage offline") {
		t.Fatalf("unexpected error: %v", err)
	}
	if second {
		t.Fatal("resolution moved past a matched candidate")
	}
}

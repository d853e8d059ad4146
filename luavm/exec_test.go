package luavm

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExecString(t *testing.T) {
	vm := New()
	defer vm.Close()

	res, err := vm.ExecString("return 1 + 2, 'x'", "chunk")
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 {
		t.Fatalf("expected 2 results, got %d", len(res))
	}
	if n, _ := res[0].Number(); n != 3 {
		t.Fatalf("expected 3, got %v", res[0])
	}
	if s, _ := res[1].Text(); s != "x" {
		t.Fatalf("expected x, got %v", res[1])
	}

	// a chunk without return yields nothing
	res, err = vm.ExecString("local y = 1", "chunk")
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 0 {
		t.Fatalf("expected no results, got %d", len(res))
	}

	if vm.Top() != 0 {
		t.Fatalf("stack not balanced, top is %d", vm.Top())
	}
}

func TestExecCompileError(t *testing.T) {
	vm := New()
	defer vm.Close()

	_, err := vm.ExecString("return ((", "bad.lua")
	if err == nil {
		t.Fatal("expected compile error")
	}
	if !strings.Contains(err.Error(), "bad.lua") {
		t.Fatalf("expected chunk name in error, got: %v", err)
	}
}

func TestExecFile(t *testing.T) {
	vm := New()
	defer vm.Close()

	path := filepath.Join(t.TempDir(), "script.lua")
	if err := os.WriteFile(path, []byte("return 6 * 7"), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := vm.ExecFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := res[0].Number(); n != 42 {
		t.Fatalf("expected 42, got %v", res[0])
	}

	if _, err := vm.ExecFile(filepath.Join(t.TempDir(), "absent.lua")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestGlobals(t *testing.T) {
	vm := New()
	defer vm.Close()

	if err := vm.SetGlobal("answer", 42); err != nil {
		t.Fatal(err)
	}
	res, err := vm.ExecString("return answer", "chunk")
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := res[0].Number(); n != 42 {
		t.Fatalf("expected 42, got %v", res[0])
	}

	if _, err := vm.ExecString("question = 'life'", "chunk"); err != nil {
		t.Fatal(err)
	}
	q, err := GlobalAs[string](vm, "question")
	if err != nil {
		t.Fatal(err)
	}
	if q != "life" {
		t.Fatalf("expected life, got %q", q)
	}

	if !vm.Global("absent").IsNil() {
		t.Fatal("expected nil for absent global")
	}
}

func TestSandboxedEnvironments(t *testing.T) {
	vm := New()
	defer vm.Close()

	envA := vm.NewEnv()
	defer envA.Release()
	envB := vm.NewEnv()
	defer envB.Release()

	if _, err := vm.ExecStringIn(envA, "secret = 1", "a"); err != nil {
		t.Fatal(err)
	}

	// the name is invisible from the other environment and from the globals
	res, err := vm.ExecStringIn(envB, "return secret", "b")
	if err != nil {
		t.Fatal(err)
	}
	if !res[0].IsNil() {
		t.Fatalf("name leaked across environments: %v", res[0])
	}
	if !vm.Global("secret").IsNil() {
		t.Fatal("name leaked into globals")
	}

	// the defining environment still sees it
	res, err = vm.ExecStringIn(envA, "return secret", "a")
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := res[0].Number(); n != 1 {
		t.Fatalf("expected 1, got %v", res[0])
	}
}

func TestEnvAllowList(t *testing.T) {
	vm := New()
	defer vm.Close()

	// a bare environment has no stdlib at all
	bare := vm.NewEnv()
	defer bare.Release()
	if _, err := vm.ExecStringIn(bare, "return tostring(1)", "bare"); err == nil {
		t.Fatal("expected error calling absent tostring")
	}

	// an allow-listed name comes through
	env := vm.NewEnv("tostring")
	defer env.Release()
	res, err := vm.ExecStringIn(env, "return tostring(1)", "allowed")
	if err != nil {
		t.Fatal(err)
	}
	if s, _ := res[0].Text(); s != "1" {
		t.Fatalf("expected \"1\", got %v", res[0])
	}
}

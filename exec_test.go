package wscript

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestExecInjectsData(t *testing.T) {
	data := map[string]any{"x": 10, "y": int64(20), "name": "mycel", "flag": true, "nothing": nil}
	val, err := Exec(context.Background(), "if flag && nothing == false then x + y", data, WithOutput(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	if val.Inspect() != "30" {
		t.Fatalf("expected 30, got %s", val.Inspect())
	}
	val, err = Exec(context.Background(), "name", data, WithOutput(io.Discard))
	if err != nil || FromValue(val) != "mycel" {
		t.Fatalf("expected injected string, got %v, %v", val, err)
	}
}

func TestExecReportsParseErrors(t *testing.T) {
	_, err := Exec(context.Background(), "let (", nil)
	if !IsCode(err, ErrCodeParse) {
		t.Fatalf("expected PARSE_ERROR, got %v", err)
	}
}

func TestExecFile(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "hello.mc")
	if err := os.WriteFile(script, []byte("println(\"hi\");\n6 * 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	val, err := ExecFile(context.Background(), script, nil, WithOutput(&out))
	if err != nil {
		t.Fatal(err)
	}
	if val.Inspect() != "42" || out.String() != "hi\n\n" {
		t.Fatalf("unexpected result %s with output %q", val.Inspect(), out.String())
	}

	other := filepath.Join(dir, "hello.txt")
	if err := os.WriteFile(other, []byte("1"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = ExecFile(context.Background(), other, nil)
	if !IsCode(err, ErrCodeInput) {
		t.Fatalf("expected INPUT_ERROR for a non .mc file, got %v", err)
	}
	if e := err.(*Error); e.Cause == nil || e.Message != other {
		t.Fatalf("expected the rejected path with a cause, got %v", e)
	}

	if _, err := ExecFile(context.Background(), filepath.Join(dir, "missing.mc"), nil); !IsCode(err, ErrCodeInput) {
		t.Fatalf("expected INPUT_ERROR for a missing file, got %v", err)
	}
}

func TestProgramCache(t *testing.T) {
	cache, err := NewProgramCache(16)
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	src := "a = 1; a + 1"
	first, err := cache.Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	cache.Wait()
	second, err := cache.Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatal("expected the cached program to be reused")
	}

	for i := 0; i < 2; i++ {
		if _, err := cache.Parse("a = "); !IsCode(err, ErrCodeParse) {
			t.Fatalf("expected PARSE_ERROR, got %v", err)
		}
		cache.Wait()
	}

	for i := 0; i < 3; i++ {
		val, err := Exec(context.Background(), src, nil, WithCache(cache), WithOutput(io.Discard))
		if err != nil {
			t.Fatal(err)
		}
		if val.Inspect() != "2" {
			t.Fatalf("run %d: expected 2, got %s", i, val.Inspect())
		}
	}
}

func TestNilProgramCacheParses(t *testing.T) {
	var cache *ProgramCache
	program, err := cache.Parse("1")
	if err != nil || len(program.Body) != 1 {
		t.Fatalf("expected a parsed program, got %v, %v", program, err)
	}
	cache.Wait()
	cache.Close()
}

func TestInterpreterKeepsGlobals(t *testing.T) {
	var out bytes.Buffer
	ip := NewInterpreter(WithOutput(&out))
	if _, _, err := ip.Eval(context.Background(), "a = 41; inc = lambda (n) n + 1"); err != nil {
		t.Fatal(err)
	}
	val, _, err := ip.Eval(context.Background(), "print(inc(a)); inc(a)")
	if err != nil {
		t.Fatal(err)
	}
	if val.Inspect() != "42" || out.String() != "42\n" {
		t.Fatalf("unexpected result %s with output %q", val.Inspect(), out.String())
	}
	if _, _, err := ip.Eval(context.Background(), "oops("); !IsCode(err, ErrCodeParse) {
		t.Fatalf("expected PARSE_ERROR, got %v", err)
	}
	if v, err := ip.Globals().Get("a"); err != nil || v.Inspect() != "41" {
		t.Fatalf("expected globals to survive a failed line, got %v, %v", v, err)
	}
}

func TestRuntimeConfigDefaults(t *testing.T) {
	saved := GetRuntimeConfig()
	defer SetRuntimeConfig(saved)

	SetRuntimeConfig(RuntimeConfig{StackBudget: 0, MaxBounces: 2})
	cfg := effectiveRuntimeConfig(context.Background())
	if cfg.StackBudget != DefaultStackBudget || cfg.MaxBounces != 2 {
		t.Fatalf("unexpected effective config %+v", cfg)
	}
	budget := 5
	cfg = effectiveRuntimeConfig(WithRuntimeConfigOverride(context.Background(), RuntimeConfigOverride{StackBudget: &budget}))
	if cfg.StackBudget != 5 || cfg.MaxBounces != 2 {
		t.Fatalf("expected override to replace only the budget, got %+v", cfg)
	}

	huge := 2000000000
	cfg = effectiveRuntimeConfig(WithRuntimeConfigOverride(context.Background(), RuntimeConfigOverride{StackBudget: &huge}))
	if cfg.StackBudget != MaxStackBudget {
		t.Fatalf("expected the budget to be clamped to %d, got %d", MaxStackBudget, cfg.StackBudget)
	}
	SetRuntimeConfig(RuntimeConfig{StackBudget: huge})
	if cfg := effectiveRuntimeConfig(context.Background()); cfg.StackBudget != MaxStackBudget {
		t.Fatalf("expected the global budget to be clamped, got %d", cfg.StackBudget)
	}
}

func TestOversizedBudgetStillBounces(t *testing.T) {
	huge := 2000000000
	ctx := WithRuntimeConfigOverride(context.Background(), RuntimeConfigOverride{StackBudget: &huge})
	ip := NewInterpreter(WithOutput(io.Discard))
	val, stats, err := ip.Eval(ctx, "count = lambda (n) if n == 0 then 0 else 1 + count(n - 1); count(200000)")
	if err != nil {
		t.Fatal(err)
	}
	if val.Inspect() != "200000" || stats.Bounces == 0 {
		t.Fatalf("expected the trampoline to bounce, got %s with %+v", val.Inspect(), stats)
	}
}

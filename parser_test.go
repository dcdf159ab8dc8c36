package wscript

import (
	"testing"
)

func parseOne(t *testing.T, src string) Node {
	t.Helper()
	program, err := ParseString(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	if len(program.Body) != 1 {
		t.Fatalf("expected one top-level expression in %q, got %d", src, len(program.Body))
	}
	return program.Body[0]
}

func TestParserPrecedence(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"1 * 2 + 3", "((1 * 2) + 3)"},
		{"2 - 3 - 4", "((2 - 3) - 4)"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"a < b + 1", "(a < (b + 1))"},
		{"x = 1 + 2", "x = (1 + 2)"},
		{"a == b != c", "((a == b) != c)"},
		{"f(x)(y)", "f(x)(y)"},
		{"f()", "f()"},
		{"\"s\"", "\"s\""},
	}
	for _, tt := range tests {
		if got := parseOne(t, tt.src).String(); got != tt.want {
			t.Errorf("%q: expected %s, got %s", tt.src, tt.want, got)
		}
	}
}

func TestParserDesugarsLogicalOperators(t *testing.T) {
	and, ok := parseOne(t, "a && b").(*If)
	if !ok {
		t.Fatalf("expected && to become an If node")
	}
	if and.Cond.String() != "a" || and.Then.String() != "b" || and.Else != nil {
		t.Fatalf("unexpected && shape: %s", and)
	}

	or, ok := parseOne(t, "a || b").(*If)
	if !ok {
		t.Fatalf("expected || to become an If node")
	}
	if or.Cond.String() != "a" || or.Then != nil || or.Else.String() != "b" {
		t.Fatalf("unexpected || shape: %s", or)
	}

	mixed, ok := parseOne(t, "a && b || c").(*If)
	if !ok || mixed.Else == nil || mixed.Else.String() != "c" {
		t.Fatalf("expected (a && b) || c, got %s", mixed)
	}
	if inner, ok := mixed.Cond.(*If); !ok || inner.Then.String() != "b" {
		t.Fatalf("expected a && b as the condition, got %s", mixed.Cond)
	}

	tighter, ok := parseOne(t, "a || b && c").(*If)
	if !ok || tighter.Cond.String() != "a" {
		t.Fatalf("expected a || (b && c), got %s", tighter)
	}
	if _, ok := tighter.Else.(*If); !ok {
		t.Fatalf("expected b && c in the else branch, got %s", tighter.Else)
	}
}

func TestParserAssignKeepsTarget(t *testing.T) {
	assign, ok := parseOne(t, "1 = 2").(*Assign)
	if !ok {
		t.Fatal("expected an Assign node")
	}
	if _, ok := assign.Target.(*NumberLit); !ok {
		t.Fatalf("expected the literal target to be kept for evaluation, got %T", assign.Target)
	}
}

func TestParserBlocks(t *testing.T) {
	if b, ok := parseOne(t, "{}").(*BoolLit); !ok || b.Value {
		t.Fatalf("expected {} to parse as false")
	}
	if _, ok := parseOne(t, "{ 1 }").(*NumberLit); !ok {
		t.Fatalf("expected a single-expression block to collapse")
	}
	if _, ok := parseOne(t, "{ 1; 2; }").(*Program); !ok {
		t.Fatalf("expected a multi-expression block to be a Program")
	}
}

func TestParserIf(t *testing.T) {
	node, ok := parseOne(t, "if x then 1 else 2").(*If)
	if !ok || node.Else == nil {
		t.Fatalf("expected if/then/else, got %v", node)
	}
	if _, ok := parseOne(t, "if x { 1 }").(*If); !ok {
		t.Fatal("expected then to be optional before a block")
	}
	_, err := ParseString("if x 1")
	if !IsCode(err, ErrCodeParse) {
		t.Fatalf("expected a parse error for missing then, got %v", err)
	}
	if pe := err.(*Error); pe.Expected != "keyword \"then\"" {
		t.Fatalf("unexpected expectation %q", pe.Expected)
	}
}

func TestParserLambda(t *testing.T) {
	lambda, ok := parseOne(t, "lambda loop (n, acc) n").(*Lambda)
	if !ok {
		t.Fatal("expected a Lambda node")
	}
	if lambda.Name != "loop" || len(lambda.Params) != 2 || lambda.Params[1] != "acc" {
		t.Fatalf("unexpected lambda %s", lambda)
	}
	anon := parseOne(t, "lambda () 1").(*Lambda)
	if anon.Name != "" || len(anon.Params) != 0 {
		t.Fatalf("unexpected anonymous lambda %s", anon)
	}
	if _, err := ParseString("lambda (1) x"); !IsCode(err, ErrCodeParse) {
		t.Fatalf("expected a parse error for a numeric parameter, got %v", err)
	}
}

func TestParserLet(t *testing.T) {
	let, ok := parseOne(t, "let (a, b = 2) a").(*Let)
	if !ok {
		t.Fatal("expected a Let node")
	}
	if len(let.Bindings) != 2 || let.Bindings[0].Def != nil || let.Bindings[1].Def.String() != "2" {
		t.Fatalf("unexpected bindings %s", let)
	}

	call, ok := parseOne(t, "let loop (n = 3, acc) loop(n, acc)").(*Call)
	if !ok {
		t.Fatal("expected a named let to become a call")
	}
	fn, ok := call.Func.(*Lambda)
	if !ok || fn.Name != "loop" || len(fn.Params) != 2 {
		t.Fatalf("expected a self-named lambda, got %s", call.Func)
	}
	if len(call.Args) != 2 || call.Args[0].String() != "3" || call.Args[1].String() != "false" {
		t.Fatalf("unexpected named let arguments %s", call)
	}
}

func TestParserTopLevel(t *testing.T) {
	program, err := ParseString("a = 1;\nb = 2;")
	if err != nil {
		t.Fatal(err)
	}
	if len(program.Body) != 2 {
		t.Fatalf("expected 2 expressions, got %d", len(program.Body))
	}
	empty, err := ParseString("  # nothing here\n")
	if err != nil || len(empty.Body) != 0 {
		t.Fatalf("expected an empty program, got %v, %v", empty, err)
	}
	_, err = ParseString("a b")
	if !IsCode(err, ErrCodeParse) {
		t.Fatalf("expected missing separator to fail, got %v", err)
	}
	if pe := err.(*Error); pe.Pos != (Pos{Line: 1, Column: 3}) {
		t.Fatalf("expected error at 1:3, got %s", pe.Pos)
	}
}

func TestParserSurfacesLexErrors(t *testing.T) {
	if _, err := ParseString("x = $"); !IsCode(err, ErrCodeLex) {
		t.Fatalf("expected the lex error unchanged, got %v", err)
	}
}

func TestFormatErrorPointsAtColumn(t *testing.T) {
	src := "a = 1;\nb c;\nd"
	_, err := ParseString(src)
	if err == nil {
		t.Fatal("expected a parse error")
	}
	want := "PARSE_ERROR: expecting punctuation \";\", found identifier \"c\" (2:3)\n\n" +
		"  1 | a = 1;\n" +
		"  2 | b c;\n" +
		"    |   ^\n" +
		"  3 | d"
	if got := FormatError(err, src); got != want {
		t.Fatalf("unexpected snippet:\n%s\nwant:\n%s", got, want)
	}
}

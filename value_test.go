package wscript

import (
	"math"
	"testing"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{3, "3"},
		{-0.5, "-0.5"},
		{5000050000, "5000050000"},
		{1e21, "1e+21"},
		{math.Inf(1), "Infinity"},
		{math.NaN(), "NaN"},
	}
	for _, tt := range tests {
		if got := formatNumber(tt.in); got != tt.want {
			t.Errorf("formatNumber(%v): expected %s, got %s", tt.in, tt.want, got)
		}
	}
}

func TestTruthinessAndEquality(t *testing.T) {
	for _, v := range []Value{TRUE, &Number{}, &String{}, &Builtin{Name: "p"}} {
		if !IsTruthy(v) {
			t.Errorf("expected %s to be truthy", v.Inspect())
		}
	}
	if IsTruthy(FALSE) || IsTruthy(&Boolean{Value: false}) {
		t.Fatal("expected false to be falsy")
	}
	if !Equal(&Number{Value: 2}, &Number{Value: 2}) || Equal(&Number{Value: 2}, &String{Value: "2"}) {
		t.Fatal("unexpected number equality")
	}
	c := &Closure{}
	if !Equal(c, c) || Equal(c, &Closure{}) {
		t.Fatal("expected callables to compare by identity")
	}
}

func TestHostConversion(t *testing.T) {
	if v := ToValue(nil); v != FALSE {
		t.Fatalf("expected nil to map to false, got %s", v.Inspect())
	}
	if v := ToValue(7); v.Type() != NUMBER_OBJ || v.Inspect() != "7" {
		t.Fatalf("expected a number, got %s %s", v.Type(), v.Inspect())
	}
	if v := ToValue(true); v != TRUE {
		t.Fatalf("expected true, got %s", v.Inspect())
	}
	if v := ToValue("x"); FromValue(v) != "x" {
		t.Fatalf("unexpected string conversion %v", FromValue(v))
	}
	if FromValue(&Number{Value: 1.5}) != 1.5 || FromValue(FALSE) != false {
		t.Fatal("unexpected host values")
	}
	if got := FromValue(&Builtin{Name: "print"}); got != "#<builtin print>" {
		t.Fatalf("expected callables to convert to their printed form, got %v", got)
	}
}

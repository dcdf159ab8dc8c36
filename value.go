package wscript

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/oarkflow/convert"
)

type ValueType int

const (
	NUMBER_OBJ ValueType = iota
	STRING_OBJ
	BOOLEAN_OBJ
	CLOSURE_OBJ
	BUILTIN_OBJ
)

func (vt ValueType) String() string {
	switch vt {
	case NUMBER_OBJ:
		return "number"
	case STRING_OBJ:
		return "string"
	case BOOLEAN_OBJ:
		return "bool"
	case CLOSURE_OBJ:
		return "lambda"
	case BUILTIN_OBJ:
		return "builtin"
	default:
		return "unknown"
	}
}

// Value is a runtime value of the language.
type Value interface {
	Type() ValueType
	Inspect() string
}

// Callable is implemented by every value that can appear in call position.
// The continuation comes first; a callable must eventually hand a value to it
// (or to a continuation derived from it).
type Callable interface {
	Value
	Call(m *Machine, k Continuation, args []Value) (*Bounce, error)
}

type Number struct {
	Value float64
}

func (n *Number) Type() ValueType { return NUMBER_OBJ }
func (n *Number) Inspect() string { return formatNumber(n.Value) }

type String struct {
	Value string
}

func (s *String) Type() ValueType { return STRING_OBJ }
func (s *String) Inspect() string { return s.Value }

type Boolean struct {
	Value bool
}

func (b *Boolean) Type() ValueType { return BOOLEAN_OBJ }
func (b *Boolean) Inspect() string { return strconv.FormatBool(b.Value) }

var (
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
)

// Closure is a lambda value. Env is the defining scope; when Name is set the
// closure sees itself under that name through a scope inserted between Env
// and each call's parameter frame.
type Closure struct {
	Name   string
	Params []string
	Body   Node
	Env    *Environment
}

func (c *Closure) Type() ValueType { return CLOSURE_OBJ }
func (c *Closure) Inspect() string {
	name := c.Name
	if name == "" {
		name = "anonymous"
	}
	return fmt.Sprintf("#<lambda %s(%s)>", name, strings.Join(c.Params, ", "))
}

// BuiltinFunction is the host side of a primitive.
type BuiltinFunction func(m *Machine, k Continuation, args []Value) (*Bounce, error)

type Builtin struct {
	Name string
	Fn   BuiltinFunction
}

func (b *Builtin) Type() ValueType { return BUILTIN_OBJ }
func (b *Builtin) Inspect() string { return "#<builtin " + b.Name + ">" }

func (b *Builtin) Call(m *Machine, k Continuation, args []Value) (*Bounce, error) {
	return b.Fn(m, k, args)
}

func nativeBool(v bool) *Boolean {
	if v {
		return TRUE
	}
	return FALSE
}

// IsTruthy reports whether v counts as true: every value except false does.
func IsTruthy(v Value) bool {
	b, ok := v.(*Boolean)
	return !ok || b.Value
}

// Equal compares numbers, strings and booleans by value and callables by
// identity. Values of different kinds are never equal.
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case *Number:
		other, ok := b.(*Number)
		return ok && a.Value == other.Value
	case *String:
		other, ok := b.(*String)
		return ok && a.Value == other.Value
	case *Boolean:
		other, ok := b.(*Boolean)
		return ok && a.Value == other.Value
	default:
		return a == b
	}
}

func formatNumber(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.IsNaN(f):
		return "NaN"
	case f == math.Trunc(f) && math.Abs(f) < 1e21:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// ToValue converts a host value into a language value. nil maps to false and
// anything without a natural counterpart is rendered as a string.
func ToValue(v any) Value {
	switch v := v.(type) {
	case nil:
		return FALSE
	case Value:
		return v
	case bool:
		return nativeBool(v)
	case string:
		return &String{Value: v}
	case fmt.Stringer:
		return &String{Value: v.String()}
	}
	if f, ok := convert.ToFloat64(v); ok {
		return &Number{Value: f}
	}
	return &String{Value: fmt.Sprintf("%v", v)}
}

// FromValue converts a language value to its host counterpart. Callables are
// returned as their printed form.
func FromValue(v Value) any {
	switch v := v.(type) {
	case *Number:
		return v.Value
	case *String:
		return v.Value
	case *Boolean:
		return v.Value
	case nil:
		return nil
	default:
		return v.Inspect()
	}
}

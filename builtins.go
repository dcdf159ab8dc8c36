package wscript

import (
	"fmt"
	"io"
	"os"
)

// NewGlobalEnvironment returns a root scope holding the I/O primitives. Output
// goes to out, or os.Stdout when out is nil.
func NewGlobalEnvironment(out io.Writer) *Environment {
	if out == nil {
		out = os.Stdout
	}
	env := NewEnvironment()
	for _, b := range primitives(out) {
		env.Define(b.Name, b)
	}
	return env
}

func primitives(out io.Writer) []*Builtin {
	return []*Builtin{
		{
			Name: "print",
			Fn: func(m *Machine, k Continuation, args []Value) (*Bounce, error) {
				if _, err := fmt.Fprintln(out, inspectArg(args)); err != nil {
					return nil, &Error{Code: ErrCodeInput, Message: "print failed", Cause: err}
				}
				return k(FALSE)
			},
		},
		{
			Name: "println",
			Fn: func(m *Machine, k Continuation, args []Value) (*Bounce, error) {
				if _, err := fmt.Fprintln(out, inspectArg(args)+"\n"); err != nil {
					return nil, &Error{Code: ErrCodeInput, Message: "println failed", Cause: err}
				}
				return k(FALSE)
			},
		},
	}
}

// inspectArg renders the first argument. Like a missing lambda parameter, a
// missing argument is false.
func inspectArg(args []Value) string {
	if len(args) == 0 {
		return FALSE.Inspect()
	}
	return args[0].Inspect()
}

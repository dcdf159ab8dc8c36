package wscript

import (
	sterrors "errors"
	"fmt"
	"strings"

	"github.com/oarkflow/errors"
)

type ErrorCode string

const (
	ErrCodeLex          ErrorCode = "LEX_ERROR"
	ErrCodeParse        ErrorCode = "PARSE_ERROR"
	ErrCodeUndefined    ErrorCode = "UNDEFINED_VARIABLE"
	ErrCodeType         ErrorCode = "TYPE_ERROR"
	ErrCodeDivideByZero ErrorCode = "DIVIDE_BY_ZERO"
	ErrCodeUnknownOp    ErrorCode = "UNKNOWN_OPERATOR"
	ErrCodeNotCallable  ErrorCode = "NOT_CALLABLE"
	ErrCodeAssignTarget ErrorCode = "ASSIGN_TO_NON_IDENTIFIER"
	ErrCodeStalled      ErrorCode = "EVAL_STALLED"
	ErrCodeCanceled     ErrorCode = "EVAL_CANCELED"
	ErrCodeBounceLimit  ErrorCode = "BOUNCE_LIMIT"
	ErrCodeInput        ErrorCode = "INPUT_ERROR"
)

var (
	// ErrStalled is the cause attached when a run ends without its final
	// continuation ever being invoked.
	ErrStalled = errors.New("continuation was never invoked")

	// ErrNotMycelFile is returned for source paths without the .mc suffix.
	ErrNotMycelFile = errors.New("not a Mycel file")
)

// Error is the single error type surfaced by the lexer, parser and evaluator.
type Error struct {
	Code     ErrorCode
	Message  string
	Pos      Pos
	Expected string
	Found    string
	Cause    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Pos.Line > 0 {
		msg = fmt.Sprintf("%s (%s)", msg, e.Pos)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsCode reports whether err is, or wraps, an *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if !sterrors.As(err, &e) {
		return false
	}
	return e.Code == code
}

// CodeOf returns the error code carried by err, or "" if err is not an *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if sterrors.As(err, &e) {
		return e.Code
	}
	return ""
}

func newError(code ErrorCode, pos Pos, format string, args ...any) *Error {
	return &Error{Code: code, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

func lexError(pos Pos, input, format string, args ...any) *Error {
	e := newError(ErrCodeLex, pos, format, args...)
	e.Found = input
	return e
}

func parseError(pos Pos, expected, found string) *Error {
	msg := fmt.Sprintf("expecting %s, found %s", expected, found)
	if expected == "" {
		msg = "unexpected token " + found
	}
	return &Error{Code: ErrCodeParse, Pos: pos, Expected: expected, Found: found, Message: msg}
}

// FormatError renders positioned errors with a caret under the offending
// column and one line of context on either side. Other errors are returned
// as their plain message.
func FormatError(err error, src string) string {
	var e *Error
	if !sterrors.As(err, &e) || e.Pos.Line <= 0 || src == "" {
		return err.Error()
	}
	lines := strings.Split(src, "\n")
	line := e.Pos.Line
	if line > len(lines) {
		line = len(lines)
	}
	var b strings.Builder
	b.WriteString(e.Error())
	b.WriteString("\n\n")
	width := len(fmt.Sprint(line + 1))
	for n := line - 1; n <= line+1; n++ {
		if n < 1 || n > len(lines) {
			continue
		}
		fmt.Fprintf(&b, "  %*d | %s\n", width, n, lines[n-1])
		if n == line {
			col := e.Pos.Column
			if col < 1 {
				col = 1
			}
			if limit := len(lines[n-1]) + 1; col > limit {
				col = limit
			}
			fmt.Fprintf(&b, "  %s | %s^\n", strings.Repeat(" ", width), strings.Repeat(" ", col-1))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

package wscript

import (
	"fmt"
	"strings"
)

var (
	keywords    = []string{"let", "if", "then", "else", "lambda", "true", "false"}
	precedences = map[string]int{
		"=":  1,
		"||": 2,
		"&&": 3,
		"<":  7,
		">":  7,
		"<=": 7,
		">=": 7,
		"==": 7,
		"!=": 7,
		"+":  10,
		"-":  10,
		"*":  20,
		"/":  20,
		"%":  20,
	}
)

type TokenType string

const (
	EOF = "EOF"

	NUMBER      = "NUMBER"
	STRING      = "STRING"
	IDENT       = "IDENT"
	KEYWORD     = "KEYWORD"
	OPERATOR    = "OPERATOR"
	PUNCTUATION = "PUNCTUATION"
)

// Pos is a 1-based line/column location in the source text.
type Pos struct {
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

type Token struct {
	Type    TokenType
	Literal string
	Number  float64
	Pos     Pos
}

// describe names the kind in diagnostics.
func (t TokenType) describe() string {
	switch t {
	case IDENT:
		return "identifier"
	case EOF:
		return "end of input"
	}
	return strings.ToLower(string(t))
}

func (t Token) String() string {
	if t.Type == EOF {
		return t.Type.describe()
	}
	return fmt.Sprintf("%s %q", t.Type.describe(), t.Literal)
}

func (t Token) is(typ TokenType, literal string) bool {
	return t.Type == typ && (literal == "" || t.Literal == literal)
}

func isKeyword(ident string) bool {
	for _, kw := range keywords {
		if kw == ident {
			return true
		}
	}
	return false
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch) || strings.IndexByte("?!-<>=", ch) >= 0
}

func isOperatorChar(ch byte) bool {
	return strings.IndexByte("+-*/%=&|<>!", ch) >= 0
}

func isPunctuation(ch byte) bool {
	return strings.IndexByte(",;(){}[]", ch) >= 0
}

func isWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

package wscript

import (
	"strconv"
	"strings"
)

// TokenStream is the lazy token sequence consumed by the parser.
type TokenStream interface {
	Peek() (Token, error)
	Next() (Token, error)
	EOF() (bool, error)
}

type Lexer struct {
	input        string
	position     int
	readPosition int
	ch           byte
	line         int
	column       int

	current *Token
}

func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

func (l *Lexer) atEnd() bool {
	return l.position >= len(l.input)
}

func (l *Lexer) pos() Pos {
	return Pos{Line: l.line, Column: l.column}
}

// Peek returns the next token without consuming it.
func (l *Lexer) Peek() (Token, error) {
	if l.current != nil {
		return *l.current, nil
	}
	tok, err := l.NextToken()
	if err != nil {
		return Token{}, err
	}
	l.current = &tok
	return tok, nil
}

// Next consumes and returns the cached or freshly read token.
func (l *Lexer) Next() (Token, error) {
	if l.current != nil {
		tok := *l.current
		l.current = nil
		return tok, nil
	}
	return l.NextToken()
}

func (l *Lexer) EOF() (bool, error) {
	tok, err := l.Peek()
	if err != nil {
		return false, err
	}
	return tok.Type == EOF, nil
}

func (l *Lexer) skipWhitespaceAndComments() {
	for !l.atEnd() {
		switch {
		case isWhitespace(l.ch):
			l.readChar()
		case l.ch == '#':
			for !l.atEnd() && l.ch != '\n' {
				l.readChar()
			}
		default:
			return
		}
	}
}

func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespaceAndComments()
	pos := l.pos()
	if l.atEnd() {
		return Token{Type: EOF, Pos: pos}, nil
	}
	switch {
	case l.ch == '"':
		s, err := l.readString()
		if err != nil {
			return Token{}, err
		}
		return Token{Type: STRING, Literal: s, Pos: pos}, nil
	case isDigit(l.ch):
		return l.readNumber(pos)
	case isIdentStart(l.ch):
		ident := l.readWhile(isIdentPart)
		typ := TokenType(IDENT)
		if isKeyword(ident) {
			typ = KEYWORD
		}
		return Token{Type: typ, Literal: ident, Pos: pos}, nil
	case isPunctuation(l.ch):
		ch := l.ch
		l.readChar()
		return Token{Type: PUNCTUATION, Literal: string(ch), Pos: pos}, nil
	case isOperatorChar(l.ch):
		return Token{Type: OPERATOR, Literal: l.readWhile(isOperatorChar), Pos: pos}, nil
	}
	return Token{}, lexError(pos, string(l.ch), "invalid character %q", l.ch)
}

func (l *Lexer) readWhile(pred func(byte) bool) string {
	start := l.position
	for !l.atEnd() && pred(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

func (l *Lexer) readNumber(pos Pos) (Token, error) {
	hasDot := false
	lit := l.readWhile(func(ch byte) bool {
		if ch == '.' {
			if hasDot {
				return false
			}
			hasDot = true
			return true
		}
		return isDigit(ch)
	})
	n, err := strconv.ParseFloat(strings.TrimSuffix(lit, "."), 64)
	if err != nil {
		return Token{}, lexError(pos, lit, "malformed number %q", lit)
	}
	return Token{Type: NUMBER, Literal: lit, Number: n, Pos: pos}, nil
}

func (l *Lexer) readString() (string, error) {
	start, offset := l.pos(), l.position
	var out strings.Builder
	l.readChar() // opening quote
	escaped := false
	for !l.atEnd() {
		ch := l.ch
		l.readChar()
		switch {
		case escaped:
			out.WriteByte(ch)
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == '"':
			return out.String(), nil
		default:
			out.WriteByte(ch)
		}
	}
	return "", lexError(start, l.input[offset:], "unterminated string")
}

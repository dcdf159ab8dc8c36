package wscript

type Parser struct {
	ts TokenStream
}

func NewParser(ts TokenStream) *Parser {
	return &Parser{ts: ts}
}

// Parse consumes ts and returns the whole program.
func Parse(ts TokenStream) (*Program, error) {
	return NewParser(ts).ParseProgram()
}

// ParseString parses source text.
func ParseString(src string) (*Program, error) {
	return Parse(NewLexer(src))
}

func (p *Parser) ParseProgram() (*Program, error) {
	first, err := p.ts.Peek()
	if err != nil {
		return nil, err
	}
	program := &Program{Pos: first.Pos}
	for {
		done, err := p.ts.EOF()
		if err != nil {
			return nil, err
		}
		if done {
			return program, nil
		}
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		program.Body = append(program.Body, expr)
		if done, err = p.ts.EOF(); err != nil {
			return nil, err
		}
		if !done {
			if err := p.skip(PUNCTUATION, ";"); err != nil {
				return nil, err
			}
		}
	}
}

func (p *Parser) peekIs(typ TokenType, literal string) (bool, error) {
	tok, err := p.ts.Peek()
	if err != nil {
		return false, err
	}
	return tok.is(typ, literal), nil
}

func (p *Parser) skip(typ TokenType, literal string) error {
	tok, err := p.ts.Peek()
	if err != nil {
		return err
	}
	if !tok.is(typ, literal) {
		return parseError(tok.Pos, typ.describe()+" \""+literal+"\"", tok.String())
	}
	_, err = p.ts.Next()
	return err
}

func (p *Parser) parseExpression() (Node, error) {
	atom, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	expr, err := p.maybeBinary(atom, 0)
	if err != nil {
		return nil, err
	}
	return p.maybeCall(expr)
}

// maybeBinary climbs operator precedence starting from left. `&&` and `||`
// become If nodes so that the right operand is only evaluated on demand.
func (p *Parser) maybeBinary(left Node, myPrecedence int) (Node, error) {
	tok, err := p.ts.Peek()
	if err != nil {
		return nil, err
	}
	if tok.Type != OPERATOR {
		return left, nil
	}
	precedence, ok := precedences[tok.Literal]
	if !ok || precedence <= myPrecedence {
		return left, nil
	}
	if _, err := p.ts.Next(); err != nil {
		return nil, err
	}
	atom, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	right, err := p.maybeBinary(atom, precedence)
	if err != nil {
		return nil, err
	}
	var node Node
	switch tok.Literal {
	case "&&":
		node = &If{Pos: left.Position(), Cond: left, Then: right}
	case "||":
		node = &If{Pos: left.Position(), Cond: left, Else: right}
	case "=":
		node = &Assign{Pos: left.Position(), Target: left, Value: right}
	default:
		node = &Binary{Pos: left.Position(), Op: tok.Literal, Left: left, Right: right}
	}
	return p.maybeBinary(node, myPrecedence)
}

func (p *Parser) maybeCall(expr Node) (Node, error) {
	for {
		open, err := p.peekIs(PUNCTUATION, "(")
		if err != nil {
			return nil, err
		}
		if !open {
			return expr, nil
		}
		call := &Call{Pos: expr.Position(), Func: expr}
		err = p.delimited("(", ")", ",", func() error {
			arg, err := p.parseExpression()
			if err != nil {
				return err
			}
			call.Args = append(call.Args, arg)
			return nil
		})
		if err != nil {
			return nil, err
		}
		expr = call
	}
}

// delimited parses `start item sep item ... stop`, tolerating a trailing
// separator and an empty list.
func (p *Parser) delimited(start, stop, separator string, item func() error) error {
	if err := p.skip(PUNCTUATION, start); err != nil {
		return err
	}
	first := true
	for {
		stopped, err := p.atStop(stop)
		if err != nil {
			return err
		}
		if stopped {
			break
		}
		if first {
			first = false
		} else if err := p.skip(PUNCTUATION, separator); err != nil {
			return err
		}
		if stopped, err = p.atStop(stop); err != nil {
			return err
		}
		if stopped {
			break
		}
		if err := item(); err != nil {
			return err
		}
	}
	return p.skip(PUNCTUATION, stop)
}

func (p *Parser) atStop(stop string) (bool, error) {
	tok, err := p.ts.Peek()
	if err != nil {
		return false, err
	}
	return tok.Type == EOF || tok.is(PUNCTUATION, stop), nil
}

func (p *Parser) parseAtom() (Node, error) {
	tok, err := p.ts.Peek()
	if err != nil {
		return nil, err
	}
	var atom Node
	switch {
	case tok.is(PUNCTUATION, "("):
		if _, err := p.ts.Next(); err != nil {
			return nil, err
		}
		if atom, err = p.parseExpression(); err != nil {
			return nil, err
		}
		if err := p.skip(PUNCTUATION, ")"); err != nil {
			return nil, err
		}
	case tok.is(PUNCTUATION, "{"):
		atom, err = p.parseBlock()
	case tok.is(KEYWORD, "if"):
		atom, err = p.parseIf()
	case tok.is(KEYWORD, "true"), tok.is(KEYWORD, "false"):
		_, err = p.ts.Next()
		atom = &BoolLit{Pos: tok.Pos, Value: tok.Literal == "true"}
	case tok.is(KEYWORD, "lambda"):
		atom, err = p.parseLambda()
	case tok.is(KEYWORD, "let"):
		atom, err = p.parseLet()
	case tok.Type == IDENT:
		_, err = p.ts.Next()
		atom = &Identifier{Pos: tok.Pos, Name: tok.Literal}
	case tok.Type == NUMBER:
		_, err = p.ts.Next()
		atom = &NumberLit{Pos: tok.Pos, Value: tok.Number}
	case tok.Type == STRING:
		_, err = p.ts.Next()
		atom = &StringLit{Pos: tok.Pos, Value: tok.Literal}
	default:
		return nil, parseError(tok.Pos, "", tok.String())
	}
	if err != nil {
		return nil, err
	}
	return p.maybeCall(atom)
}

// parseBlock collapses `{}` to false and `{ e }` to e.
func (p *Parser) parseBlock() (Node, error) {
	tok, err := p.ts.Peek()
	if err != nil {
		return nil, err
	}
	var body []Node
	err = p.delimited("{", "}", ";", func() error {
		expr, err := p.parseExpression()
		if err != nil {
			return err
		}
		body = append(body, expr)
		return nil
	})
	if err != nil {
		return nil, err
	}
	switch len(body) {
	case 0:
		return &BoolLit{Pos: tok.Pos, Value: false}, nil
	case 1:
		return body[0], nil
	}
	return &Program{Pos: tok.Pos, Body: body}, nil
}

func (p *Parser) parseIf() (Node, error) {
	tok, err := p.ts.Next()
	if err != nil {
		return nil, err
	}
	node := &If{Pos: tok.Pos}
	if node.Cond, err = p.parseExpression(); err != nil {
		return nil, err
	}
	block, err := p.peekIs(PUNCTUATION, "{")
	if err != nil {
		return nil, err
	}
	if !block {
		if err := p.skip(KEYWORD, "then"); err != nil {
			return nil, err
		}
	}
	if node.Then, err = p.parseExpression(); err != nil {
		return nil, err
	}
	hasElse, err := p.peekIs(KEYWORD, "else")
	if err != nil {
		return nil, err
	}
	if hasElse {
		if _, err := p.ts.Next(); err != nil {
			return nil, err
		}
		if node.Else, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	return node, nil
}

func (p *Parser) parseIdentifierName() (string, error) {
	tok, err := p.ts.Next()
	if err != nil {
		return "", err
	}
	if tok.Type != IDENT {
		return "", parseError(tok.Pos, "variable name", tok.String())
	}
	return tok.Literal, nil
}

// parseOptionalName consumes a leading identifier if there is one.
func (p *Parser) parseOptionalName() (string, error) {
	named, err := p.peekIs(IDENT, "")
	if err != nil || !named {
		return "", err
	}
	return p.parseIdentifierName()
}

func (p *Parser) parseLambda() (Node, error) {
	tok, err := p.ts.Next()
	if err != nil {
		return nil, err
	}
	lambda := &Lambda{Pos: tok.Pos}
	if lambda.Name, err = p.parseOptionalName(); err != nil {
		return nil, err
	}
	err = p.delimited("(", ")", ",", func() error {
		name, err := p.parseIdentifierName()
		if err != nil {
			return err
		}
		lambda.Params = append(lambda.Params, name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if lambda.Body, err = p.parseExpression(); err != nil {
		return nil, err
	}
	return lambda, nil
}

// parseLet handles both `let (a = 1, b) body` and the named form
// `let loop (n = 10) body`, which is sugar for calling a self-named lambda.
func (p *Parser) parseLet() (Node, error) {
	tok, err := p.ts.Next()
	if err != nil {
		return nil, err
	}
	name, err := p.parseOptionalName()
	if err != nil {
		return nil, err
	}
	let := &Let{Pos: tok.Pos}
	err = p.delimited("(", ")", ",", func() error {
		var b Binding
		var err error
		if b.Name, err = p.parseIdentifierName(); err != nil {
			return err
		}
		hasDef, err := p.peekIs(OPERATOR, "=")
		if err != nil {
			return err
		}
		if hasDef {
			if _, err := p.ts.Next(); err != nil {
				return err
			}
			if b.Def, err = p.parseExpression(); err != nil {
				return err
			}
		}
		let.Bindings = append(let.Bindings, b)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if let.Body, err = p.parseExpression(); err != nil {
		return nil, err
	}
	if name == "" {
		return let, nil
	}
	lambda := &Lambda{Pos: tok.Pos, Name: name, Body: let.Body}
	call := &Call{Pos: tok.Pos, Func: lambda}
	for _, b := range let.Bindings {
		lambda.Params = append(lambda.Params, b.Name)
		def := b.Def
		if def == nil {
			def = &BoolLit{Pos: tok.Pos, Value: false}
		}
		call.Args = append(call.Args, def)
	}
	return call, nil
}

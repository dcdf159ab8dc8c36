package wscript

import (
	"strconv"
	"strings"
)

// Node is an immutable AST node. Evaluation never mutates a node, so a parsed
// program may be evaluated any number of times.
type Node interface {
	String() string
	Position() Pos
	node()
}

type NumberLit struct {
	Pos   Pos
	Value float64
}

type StringLit struct {
	Pos   Pos
	Value string
}

type BoolLit struct {
	Pos   Pos
	Value bool
}

type Identifier struct {
	Pos  Pos
	Name string
}

// Assign keeps an arbitrary Node as target; only *Identifier is accepted at
// evaluation time.
type Assign struct {
	Pos    Pos
	Target Node
	Value  Node
}

type Binary struct {
	Pos   Pos
	Op    string
	Left  Node
	Right Node
}

// If with a nil Then continues with the condition's own value when it is
// truthy. The parser produces that shape for `a || b`.
type If struct {
	Pos  Pos
	Cond Node
	Then Node
	Else Node
}

type Lambda struct {
	Pos    Pos
	Name   string
	Params []string
	Body   Node
}

type Program struct {
	Pos  Pos
	Body []Node
}

type Call struct {
	Pos  Pos
	Func Node
	Args []Node
}

type Binding struct {
	Name string
	Def  Node
}

type Let struct {
	Pos      Pos
	Bindings []Binding
	Body     Node
}

func (n *NumberLit) node()  {}
func (n *StringLit) node()  {}
func (n *BoolLit) node()    {}
func (n *Identifier) node() {}
func (n *Assign) node()     {}
func (n *Binary) node()     {}
func (n *If) node()         {}
func (n *Lambda) node()     {}
func (n *Program) node()    {}
func (n *Call) node()       {}
func (n *Let) node()        {}

func (n *NumberLit) Position() Pos  { return n.Pos }
func (n *StringLit) Position() Pos  { return n.Pos }
func (n *BoolLit) Position() Pos    { return n.Pos }
func (n *Identifier) Position() Pos { return n.Pos }
func (n *Assign) Position() Pos     { return n.Pos }
func (n *Binary) Position() Pos     { return n.Pos }
func (n *If) Position() Pos         { return n.Pos }
func (n *Lambda) Position() Pos     { return n.Pos }
func (n *Program) Position() Pos    { return n.Pos }
func (n *Call) Position() Pos       { return n.Pos }
func (n *Let) Position() Pos        { return n.Pos }

func (n *NumberLit) String() string  { return formatNumber(n.Value) }
func (n *StringLit) String() string  { return strconv.Quote(n.Value) }
func (n *BoolLit) String() string    { return strconv.FormatBool(n.Value) }
func (n *Identifier) String() string { return n.Name }

func (n *Assign) String() string {
	return n.Target.String() + " = " + n.Value.String()
}

func (n *Binary) String() string {
	return "(" + n.Left.String() + " " + n.Op + " " + n.Right.String() + ")"
}

func (n *If) String() string {
	var out strings.Builder
	out.WriteString("if " + n.Cond.String())
	if n.Then != nil {
		out.WriteString(" then " + n.Then.String())
	}
	if n.Else != nil {
		out.WriteString(" else " + n.Else.String())
	}
	return out.String()
}

func (n *Lambda) String() string {
	var out strings.Builder
	out.WriteString("lambda ")
	if n.Name != "" {
		out.WriteString(n.Name + " ")
	}
	out.WriteString("(" + strings.Join(n.Params, ", ") + ") ")
	out.WriteString(n.Body.String())
	return out.String()
}

func (n *Program) String() string {
	parts := make([]string, len(n.Body))
	for i, e := range n.Body {
		parts[i] = e.String()
	}
	return "{ " + strings.Join(parts, "; ") + " }"
}

func (n *Call) String() string {
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}
	return n.Func.String() + "(" + strings.Join(args, ", ") + ")"
}

func (n *Let) String() string {
	parts := make([]string, len(n.Bindings))
	for i, b := range n.Bindings {
		parts[i] = b.Name
		if b.Def != nil {
			parts[i] += " = " + b.Def.String()
		}
	}
	return "let (" + strings.Join(parts, ", ") + ") " + n.Body.String()
}

package wscript

import (
	"context"
	sterrors "errors"
	"time"

	"github.com/oarkflow/log"
	"github.com/oarkflow/xid"
)

// Continuation receives the value of an evaluation step. Instead of returning
// to its caller, every step hands its result to a continuation, so the host
// stack never has to hold frames waiting for a nested evaluation.
type Continuation func(Value) (*Bounce, error)

// Bounce is returned in place of a result when the step budget runs out. It
// names the step that has to resume and carries everything that step needs.
// Bounces are never errors and never reach language code.
type Bounce struct {
	Target string
	resume func() (*Bounce, error)
}

// Stats summarises one run.
type Stats struct {
	RunID    string
	Steps    int
	Bounces  int
	Duration time.Duration
}

// Machine holds the state of one evaluation run: the remaining step budget,
// counters, and the context whose cancellation is observed between bounces.
// A Machine is not safe for concurrent use; separate runs use separate
// machines.
type Machine struct {
	ctx    context.Context
	config RuntimeConfig
	logger *log.Logger

	budget int
	depth  int
	stats  Stats
}

func NewMachine(ctx context.Context, logger *log.Logger) *Machine {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Machine{
		ctx:    ctx,
		config: effectiveRuntimeConfig(ctx),
		logger: logger,
	}
}

func (m *Machine) Stats() Stats {
	return m.stats
}

// Run evaluates node in env and drives the trampoline until the top-level
// continuation receives a value or a genuine error unwinds.
func (m *Machine) Run(node Node, env *Environment) (Value, error) {
	if m.depth > 0 {
		// Nested run started from a primitive: it gets a fresh budget and the
		// outer run continues with whatever it had left.
		saved := m.budget
		defer func() { m.budget = saved }()
	} else {
		m.stats = Stats{RunID: xid.New().String()}
	}
	m.depth++
	defer func() { m.depth-- }()
	start := time.Now()

	var result Value
	done := false
	final := func(v Value) (*Bounce, error) {
		result, done = v, true
		return nil, nil
	}

	m.reset()
	bounce, err := m.evaluate(node, env, final)
	for err == nil && bounce != nil {
		if err = m.admit(bounce); err != nil {
			break
		}
		m.reset()
		bounce, err = bounce.resume()
	}
	if err == nil && !done {
		err = &Error{Code: ErrCodeStalled, Message: "evaluation ended without a result", Cause: ErrStalled}
	}

	if m.depth == 1 {
		m.stats.Duration = time.Since(start)
		m.logRun(err)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (m *Machine) reset() {
	m.budget = m.config.StackBudget
}

// admit accounts for a bounce before it is resumed.
func (m *Machine) admit(b *Bounce) error {
	m.stats.Bounces++
	if err := m.ctx.Err(); err != nil {
		return &Error{Code: ErrCodeCanceled, Message: "evaluation canceled at " + b.Target, Cause: err}
	}
	if m.config.MaxBounces > 0 && m.stats.Bounces > m.config.MaxBounces {
		return newError(ErrCodeBounceLimit, Pos{}, "evaluation exceeded %d bounces", m.config.MaxBounces)
	}
	return nil
}

func (m *Machine) logRun(err error) {
	if m.logger == nil || !m.config.LogEvaluation {
		return
	}
	if err != nil {
		m.logger.Error().Err(err).Str("run_id", m.stats.RunID).Str("code", string(CodeOf(err))).
			Int("steps", m.stats.Steps).Int("bounces", m.stats.Bounces).Dur("duration", m.stats.Duration).
			Msg("evaluation failed")
		return
	}
	m.logger.Info().Str("run_id", m.stats.RunID).Int("steps", m.stats.Steps).
		Int("bounces", m.stats.Bounces).Dur("duration", m.stats.Duration).Msg("evaluation finished")
}

// guard charges one step against the budget and reports whether the caller
// must bounce instead of doing work.
func (m *Machine) guard() bool {
	m.stats.Steps++
	m.budget--
	return m.budget < 0
}

func (m *Machine) bounce(target string, resume func() (*Bounce, error)) (*Bounce, error) {
	return &Bounce{Target: target, resume: resume}, nil
}

// cont wraps fn so that invoking the continuation is itself a guarded step.
func (m *Machine) cont(target string, fn Continuation) Continuation {
	var k Continuation
	k = func(v Value) (*Bounce, error) {
		if m.guard() {
			return m.bounce(target, func() (*Bounce, error) { return k(v) })
		}
		return fn(v)
	}
	return k
}

func (m *Machine) evaluate(node Node, env *Environment, k Continuation) (*Bounce, error) {
	if m.guard() {
		return m.bounce("evaluate", func() (*Bounce, error) { return m.evaluate(node, env, k) })
	}
	switch node := node.(type) {
	case *NumberLit:
		return k(&Number{Value: node.Value})
	case *StringLit:
		return k(&String{Value: node.Value})
	case *BoolLit:
		return k(nativeBool(node.Value))
	case *Identifier:
		val, err := env.Get(node.Name)
		if err != nil {
			return nil, at(err, node.Pos)
		}
		return k(val)
	case *Assign:
		return m.evalAssign(node, env, k)
	case *Binary:
		return m.evalBinary(node, env, k)
	case *If:
		return m.evalIf(node, env, k)
	case *Lambda:
		return k(makeClosure(node, env))
	case *Program:
		return m.evalSequence(node.Body, env, FALSE, 0, k)
	case *Call:
		return m.evaluate(node.Func, env, m.cont("call", func(fn Value) (*Bounce, error) {
			return m.evalArgs(node, env, fn, make([]Value, 0, len(node.Args)), k)
		}))
	case *Let:
		return m.evalLet(node, env, 0, k)
	case nil:
		return nil, newError(ErrCodeInput, Pos{}, "cannot evaluate a nil node")
	}
	return nil, newError(ErrCodeInput, node.Position(), "cannot evaluate %T", node)
}

func (m *Machine) evalAssign(node *Assign, env *Environment, k Continuation) (*Bounce, error) {
	target, ok := node.Target.(*Identifier)
	if !ok {
		return nil, newError(ErrCodeAssignTarget, node.Pos, "cannot assign to %s", node.Target)
	}
	return m.evaluate(node.Value, env, m.cont("assign", func(v Value) (*Bounce, error) {
		val, err := env.Set(target.Name, v)
		if err != nil {
			return nil, at(err, target.Pos)
		}
		return k(val)
	}))
}

func (m *Machine) evalBinary(node *Binary, env *Environment, k Continuation) (*Bounce, error) {
	return m.evaluate(node.Left, env, m.cont("binary.left", func(left Value) (*Bounce, error) {
		return m.evaluate(node.Right, env, m.cont("binary.right", func(right Value) (*Bounce, error) {
			val, err := applyOperator(node.Op, left, right)
			if err != nil {
				return nil, at(err, node.Pos)
			}
			return k(val)
		}))
	}))
}

func (m *Machine) evalIf(node *If, env *Environment, k Continuation) (*Bounce, error) {
	return m.evaluate(node.Cond, env, m.cont("if", func(cond Value) (*Bounce, error) {
		if IsTruthy(cond) {
			if node.Then == nil {
				return k(cond)
			}
			return m.evaluate(node.Then, env, k)
		}
		if node.Else != nil {
			return m.evaluate(node.Else, env, k)
		}
		return k(FALSE)
	}))
}

func (m *Machine) evalSequence(body []Node, env *Environment, last Value, i int, k Continuation) (*Bounce, error) {
	if m.guard() {
		return m.bounce("program", func() (*Bounce, error) { return m.evalSequence(body, env, last, i, k) })
	}
	if i >= len(body) {
		return k(last)
	}
	return m.evaluate(body[i], env, m.cont("program.next", func(v Value) (*Bounce, error) {
		return m.evalSequence(body, env, v, i+1, k)
	}))
}

func (m *Machine) evalArgs(node *Call, env *Environment, fn Value, args []Value, k Continuation) (*Bounce, error) {
	if m.guard() {
		return m.bounce("call.args", func() (*Bounce, error) { return m.evalArgs(node, env, fn, args, k) })
	}
	if i := len(args); i < len(node.Args) {
		return m.evaluate(node.Args[i], env, m.cont("call.arg", func(arg Value) (*Bounce, error) {
			return m.evalArgs(node, env, fn, append(args, arg), k)
		}))
	}
	callable, ok := fn.(Callable)
	if !ok {
		return nil, newError(ErrCodeNotCallable, node.Pos, "%s is not callable: %s", fn.Type(), fn.Inspect())
	}
	return callable.Call(m, k, args)
}

// evalLet binds left to right; each initializer sees the bindings before it
// but not itself.
func (m *Machine) evalLet(node *Let, env *Environment, i int, k Continuation) (*Bounce, error) {
	if m.guard() {
		return m.bounce("let", func() (*Bounce, error) { return m.evalLet(node, env, i, k) })
	}
	if i >= len(node.Bindings) {
		return m.evaluate(node.Body, env, k)
	}
	b := node.Bindings[i]
	bind := func(v Value) (*Bounce, error) {
		scope := env.Extend()
		scope.Define(b.Name, v)
		return m.evalLet(node, scope, i+1, k)
	}
	if b.Def == nil {
		return bind(FALSE)
	}
	return m.evaluate(b.Def, env, m.cont("let.bind", bind))
}

func makeClosure(node *Lambda, env *Environment) *Closure {
	c := &Closure{Name: node.Name, Params: node.Params, Body: node.Body, Env: env}
	if node.Name != "" {
		c.Env = env.Extend()
		c.Env.Define(node.Name, c)
	}
	return c
}

// Call applies the closure. Missing arguments are false and extra ones are
// ignored.
func (c *Closure) Call(m *Machine, k Continuation, args []Value) (*Bounce, error) {
	if m.guard() {
		return m.bounce("lambda", func() (*Bounce, error) { return c.Call(m, k, args) })
	}
	scope := c.Env.Extend()
	for i, name := range c.Params {
		if i < len(args) {
			scope.Define(name, args[i])
		} else {
			scope.Define(name, FALSE)
		}
	}
	return m.evaluate(c.Body, scope, k)
}

// Apply invokes a callable from host code within the current run.
func (m *Machine) Apply(fn Value, args []Value, k Continuation) (*Bounce, error) {
	callable, ok := fn.(Callable)
	if !ok {
		return nil, newError(ErrCodeNotCallable, Pos{}, "%s is not callable: %s", fn.Type(), fn.Inspect())
	}
	return callable.Call(m, m.cont("apply", k), args)
}

// at attaches pos to positionless errors.
func at(err error, pos Pos) error {
	var e *Error
	if sterrors.As(err, &e) && e.Pos.Line == 0 {
		e.Pos = pos
	}
	return err
}

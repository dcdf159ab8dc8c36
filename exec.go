package wscript

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/dgraph-io/ristretto"
	"github.com/oarkflow/log"
)

// Option configures Exec, ExecFile and Interpreter.
type Option func(*options)

type options struct {
	out     io.Writer
	logger  *log.Logger
	globals *Environment
	cache   *ProgramCache
}

func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.out = w
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithGlobals evaluates against env instead of a fresh global scope.
func WithGlobals(env *Environment) Option {
	return func(o *options) {
		o.globals = env
	}
}

func WithCache(cache *ProgramCache) Option {
	return func(o *options) {
		o.cache = cache
	}
}

func buildOptions(opts []Option) options {
	o := options{out: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ProgramCache keeps parsed programs keyed by their source text. Programs are
// never mutated by evaluation, so a cached program can be shared by any
// number of runs.
type ProgramCache struct {
	cache *ristretto.Cache
}

func NewProgramCache(maxPrograms int) (*ProgramCache, error) {
	if maxPrograms <= 0 {
		maxPrograms = 1024
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        int64(maxPrograms * 10),
		MaxCost:            int64(maxPrograms),
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &ProgramCache{cache: cache}, nil
}

// Parse returns the cached program for src, parsing and caching it on a miss.
// Sources that fail to parse are not cached.
func (pc *ProgramCache) Parse(src string) (*Program, error) {
	if pc == nil {
		return ParseString(src)
	}
	if cached, found := pc.cache.Get(src); found {
		if program, ok := cached.(*Program); ok {
			return program, nil
		}
	}
	program, err := ParseString(src)
	if err != nil {
		return nil, err
	}
	pc.cache.Set(src, program, 1)
	return program, nil
}

// Wait blocks until pending cache writes are applied.
func (pc *ProgramCache) Wait() {
	if pc == nil {
		return
	}
	pc.cache.Wait()
}

func (pc *ProgramCache) Close() {
	if pc == nil {
		return
	}
	pc.cache.Close()
}

// Exec parses and evaluates script in a fresh global scope (unless
// WithGlobals is given). Entries of data are defined as globals first.
func Exec(ctx context.Context, script string, data map[string]any, opts ...Option) (Value, error) {
	o := buildOptions(opts)
	program, err := o.cache.Parse(script)
	if err != nil {
		return nil, err
	}
	env := o.globals
	if env == nil {
		env = NewGlobalEnvironment(o.out)
	}
	injectData(env, data)
	return NewMachine(ctx, o.logger).Run(program, env)
}

// ExecFile runs a .mc source file.
func ExecFile(ctx context.Context, filename string, data map[string]any, opts ...Option) (Value, error) {
	content, err := ReadSource(filename)
	if err != nil {
		return nil, err
	}
	return Exec(ctx, content, data, opts...)
}

// ReadSource loads a source file, rejecting paths without the .mc suffix.
func ReadSource(filename string) (string, error) {
	if !strings.HasSuffix(filename, ".mc") {
		return "", &Error{Code: ErrCodeInput, Message: filename, Cause: ErrNotMycelFile}
	}
	content, err := os.ReadFile(filename)
	if err != nil {
		return "", &Error{Code: ErrCodeInput, Message: "cannot read " + filename, Cause: err}
	}
	return string(content), nil
}

func injectData(env *Environment, data map[string]any) {
	for k, v := range data {
		env.Define(k, ToValue(v))
	}
}

// Interpreter evaluates successive sources against one persistent global
// scope, as a REPL session does.
type Interpreter struct {
	globals *Environment
	opts    options
}

func NewInterpreter(opts ...Option) *Interpreter {
	o := buildOptions(opts)
	globals := o.globals
	if globals == nil {
		globals = NewGlobalEnvironment(o.out)
	}
	return &Interpreter{globals: globals, opts: o}
}

func (ip *Interpreter) Globals() *Environment {
	return ip.globals
}

// Eval parses and runs src, returning its value and the run statistics.
func (ip *Interpreter) Eval(ctx context.Context, src string) (Value, Stats, error) {
	program, err := ip.opts.cache.Parse(src)
	if err != nil {
		return nil, Stats{}, err
	}
	m := NewMachine(ctx, ip.opts.logger)
	val, err := m.Run(program, ip.globals)
	return val, m.Stats(), err
}

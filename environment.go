package wscript

import "sort"

// Environment is one frame of the scope chain. Frames are shared freely:
// closures and nested scopes keep their parents alive for as long as they
// are reachable.
type Environment struct {
	store map[string]Value
	outer *Environment
}

// NewEnvironment returns a root frame. Assigning an unknown name on a root
// frame defines it.
func NewEnvironment() *Environment {
	return &Environment{store: make(map[string]Value)}
}

func NewEnclosedEnvironment(outer *Environment) *Environment {
	env := NewEnvironment()
	env.outer = outer
	return env
}

// Extend creates a child frame.
func (e *Environment) Extend() *Environment {
	return NewEnclosedEnvironment(e)
}

func (e *Environment) Parent() *Environment {
	return e.outer
}

// Lookup returns the nearest frame defining name, or nil.
func (e *Environment) Lookup(name string) *Environment {
	for scope := e; scope != nil; scope = scope.outer {
		if _, ok := scope.store[name]; ok {
			return scope
		}
	}
	return nil
}

func (e *Environment) Get(name string) (Value, error) {
	if scope := e.Lookup(name); scope != nil {
		return scope.store[name], nil
	}
	return nil, &Error{Code: ErrCodeUndefined, Message: "undefined variable " + name, Found: name}
}

// Set updates the frame that defines name. Unknown names fail unless e is a
// root frame, in which case the name is defined there.
func (e *Environment) Set(name string, val Value) (Value, error) {
	scope := e.Lookup(name)
	if scope == nil {
		if e.outer != nil {
			return nil, &Error{Code: ErrCodeUndefined, Message: "undefined variable " + name, Found: name}
		}
		scope = e
	}
	scope.store[name] = val
	return val, nil
}

// Define binds name in this frame, shadowing any outer binding.
func (e *Environment) Define(name string, val Value) Value {
	e.store[name] = val
	return val
}

// Names lists the names bound directly in this frame.
func (e *Environment) Names() []string {
	names := make([]string, 0, len(e.store))
	for name := range e.store {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

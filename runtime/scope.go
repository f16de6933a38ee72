package runtime

import (
	"fmt"

	"github.com/overlaykit/overlay/definition"
	"github.com/overlaykit/overlay/symbol"
)

// Scope is the frozen, user-visible container exposing the non-local public
// children of a scope symbol as memoized fields. Scopes are immutable after
// construction; evaluating children through them updates mixin cells that
// carry no locking, so concurrent access from several goroutines is not
// synchronized.
type Scope struct {
	mixin    *Mixin
	symbol   *symbol.Symbol
	keys     []definition.Name
	children map[definition.Name]*Mixin
	// all additionally holds local and private children, reachable as
	// dependencies but not through the public surface.
	all map[definition.Name]*Mixin
}

// Evaluate union-mounts the given definitions as a root scope and evaluates
// it. Resources stay lazy; only eager children are forced.
func Evaluate(defs ...definition.Definition) (*Scope, error) {
	graph := symbol.NewGraph()
	return EvaluateSymbol(graph.Root(defs...))
}

// EvaluateSymbol evaluates an already interned root symbol into a scope.
func EvaluateSymbol(root *symbol.Symbol) (*Scope, error) {
	rootMixin := newContext().mixin(root, nil)
	value, err := rootMixin.Evaluated()
	if err != nil {
		return nil, err
	}
	scope, ok := value.(*Scope)
	if !ok {
		return nil, fmt.Errorf("root %s is not a scope", root)
	}
	return scope, nil
}

// constructScope builds the scope container in phases: instantiate every
// child cell, wire same-scope dependencies, publish non-local public
// children, force eager ones. Wiring before evaluation is what lets mutually
// dependent siblings coexist structurally.
func (m *Mixin) constructScope() (any, error) {
	keys, err := m.symbol.ChildKeys()
	if err != nil {
		m.value, m.err = nil, err
		m.state = memoDone
		return nil, err
	}

	scope := &Scope{
		mixin:    m,
		symbol:   m.symbol,
		children: map[definition.Name]*Mixin{},
		all:      map[definition.Name]*Mixin{},
	}

	for _, key := range keys {
		childSymbol, err := m.symbol.Child(key)
		if err != nil {
			m.value, m.err = nil, err
			m.state = memoDone
			return nil, err
		}
		scope.all[key] = m.ctx.mixin(childSymbol, m)
	}

	for _, key := range keys {
		child := scope.all[key]
		names, err := siblingDependencyNames(child.symbol)
		if err != nil {
			m.value, m.err = nil, err
			m.state = memoDone
			return nil, err
		}
		for _, name := range names {
			if sibling, ok := scope.all[name]; ok {
				child.siblingDeps[name] = sibling
			}
		}
	}

	for _, key := range keys {
		child := scope.all[key]
		if child.symbol.IsLocal() {
			continue
		}
		public := true
		for _, member := range child.symbol.Origin() {
			if !member.Meta().Public {
				public = false
			}
		}
		if !public {
			continue
		}
		scope.keys = append(scope.keys, key)
		scope.children[key] = child
	}

	// Publish before forcing eager children: an eager resource may read
	// dependencies through this scope while it is being constructed.
	m.value, m.err = scope, nil
	m.state = memoDone

	for _, key := range keys {
		child := scope.all[key]
		if !child.symbol.IsEager() {
			continue
		}
		if _, err := child.Evaluated(); err != nil {
			m.value, m.err = nil, err
			return nil, err
		}
	}
	return scope, nil
}

// siblingDependencyNames lists the same-scope dependency parameters of a
// child symbol's own evaluators, with the same-name skip applied.
func siblingDependencyNames(childSymbol *symbol.Symbol) ([]definition.Name, error) {
	var names []definition.Name
	seen := map[definition.Name]bool{}
	for _, evaluator := range childSymbol.OwnEvaluators() {
		for _, param := range definition.Params(evaluator.Definition) {
			if seen[param] {
				continue
			}
			reference, err := childSymbol.ResolveParam(param)
			if err != nil {
				return nil, err
			}
			if reference != nil && reference.LevelsUp == 0 {
				seen[param] = true
				names = append(names, param)
			}
		}
	}
	return names, nil
}

// Symbol returns the scope's composition-site symbol.
func (s *Scope) Symbol() *symbol.Symbol { return s.symbol }

// Keys returns the public child names in contribution order.
func (s *Scope) Keys() []definition.Name { return s.keys }

// Has reports whether the public surface exposes name.
func (s *Scope) Has(name definition.Name) bool {
	_, ok := s.children[name]
	return ok
}

// Get evaluates the named public child: the merged value for resource
// symbols, a nested *Scope for scope symbols. Missing, local or private
// names return an UnresolvedNameError.
func (s *Scope) Get(name definition.Name) (any, error) {
	child, ok := s.children[name]
	if !ok {
		return nil, &UnresolvedNameError{Name: name, Path: s.symbol.Path()}
	}
	return child.Evaluated()
}

// GetScope evaluates the named child and asserts it is a nested scope.
func (s *Scope) GetScope(name definition.Name) (*Scope, error) {
	value, err := s.Get(name)
	if err != nil {
		return nil, err
	}
	nested, ok := value.(*Scope)
	if !ok {
		return nil, fmt.Errorf("%s.%s is not a scope", pathString(s.symbol.Path()), name)
	}
	return nested, nil
}

// With returns a fresh instance scope whose unresolved externs and
// patcher-only resources are satisfied by kwargs. The receiver is untouched;
// per-request injection never re-parses definitions.
func (s *Scope) With(kwargs map[definition.Name]any) (*Scope, error) {
	instance := &Mixin{
		ctx:         s.mixin.ctx,
		symbol:      s.symbol,
		outer:       s.mixin.outer,
		kwargs:      kwargs,
		siblingDeps: map[definition.Name]*Mixin{},
	}
	value, err := instance.Evaluated()
	if err != nil {
		return nil, err
	}
	return value.(*Scope), nil
}

package runtime

import (
	"fmt"

	"github.com/overlaykit/overlay/definition"
	"github.com/overlaykit/overlay/symbol"
)

type memoState uint8

const (
	memoIdle memoState = iota
	memoRunning
	memoDone
)

// evalContext interns mixin cells per (symbol, outer mixin) so revisited
// composition sites share one evaluation cell and one memoized value.
type evalContext struct {
	mixins map[mixinKey]*Mixin
}

type mixinKey struct {
	symbol *symbol.Symbol
	outer  *Mixin
}

func newContext() *evalContext {
	return &evalContext{mixins: map[mixinKey]*Mixin{}}
}

func (c *evalContext) mixin(sym *symbol.Symbol, outer *Mixin) *Mixin {
	key := mixinKey{symbol: sym, outer: outer}
	if existing, ok := c.mixins[key]; ok {
		return existing
	}
	created := &Mixin{
		ctx:         c,
		symbol:      sym,
		outer:       outer,
		siblingDeps: map[definition.Name]*Mixin{},
	}
	c.mixins[key] = created
	return created
}

// Mixin is the lazy evaluation cell: one per (symbol, composition outer).
// Scope symbols evaluate to a *Scope, resource symbols to the merged value.
// Evaluation is memoized single-shot; reentry means a dependency cycle.
type Mixin struct {
	ctx    *evalContext
	symbol *symbol.Symbol
	outer  *Mixin

	// kwargs is set only on instance-scope mixins created by Scope.With; it
	// satisfies externs and patcher-only elections of the children.
	kwargs map[definition.Name]any

	// siblingDeps wires same-scope dependencies during two-phase scope
	// construction, letting mutually dependent siblings coexist.
	siblingDeps map[definition.Name]*Mixin

	supers []*Mixin

	state memoState
	value any
	err   error
}

// Symbol returns the composition-site symbol this cell evaluates.
func (m *Mixin) Symbol() *symbol.Symbol { return m.symbol }

// Evaluated computes the value of this cell once and caches it. A reentrant
// call surfaces as a circular dependency at the composition-site path.
func (m *Mixin) Evaluated() (any, error) {
	switch m.state {
	case memoDone:
		return m.value, m.err
	case memoRunning:
		return nil, &CircularDependencyError{Path: m.symbol.Path()}
	}
	m.state = memoRunning
	if m.symbol.HasMixedOrigin() {
		m.value, m.err = nil, fmt.Errorf("mixed scope and resource contributions at %s", pathString(m.symbol.Path()))
		m.state = memoDone
		return m.value, m.err
	}
	if m.symbol.IsScope() {
		// constructScope publishes the container before forcing eager
		// children so they may reach outer scopes during construction.
		return m.constructScope()
	}
	m.value, m.err = m.evaluateResource()
	m.state = memoDone
	return m.value, m.err
}

// superMixins materializes one mixin per strict super symbol. Each follows
// the contributing symbol's own lexical chain so its references resolve at
// the definition site.
func (m *Mixin) superMixins() ([]*Mixin, error) {
	if m.supers != nil {
		return m.supers, nil
	}
	supers, err := m.symbol.StrictSupers()
	if err != nil {
		return nil, err
	}
	mixins := make([]*Mixin, 0, len(supers))
	for _, superSymbol := range supers {
		mixins = append(mixins, m.ctx.mixin(superSymbol, m.mixinFor(superSymbol.Outer())))
	}
	m.supers = mixins
	return mixins, nil
}

// mixinFor returns the mixin carrying sym as a lexical level: an existing
// cell from this mixin's outer chain when the composition site already
// materialized it, otherwise an interned cell following sym's own chain.
func (m *Mixin) mixinFor(sym *symbol.Symbol) *Mixin {
	if sym == nil {
		return nil
	}
	for walk := m; walk != nil; walk = walk.outer {
		if walk.symbol == sym {
			return walk
		}
	}
	return m.ctx.mixin(sym, m.mixinFor(sym.Outer()))
}

// resolveArgs resolves the declared dependency parameters of def. The host
// is the mixin being evaluated; when a super-contributed evaluator resolves
// a same-scope name, the host's composition scope supplies it so overrides
// stay late-bound.
func (m *Mixin) resolveArgs(def definition.Definition, host *Mixin) (definition.Args, error) {
	params := definition.Params(def)
	if len(params) == 0 {
		return nil, nil
	}
	args := make(definition.Args, len(params))
	for _, param := range params {
		value, err := m.resolveDependency(param, host)
		if err != nil {
			return nil, err
		}
		args[param] = value
	}
	return args, nil
}

// resolveDependency resolves one named dependency: pre-wired siblings for
// same-scope references, the host's composition scope for same-scope names
// of super evaluators, outer navigation for escaping references, kwargs as
// the extern fallback.
func (m *Mixin) resolveDependency(name definition.Name, host *Mixin) (any, error) {
	reference, err := m.symbol.ResolveParam(name)
	if err != nil {
		return nil, err
	}
	if reference == nil {
		if value, ok := m.lookupKwargs(name); ok {
			return value, nil
		}
		return nil, &UnresolvedNameError{Name: name, Path: m.symbol.Path()}
	}
	if reference.LevelsUp == 0 {
		if sibling, ok := m.siblingDeps[name]; ok {
			return sibling.Evaluated()
		}
		if host != nil && host != m && host.outer != nil {
			return host.outer.childValue(name)
		}
	}
	scopeMixin := m.outer
	for level := 0; level < reference.LevelsUp && scopeMixin != nil; level++ {
		scopeMixin = scopeMixin.outer
	}
	if scopeMixin == nil {
		return nil, &UnresolvedNameError{Name: name, Path: m.symbol.Path()}
	}
	return scopeMixin.childValue(name)
}

// childValue evaluates the named child of this scope mixin, falling back to
// the instance kwargs.
func (m *Mixin) childValue(name definition.Name) (any, error) {
	value, err := m.Evaluated()
	if err != nil {
		return nil, err
	}
	scope, ok := value.(*Scope)
	if !ok {
		return nil, &UnresolvedNameError{Name: name, Path: m.symbol.Path()}
	}
	if child, ok := scope.all[name]; ok {
		return child.Evaluated()
	}
	if value, ok := m.lookupKwargs(name); ok {
		return value, nil
	}
	return nil, &UnresolvedNameError{Name: name, Path: m.symbol.Path()}
}

// lookupKwargs searches the outer chain for an instance kwargs entry.
func (m *Mixin) lookupKwargs(name definition.Name) (any, bool) {
	for walk := m; walk != nil; walk = walk.outer {
		if walk.kwargs != nil {
			if value, ok := walk.kwargs[name]; ok {
				return value, true
			}
		}
	}
	return nil, false
}

// evaluateResource merges the elected base with the patch stream, in
// super-linearization order.
func (m *Mixin) evaluateResource() (any, error) {
	election, err := m.symbol.ElectedMerger()
	if err != nil {
		return nil, err
	}
	switch election.Kind {
	case symbol.NoEvaluators:
		if value, ok := m.lookupKwargs(m.symbol.Key()); ok {
			return value, nil
		}
		return nil, &UnresolvedNameError{Name: m.symbol.Key(), Path: m.symbol.Path()}

	case symbol.PatcherOnly:
		outer := m.outer
		if outer == nil || !outer.hasKwargs() {
			return nil, &NoMergerError{Path: m.symbol.Path()}
		}
		base, ok := m.lookupKwargs(m.symbol.Key())
		if !ok {
			return nil, &KwargsMissingError{Name: m.symbol.Key(), Path: m.symbol.Path()}
		}
		bound, err := m.bindEvaluators()
		if err != nil {
			return nil, err
		}
		var prodErr error
		return foldEndo(base, patchStream(bound, nil, m, &prodErr), &prodErr)

	default:
		bound, err := m.bindEvaluators()
		if err != nil {
			return nil, err
		}
		elected, err := electedAt(bound, m, election)
		if err != nil {
			return nil, err
		}
		args, err := elected.mixin.resolveArgs(elected.evaluator.Definition, m)
		if err != nil {
			return nil, err
		}
		var prodErr error
		patches := patchStream(bound, &elected, m, &prodErr)
		switch def := elected.evaluator.Definition.(type) {
		case *definition.ResourceDef:
			base, err := def.Call(args)
			if err != nil {
				return nil, err
			}
			return foldEndo(base, patches, &prodErr)
		case *definition.MergerDef:
			aggregate, err := def.Call(args)
			if err != nil {
				return nil, err
			}
			value, err := aggregate(patches)
			if prodErr != nil {
				return nil, prodErr
			}
			return value, err
		default:
			return nil, &NoMergerError{Path: m.symbol.Path()}
		}
	}
}

// hasKwargs reports whether the outer chain carries an instance kwargs map.
func (m *Mixin) hasKwargs() bool {
	for walk := m; walk != nil; walk = walk.outer {
		if walk.kwargs != nil {
			return true
		}
	}
	return false
}

package symbol

import (
	"strings"

	"github.com/overlaykit/overlay/definition"
)

type memoState uint8

const (
	memoIdle memoState = iota
	memoRunning
	memoDone
)

// Symbol is one composition-site node: a merged tuple of definitions, a
// composition-site parent and a key. Symbols compare by identity, never by
// structure. Derived tables are memoized write-once; evaluation is
// demand-driven on the calling goroutine.
type Symbol struct {
	graph     *Graph
	id        int
	origin    []definition.Definition
	ownOrigin []definition.Definition
	outer     *Symbol
	key       definition.Name

	basesState memoState
	bases      []*ResolvedReference
	basesErr   error

	supersState memoState
	supers      []*Symbol
	supersErr   error

	childrenState memoState
	childKeys     []definition.Name
	children      map[definition.Name]*Symbol
	childrenErr   error

	electionState memoState
	election      Election
	electionErr   error
}

// Key returns the child name this symbol is mounted under; empty for root.
func (s *Symbol) Key() definition.Name { return s.key }

// Outer returns the composition-site parent, nil for root.
func (s *Symbol) Outer() *Symbol { return s.outer }

// Origin returns the merged definition tuple in union order.
func (s *Symbol) Origin() []definition.Definition { return s.origin }

// OwnOrigin returns the origin members contributed by the parent scope
// itself, as opposed to members flattened in from the parent's supers.
func (s *Symbol) OwnOrigin() []definition.Definition { return s.ownOrigin }

// Path returns the composition-site path from the root.
func (s *Symbol) Path() []definition.Name {
	if s.outer == nil {
		return nil
	}
	return append(s.outer.Path(), s.key)
}

func (s *Symbol) String() string {
	path := s.Path()
	if len(path) == 0 {
		return "<root>"
	}
	return strings.Join(path, ".")
}

// IsScope reports whether this symbol evaluates to a scope: the origin
// carries at least one scope definition and no evaluator definitions.
func (s *Symbol) IsScope() bool {
	hasScope := false
	for _, member := range s.origin {
		switch member.(type) {
		case definition.ScopeDef:
			hasScope = true
		case *definition.ExternDef:
		default:
			return false
		}
	}
	return hasScope
}

// HasMixedOrigin reports an origin carrying both scope and evaluator
// definitions, e.g. a scalar overlay file union-mounted with a subdirectory
// of the same stem. Such a symbol has no coherent evaluation and is rejected
// at runtime instead of silently dropping the scope's children.
func (s *Symbol) HasMixedOrigin() bool {
	hasScope := false
	hasEvaluator := false
	for _, member := range s.origin {
		switch member.(type) {
		case definition.ScopeDef:
			hasScope = true
		case *definition.ExternDef:
		default:
			hasEvaluator = true
		}
	}
	return hasScope && hasEvaluator
}

// IsLocal reports whether any origin member is marked local.
func (s *Symbol) IsLocal() bool {
	for _, member := range s.origin {
		if member.Meta().Local {
			return true
		}
	}
	return false
}

// IsEager reports whether any origin member is marked eager.
func (s *Symbol) IsEager() bool {
	for _, member := range s.origin {
		if member.Meta().Eager {
			return true
		}
	}
	return false
}

// StrictSupers returns the transitive supers of this symbol in
// super-linearization order: declaration-first depth-first traversal of base
// targets and same-key children of the outer's supers, de-duplicated by
// identity, self excluded.
func (s *Symbol) StrictSupers() ([]*Symbol, error) {
	switch s.supersState {
	case memoDone:
		return s.supers, s.supersErr
	case memoRunning:
		return nil, &InvalidReferenceError{Path: s.Path(), Cause: errCircularSupers}
	}
	s.supersState = memoRunning
	s.supers, s.supersErr = s.computeStrictSupers()
	s.supersState = memoDone
	return s.supers, s.supersErr
}

func (s *Symbol) computeStrictSupers() ([]*Symbol, error) {
	visited := map[*Symbol]bool{s: true}
	var result []*Symbol
	var walk func(t *Symbol) error
	walk = func(t *Symbol) error {
		direct, err := t.directSupers()
		if err != nil {
			return err
		}
		for _, super := range direct {
			if visited[super] {
				continue
			}
			visited[super] = true
			result = append(result, super)
			if err := walk(super); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(s); err != nil {
		return nil, err
	}
	return result, nil
}

// directSupers enumerates the immediate supers: targets of own base
// references first, then same-key children of the outer's strict supers.
func (s *Symbol) directSupers() ([]*Symbol, error) {
	bases, err := s.ResolvedBases()
	if err != nil {
		return nil, err
	}
	var result []*Symbol
	for _, base := range bases {
		result = append(result, base.Target)
	}
	if s.outer != nil {
		outerSupers, err := s.outer.StrictSupers()
		if err != nil {
			return nil, err
		}
		for _, outerSuper := range outerSupers {
			child, err := outerSuper.Child(s.key)
			if err != nil {
				return nil, err
			}
			if child != nil {
				result = append(result, child)
			}
		}
	}
	return result, nil
}

// SuperUnions returns the reflexive-transitive super closure: self followed
// by StrictSupers.
func (s *Symbol) SuperUnions() ([]*Symbol, error) {
	supers, err := s.StrictSupers()
	if err != nil {
		return nil, err
	}
	unions := make([]*Symbol, 0, len(supers)+1)
	unions = append(unions, s)
	return append(unions, supers...), nil
}

// ChildKeys returns child names in contribution order: the first scope
// contributing a name fixes its position.
func (s *Symbol) ChildKeys() ([]definition.Name, error) {
	if err := s.ensureChildren(); err != nil {
		return nil, err
	}
	return s.childKeys, nil
}

// Child returns the merged child symbol for name, or nil when no member of
// the super closure contributes it.
func (s *Symbol) Child(name definition.Name) (*Symbol, error) {
	if err := s.ensureChildren(); err != nil {
		return nil, err
	}
	return s.children[name], nil
}

func (s *Symbol) ensureChildren() error {
	switch s.childrenState {
	case memoDone:
		return s.childrenErr
	case memoRunning:
		return &InvalidReferenceError{Path: s.Path(), Cause: errCircularChildren}
	}
	s.childrenState = memoRunning
	s.childKeys, s.children, s.childrenErr = s.computeChildren()
	s.childrenState = memoDone
	return s.childrenErr
}

func (s *Symbol) computeChildren() ([]definition.Name, map[definition.Name]*Symbol, error) {
	unions, err := s.SuperUnions()
	if err != nil {
		return nil, nil, err
	}
	var keys []definition.Name
	contributions := map[definition.Name][]definition.Definition{}
	ownContributions := map[definition.Name][]definition.Definition{}
	seen := map[definition.Name]map[definition.Definition]bool{}

	for unionIndex, member := range unions {
		for _, memberDef := range member.origin {
			scopeDef, ok := memberDef.(definition.ScopeDef)
			if !ok {
				continue
			}
			names, err := scopeDef.Keys()
			if err != nil {
				return nil, nil, err
			}
			for _, name := range names {
				defs, err := scopeDef.Lookup(name)
				if err != nil {
					return nil, nil, err
				}
				for _, childDef := range defs {
					if seen[name] == nil {
						seen[name] = map[definition.Definition]bool{}
						keys = append(keys, name)
					}
					if seen[name][childDef] {
						continue
					}
					seen[name][childDef] = true
					contributions[name] = append(contributions[name], childDef)
					s.graph.recordParent(childDef, scopeDef)
					if unionIndex == 0 {
						ownContributions[name] = append(ownContributions[name], childDef)
					}
				}
			}
		}
	}

	children := make(map[definition.Name]*Symbol, len(keys))
	for _, name := range keys {
		children[name] = s.graph.intern(contributions[name], ownContributions[name], s, name)
	}
	return keys, children, nil
}

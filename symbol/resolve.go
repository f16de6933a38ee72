package symbol

import (
	"fmt"

	"github.com/overlaykit/overlay/definition"
)

// ResolvedReference is the composition-site form of a RelativeReference: the
// exact target symbol plus the levels walked relative to the scope
// containing the referrer.
type ResolvedReference struct {
	LevelsUp int
	Path     []definition.Name
	Target   *Symbol
}

// ResolvedBases resolves the base references of every scope definition this
// symbol's own origin carries, in declaration order.
func (s *Symbol) ResolvedBases() ([]*ResolvedReference, error) {
	switch s.basesState {
	case memoDone:
		return s.bases, s.basesErr
	case memoRunning:
		return nil, &InvalidReferenceError{Path: s.Path(), Cause: errCircularBases}
	}
	s.basesState = memoRunning
	s.bases, s.basesErr = s.computeBases()
	s.basesState = memoDone
	return s.bases, s.basesErr
}

func (s *Symbol) computeBases() ([]*ResolvedReference, error) {
	var resolved []*ResolvedReference
	for _, member := range s.ownOrigin {
		scopeDef, ok := member.(definition.ScopeDef)
		if !ok {
			continue
		}
		for _, reference := range scopeDef.Bases() {
			target, err := s.resolveReference(scopeDef, reference)
			if err != nil {
				return nil, err
			}
			resolved = append(resolved, target)
		}
	}
	return resolved, nil
}

// resolveReference walks a de Bruijn reference written inside origin member
// home. Each escape tracks the definition-site ancestor chain and crosses
// one composition-site outer edge, using the lexical-outer map so that
// compositions which flatten or deepen nesting still land on the symbol
// embedding the right definition scope.
func (s *Symbol) resolveReference(home definition.ScopeDef, reference definition.RelativeReference) (*ResolvedReference, error) {
	if len(reference.Path) == 0 {
		return nil, &InvalidReferenceError{Reference: reference, Path: s.Path(), Cause: fmt.Errorf("empty reference path")}
	}
	current := s
	currentDef := definition.Definition(home)
	for step := 0; step <= reference.LevelsUp; step++ {
		parentDef := s.graph.parentOf(currentDef)
		next, err := s.lexicalStep(current, currentDef, parentDef)
		if err != nil {
			return nil, &InvalidReferenceError{Reference: reference, Path: s.Path(), Cause: err}
		}
		current = next
		currentDef = parentDef
	}

	for _, segment := range reference.Path {
		name := segment
		if name == definition.SelfName {
			name = s.key
		}
		child, err := current.Child(name)
		if err != nil {
			return nil, err
		}
		if child == nil {
			return nil, &InvalidReferenceError{
				Reference: reference,
				Path:      s.Path(),
				Cause:     fmt.Errorf("no child %q in %s", name, current),
			}
		}
		current = child
	}
	return &ResolvedReference{LevelsUp: reference.LevelsUp, Path: reference.Path, Target: current}, nil
}

// lexicalStep performs one lexical escape from current, which embeds the
// definition-site scope currentDef, onto a composition-site symbol embedding
// parentDef. Candidates are the outers of the super-union members that
// contributed currentDef; the first in linearization order wins.
func (s *Symbol) lexicalStep(current *Symbol, currentDef definition.Definition, parentDef definition.ScopeDef) (*Symbol, error) {
	if parentDef == nil {
		return nil, fmt.Errorf("reference escapes above the root")
	}
	for _, member := range current.unionMembersFor(currentDef) {
		outer := member.outer
		if outer == nil {
			continue
		}
		if outer.embedsDefinition(parentDef) {
			return outer, nil
		}
	}
	return nil, fmt.Errorf("no lexical outer for %s", current)
}

// unionMembersFor lists super-union members whose origin carries def. While
// the closure of current is still being computed only the symbol itself is
// considered, which is always a member of its own union.
func (s *Symbol) unionMembersFor(def definition.Definition) []*Symbol {
	var members []*Symbol
	unions := []*Symbol{s}
	if s.supersState != memoRunning {
		if all, err := s.SuperUnions(); err == nil {
			unions = all
		}
	}
	for _, member := range unions {
		if containsDefinition(member.origin, def) {
			members = append(members, member)
		}
	}
	return members
}

// embedsDefinition reports whether any member of this symbol's super closure
// carries def in its origin.
func (s *Symbol) embedsDefinition(def definition.Definition) bool {
	if s.supersState == memoRunning {
		return containsDefinition(s.origin, def)
	}
	unions, err := s.SuperUnions()
	if err != nil {
		return containsDefinition(s.origin, def)
	}
	for _, member := range unions {
		if containsDefinition(member.origin, def) {
			return true
		}
	}
	return false
}

// LexicalOuters returns the composition-site symbols one lexical escape away
// that embed the given definition-site scope: the reverse of outer/base
// traversal used to navigate references across flattening compositions.
func (s *Symbol) LexicalOuters(def definition.ScopeDef) []*Symbol {
	var result []*Symbol
	seen := map[*Symbol]bool{}
	unions, err := s.SuperUnions()
	if err != nil {
		unions = []*Symbol{s}
	}
	for _, member := range unions {
		outer := member.outer
		if outer == nil || seen[outer] {
			continue
		}
		if outer.embedsDefinition(def) {
			seen[outer] = true
			result = append(result, outer)
		}
	}
	return result
}

// ResolveParam resolves a named dependency parameter for an evaluator inside
// this symbol: the nearest enclosing scope whose children contain the name,
// with the same-name skip applied when the parameter equals the symbol's own
// key. A nil result with nil error means the name is unbound in the lexical
// scope.
func (s *Symbol) ResolveParam(name definition.Name) (*ResolvedReference, error) {
	search := s.outer
	levels := 0
	if name == s.key && search != nil {
		search = search.outer
		levels = 1
	}
	for search != nil {
		child, err := search.Child(name)
		if err != nil {
			return nil, err
		}
		if child != nil {
			return &ResolvedReference{LevelsUp: levels, Path: []definition.Name{name}, Target: child}, nil
		}
		search = search.outer
		levels++
	}
	return nil, nil
}

func containsDefinition(origin []definition.Definition, def definition.Definition) bool {
	for _, member := range origin {
		if member == def {
			return true
		}
	}
	return false
}

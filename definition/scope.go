package definition

// ScopeDef is a definition owning an ordered mapping of child names to one
// or more definitions plus a sequence of base references. Implementations
// may discover children lazily (directories, remote storage), which is why
// Keys and Lookup can fail.
type ScopeDef interface {
	Definition
	Bases() []RelativeReference
	Keys() ([]Name, error)
	Lookup(name Name) ([]Definition, error)
}

// MapScopeDef is the ordered in-memory ScopeDef used by the construction API
// and by file parsers.
type MapScopeDef struct {
	Flags    Flags
	bases    []RelativeReference
	keys     []Name
	children map[Name][]Definition
}

// NewScope creates a public scope extending the given bases, in order.
func NewScope(bases ...RelativeReference) *MapScopeDef {
	return &MapScopeDef{
		Flags:    Flags{Public: true},
		bases:    bases,
		children: map[Name][]Definition{},
	}
}

func (s *MapScopeDef) Meta() Flags { return s.Flags }
func (*MapScopeDef) isDefinition() {}

// Bases returns the base references in declaration order.
func (s *MapScopeDef) Bases() []RelativeReference { return s.bases }

// Keys returns child names in insertion order.
func (s *MapScopeDef) Keys() ([]Name, error) { return s.keys, nil }

// Lookup returns the definitions contributed to name.
func (s *MapScopeDef) Lookup(name Name) ([]Definition, error) {
	return s.children[name], nil
}

// Add contributes definitions to a child name, preserving insertion order of
// first contribution. It returns the scope for chaining.
func (s *MapScopeDef) Add(name Name, defs ...Definition) *MapScopeDef {
	if len(defs) == 0 {
		return s
	}
	if _, ok := s.children[name]; !ok {
		s.keys = append(s.keys, name)
	}
	s.children[name] = append(s.children[name], defs...)
	return s
}

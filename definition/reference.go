package definition

import "strings"

// SelfName is the path segment replaced by the referring symbol's key during
// resolution. It allows self-referencing bases without structural cycles in
// the definition tree.
const SelfName Name = "~"

// RelativeReference locates a scope relative to the definition site of the
// reference. LevelsUp counts lexical scopes to escape before descending Path.
type RelativeReference struct {
	LevelsUp int
	Path     []Name
}

// NewReference creates a reference escaping levelsUp scopes and descending
// the given path. Path must be non-empty.
func NewReference(levelsUp int, path ...Name) RelativeReference {
	return RelativeReference{LevelsUp: levelsUp, Path: path}
}

// String renders the reference in the overlay syntax: "$^^.A.B" escapes two
// levels and descends A then B.
func (r RelativeReference) String() string {
	var builder strings.Builder
	builder.WriteByte('$')
	for i := 0; i < r.LevelsUp; i++ {
		builder.WriteByte('^')
	}
	for i, segment := range r.Path {
		if i > 0 || r.LevelsUp > 0 {
			builder.WriteByte('.')
		}
		builder.WriteString(segment)
	}
	return builder.String()
}

package runtime

import (
	"fmt"
	"strings"

	"github.com/overlaykit/overlay/definition"
)

// UnresolvedNameError reports a name with no matching definition in the
// lexical scope, or an access to a missing or local child of a scope.
type UnresolvedNameError struct {
	Name definition.Name
	Path []definition.Name
}

func (e *UnresolvedNameError) Error() string {
	return fmt.Sprintf("unresolved name %q at %s", e.Name, pathString(e.Path))
}

// NoMergerError reports a symbol with patches but no elected merger and no
// kwargs mixin to supply a base value.
type NoMergerError struct {
	Path []definition.Name
}

func (e *NoMergerError) Error() string {
	return fmt.Sprintf("no merger elected at %s", pathString(e.Path))
}

// CircularDependencyError reports a dependency cycle detected during
// evaluation by the reentrancy guard on a mixin cell.
type CircularDependencyError struct {
	Path []definition.Name
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency at %s", pathString(e.Path))
}

// KwargsMissingError reports a patcher-only symbol whose base value was not
// supplied by the instance kwargs.
type KwargsMissingError struct {
	Name definition.Name
	Path []definition.Name
}

func (e *KwargsMissingError) Error() string {
	return fmt.Sprintf("kwargs missing %q at %s", e.Name, pathString(e.Path))
}

func pathString(path []definition.Name) string {
	if len(path) == 0 {
		return "<root>"
	}
	return strings.Join(path, ".")
}

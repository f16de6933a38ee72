package symbol

import (
	"errors"
	"fmt"
	"strings"

	"github.com/overlaykit/overlay/definition"
)

var (
	errCircularSupers   = errors.New("circular super traversal")
	errCircularBases    = errors.New("circular base resolution")
	errCircularChildren = errors.New("circular children materialization")
)

// InvalidReferenceError reports a de Bruijn walk landing outside the tree or
// re-entering itself without a self-reference marker.
type InvalidReferenceError struct {
	Reference definition.RelativeReference
	Path      []definition.Name
	Cause     error
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("invalid reference %s at %s: %v", e.Reference, pathString(e.Path), e.Cause)
}

func (e *InvalidReferenceError) Unwrap() error { return e.Cause }

// MultipleMergersError reports two merger candidates coexisting at the same
// symbol with no linearization preference.
type MultipleMergersError struct {
	Path []definition.Name
}

func (e *MultipleMergersError) Error() string {
	return fmt.Sprintf("multiple mergers at %s", pathString(e.Path))
}

func pathString(path []definition.Name) string {
	if len(path) == 0 {
		return "<root>"
	}
	return strings.Join(path, ".")
}

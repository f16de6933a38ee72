package definition_test

import (
	"testing"

	"github.com/overlaykit/overlay/definition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorDefaults(t *testing.T) {
	defs := []definition.Definition{
		definition.NewResource(nil, nil),
		definition.NewMerger(nil, nil),
		definition.NewPatch(nil, nil),
		definition.NewPatches(nil, nil),
		definition.NewExtern(),
		definition.NewScope(),
	}
	for _, def := range defs {
		flags := def.Meta()
		assert.True(t, flags.Public)
		assert.False(t, flags.Local)
		assert.False(t, flags.Eager)
	}
}

func TestFlagMarkers(t *testing.T) {
	local := definition.MarkLocal(definition.Const(1))
	assert.True(t, local.Meta().Local)

	eager := definition.MarkEager(definition.Const(2))
	assert.True(t, eager.Meta().Eager)

	private := definition.MarkPrivate(definition.Const(3))
	assert.False(t, private.Meta().Public)

	scope := definition.MarkLocal(definition.NewScope())
	assert.True(t, scope.Meta().Local)
}

func TestConstResource(t *testing.T) {
	resource := definition.Const("fixed")
	value, err := resource.Call(nil)
	require.NoError(t, err)
	assert.Equal(t, "fixed", value)
	assert.Empty(t, definition.Params(resource))
}

func TestParamsAccessor(t *testing.T) {
	resource := definition.NewResource([]definition.Name{"a", "b"}, nil)
	assert.Equal(t, []definition.Name{"a", "b"}, definition.Params(resource))
	assert.Nil(t, definition.Params(definition.NewExtern()))
	assert.Nil(t, definition.Params(definition.NewScope()))
}

func TestScopeOrderingAndUnion(t *testing.T) {
	first := definition.Const(1)
	second := definition.Const(2)
	patch := definition.NewPatch(nil, nil)

	scope := definition.NewScope().
		Add("b", first).
		Add("a", second).
		Add("b", patch)

	keys, err := scope.Keys()
	require.NoError(t, err)
	assert.Equal(t, []definition.Name{"b", "a"}, keys)

	contributions, err := scope.Lookup("b")
	require.NoError(t, err)
	assert.Equal(t, []definition.Definition{first, patch}, contributions)

	missing, err := scope.Lookup("zzz")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestScopeBases(t *testing.T) {
	base := definition.NewReference(1, "Library", "Types")
	other := definition.NewReference(0, "Sibling")
	scope := definition.NewScope(base, other)
	assert.Equal(t, []definition.RelativeReference{base, other}, scope.Bases())
}

func TestReferenceString(t *testing.T) {
	assert.Equal(t, "$Base", definition.NewReference(0, "Base").String())
	assert.Equal(t, "$^.A.B", definition.NewReference(1, "A", "B").String())
	assert.Equal(t, "$^^.Types.~", definition.NewReference(2, "Types", definition.SelfName).String())
}

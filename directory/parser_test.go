package directory

import (
	"testing"

	"github.com/overlaykit/overlay/definition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReference(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected definition.RelativeReference
		ok       bool
	}{
		{name: "sibling", text: "$Base", expected: definition.NewReference(0, "Base"), ok: true},
		{name: "one level up", text: "$^.Library.Types", expected: definition.NewReference(1, "Library", "Types"), ok: true},
		{name: "two levels with self", text: "$^^.Types.~", expected: definition.NewReference(2, "Types", definition.SelfName), ok: true},
		{name: "not a reference", text: "plain string", ok: false},
		{name: "bare dollar", text: "$", ok: false},
		{name: "carets only", text: "$^^", ok: false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			reference, ok := parseReference(test.text)
			assert.Equal(t, test.ok, ok)
			if test.ok {
				assert.Equal(t, test.expected, reference)
			}
		})
	}
}

func TestDecodeOverlayPreservesMappingOrder(t *testing.T) {
	data := []byte("zulu: 1\nalpha: 2\nmike: 3\n")
	value, err := decodeOverlay(data, ".overlay.yaml")
	require.NoError(t, err)

	decoded, ok := value.(*mapping)
	require.True(t, ok)
	assert.Equal(t, []string{"zulu", "alpha", "mike"}, decoded.keys)
}

func TestDecodeOverlayJSON(t *testing.T) {
	data := []byte(`{"name": "demo", "count": 2}`)
	value, err := decodeOverlay(data, ".overlay.json")
	require.NoError(t, err)

	decoded, ok := value.(*mapping)
	require.True(t, ok)
	assert.Equal(t, []string{"name", "count"}, decoded.keys)
	assert.Equal(t, "demo", decoded.values["name"])
}

func TestListMixinRejectsMixedScalars(t *testing.T) {
	_, err := listMixin([]any{"$Base", "stray scalar"}, "test.overlay.yaml")
	var invalid *InvalidOverlayFileError
	require.ErrorAs(t, err, &invalid)
}

func TestListMixinScalarValues(t *testing.T) {
	single, err := listMixin([]any{42}, "test.overlay.yaml")
	require.NoError(t, err)
	resource, ok := single.(*definition.ResourceDef)
	require.True(t, ok)
	value, err := resource.Call(nil)
	require.NoError(t, err)
	assert.Equal(t, 42, value)

	several, err := listMixin([]any{1, 2, 3}, "test.overlay.yaml")
	require.NoError(t, err)
	resource, ok = several.(*definition.ResourceDef)
	require.True(t, ok)
	value, err = resource.Call(nil)
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2, 3}, value)
}

func TestListMixinBasesAndProperties(t *testing.T) {
	properties := &mapping{keys: []string{"region"}, values: map[string]any{"region": "us"}}
	def, err := listMixin([]any{"$^.defaults", properties}, "test.overlay.yaml")
	require.NoError(t, err)

	scope, ok := def.(*definition.MapScopeDef)
	require.True(t, ok)
	assert.Equal(t, []definition.RelativeReference{definition.NewReference(1, "defaults")}, scope.Bases())

	keys, err := scope.Keys()
	require.NoError(t, err)
	assert.Equal(t, []definition.Name{"region"}, keys)
}

package symbol_test

import (
	"testing"

	"github.com/overlaykit/overlay/definition"
	"github.com/overlaykit/overlay/symbol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flattenedLibrary builds a library whose Container scope sits three levels
// deep and is re-mounted at depth one by DirectFlatten; Composed inherits
// the flattened mount. References written inside Container must still land
// on Library targets from every composition site.
func flattenedLibrary() (*symbol.Graph, *symbol.Symbol) {
	root := definition.NewScope().
		Add("Library", definition.NewScope().
			Add("Marker", definition.NewScope().Add("tag", definition.Const("library"))).
			Add("Types", definition.NewScope().
				Add("Container", definition.NewScope().
					Add("DeBruijn2", definition.NewScope(definition.NewReference(2, "Marker"))))).
			Add("DirectFlatten", definition.NewScope(definition.NewReference(0, "Types", "Container")))).
		Add("Composed", definition.NewScope(definition.NewReference(0, "Library", "DirectFlatten")))
	graph := symbol.NewGraph()
	return graph, graph.Root(root)
}

func collectClosure(t *testing.T, root *symbol.Symbol) map[*symbol.Symbol]bool {
	t.Helper()
	closure := map[*symbol.Symbol]bool{}
	var walk func(current *symbol.Symbol)
	walk = func(current *symbol.Symbol) {
		if closure[current] {
			return
		}
		closure[current] = true
		supers, err := current.StrictSupers()
		require.NoError(t, err)
		for _, super := range supers {
			walk(super)
		}
	}
	walk(root)
	return closure
}

func TestDeBruijnResolutionAtDefinitionSite(t *testing.T) {
	_, root := flattenedLibrary()
	library := child(t, root, "Library")
	container := child(t, child(t, library, "Types"), "Container")
	deBruijn := child(t, container, "DeBruijn2")

	bases, err := deBruijn.ResolvedBases()
	require.NoError(t, err)
	require.Len(t, bases, 1)
	assert.Same(t, child(t, library, "Marker"), bases[0].Target)
	assert.Equal(t, 2, bases[0].LevelsUp)
}

func TestDeBruijnRoundTripUnderFlattening(t *testing.T) {
	_, root := flattenedLibrary()
	library := child(t, root, "Library")
	marker := child(t, library, "Marker")
	composed := child(t, root, "Composed")

	// The flattened composition still embeds the definition-site child.
	deBruijn := child(t, composed, "DeBruijn2")
	closure := collectClosure(t, deBruijn)
	assert.True(t, closure[marker],
		"resolving from the flattened site must land inside the definition-site target's union")

	// Inherited children of the target surface at the composition site.
	tag, err := deBruijn.Child("tag")
	require.NoError(t, err)
	require.NotNil(t, tag)
}

func TestSelfNameMarkerResolution(t *testing.T) {
	// Pair resolves "$Defaults.~": the self segment names the referring
	// symbol's key inside the Defaults scope.
	root := definition.NewScope().
		Add("Defaults", definition.NewScope().
			Add("Pair", definition.NewScope().Add("left", definition.Const(1)))).
		Add("Pair", definition.NewScope(definition.NewReference(0, "Defaults", definition.SelfName)))

	graph := symbol.NewGraph()
	rootSymbol := graph.Root(root)
	pair := child(t, rootSymbol, "Pair")

	supers, err := pair.StrictSupers()
	require.NoError(t, err)
	require.Len(t, supers, 1)
	assert.Same(t, child(t, child(t, rootSymbol, "Defaults"), "Pair"), supers[0])

	left, err := pair.Child("left")
	require.NoError(t, err)
	require.NotNil(t, left)
}

func TestLexicalOutersReverseMap(t *testing.T) {
	_, root := flattenedLibrary()
	library := child(t, root, "Library")
	types := child(t, library, "Types")
	container := child(t, types, "Container")
	deBruijn := child(t, container, "DeBruijn2")

	containerDef := container.Origin()[0].(definition.ScopeDef)
	outers := deBruijn.LexicalOuters(containerDef)
	require.NotEmpty(t, outers)
	assert.Same(t, container, outers[0])

	typesDef := types.Origin()[0].(definition.ScopeDef)
	assert.Same(t, types, container.LexicalOuters(typesDef)[0])
}

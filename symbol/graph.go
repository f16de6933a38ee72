package symbol

import (
	"encoding/binary"
	"sync"

	"github.com/minio/highwayhash"
	"github.com/overlaykit/overlay/definition"
)

var hashKey = []byte("0123456789ABCDEF0123456789ABCDEF")

// Graph owns every MixinSymbol of one evaluation universe. Symbols are
// interned by (origin identities, outer identity, key) so that two
// composition paths denoting the same node return the same *Symbol; symbol
// identity is the join key for every derived table.
type Graph struct {
	mu         sync.Mutex
	defIDs     map[definition.Definition]int
	defParents map[definition.Definition]definition.ScopeDef
	index      map[uint64][]*Symbol
	nextSymbol int
}

// NewGraph creates an empty symbol graph.
func NewGraph() *Graph {
	return &Graph{
		defIDs:     map[definition.Definition]int{},
		defParents: map[definition.Definition]definition.ScopeDef{},
		index:      map[uint64][]*Symbol{},
	}
}

// Root interns the root symbol for a union mount of the given definitions.
func (g *Graph) Root(origin ...definition.Definition) *Symbol {
	return g.intern(origin, origin, nil, "")
}

// intern returns the unique symbol for (origin, outer, key), creating it on
// first use. ownOrigin records which origin members were contributed by the
// composition-site parent itself rather than by one of its supers.
func (g *Graph) intern(origin, ownOrigin []definition.Definition, outer *Symbol, key definition.Name) *Symbol {
	g.mu.Lock()
	defer g.mu.Unlock()

	sum := g.hashIdentity(origin, outer, key)
	for _, candidate := range g.index[sum] {
		if candidate.outer == outer && candidate.key == key && sameOrigin(candidate.origin, origin) {
			return candidate
		}
	}
	symbol := &Symbol{
		graph:     g,
		id:        g.nextSymbol,
		origin:    origin,
		ownOrigin: ownOrigin,
		outer:     outer,
		key:       key,
	}
	g.nextSymbol++
	g.index[sum] = append(g.index[sum], symbol)
	return symbol
}

// hashIdentity folds outer identity, key and per-definition intern ids into
// a 64-bit index; collisions fall back to full comparison.
func (g *Graph) hashIdentity(origin []definition.Definition, outer *Symbol, key definition.Name) uint64 {
	buffer := make([]byte, 0, 16+len(key)+8*len(origin))
	outerID := -1
	if outer != nil {
		outerID = outer.id
	}
	buffer = binary.AppendVarint(buffer, int64(outerID))
	buffer = append(buffer, key...)
	for _, member := range origin {
		buffer = binary.AppendVarint(buffer, int64(g.definitionID(member)))
	}
	return highwayhash.Sum64(buffer, hashKey)
}

func (g *Graph) definitionID(def definition.Definition) int {
	id, ok := g.defIDs[def]
	if !ok {
		id = len(g.defIDs)
		g.defIDs[def] = id
	}
	return id
}

// recordParent remembers the definition-site scope that contributed a
// definition; the first contributor wins. The parent chain drives de Bruijn
// navigation across compositions.
func (g *Graph) recordParent(def definition.Definition, parent definition.ScopeDef) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.defParents[def]; !ok {
		g.defParents[def] = parent
	}
}

func (g *Graph) parentOf(def definition.Definition) definition.ScopeDef {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.defParents[def]
}

func sameOrigin(a, b []definition.Definition) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

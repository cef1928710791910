package database

import (
	"sort"
	"sync"

	"github.com/coder/hnsw"
	"github.com/kozaktomas/staff-attendance/internal/facematch"
)

// Neighbor is a search hit from the identity index.
type Neighbor struct {
	Identity *StoredIdentity
	Distance float64
}

// IdentityIndex wraps HNSW graphs over enrolled staff encodings, one graph per
// encoding dimensionality. Distances are Euclidean, the same metric the matcher uses.
type IdentityIndex struct {
	graphs     map[int]*hnsw.Graph[string]
	identities map[string]*StoredIdentity
	mu         sync.RWMutex
}

// NewIdentityIndex creates a new empty index.
func NewIdentityIndex() *IdentityIndex {
	return &IdentityIndex{
		identities: make(map[string]*StoredIdentity),
		graphs:     make(map[int]*hnsw.Graph[string]),
	}
}

func newIdentityGraph() *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors)
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.EuclideanDistance
	return g
}

// Build replaces the index contents with the given staff.
func (x *IdentityIndex) Build(identities []StoredIdentity) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.identities = make(map[string]*StoredIdentity, len(identities))
	x.graphs = make(map[int]*hnsw.Graph[string])
	for i := range identities {
		identity := &identities[i]
		dim := len(identity.Encoding)
		if dim == 0 {
			continue
		}
		g, ok := x.graphs[dim]
		if !ok {
			g = newIdentityGraph()
			x.graphs[dim] = g
		}
		g.Add(hnsw.MakeNode(identity.ID, identity.Encoding))
		x.identities[identity.ID] = identity
	}
}

// Delete hides a staff member from search results.
func (x *IdentityIndex) Delete(id string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	// The graph keeps the node; lookups filter through identities.
	delete(x.identities, id)
}

// Count returns the number of indexed staff.
func (x *IdentityIndex) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.identities)
}

// Search returns up to k nearest staff sorted by ascending distance, skipping excludeID.
// Only staff enrolled with encodings of the query's dimensionality are searched.
func (x *IdentityIndex) Search(query []float32, k int, excludeID string) ([]Neighbor, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	graph := x.graphs[len(query)]
	if k <= 0 || graph == nil || len(x.identities) == 0 {
		return nil, nil
	}

	nodes := graph.Search(query, k*HNSWSearchMultiplier)

	neighbors := make([]Neighbor, 0, k)
	for _, n := range nodes {
		identity, ok := x.identities[n.Key]
		if !ok || n.Key == excludeID {
			continue
		}
		dist, err := facematch.EuclideanDistance(query, facematch.Encoding(n.Value))
		if err != nil {
			return nil, err
		}
		neighbors = append(neighbors, Neighbor{Identity: identity, Distance: dist})
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Distance < neighbors[j].Distance
	})
	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

// Nearest returns the closest staff member other than excludeID, or nil for an empty index.
func (x *IdentityIndex) Nearest(query []float32, excludeID string) (*Neighbor, error) {
	neighbors, err := x.Search(query, 1, excludeID)
	if err != nil {
		return nil, err
	}
	if len(neighbors) == 0 {
		return nil, nil
	}
	return &neighbors[0], nil
}

package database

// HNSW parameters for the in-memory identity index (128-d or 512-d encodings)
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	HNSWEfSearch = 64

	// HNSWSearchMultiplier is the factor to request more candidates from HNSW
	// to ensure we have enough after filtering deleted nodes.
	HNSWSearchMultiplier = 3
)

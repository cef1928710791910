package facematch

import (
	"fmt"
	"math"
	"sort"
	"sync/atomic"
)

// DefaultConfidenceThreshold is the acceptance score used when no threshold is configured.
const DefaultConfidenceThreshold = 0.6

// ClampThreshold clamps a confidence threshold into [0, 1].
func ClampThreshold(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return max(0, min(1, v))
}

// Match finds the gallery identity nearest to the probe.
// The nearest entry is accepted only when its distance is within 1 - threshold;
// otherwise the result is "unknown" with zero confidence.
func Match(probe Encoding, gallery *Gallery, threshold float64) (MatchResult, error) {
	threshold = ClampThreshold(threshold)
	if gallery.Len() == 0 {
		return unknownResult(), nil
	}
	if len(probe) != gallery.dim {
		return MatchResult{}, fmt.Errorf("%w: probe has %d components, gallery %d",
			ErrEncodingMismatch, len(probe), gallery.dim)
	}

	bestIdx := -1
	bestDist := math.Inf(1)
	for i := range gallery.entries {
		d, err := EuclideanDistance(probe, gallery.entries[i].Encoding)
		if err != nil {
			return MatchResult{}, fmt.Errorf("identity %s: %w", gallery.entries[i].IdentityID, err)
		}
		// Strict comparison keeps the first entry on ties.
		if d < bestDist {
			bestDist = d
			bestIdx = i
		}
	}

	if bestIdx < 0 || !withinTolerance(bestDist, 1.0-threshold) {
		return unknownResult(), nil
	}

	return MatchResult{
		IdentityID:   gallery.entries[bestIdx].IdentityID,
		Confidence:   1.0 - bestDist,
		IsRecognized: true,
	}, nil
}

// withinTolerance compares at float32 precision, the precision encodings are
// stored in: a component of 0.4 is 0.40000000596 once widened, and must still
// sit on a tolerance of 0.4.
func withinTolerance(distance, tolerance float64) bool {
	return float32(distance) <= float32(tolerance)
}

// Rank scores every gallery entry against the probe, nearest first.
// Entries at equal distance keep gallery order.
func Rank(probe Encoding, gallery *Gallery) ([]Candidate, error) {
	if gallery.Len() == 0 {
		return nil, nil
	}
	if len(probe) != gallery.dim {
		return nil, fmt.Errorf("%w: probe has %d components, gallery %d",
			ErrEncodingMismatch, len(probe), gallery.dim)
	}

	candidates := make([]Candidate, 0, len(gallery.entries))
	for i := range gallery.entries {
		d, err := EuclideanDistance(probe, gallery.entries[i].Encoding)
		if err != nil {
			return nil, fmt.Errorf("identity %s: %w", gallery.entries[i].IdentityID, err)
		}
		candidates = append(candidates, Candidate{
			IdentityID: gallery.entries[i].IdentityID,
			Distance:   d,
			Confidence: 1.0 - d,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Distance < candidates[j].Distance
	})
	return candidates, nil
}

// Matcher matches probes against a registry using a session-owned threshold.
// Safe for concurrent use.
type Matcher struct {
	registry  *Registry
	threshold atomic.Uint64
}

// NewMatcher creates a matcher over registry with the given (clamped) threshold.
func NewMatcher(registry *Registry, threshold float64) *Matcher {
	if registry == nil {
		registry = NewRegistry()
	}
	m := &Matcher{registry: registry}
	m.SetConfidenceThreshold(threshold)
	return m
}

// SetConfidenceThreshold stores the threshold clamped into [0, 1].
func (m *Matcher) SetConfidenceThreshold(v float64) {
	m.threshold.Store(math.Float64bits(ClampThreshold(v)))
}

// ConfidenceThreshold returns the current threshold.
func (m *Matcher) ConfidenceThreshold() float64 {
	return math.Float64frombits(m.threshold.Load())
}

// Registry returns the registry the matcher reads from.
func (m *Matcher) Registry() *Registry {
	return m.registry
}

// gallery picks the snapshot gallery that shares the probe's dimensionality.
// A probe no enrolled staff member can be compared with is ErrEncodingMismatch;
// an empty registry is not an error.
func (m *Matcher) gallery(probe Encoding) (*Gallery, error) {
	set := m.registry.snapshot()
	g := set.forDim(len(probe))
	if g.Len() == 0 && set.total > 0 {
		return nil, fmt.Errorf("%w: no enrolled staff with %d-component encodings (enrolled: %v)",
			ErrEncodingMismatch, len(probe), set.dims())
	}
	return g, nil
}

// Match matches the probe against the current gallery snapshot.
func (m *Matcher) Match(probe Encoding) (MatchResult, error) {
	g, err := m.gallery(probe)
	if err != nil {
		return MatchResult{}, err
	}
	return Match(probe, g, m.ConfidenceThreshold())
}

// Rank scores the probe against every staff member enrolled at its dimensionality.
func (m *Matcher) Rank(probe Encoding) ([]Candidate, error) {
	g, err := m.gallery(probe)
	if err != nil {
		return nil, err
	}
	return Rank(probe, g)
}

// Nearest returns the closest gallery candidate regardless of threshold.
func (m *Matcher) Nearest(probe Encoding) (*Candidate, error) {
	ranked, err := m.Rank(probe)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return nil, nil
	}
	return &ranked[0], nil
}

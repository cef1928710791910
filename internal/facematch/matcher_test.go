package facematch

import (
	"errors"
	"math"
	"sync"
	"testing"
)

// offsetEncoding returns a copy of base with delta added to component 0.
func offsetEncoding(base Encoding, delta float32) Encoding {
	e := base.Clone()
	e[0] += delta
	return e
}

func zeroEncoding(dim int) Encoding {
	return make(Encoding, dim)
}

func mustGallery(t *testing.T, entries ...GalleryEntry) *Gallery {
	t.Helper()
	g, err := NewGallery(entries)
	if err != nil {
		t.Fatalf("NewGallery failed: %v", err)
	}
	return g
}

func TestMatch_Scenarios(t *testing.T) {
	probe := zeroEncoding(DefaultDim)
	gallery := mustGallery(t,
		GalleryEntry{IdentityID: "T001", Encoding: offsetEncoding(probe, 0.1)},
		GalleryEntry{IdentityID: "T002", Encoding: offsetEncoding(probe, 0.4)},
	)

	tests := []struct {
		name           string
		threshold      float64
		wantID         string
		wantConfidence float64
		wantRecognized bool
	}{
		{
			name:           "accepted nearest neighbour",
			threshold:      0.6,
			wantID:         "T001",
			wantConfidence: 0.9,
			wantRecognized: true,
		},
		{
			name:           "strict threshold rejects",
			threshold:      0.95,
			wantID:         UnknownIdentity,
			wantConfidence: 0,
			wantRecognized: false,
		},
		{
			name:           "zero threshold accepts anything within distance 1",
			threshold:      0,
			wantID:         "T001",
			wantConfidence: 0.9,
			wantRecognized: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Match(probe, gallery, tt.threshold)
			if err != nil {
				t.Fatalf("Match returned error: %v", err)
			}
			if result.IdentityID != tt.wantID {
				t.Errorf("IdentityID = %q, want %q", result.IdentityID, tt.wantID)
			}
			if math.Abs(result.Confidence-tt.wantConfidence) > 1e-6 {
				t.Errorf("Confidence = %v, want %v", result.Confidence, tt.wantConfidence)
			}
			if result.IsRecognized != tt.wantRecognized {
				t.Errorf("IsRecognized = %v, want %v", result.IsRecognized, tt.wantRecognized)
			}
		})
	}
}

func TestMatch_EmptyGallery(t *testing.T) {
	for _, g := range []*Gallery{nil, EmptyGallery()} {
		result, err := Match(zeroEncoding(DefaultDim), g, 0.5)
		if err != nil {
			t.Fatalf("Match returned error: %v", err)
		}
		if result.IsRecognized || result.IdentityID != UnknownIdentity || result.Confidence != 0 {
			t.Errorf("Match on empty gallery = %+v, want unknown", result)
		}
	}
}

func TestMatch_BoundaryDistanceIsAccepted(t *testing.T) {
	tests := []struct {
		name      string
		offsets   []float32
		threshold float64
		want      bool
	}{
		{"dyadic boundary", []float32{0.25}, 0.75, true},
		{"decimal boundary", []float32{0.4}, 0.6, true},
		{"two-component boundary", []float32{0.3, 0.4}, 0.5, true},
		{"just beyond tolerance", []float32{0.41}, 0.6, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reference := zeroEncoding(4)
			copy(reference, tt.offsets)
			gallery := mustGallery(t, GalleryEntry{IdentityID: "T001", Encoding: reference})

			result, err := Match(zeroEncoding(4), gallery, tt.threshold)
			if err != nil {
				t.Fatalf("Match returned error: %v", err)
			}
			if result.IsRecognized != tt.want {
				t.Fatalf("IsRecognized = %v, want %v (%+v)", result.IsRecognized, tt.want, result)
			}
			if tt.want && math.Abs(result.Confidence-tt.threshold) > 1e-6 {
				t.Errorf("Confidence = %v, want %v", result.Confidence, tt.threshold)
			}
		})
	}
}

func TestMatch_ClampsThreshold(t *testing.T) {
	probe := zeroEncoding(4)
	gallery := mustGallery(t, GalleryEntry{IdentityID: "T001", Encoding: offsetEncoding(probe, 5)})

	for _, threshold := range []float64{math.NaN(), -3, 7, math.Inf(1), math.Inf(-1)} {
		result, err := Match(probe, gallery, threshold)
		if err != nil {
			t.Fatalf("Match(%v) returned error: %v", threshold, err)
		}
		if result.IsRecognized || result.IdentityID != UnknownIdentity || result.Confidence != 0 {
			t.Errorf("Match(threshold=%v) accepted a face at distance 5: %+v", threshold, result)
		}
	}

	// A negative threshold clamps to 0, so anything within distance 1 still matches.
	near := mustGallery(t, GalleryEntry{IdentityID: "T001", Encoding: offsetEncoding(probe, 0.5)})
	result, err := Match(probe, near, -3)
	if err != nil {
		t.Fatalf("Match returned error: %v", err)
	}
	if !result.IsRecognized {
		t.Errorf("threshold -3 should clamp to 0 and accept distance 0.5, got %+v", result)
	}
}

func TestMatch_TieKeepsFirstEntry(t *testing.T) {
	probe := zeroEncoding(4)
	gallery := mustGallery(t,
		GalleryEntry{IdentityID: "B", Encoding: offsetEncoding(probe, 0.25)},
		GalleryEntry{IdentityID: "A", Encoding: offsetEncoding(probe, -0.25)},
	)

	for range 10 {
		result, err := Match(probe, gallery, 0.5)
		if err != nil {
			t.Fatalf("Match returned error: %v", err)
		}
		if result.IdentityID != "B" {
			t.Fatalf("tie should resolve to first entry B, got %q", result.IdentityID)
		}
	}
}

func TestMatch_DimensionMismatch(t *testing.T) {
	gallery := mustGallery(t, GalleryEntry{IdentityID: "T001", Encoding: zeroEncoding(DefaultDim)})

	_, err := Match(zeroEncoding(64), gallery, 0.6)
	if !errors.Is(err, ErrEncodingMismatch) {
		t.Errorf("expected ErrEncodingMismatch, got %v", err)
	}
}

func TestMatch_DoesNotMutateInputs(t *testing.T) {
	probe := Encoding{0.1, 0.2, 0.3}
	ref := Encoding{0.1, 0.2, 0.35}
	gallery := mustGallery(t, GalleryEntry{IdentityID: "T001", Encoding: ref})

	if _, err := Match(probe, gallery, 0.6); err != nil {
		t.Fatalf("Match returned error: %v", err)
	}
	if probe[0] != 0.1 || probe[1] != 0.2 || probe[2] != 0.3 {
		t.Errorf("probe was mutated: %v", probe)
	}
	ranked, err := Rank(ref, gallery)
	if err != nil {
		t.Fatalf("Rank returned error: %v", err)
	}
	if ranked[0].Distance != 0 {
		t.Errorf("gallery encoding was mutated: distance to the original is %v", ranked[0].Distance)
	}
}

func TestMatch_NegativeConfidenceNotClamped(t *testing.T) {
	probe := zeroEncoding(4)
	gallery := mustGallery(t, GalleryEntry{IdentityID: "T001", Encoding: offsetEncoding(probe, 1.5)})

	ranked, err := Rank(probe, gallery)
	if err != nil {
		t.Fatalf("Rank returned error: %v", err)
	}
	if ranked[0].Confidence != -0.5 {
		t.Errorf("Confidence = %v, want -0.5", ranked[0].Confidence)
	}
	if ConfidencePercent(ranked[0].Confidence) != 0 {
		t.Errorf("ConfidencePercent should clamp negative values to 0")
	}
}

func TestMatch_RecognizedIDIsInGallery(t *testing.T) {
	base := zeroEncoding(8)
	gallery := mustGallery(t,
		GalleryEntry{IdentityID: "T001", Encoding: offsetEncoding(base, 0.05)},
		GalleryEntry{IdentityID: "T002", Encoding: offsetEncoding(base, 0.3)},
		GalleryEntry{IdentityID: "T003", Encoding: offsetEncoding(base, 0.6)},
	)

	for _, delta := range []float32{-0.2, 0, 0.1, 0.25, 0.4, 0.55, 0.9} {
		result, err := Match(offsetEncoding(base, delta), gallery, 0.7)
		if err != nil {
			t.Fatalf("Match returned error: %v", err)
		}
		if result.IsRecognized && !gallery.Has(result.IdentityID) {
			t.Errorf("recognized identity %q not in gallery", result.IdentityID)
		}
	}
}

func TestMatch_ThresholdMonotonicity(t *testing.T) {
	base := zeroEncoding(8)
	gallery := mustGallery(t,
		GalleryEntry{IdentityID: "T001", Encoding: offsetEncoding(base, 0.2)},
		GalleryEntry{IdentityID: "T002", Encoding: offsetEncoding(base, 0.5)},
	)

	for _, delta := range []float32{0, 0.1, 0.3, 0.45} {
		probe := offsetEncoding(base, delta)
		rejected := false
		for step := 0; step <= 20; step++ {
			threshold := float64(step) / 20
			result, err := Match(probe, gallery, threshold)
			if err != nil {
				t.Fatalf("Match returned error: %v", err)
			}
			if rejected && result.IsRecognized {
				t.Fatalf("probe delta %v: recognized again at threshold %v after rejection", delta, threshold)
			}
			if !result.IsRecognized {
				rejected = true
			}
		}
	}
}

func TestRank_SortedNearestFirst(t *testing.T) {
	probe := zeroEncoding(4)
	gallery := mustGallery(t,
		GalleryEntry{IdentityID: "far", Encoding: offsetEncoding(probe, 0.75)},
		GalleryEntry{IdentityID: "near", Encoding: offsetEncoding(probe, 0.25)},
		GalleryEntry{IdentityID: "mid", Encoding: offsetEncoding(probe, 0.5)},
	)

	ranked, err := Rank(probe, gallery)
	if err != nil {
		t.Fatalf("Rank returned error: %v", err)
	}
	want := []string{"near", "mid", "far"}
	for i, id := range want {
		if ranked[i].IdentityID != id {
			t.Errorf("ranked[%d] = %q, want %q", i, ranked[i].IdentityID, id)
		}
	}
}

func TestMatcher_SetConfidenceThresholdClamps(t *testing.T) {
	tests := []struct {
		input float64
		want  float64
	}{
		{0.6, 0.6},
		{-0.3, 0},
		{1.7, 1},
		{0, 0},
		{1, 1},
		{math.NaN(), 0},
	}

	m := NewMatcher(nil, DefaultConfidenceThreshold)
	for _, tt := range tests {
		m.SetConfidenceThreshold(tt.input)
		if got := m.ConfidenceThreshold(); got != tt.want {
			t.Errorf("SetConfidenceThreshold(%v) stored %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestMatcher_UsesRegistrySnapshot(t *testing.T) {
	probe := zeroEncoding(4)
	registry := NewRegistry()
	m := NewMatcher(registry, 0.6)

	result, err := m.Match(probe)
	if err != nil {
		t.Fatalf("Match returned error: %v", err)
	}
	if result.IsRecognized {
		t.Fatalf("empty registry should not recognize, got %+v", result)
	}

	if err := registry.Swap(mustGallery(t, GalleryEntry{IdentityID: "T001", Encoding: offsetEncoding(probe, 0.25)})); err != nil {
		t.Fatalf("Swap failed: %v", err)
	}

	result, err = m.Match(probe)
	if err != nil {
		t.Fatalf("Match returned error: %v", err)
	}
	if result.IdentityID != "T001" {
		t.Errorf("expected T001 after reload, got %+v", result)
	}

	nearest, err := m.Nearest(probe)
	if err != nil {
		t.Fatalf("Nearest returned error: %v", err)
	}
	if nearest == nil || nearest.IdentityID != "T001" {
		t.Errorf("Nearest = %+v, want T001", nearest)
	}
}

func TestMatcher_ConcurrentMatchAndReload(t *testing.T) {
	probe := zeroEncoding(4)
	first := mustGallery(t, GalleryEntry{IdentityID: "T001", Encoding: offsetEncoding(probe, 0.25)})
	second := mustGallery(t, GalleryEntry{IdentityID: "T002", Encoding: offsetEncoding(probe, 0.25)})
	registry := NewRegistry()
	if err := registry.Swap(first); err != nil {
		t.Fatalf("Swap failed: %v", err)
	}
	m := NewMatcher(registry, 0.6)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := range 100 {
				if i%2 == 0 {
					next := first
					if j%2 == 0 {
						next = second
					}
					if err := registry.Swap(next); err != nil {
						t.Errorf("Swap failed: %v", err)
						return
					}
					continue
				}
				result, err := m.Match(probe)
				if err != nil {
					t.Errorf("Match returned error: %v", err)
					return
				}
				if result.IdentityID != "T001" && result.IdentityID != "T002" {
					t.Errorf("unexpected identity %q", result.IdentityID)
					return
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestMatcher_MixedDimensions(t *testing.T) {
	small := zeroEncoding(DefaultDim)
	large := zeroEncoding(512)
	registry := NewRegistry()
	err := registry.Swap(
		mustGallery(t, GalleryEntry{IdentityID: "T001", Encoding: offsetEncoding(small, 0.1)}),
		mustGallery(t, GalleryEntry{IdentityID: "T002", Encoding: offsetEncoding(large, 0.1)}),
	)
	if err != nil {
		t.Fatalf("Swap failed: %v", err)
	}
	if registry.Len() != 2 || !registry.Has("T001") || !registry.Has("T002") {
		t.Fatalf("registry should hold both staff, Len=%d", registry.Len())
	}
	if dims := registry.Dims(); len(dims) != 2 || dims[0] != DefaultDim || dims[1] != 512 {
		t.Errorf("Dims() = %v, want [%d 512]", dims, DefaultDim)
	}

	m := NewMatcher(registry, 0.6)
	tests := []struct {
		name  string
		probe Encoding
		want  string
	}{
		{"128-d probe", small, "T001"},
		{"512-d probe", large, "T002"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := m.Match(tt.probe)
			if err != nil {
				t.Fatalf("Match returned error: %v", err)
			}
			if result.IdentityID != tt.want {
				t.Errorf("Match = %+v, want %s", result, tt.want)
			}
		})
	}

	if _, err := m.Match(zeroEncoding(64)); !errors.Is(err, ErrEncodingMismatch) {
		t.Errorf("64-d probe: expected ErrEncodingMismatch, got %v", err)
	}
	if _, err := m.Nearest(zeroEncoding(64)); !errors.Is(err, ErrEncodingMismatch) {
		t.Errorf("64-d nearest: expected ErrEncodingMismatch, got %v", err)
	}
}

func TestRegistry_SwapRejectsConflicts(t *testing.T) {
	registry := NewRegistry()
	a := mustGallery(t, GalleryEntry{IdentityID: "T001", Encoding: zeroEncoding(4)})
	b := mustGallery(t, GalleryEntry{IdentityID: "T002", Encoding: zeroEncoding(4)})
	if err := registry.Swap(a, b); err == nil {
		t.Error("expected error for two galleries of the same dimensionality")
	}

	c := mustGallery(t, GalleryEntry{IdentityID: "T001", Encoding: zeroEncoding(8)})
	if err := registry.Swap(a, c); !errors.Is(err, ErrDuplicateIdentity) {
		t.Errorf("expected ErrDuplicateIdentity, got %v", err)
	}
	if registry.Len() != 0 {
		t.Errorf("failed Swap should leave the registry unchanged, Len=%d", registry.Len())
	}

	if err := registry.Swap(nil, EmptyGallery(), a); err != nil {
		t.Fatalf("Swap failed: %v", err)
	}
	if dims := registry.Dims(); registry.Len() != 1 || len(dims) != 1 || dims[0] != 4 {
		t.Errorf("unexpected registry contents: len %d, dims %v", registry.Len(), dims)
	}
}

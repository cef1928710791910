package facematch

import (
	"fmt"
	"sort"
	"sync/atomic"
)

// Gallery is an immutable set of enrolled identities.
// Entries keep the order they were supplied in, which decides ties during matching.
type Gallery struct {
	entries []GalleryEntry
	index   map[string]int
	dim     int
}

// NewGallery builds a gallery from entries. IDs must be unique and all encodings
// must share one dimensionality. Encodings are copied so later changes by the caller
// do not leak into the gallery.
func NewGallery(entries []GalleryEntry) (*Gallery, error) {
	g := &Gallery{
		entries: make([]GalleryEntry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}

	for _, e := range entries {
		if len(e.Encoding) == 0 {
			return nil, fmt.Errorf("identity %s: %w", e.IdentityID, ErrEmptyEncoding)
		}
		if _, ok := g.index[e.IdentityID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateIdentity, e.IdentityID)
		}
		if g.dim == 0 {
			g.dim = len(e.Encoding)
		} else if len(e.Encoding) != g.dim {
			return nil, fmt.Errorf("%w: identity %s has %d components, want %d",
				ErrEncodingMismatch, e.IdentityID, len(e.Encoding), g.dim)
		}

		g.index[e.IdentityID] = len(g.entries)
		g.entries = append(g.entries, GalleryEntry{IdentityID: e.IdentityID, Encoding: e.Encoding.Clone()})
	}

	return g, nil
}

// EmptyGallery returns a gallery with no entries.
func EmptyGallery() *Gallery {
	return &Gallery{index: map[string]int{}}
}

// Len returns the number of identities.
func (g *Gallery) Len() int {
	if g == nil {
		return 0
	}
	return len(g.entries)
}

// Dim returns the encoding dimensionality, or 0 for an empty gallery.
func (g *Gallery) Dim() int {
	if g == nil {
		return 0
	}
	return g.dim
}

// Has reports whether the identity is enrolled.
func (g *Gallery) Has(identityID string) bool {
	if g == nil {
		return false
	}
	_, ok := g.index[identityID]
	return ok
}

// Registry holds the galleries used for matching, one per encoding dimensionality,
// so staff enrolled under different encoder models are never dropped.
// Reloads swap the whole set, so a Match that already loaded a snapshot keeps using it.
type Registry struct {
	current atomic.Pointer[gallerySet]
}

type gallerySet struct {
	byDim map[int]*Gallery
	total int
}

func (s *gallerySet) forDim(dim int) *Gallery {
	if g, ok := s.byDim[dim]; ok {
		return g
	}
	return EmptyGallery()
}

func (s *gallerySet) dims() []int {
	dims := make([]int, 0, len(s.byDim))
	for d := range s.byDim {
		dims = append(dims, d)
	}
	sort.Ints(dims)
	return dims
}

// NewRegistry creates an empty registry; Swap fills it.
func NewRegistry() *Registry {
	return &Registry{}
}

func newGallerySet(gs []*Gallery) (*gallerySet, error) {
	set := &gallerySet{byDim: make(map[int]*Gallery, len(gs))}
	seen := make(map[string]int)
	for _, g := range gs {
		if g.Len() == 0 {
			continue
		}
		if _, ok := set.byDim[g.dim]; ok {
			return nil, fmt.Errorf("two galleries with %d-component encodings", g.dim)
		}
		for _, e := range g.entries {
			if dim, ok := seen[e.IdentityID]; ok {
				return nil, fmt.Errorf("%w: %s enrolled with %d and %d components",
					ErrDuplicateIdentity, e.IdentityID, dim, g.dim)
			}
			seen[e.IdentityID] = g.dim
		}
		set.byDim[g.dim] = g
		set.total += g.Len()
	}
	return set, nil
}

func (r *Registry) snapshot() *gallerySet {
	if s := r.current.Load(); s != nil {
		return s
	}
	return &gallerySet{}
}

// Swap replaces every gallery at once. Nil and empty galleries are ignored. At most
// one gallery per dimensionality is allowed and an identity may appear in only one.
func (r *Registry) Swap(gs ...*Gallery) error {
	set, err := newGallerySet(gs)
	if err != nil {
		return err
	}
	r.current.Store(set)
	return nil
}

// Len returns the number of identities across all galleries.
func (r *Registry) Len() int {
	return r.snapshot().total
}

// Has reports whether the identity is enrolled in any gallery.
func (r *Registry) Has(identityID string) bool {
	for _, g := range r.snapshot().byDim {
		if g.Has(identityID) {
			return true
		}
	}
	return false
}

// Dims returns the enrolled encoding dimensionalities in ascending order.
func (r *Registry) Dims() []int {
	return r.snapshot().dims()
}

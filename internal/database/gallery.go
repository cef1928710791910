package database

import (
	"fmt"
	"log"
	"sort"

	"github.com/kozaktomas/staff-attendance/internal/facematch"
)

// BuildGalleries builds one matching gallery per encoding dimensionality from
// already loaded staff, each sorted by ID, ordered by ascending dimensionality.
// Staff without an encoding are skipped with a warning. The input slice is not reordered.
func BuildGalleries(identities []StoredIdentity) ([]*facematch.Gallery, error) {
	identities = append([]StoredIdentity(nil), identities...)
	sort.SliceStable(identities, func(i, j int) bool {
		return identities[i].ID < identities[j].ID
	})

	byDim := make(map[int][]facematch.GalleryEntry)
	for _, identity := range identities {
		if len(identity.Encoding) == 0 {
			log.Printf("gallery: skipping %s: no encoding", identity.ID)
			continue
		}
		dim := len(identity.Encoding)
		byDim[dim] = append(byDim[dim], facematch.GalleryEntry{
			IdentityID: identity.ID,
			Encoding:   facematch.Encoding(identity.Encoding),
		})
	}

	dims := make([]int, 0, len(byDim))
	for dim := range byDim {
		dims = append(dims, dim)
	}
	sort.Ints(dims)
	if len(dims) > 1 {
		log.Printf("gallery: staff enrolled with %d encoding sizes %v; probes only match their own size", len(dims), dims)
	}

	galleries := make([]*facematch.Gallery, 0, len(dims))
	for _, dim := range dims {
		gallery, err := facematch.NewGallery(byDim[dim])
		if err != nil {
			return nil, fmt.Errorf("build %d-d gallery: %w", dim, err)
		}
		galleries = append(galleries, gallery)
	}
	return galleries, nil
}

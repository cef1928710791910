package encoder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math/rand/v2"

	"github.com/kozaktomas/staff-attendance/internal/facematch"
)

// DemoEncoder fabricates one deterministic face per image for running without an
// embedding server. The same bytes always produce the same encoding; different
// images land far apart, so demo enrollments only recognize the exact enrolled photo.
type DemoEncoder struct {
	Dim int
}

// NewDemoEncoder creates a demo encoder producing facematch.DefaultDim encodings.
func NewDemoEncoder() *DemoEncoder {
	return &DemoEncoder{Dim: facematch.DefaultDim}
}

// EncodeFaces implements Encoder.
func (d *DemoEncoder) EncodeFaces(_ context.Context, imageData []byte) (*FaceResponse, error) {
	width, height, err := DecodeDimensions(imageData)
	if err != nil {
		return nil, err
	}

	dim := d.Dim
	if dim <= 0 {
		dim = facematch.DefaultDim
	}

	sum := sha256.Sum256(imageData)
	rng := rand.New(rand.NewPCG(binary.LittleEndian.Uint64(sum[:8]), binary.LittleEndian.Uint64(sum[8:16])))

	embedding := make([]float32, dim)
	for i := range embedding {
		embedding[i] = float32(rng.Float64()*0.3 - 0.15)
	}

	// Centered box covering 60% of each side.
	w, h := float64(width), float64(height)
	bbox := []float64{w * 0.2, h * 0.2, w * 0.8, h * 0.8}

	return &FaceResponse{
		FacesCount: 1,
		Faces: []FaceDetection{{
			FaceIndex: 0,
			Dim:       dim,
			Embedding: embedding,
			BBox:      bbox,
			DetScore:  1,
		}},
		Model: "demo",
	}, nil
}

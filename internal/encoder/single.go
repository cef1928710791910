package encoder

import (
	"context"
	"fmt"

	"github.com/kozaktomas/staff-attendance/internal/facematch"
)

// Result is a single-face encoding together with the quality verdict for its image.
type Result struct {
	Encoding     facematch.Encoding
	Quality      facematch.QualityReport
	BBox         []float64
	BBoxRelative []float64 // BBox scaled to the encoded image
	Model        string
}

// EncodeSingle encodes an image expected to contain exactly one face.
// Quality rejections are reported through Result.Quality with a nil error; the
// encoding is only set when the image passed the quality gate.
func EncodeSingle(ctx context.Context, enc Encoder, imageData []byte) (*Result, error) {
	width, height, err := DecodeDimensions(imageData)
	if err != nil {
		return nil, err
	}

	resp, err := enc.EncodeFaces(ctx, imageData)
	if err != nil {
		return nil, fmt.Errorf("failed to encode faces: %w", err)
	}

	detection := facematch.Detection{ImageWidth: width, ImageHeight: height}
	for _, face := range resp.Faces {
		detection.Boxes = append(detection.Boxes, face.BBox)
	}

	result := &Result{
		Quality: facematch.ValidateDetection(detection),
		Model:   resp.Model,
	}
	if !result.Quality.OK {
		return result, nil
	}

	face := resp.Faces[0]
	if len(face.Embedding) == 0 {
		return result, ErrNoFaceEncodable
	}
	result.Encoding = facematch.Encoding(face.Embedding)
	result.BBox = face.BBox
	result.BBoxRelative = facematch.ConvertPixelBBoxToRelative(face.BBox, width, height)
	return result, nil
}

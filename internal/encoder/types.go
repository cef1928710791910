// Package encoder turns face images into facematch encodings by calling an external
// face embedding server.
package encoder

import (
	"context"
	"errors"
)

// ErrNoFaceEncodable is returned when a face was detected but no usable encoding came back.
var ErrNoFaceEncodable = errors.New("face detected but could not be encoded")

// Encoder detects faces in an image and computes one encoding per face.
type Encoder interface {
	EncodeFaces(ctx context.Context, imageData []byte) (*FaceResponse, error)
}

// FaceDetection represents a single detected face
type FaceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// FaceResponse represents the response from the face embedding endpoint
type FaceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []FaceDetection `json:"faces"`
	Model      string          `json:"model"`
}

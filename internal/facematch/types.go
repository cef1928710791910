// Package facematch resolves face encodings to enrolled staff identities.
// It is shared between CLI commands, the attendance service and web handlers.
package facematch

import "errors"

// DefaultDim is the dimensionality of encodings produced by the dlib face encoder.
const DefaultDim = 128

// UnknownIdentity is the identity reported when no gallery entry is accepted.
const UnknownIdentity = "unknown"

var (
	// ErrEncodingMismatch is returned when two encodings have different dimensionality.
	ErrEncodingMismatch = errors.New("encoding dimensionality mismatch")
	// ErrEmptyEncodingSet is returned when averaging an empty list of encodings.
	ErrEmptyEncodingSet = errors.New("empty encoding set")
	// ErrEmptyEncoding is returned for zero-length encodings.
	ErrEmptyEncoding = errors.New("empty encoding")
	// ErrDuplicateIdentity is returned when a gallery is built with a repeated identity ID.
	ErrDuplicateIdentity = errors.New("duplicate identity")
)

// Encoding is a face embedding produced by an external encoder
type Encoding []float32

// Dim returns the number of components in the encoding.
func (e Encoding) Dim() int {
	return len(e)
}

// Clone returns a copy that does not share the backing array.
func (e Encoding) Clone() Encoding {
	if e == nil {
		return nil
	}
	out := make(Encoding, len(e))
	copy(out, e)
	return out
}

// GalleryEntry is one enrolled identity with its reference encoding
type GalleryEntry struct {
	IdentityID string
	Encoding   Encoding
}

// MatchResult is the outcome of matching one probe against a gallery
type MatchResult struct {
	IdentityID   string  `json:"identity_id"`
	Confidence   float64 `json:"confidence"`
	IsRecognized bool    `json:"is_recognized"`
}

// Candidate is a gallery entry scored against a probe.
type Candidate struct {
	IdentityID string  `json:"identity_id"`
	Distance   float64 `json:"distance"`
	Confidence float64 `json:"confidence"`
}

func unknownResult() MatchResult {
	return MatchResult{IdentityID: UnknownIdentity}
}

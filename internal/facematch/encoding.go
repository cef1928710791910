package facematch

import (
	"fmt"
	"math"
)

// EuclideanDistance computes the L2 distance between two encodings.
// Encodings of different length fail with ErrEncodingMismatch; nothing is truncated or padded.
func EuclideanDistance(a, b Encoding) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrEncodingMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, ErrEmptyEncoding
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// AverageEncodings computes the element-wise mean of encodings that belong to one identity.
// A single encoding is returned unchanged (as a copy).
func AverageEncodings(encodings []Encoding) (Encoding, error) {
	if len(encodings) == 0 {
		return nil, ErrEmptyEncodingSet
	}

	dim := len(encodings[0])
	if dim == 0 {
		return nil, ErrEmptyEncoding
	}
	for i, e := range encodings[1:] {
		if len(e) != dim {
			return nil, fmt.Errorf("%w: encoding %d has %d components, want %d", ErrEncodingMismatch, i+1, len(e), dim)
		}
	}

	if len(encodings) == 1 {
		return encodings[0].Clone(), nil
	}

	// Accumulate in float64 to avoid float32 drift with many samples.
	sums := make([]float64, dim)
	for _, e := range encodings {
		for i, v := range e {
			sums[i] += float64(v)
		}
	}

	n := float64(len(encodings))
	avg := make(Encoding, dim)
	for i, s := range sums {
		avg[i] = float32(s / n)
	}
	return avg, nil
}

// ConfidencePercent converts a confidence score to a display percentage clamped to [0, 100].
// Match results keep the raw value, which can be negative for distances above 1.
func ConfidencePercent(confidence float64) float64 {
	return max(0, min(100, confidence*100))
}

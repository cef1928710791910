// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Enrollment constants
const (
	// MaxEnrollmentImages is the hard cap on images accepted for one enrollment
	MaxEnrollmentImages = 20

	// NearestSearchLimit is how many neighbors the duplicate check inspects
	NearestSearchLimit = 3
)

// Processing constants
const (
	// WorkerPoolSize is the default number of parallel workers for batch encoding
	WorkerPoolSize = 4

	// MaxImageSize is the maximum dimension (width or height) sent to the encoder
	MaxImageSize = 1280
)

package constants

// File upload constants
const (
	// MaxUploadSize is the maximum single image upload size in bytes (10MB)
	MaxUploadSize = 10 << 20

	// MaxMultipartMemory is the multipart form memory budget for enrollment uploads
	MaxMultipartMemory = 32 << 20

	// MaxJSONBodySize caps JSON request bodies (1MB)
	MaxJSONBodySize = 1 << 20
)

// Export constants
const (
	// MaxExportDays is the widest date range accepted by the CSV export
	MaxExportDays = 366
)

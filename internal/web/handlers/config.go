package handlers

import (
	"net/http"

	"github.com/kozaktomas/staff-attendance/internal/attendance"
	"github.com/kozaktomas/staff-attendance/internal/config"
	"github.com/kozaktomas/staff-attendance/internal/constants"
	"github.com/kozaktomas/staff-attendance/internal/database"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config  *config.Config
	service *attendance.Service
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config, service *attendance.Service) *ConfigHandler {
	return &ConfigHandler{
		config:  cfg,
		service: service,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	Encoder             EncoderInfo    `json:"encoder"`
	DatabaseInitialized bool           `json:"database_initialized"`
	GallerySize         int            `json:"gallery_size"`
	EncodingDims        []int          `json:"encoding_dims"`
	ConfidenceThreshold float64        `json:"confidence_threshold"`
	Window              WindowSettings `json:"window"`
	MaxEnrollmentImages int            `json:"max_enrollment_images"`
	MaxUploadSize       int            `json:"max_upload_size"`
}

// EncoderInfo describes the configured face encoder
type EncoderInfo struct {
	URL  string `json:"url,omitempty"`
	Demo bool   `json:"demo"`
}

// Get returns the active configuration without secrets
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	encoderInfo := EncoderInfo{Demo: h.config.Encoder.Demo}
	if !encoderInfo.Demo {
		encoderInfo.URL = h.config.Encoder.URL
	}

	matcher := h.service.Matcher()
	response := ConfigResponse{
		Encoder:             encoderInfo,
		DatabaseInitialized: database.IsInitialized(),
		GallerySize:         matcher.Registry().Len(),
		EncodingDims:        matcher.Registry().Dims(),
		ConfidenceThreshold: matcher.ConfidenceThreshold(),
		Window:              windowSettings(h.service.Window()),
		MaxEnrollmentImages: constants.MaxEnrollmentImages,
		MaxUploadSize:       constants.MaxUploadSize,
	}

	respondJSON(w, http.StatusOK, response)
}

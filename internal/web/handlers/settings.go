package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/staff-attendance/internal/attendance"
	"github.com/kozaktomas/staff-attendance/internal/web/middleware"
)

// SettingsHandler exposes the runtime-tunable matching and window policy
type SettingsHandler struct {
	service *attendance.Service
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(service *attendance.Service) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// ThresholdResponse reports the active confidence threshold
type ThresholdResponse struct {
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	Tolerance           float64 `json:"tolerance"`
}

type thresholdRequest struct {
	ConfidenceThreshold *float64 `json:"confidence_threshold" validate:"required,min=0,max=1"`
}

func (h *SettingsHandler) thresholdResponse() ThresholdResponse {
	threshold := h.service.Matcher().ConfidenceThreshold()
	return ThresholdResponse{
		ConfidenceThreshold: threshold,
		Tolerance:           1 - threshold,
	}
}

// GetThreshold returns the confidence threshold
func (h *SettingsHandler) GetThreshold(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.thresholdResponse())
}

// UpdateThreshold sets the confidence threshold for subsequent matches
func (h *SettingsHandler) UpdateThreshold(w http.ResponseWriter, r *http.Request) {
	var req thresholdRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.service.SetConfidenceThreshold(r.Context(), *req.ConfidenceThreshold); err != nil {
		log.Printf("settings: save threshold failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to save threshold")
		return
	}
	log.Printf("settings: %s set confidence threshold to %.3f", sanitizeForLog(middleware.Actor(r.Context())), *req.ConfidenceThreshold)
	respondJSON(w, http.StatusOK, h.thresholdResponse())
}

// WindowSettings is the editable part of the attendance window
type WindowSettings struct {
	Start            string `json:"start" validate:"required"`
	End              string `json:"end" validate:"required"`
	LateAfterMinutes int    `json:"late_after_minutes" validate:"min=0,max=1440"`
	WeekendsClosed   *bool  `json:"weekends_closed,omitempty"`
	Timezone         string `json:"timezone,omitempty"`
}

func windowSettings(win attendance.Window) WindowSettings {
	closed := win.WeekendsClosed
	return WindowSettings{
		Start:            attendance.FormatClock(win.Start),
		End:              attendance.FormatClock(win.End),
		LateAfterMinutes: int(win.LateAfter / time.Minute),
		WeekendsClosed:   &closed,
		Timezone:         win.Zone().String(),
	}
}

// GetWindow returns the configured attendance window
func (h *SettingsHandler) GetWindow(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, windowSettings(h.service.Window()))
}

// UpdateWindow replaces the attendance window; the timezone stays as configured
func (h *SettingsHandler) UpdateWindow(w http.ResponseWriter, r *http.Request) {
	var req WindowSettings
	if !decodeAndValidate(w, r, &req) {
		return
	}

	win := h.service.Window()
	start, err := attendance.ParseClock(req.Start)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid start: "+err.Error())
		return
	}
	end, err := attendance.ParseClock(req.End)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid end: "+err.Error())
		return
	}
	win.Start = start
	win.End = end
	win.LateAfter = time.Duration(req.LateAfterMinutes) * time.Minute
	if req.WeekendsClosed != nil {
		win.WeekendsClosed = *req.WeekendsClosed
	}

	if err := h.service.SetWindow(r.Context(), win); err != nil {
		if errors.Is(err, attendance.ErrInvalidWindow) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("settings: save window failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to save attendance window")
		return
	}
	log.Printf("settings: %s set attendance window to %s-%s", sanitizeForLog(middleware.Actor(r.Context())), req.Start, req.End)
	respondJSON(w, http.StatusOK, windowSettings(win))
}

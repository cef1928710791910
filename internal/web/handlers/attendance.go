package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/staff-attendance/internal/attendance"
	"github.com/kozaktomas/staff-attendance/internal/constants"
	"github.com/kozaktomas/staff-attendance/internal/database"
	"github.com/kozaktomas/staff-attendance/internal/encoder"
	"github.com/kozaktomas/staff-attendance/internal/facematch"
)

// AttendanceHandler handles recognition, marking and attendance log endpoints
type AttendanceHandler struct {
	service *attendance.Service
	log     database.AttendanceReader
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(service *attendance.Service, reader database.AttendanceReader) *AttendanceHandler {
	return &AttendanceHandler{
		service: service,
		log:     reader,
	}
}

// RecordResponse is one attendance record
type RecordResponse struct {
	ID         string  `json:"id"`
	StaffID    string  `json:"staff_id"`
	StaffName  string  `json:"staff_name"`
	Department string  `json:"department,omitempty"`
	Date       string  `json:"date"`
	MarkedAt   string  `json:"marked_at"`
	TimeIn     string  `json:"time_in"`
	Confidence float64 `json:"confidence"`
	Status     string  `json:"status"`
}

func (h *AttendanceHandler) toRecordResponse(r *database.AttendanceRecord) RecordResponse {
	local := r.MarkedAt.In(h.service.Window().Zone())
	return RecordResponse{
		ID:         r.ID.String(),
		StaffID:    r.StaffID,
		StaffName:  r.StaffName,
		Department: r.Department,
		Date:       r.Date,
		MarkedAt:   local.Format(time.RFC3339),
		TimeIn:     local.Format(time.TimeOnly),
		Confidence: r.Confidence,
		Status:     string(r.Status),
	}
}

// RecognizeResponse is returned by Recognize and embedded in MarkResponse
type RecognizeResponse struct {
	*attendance.Recognition
	Staff *StaffResponse `json:"staff,omitempty"`
}

func toRecognizeResponse(rec *attendance.Recognition) *RecognizeResponse {
	if rec == nil {
		return nil
	}
	resp := &RecognizeResponse{Recognition: rec}
	if rec.Identity != nil {
		staff := toStaffResponse(rec.Identity)
		resp.Staff = &staff
	}
	return resp
}

// MarkResponse is returned by Mark for both logged and refused marks
type MarkResponse struct {
	Marked      bool                   `json:"marked"`
	Message     string                 `json:"message"`
	Recognition *RecognizeResponse     `json:"recognition,omitempty"`
	Record      *RecordResponse        `json:"record,omitempty"`
	Window      attendance.WindowState `json:"window"`
}

// respondImageError maps image and encoder failures to HTTP errors.
func respondImageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, encoder.ErrInvalidImage):
		respondError(w, http.StatusBadRequest, "unsupported or corrupt image")
	case errors.Is(err, encoder.ErrNoFaceEncodable):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, facematch.ErrEncodingMismatch):
		log.Printf("attendance: %v", err)
		respondError(w, http.StatusConflict, "face encoder model does not match enrolled staff; re-enroll or switch the encoder")
	default:
		log.Printf("attendance: encoder failed: %v", err)
		respondError(w, http.StatusBadGateway, "face encoder unavailable")
	}
}

// Recognize identifies the face in an uploaded image without logging attendance
func (h *AttendanceHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	image, err := readImage(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.service.Recognize(r.Context(), image)
	if err != nil {
		respondImageError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toRecognizeResponse(rec))
}

// Mark recognizes the uploaded face and logs attendance once per day
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	image, err := readImage(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Mark(r.Context(), image)
	resp := MarkResponse{Window: result.Window}
	if result.Recognition != nil {
		resp.Recognition = toRecognizeResponse(result.Recognition)
	}

	switch {
	case err == nil:
		record := h.toRecordResponse(result.Record)
		resp.Marked = true
		resp.Record = &record
		resp.Message = fmt.Sprintf("attendance marked for %s", result.Record.StaffName)
		respondJSON(w, http.StatusCreated, resp)
	case errors.Is(err, attendance.ErrWindowClosed):
		resp.Message = result.Window.Reason
		respondJSON(w, http.StatusForbidden, resp)
	case errors.Is(err, database.ErrAlreadyMarked):
		resp.Message = err.Error()
		respondJSON(w, http.StatusConflict, resp)
	case errors.Is(err, attendance.ErrPoorQuality), errors.Is(err, attendance.ErrNotRecognized):
		resp.Message = err.Error()
		respondJSON(w, http.StatusUnprocessableEntity, resp)
	case errors.Is(err, attendance.ErrStaffNotFound):
		log.Printf("attendance: gallery out of sync: %v", err)
		resp.Message = err.Error()
		respondJSON(w, http.StatusConflict, resp)
	case errors.Is(err, encoder.ErrInvalidImage), errors.Is(err, encoder.ErrNoFaceEncodable),
		errors.Is(err, facematch.ErrEncodingMismatch):
		respondImageError(w, err)
	default:
		if result.Recognition == nil {
			respondImageError(w, err)
			return
		}
		log.Printf("attendance: mark failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to log attendance")
	}
}

// Window returns the current attendance window state
func (h *AttendanceHandler) Window(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.service.WindowState(r.Context()))
}

// parseDate validates a ?key= date, defaulting to today.
func (h *AttendanceHandler) parseDate(r *http.Request, key string) (string, error) {
	date := r.URL.Query().Get(key)
	if date == "" {
		return h.service.Today(), nil
	}
	if _, err := time.Parse(database.DateLayout, date); err != nil {
		return "", fmt.Errorf("invalid %s, expected YYYY-MM-DD", key)
	}
	return date, nil
}

// List returns the attendance of one day (?date=, defaults to today)
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	date, err := h.parseDate(r, "date")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.log.ListByDate(r.Context(), date)
	if err != nil {
		log.Printf("attendance: list %s failed: %v", date, err)
		respondError(w, http.StatusInternalServerError, "failed to list attendance")
		return
	}
	result := make([]RecordResponse, 0, len(records))
	for i := range records {
		result = append(result, h.toRecordResponse(&records[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"date":    date,
		"records": result,
	})
}

// Dates lists the days that have attendance, newest first
func (h *AttendanceHandler) Dates(w http.ResponseWriter, r *http.Request) {
	dates, err := h.log.Dates(r.Context())
	if err != nil {
		log.Printf("attendance: dates failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list dates")
		return
	}
	if dates == nil {
		dates = []string{}
	}
	respondJSON(w, http.StatusOK, dates)
}

// Stats summarizes one day (?date=, defaults to today)
func (h *AttendanceHandler) Stats(w http.ResponseWriter, r *http.Request) {
	date, err := h.parseDate(r, "date")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	stats, err := h.log.Stats(r.Context(), date)
	if err != nil {
		log.Printf("attendance: stats %s failed: %v", date, err)
		respondError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// Export streams ?from=&to= attendance as CSV (both default to today)
func (h *AttendanceHandler) Export(w http.ResponseWriter, r *http.Request) {
	from, err := h.parseDate(r, "from")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := h.parseDate(r, "to")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	fromT, _ := time.Parse(database.DateLayout, from)
	toT, _ := time.Parse(database.DateLayout, to)
	if toT.Before(fromT) {
		respondError(w, http.StatusBadRequest, "from must not be after to")
		return
	}
	if toT.Sub(fromT) > constants.MaxExportDays*24*time.Hour {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("range exceeds %d days", constants.MaxExportDays))
		return
	}

	records, err := h.log.ListByRange(r.Context(), from, to)
	if err != nil {
		log.Printf("attendance: export %s..%s failed: %v", from, to, err)
		respondError(w, http.StatusInternalServerError, "failed to export attendance")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attendance.ExportFilename(from, to)))
	w.WriteHeader(http.StatusOK)
	if err := attendance.ExportCSV(w, records, h.service.Window().Zone()); err != nil {
		log.Printf("attendance: export write failed: %v", err)
	}
}

package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/staff-attendance/internal/attendance"
	"github.com/kozaktomas/staff-attendance/internal/database"
	"github.com/kozaktomas/staff-attendance/internal/web/middleware"
)

// HolidayHandler manages manually declared holidays
type HolidayHandler struct {
	service *attendance.Service
}

// NewHolidayHandler creates a new holiday handler
func NewHolidayHandler(service *attendance.Service) *HolidayHandler {
	return &HolidayHandler{service: service}
}

type holidayRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
	Name string `json:"name" validate:"required,max=128"`
}

// List returns upcoming holidays, ?days= ahead of today (default 30)
func (h *HolidayHandler) List(w http.ResponseWriter, r *http.Request) {
	days := attendance.DefaultHolidayHorizon
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 366 {
			respondError(w, http.StatusBadRequest, "days must be between 1 and 366")
			return
		}
		days = n
	}

	holidays, err := h.service.UpcomingHolidays(r.Context(), days)
	if err != nil {
		h.respondStoreError(w, "list", err)
		return
	}
	if holidays == nil {
		holidays = []database.Holiday{}
	}
	respondJSON(w, http.StatusOK, holidays)
}

// Create declares a holiday
func (h *HolidayHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req holidayRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	holiday, err := h.service.AddHoliday(r.Context(), req.Date, req.Name, middleware.Actor(r.Context()))
	switch {
	case err == nil:
		respondJSON(w, http.StatusCreated, holiday)
	case errors.Is(err, attendance.ErrInvalidHoliday):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrHolidayExists):
		respondError(w, http.StatusConflict, err.Error())
	default:
		h.respondStoreError(w, "add", err)
	}
}

// Delete removes the holiday on {date}
func (h *HolidayHandler) Delete(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	err := h.service.RemoveHoliday(r.Context(), date)
	switch {
	case err == nil:
		log.Printf("holidays: %s removed %s", sanitizeForLog(middleware.Actor(r.Context())), sanitizeForLog(date))
		respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
	case errors.Is(err, attendance.ErrInvalidHoliday):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, "holiday not found")
	default:
		h.respondStoreError(w, "remove", err)
	}
}

func (h *HolidayHandler) respondStoreError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, attendance.ErrNoHolidayStore) {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	log.Printf("holidays: %s failed: %v", op, err)
	respondError(w, http.StatusInternalServerError, "failed to "+op+" holidays")
}

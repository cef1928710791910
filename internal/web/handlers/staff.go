package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/staff-attendance/internal/attendance"
	"github.com/kozaktomas/staff-attendance/internal/constants"
	"github.com/kozaktomas/staff-attendance/internal/database"
	"github.com/kozaktomas/staff-attendance/internal/facematch"
	"github.com/kozaktomas/staff-attendance/internal/web/middleware"
)

// StaffHandler handles staff enrollment endpoints
type StaffHandler struct {
	service    *attendance.Service
	identities database.IdentityReader
}

// NewStaffHandler creates a new staff handler
func NewStaffHandler(service *attendance.Service, identities database.IdentityReader) *StaffHandler {
	return &StaffHandler{
		service:    service,
		identities: identities,
	}
}

// StaffResponse is the public view of an enrolled staff member (no encoding)
type StaffResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Department  string    `json:"department,omitempty"`
	Email       string    `json:"email,omitempty"`
	SampleCount int       `json:"sample_count"`
	Model       string    `json:"model,omitempty"`
	Dim         int       `json:"dim"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toStaffResponse(s *database.StoredIdentity) StaffResponse {
	return StaffResponse{
		ID:          s.ID,
		Name:        s.Name,
		Department:  s.Department,
		Email:       s.Email,
		SampleCount: s.SampleCount,
		Model:       s.Model,
		Dim:         len(s.Encoding),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// enrollForm holds the text fields of an enrollment upload
type enrollForm struct {
	ID         string `validate:"required,max=64"`
	Name       string `validate:"required,max=128"`
	Department string `validate:"max=128"`
	Email      string `validate:"omitempty,email,max=254"`
}

// EnrollResponse is returned after a successful enrollment
type EnrollResponse struct {
	Staff     StaffResponse                `json:"staff"`
	Images    []attendance.ImageReport     `json:"images"`
	Duplicate *attendance.DuplicateWarning `json:"duplicate,omitempty"`
}

// List returns enrolled staff, filtered by ?q= name search when present
func (h *StaffHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		staff []database.StoredIdentity
		err   error
	)
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		staff, err = h.identities.SearchByName(r.Context(), q)
	} else {
		staff, err = h.identities.List(r.Context())
	}
	if err != nil {
		log.Printf("staff: list failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list staff")
		return
	}

	result := make([]StaffResponse, 0, len(staff))
	for i := range staff {
		result = append(result, toStaffResponse(&staff[i]))
	}
	respondJSON(w, http.StatusOK, result)
}

// Get returns one staff member
func (h *StaffHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := facematch.NormalizeStaffID(chi.URLParam(r, "id"))
	staff, err := h.identities.Get(r.Context(), id)
	if err != nil {
		log.Printf("staff: get %s failed: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to get staff member")
		return
	}
	if staff == nil {
		respondError(w, http.StatusNotFound, "staff member not found")
		return
	}
	respondJSON(w, http.StatusOK, toStaffResponse(staff))
}

// Enroll handles a multipart enrollment: fields id, name, department, email and one or more "images" files
func (h *StaffHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxEnrollmentImages*constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxMultipartMemory); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	form := enrollForm{
		ID:         strings.TrimSpace(r.FormValue("id")),
		Name:       strings.TrimSpace(r.FormValue("name")),
		Department: strings.TrimSpace(r.FormValue("department")),
		Email:      strings.TrimSpace(r.FormValue("email")),
	}
	if err := validate.Struct(form); err != nil {
		respondError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "no images provided")
		return
	}
	if len(files) > constants.MaxEnrollmentImages {
		respondError(w, http.StatusBadRequest, "too many images")
		return
	}
	images := make([][]byte, 0, len(files))
	for _, fh := range files {
		data, err := readFile(fh)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		images = append(images, data)
	}

	result, err := h.service.Enroll(r.Context(), attendance.EnrollRequest{
		ID:         form.ID,
		Name:       form.Name,
		Department: form.Department,
		Email:      form.Email,
		Images:     images,
	})
	if err != nil {
		switch {
		case errors.Is(err, attendance.ErrInvalidStaff):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, attendance.ErrNoUsableImages):
			respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":  err.Error(),
				"images": imageReports(result),
			})
		default:
			log.Printf("staff: enroll %s failed: %v", sanitizeForLog(form.ID), err)
			respondError(w, http.StatusInternalServerError, "failed to enroll staff member")
		}
		return
	}

	log.Printf("staff: %s enrolled %s from %d images", sanitizeForLog(middleware.Actor(r.Context())),
		result.Identity.ID, len(images))
	if result.Duplicate != nil {
		log.Printf("staff: %s enrolled close to existing %s (distance %.3f)",
			result.Identity.ID, result.Duplicate.StaffID, result.Duplicate.Distance)
	}
	respondJSON(w, http.StatusCreated, EnrollResponse{
		Staff:     toStaffResponse(result.Identity),
		Images:    result.Images,
		Duplicate: result.Duplicate,
	})
}

func imageReports(result *attendance.EnrollResult) []attendance.ImageReport {
	if result == nil {
		return []attendance.ImageReport{}
	}
	return result.Images
}

// Delete removes a staff member; attendance history is kept
func (h *StaffHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "staff member not found")
			return
		}
		log.Printf("staff: delete %s failed: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to delete staff member")
		return
	}
	log.Printf("staff: %s deleted %s", sanitizeForLog(middleware.Actor(r.Context())), sanitizeForLog(id))
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// Reload rebuilds the in-memory gallery from the database
func (h *StaffHandler) Reload(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.Reload(r.Context())
	if err != nil {
		log.Printf("staff: reload failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to reload gallery")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"gallery_size": count})
}

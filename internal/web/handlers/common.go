package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kozaktomas/staff-attendance/internal/constants"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

var validate = validator.New(validator.WithRequiredStructEnabled())

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// decodeAndValidate decodes a JSON body into dst and runs its validate tags.
// On failure it writes the error response and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, constants.MaxJSONBodySize)).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		respondError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

// validationMessage renders validator errors as "field: rule" pairs.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: must satisfy %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", field, fe.Tag()))
		}
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// readFile reads one uploaded file, refusing anything above constants.MaxUploadSize.
func readFile(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > constants.MaxUploadSize {
		return nil, fmt.Errorf("file %s exceeds %d bytes", fh.Filename, constants.MaxUploadSize)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %s", fh.Filename)
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, constants.MaxUploadSize))
}

// readImage returns the probe image of a request: the multipart field "image",
// or the raw body for image/* content types.
func readImage(r *http.Request) ([]byte, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "image/") {
		data, err := io.ReadAll(io.LimitReader(r.Body, constants.MaxUploadSize+1))
		if err != nil {
			return nil, errors.New("failed to read image")
		}
		if len(data) > constants.MaxUploadSize {
			return nil, fmt.Errorf("image exceeds %d bytes", constants.MaxUploadSize)
		}
		if len(data) == 0 {
			return nil, errors.New("image is required")
		}
		return data, nil
	}

	if err := r.ParseMultipartForm(constants.MaxMultipartMemory); err != nil {
		return nil, errors.New("failed to parse multipart form")
	}
	files := r.MultipartForm.File["image"]
	if len(files) == 0 {
		return nil, errors.New("image is required")
	}
	return readFile(files[0])
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

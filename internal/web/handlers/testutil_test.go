package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/staff-attendance/internal/attendance"
	"github.com/kozaktomas/staff-attendance/internal/config"
	"github.com/kozaktomas/staff-attendance/internal/database"
	"github.com/kozaktomas/staff-attendance/internal/database/mock"
	"github.com/kozaktomas/staff-attendance/internal/encoder"
	"github.com/kozaktomas/staff-attendance/internal/facematch"
)

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Encoder: config.EncoderConfig{URL: "http://localhost:8000"},
		Web: config.WebConfig{
			AdminUsername: "admin",
			AdminPassword: "s3cret",
		},
	}
}

// fakeEncoder returns one centered face per image, choosing the embedding by image width.
// Widths without an entry yield no face.
type fakeEncoder struct {
	faces map[int][]float32
	err   error
}

func (e *fakeEncoder) EncodeFaces(_ context.Context, data []byte) (*encoder.FaceResponse, error) {
	if e.err != nil {
		return nil, e.err
	}
	width, height, err := encoder.DecodeDimensions(data)
	if err != nil {
		return nil, err
	}
	embedding, ok := e.faces[width]
	if !ok {
		return &encoder.FaceResponse{Model: "test"}, nil
	}
	w, h := float64(width), float64(height)
	return &encoder.FaceResponse{
		FacesCount: 1,
		Faces: []encoder.FaceDetection{{
			Dim:       len(embedding),
			Embedding: embedding,
			BBox:      []float64{w * 0.2, h * 0.2, w * 0.8, h * 0.8},
			DetScore:  0.98,
		}},
		Model: "test",
	}, nil
}

// testEnv bundles a service over mock stores for handler tests
type testEnv struct {
	service    *attendance.Service
	encoder    *fakeEncoder
	identities *mock.MockIdentityStore
	attendance *mock.MockAttendanceStore
	holidays   *mock.MockHolidayStore
	settings   *mock.MockSettingsStore
	now        time.Time
}

// at returns a time on Monday 2026-10-12 in UTC.
func at(hour, minute int) time.Time {
	return time.Date(2026, 10, 12, hour, minute, 0, 0, time.UTC)
}

func newTestEnv(t *testing.T, faces map[int][]float32, staff ...database.StoredIdentity) *testEnv {
	t.Helper()
	env := &testEnv{
		encoder:    &fakeEncoder{faces: faces},
		identities: mock.NewMockIdentityStore(),
		attendance: mock.NewMockAttendanceStore(),
		holidays:   mock.NewMockHolidayStore(),
		settings:   mock.NewMockSettingsStore(),
		now:        at(9, 5),
	}
	for _, s := range staff {
		env.identities.AddIdentity(s)
	}
	env.attendance.Enrolled = len(staff)
	env.service = attendance.NewService(attendance.Options{
		Matcher:          facematch.NewMatcher(nil, 0.6),
		Encoder:          env.encoder,
		Identities:       env.identities,
		Attendance:       env.attendance,
		Index:            database.NewIdentityIndex(),
		Holidays:         env.holidays,
		Settings:         env.settings,
		Window:           attendance.DefaultWindow(),
		DuplicateWarning: true,
		Now:              func() time.Time { return env.now },
	})
	if _, err := env.service.Reload(context.Background()); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	return env
}

func embedding(v float32) []float32 {
	e := make([]float32, facematch.DefaultDim)
	e[0] = v
	return e
}

var ravi = database.StoredIdentity{
	ID:          "T002",
	Name:        "Ravi Kumar",
	Department:  "Science",
	Email:       "ravi@school.test",
	Encoding:    embedding(0.1),
	SampleCount: 3,
	Model:       "test",
}

// testPNG returns a blank PNG of the given width and a fixed height of 200px
func testPNG(t *testing.T, width int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, width, 200))); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

// multipartBody builds a multipart form with text fields and files under one field name
func multipartBody(t *testing.T, fields map[string]string, fileField string, files ...[]byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("failed to write field %s: %v", key, err)
		}
	}
	for i, data := range files {
		part, err := writer.CreateFormFile(fileField, "face"+string(rune('a'+i))+".png")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		part.Write(data)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

// imageRequest creates a request carrying img in the multipart field "image"
func imageRequest(t *testing.T, method, path string, img []byte) *http.Request {
	t.Helper()
	body, contentType := multipartBody(t, nil, "image", img)
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", contentType)
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%v'", expectedMessage, result["error"])
	}
}

package web

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/staff-attendance/internal/attendance"
	"github.com/kozaktomas/staff-attendance/internal/config"
	"github.com/kozaktomas/staff-attendance/internal/database"
	"github.com/kozaktomas/staff-attendance/internal/database/mock"
	"github.com/kozaktomas/staff-attendance/internal/encoder"
	"github.com/kozaktomas/staff-attendance/internal/facematch"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	identities := mock.NewMockIdentityStore()
	records := mock.NewMockAttendanceStore()
	service := attendance.NewService(attendance.Options{
		Matcher:    facematch.NewMatcher(nil, 0.6),
		Encoder:    encoder.NewDemoEncoder(),
		Identities: identities,
		Attendance: records,
		Window:     attendance.DefaultWindow(),
		Now:        func() time.Time { return time.Date(2026, 10, 12, 9, 30, 0, 0, time.UTC) },
	})
	cfg := &config.Config{
		Web: config.WebConfig{AdminUsername: "admin", AdminPassword: "s3cret", SessionSecret: "test"},
	}
	s := NewServer(Options{
		Config:     cfg,
		Service:    service,
		Identities: identities,
		Attendance: records,
		Host:       "127.0.0.1",
		Port:       0,
	})
	t.Cleanup(func() { s.sessionManager.Stop() })
	return s
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, req)
	return recorder
}

func TestServer_PublicRoutes(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{"GET", "/api/v1/health", http.StatusOK},
		{"GET", "/api/v1/auth/status", http.StatusOK},
		{"GET", "/api/v1/attendance/window", http.StatusOK},
		{"GET", "/", http.StatusOK},
		{"GET", "/kiosk", http.StatusOK},
		{"GET", "/assets/kiosk.js", http.StatusOK},
		{"GET", "/assets/missing.js", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			recorder := serve(s, httptest.NewRequest(tt.method, tt.path, nil))
			if recorder.Code != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, recorder.Code, recorder.Body.String())
			}
		})
	}
}

func TestServer_ProtectedRoutesRequireAuth(t *testing.T) {
	s := newTestServer(t)

	for _, route := range []struct{ method, path string }{
		{"GET", "/api/v1/staff"},
		{"POST", "/api/v1/staff"},
		{"GET", "/api/v1/staff/T001"},
		{"DELETE", "/api/v1/staff/T001"},
		{"POST", "/api/v1/staff/reload"},
		{"GET", "/api/v1/attendance"},
		{"GET", "/api/v1/attendance/dates"},
		{"GET", "/api/v1/attendance/stats"},
		{"GET", "/api/v1/attendance/export"},
		{"GET", "/api/v1/settings/threshold"},
		{"PUT", "/api/v1/settings/window"},
		{"GET", "/api/v1/settings/holidays"},
		{"POST", "/api/v1/settings/holidays"},
		{"DELETE", "/api/v1/settings/holidays/2026-11-08"},
		{"GET", "/api/v1/config"},
	} {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			recorder := serve(s, httptest.NewRequest(route.method, route.path, nil))
			if recorder.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", recorder.Code)
			}
		})
	}
}

func TestServer_LoginThenList(t *testing.T) {
	s := newTestServer(t)

	login := serve(s, httptest.NewRequest("POST", "/api/v1/auth/login",
		strings.NewReader(`{"username":"admin","password":"s3cret"}`)))
	if login.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", login.Code, login.Body.String())
	}

	req := httptest.NewRequest("GET", "/api/v1/staff", nil)
	for _, c := range login.Result().Cookies() {
		req.AddCookie(c)
	}
	recorder := serve(s, req)
	if recorder.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", recorder.Code)
	}
}

func TestServer_SecurityHeaders(t *testing.T) {
	s := newTestServer(t)
	recorder := serve(s, httptest.NewRequest("GET", "/api/v1/health", nil))

	if recorder.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected nosniff header")
	}
	if !strings.Contains(recorder.Header().Get("Content-Security-Policy"), "media-src") {
		t.Error("expected CSP allowing camera media")
	}
}

func TestServer_EnrollAndMark(t *testing.T) {
	s := newTestServer(t)
	sm := s.SessionManager()
	session, err := sm.CreateSession("admin")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	var img bytes.Buffer
	if err := png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 320, 320))); err != nil {
		t.Fatalf("png encode: %v", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	writer.WriteField("id", "T001")
	writer.WriteField("name", "Anita Sharma")
	part, _ := writer.CreateFormFile("images", "anita.png")
	part.Write(img.Bytes())
	writer.Close()

	req := httptest.NewRequest("POST", "/api/v1/staff", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+session.ID)
	enroll := serve(s, req)
	if enroll.Code != http.StatusCreated {
		t.Fatalf("enroll failed: %d %s", enroll.Code, enroll.Body.String())
	}

	req = httptest.NewRequest("POST", "/api/v1/attendance/mark", bytes.NewReader(img.Bytes()))
	req.Header.Set("Content-Type", "image/png")
	mark := serve(s, req)
	if mark.Code != http.StatusCreated {
		t.Fatalf("mark failed: %d %s", mark.Code, mark.Body.String())
	}

	records, err := s.attendance.ListByDate(context.Background(), "2026-10-12")
	if err != nil || len(records) != 1 || records[0].StaffID != "T001" {
		t.Errorf("expected one record for T001, got %v (%v)", records, err)
	}
	if records[0].Status != database.StatusLate {
		t.Errorf("expected late status at 09:30, got %s", records[0].Status)
	}
}

package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/staff-attendance/internal/constants"
	"github.com/kozaktomas/staff-attendance/internal/database"
	"github.com/kozaktomas/staff-attendance/internal/encoder"
	"github.com/kozaktomas/staff-attendance/internal/facematch"
)

var (
	// ErrWindowClosed is returned by Mark outside the attendance window.
	ErrWindowClosed = errors.New("attendance window is closed")
	// ErrNotRecognized is returned by Mark when the face matched no enrolled staff.
	ErrNotRecognized = errors.New("face not recognized")
	// ErrPoorQuality is returned by Mark when the image failed the quality gate.
	ErrPoorQuality = errors.New("image rejected by quality check")
	// ErrStaffNotFound is returned when a recognized ID no longer has a staff record.
	ErrStaffNotFound = errors.New("staff member not found")
	// ErrNoUsableImages is returned by Enroll when no image produced an encoding.
	ErrNoUsableImages = errors.New("no usable face images")
	// ErrInvalidStaff is returned by Enroll for missing ID or name.
	ErrInvalidStaff = errors.New("invalid staff details")
)

// Options configures a Service.
type Options struct {
	Matcher    *facematch.Matcher
	Encoder    encoder.Encoder
	Identities database.IdentityWriter
	Attendance database.AttendanceWriter
	Index      *database.IdentityIndex // optional, enables duplicate warnings on enroll
	Holidays   database.HolidayStore   // optional, closes the window on declared holidays
	Settings   database.SettingsStore  // optional, persists window and threshold changes
	Window     Window

	MaxImageSize     int  // longest side before encoding, 0 keeps the upload as is
	MaxSamples       int  // encodings averaged per enrollment, 0 means all
	DuplicateWarning bool // look up the nearest enrolled staff on enroll

	Now func() time.Time // defaults to time.Now
}

// Service marks staff attendance from face images.
type Service struct {
	matcher    *facematch.Matcher
	encoder    encoder.Encoder
	identities database.IdentityWriter
	attendance database.AttendanceWriter
	index      *database.IdentityIndex
	holidays   database.HolidayStore
	settings   database.SettingsStore

	maxImageSize     int
	maxSamples       int
	duplicateWarning bool
	now              func() time.Time

	mu     sync.RWMutex
	window Window
}

// Recognition is the outcome of recognizing one probe image.
type Recognition struct {
	Match        facematch.MatchResult    `json:"match"`
	Quality      facematch.QualityReport  `json:"quality"`
	Nearest      *facematch.Candidate     `json:"nearest,omitempty"`
	BBox         []float64                `json:"bbox,omitempty"` // pixels of the image sent to the encoder
	BBoxRelative []float64                `json:"bbox_relative,omitempty"`
	Encoding     facematch.Encoding       `json:"-"`
	Identity     *database.StoredIdentity `json:"-"`
}

// MarkResult is returned by Mark. Record is nil when nothing was logged.
type MarkResult struct {
	Recognition *Recognition               `json:"recognition"`
	Record      *database.AttendanceRecord `json:"-"`
	Window      WindowState                `json:"window"`
}

// EnrollRequest describes a staff member to enroll from one or more face images.
type EnrollRequest struct {
	ID         string
	Name       string
	Department string
	Email      string
	Images     [][]byte
}

// ImageReport is the per-image outcome of an enrollment.
type ImageReport struct {
	Index   int    `json:"index"`
	Used    bool   `json:"used"`
	Reason  string `json:"reason"`
	Warning string `json:"warning,omitempty"`
}

// DuplicateWarning flags an existing identity that the new encoding would match.
type DuplicateWarning struct {
	StaffID    string  `json:"staff_id"`
	Name       string  `json:"name"`
	Distance   float64 `json:"distance"`
	Confidence float64 `json:"confidence"`
}

// EnrollResult is returned by a successful Enroll.
type EnrollResult struct {
	Identity  *database.StoredIdentity `json:"-"`
	Images    []ImageReport            `json:"images"`
	Duplicate *DuplicateWarning        `json:"duplicate,omitempty"`
}

// NewService creates an attendance service.
func NewService(opts Options) *Service {
	if opts.Matcher == nil {
		opts.Matcher = facematch.NewMatcher(nil, facematch.DefaultConfidenceThreshold)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Window.Start == 0 && opts.Window.End == 0 {
		opts.Window = DefaultWindow()
	}
	return &Service{
		matcher:          opts.Matcher,
		encoder:          opts.Encoder,
		identities:       opts.Identities,
		attendance:       opts.Attendance,
		index:            opts.Index,
		holidays:         opts.Holidays,
		settings:         opts.Settings,
		window:           opts.Window,
		maxImageSize:     opts.MaxImageSize,
		maxSamples:       opts.MaxSamples,
		duplicateWarning: opts.DuplicateWarning,
		now:              opts.Now,
	}
}

// Matcher returns the matcher the service recognizes with.
func (s *Service) Matcher() *facematch.Matcher {
	return s.matcher
}

// Window returns the current attendance window.
func (s *Service) Window() Window {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.window
}

// WindowState reports the attendance window at the current time.
func (s *Service) WindowState(ctx context.Context) WindowState {
	return s.windowState(ctx, s.now())
}

// Today returns the current local attendance date.
func (s *Service) Today() string {
	return s.Window().Today(s.now())
}

// prepare downsizes an upload before it is sent to the encoder.
func (s *Service) prepare(image []byte) ([]byte, error) {
	if s.maxImageSize <= 0 {
		return image, nil
	}
	w, h, err := encoder.DecodeDimensions(image)
	if err != nil {
		return nil, err
	}
	if w <= s.maxImageSize && h <= s.maxImageSize {
		return image, nil
	}
	return encoder.ResizeImage(image, s.maxImageSize)
}

// encode runs one image through the encoder and the quality gate.
func (s *Service) encode(ctx context.Context, image []byte) (*encoder.Result, error) {
	if s.encoder == nil {
		return nil, errors.New("no face encoder configured")
	}
	prepared, err := s.prepare(image)
	if err != nil {
		return nil, err
	}
	return encoder.EncodeSingle(ctx, s.encoder, prepared)
}

// Recognize encodes the probe image and matches it against the gallery.
// Images rejected by the quality gate yield an unknown match and a nil error.
func (s *Service) Recognize(ctx context.Context, image []byte) (*Recognition, error) {
	encoded, err := s.encode(ctx, image)
	if err != nil {
		return nil, err
	}

	rec := &Recognition{
		Match:        facematch.MatchResult{IdentityID: facematch.UnknownIdentity},
		Quality:      encoded.Quality,
		BBox:         encoded.BBox,
		BBoxRelative: encoded.BBoxRelative,
	}
	if !encoded.Quality.OK {
		return rec, nil
	}
	rec.Encoding = encoded.Encoding

	rec.Match, err = s.matcher.Match(encoded.Encoding)
	if err != nil {
		return nil, fmt.Errorf("match: %w", err)
	}
	rec.Nearest, err = s.matcher.Nearest(encoded.Encoding)
	if err != nil {
		return nil, fmt.Errorf("nearest: %w", err)
	}

	if rec.Match.IsRecognized && s.identities != nil {
		rec.Identity, err = s.identities.Get(ctx, rec.Match.IdentityID)
		if err != nil {
			return nil, fmt.Errorf("load staff %s: %w", rec.Match.IdentityID, err)
		}
	}
	return rec, nil
}

// Mark recognizes the probe and logs attendance for the recognized staff member.
// A partial result is returned alongside ErrPoorQuality, ErrNotRecognized and
// database.ErrAlreadyMarked so callers can show what was seen.
func (s *Service) Mark(ctx context.Context, image []byte) (*MarkResult, error) {
	now := s.now()
	window := s.Window()
	result := &MarkResult{Window: s.windowState(ctx, now)}
	if !result.Window.Open {
		return result, fmt.Errorf("%w: %s", ErrWindowClosed, result.Window.Reason)
	}

	rec, err := s.Recognize(ctx, image)
	if err != nil {
		return result, err
	}
	result.Recognition = rec

	if !rec.Quality.OK {
		return result, fmt.Errorf("%w: %s", ErrPoorQuality, rec.Quality.Reason)
	}
	if !rec.Match.IsRecognized {
		return result, ErrNotRecognized
	}
	if rec.Identity == nil {
		return result, fmt.Errorf("%w: %s", ErrStaffNotFound, rec.Match.IdentityID)
	}

	record := database.NewAttendanceRecord(rec.Identity, now.In(window.Zone()), rec.Match.Confidence, window.Status(now))
	if err := s.attendance.Mark(ctx, record); err != nil {
		return result, err
	}
	result.Record = record
	return result, nil
}

// Enroll encodes every image, averages the accepted encodings and stores the staff member.
// Enrolling an existing ID replaces its encoding.
func (s *Service) Enroll(ctx context.Context, req EnrollRequest) (*EnrollResult, error) {
	id := facematch.NormalizeStaffID(req.ID)
	name := strings.TrimSpace(req.Name)
	if id == "" || name == "" {
		return nil, fmt.Errorf("%w: id and name are required", ErrInvalidStaff)
	}
	if len(req.Images) == 0 {
		return nil, fmt.Errorf("%w: no images provided", ErrNoUsableImages)
	}
	if len(req.Images) > constants.MaxEnrollmentImages {
		return nil, fmt.Errorf("%w: at most %d images per enrollment", ErrInvalidStaff, constants.MaxEnrollmentImages)
	}

	result := &EnrollResult{Images: make([]ImageReport, len(req.Images))}
	var encodings []facematch.Encoding
	model := ""
	for i, image := range req.Images {
		report := &result.Images[i]
		report.Index = i
		if s.maxSamples > 0 && len(encodings) >= s.maxSamples {
			report.Reason = "sample limit reached"
			continue
		}

		encoded, err := s.encode(ctx, image)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			report.Reason = err.Error()
			continue
		}
		report.Reason = encoded.Quality.Reason
		if !encoded.Quality.OK {
			continue
		}
		if len(encodings) > 0 && len(encoded.Encoding) != len(encodings[0]) {
			report.Reason = facematch.ErrEncodingMismatch.Error()
			continue
		}
		report.Used = true
		encodings = append(encodings, encoded.Encoding)
		if model == "" {
			model = encoded.Model
		}
	}

	if len(encodings) == 0 {
		return result, ErrNoUsableImages
	}
	averaged, err := facematch.AverageEncodings(encodings)
	if err != nil {
		return result, fmt.Errorf("average encodings: %w", err)
	}

	if s.duplicateWarning && s.index != nil {
		result.Duplicate = s.findDuplicate(averaged, id)
	}

	identity := &database.StoredIdentity{
		ID:          id,
		Name:        name,
		Department:  strings.TrimSpace(req.Department),
		Email:       strings.TrimSpace(req.Email),
		Encoding:    averaged,
		SampleCount: len(encodings),
		Model:       model,
	}
	if err := s.identities.Save(ctx, identity); err != nil {
		return result, fmt.Errorf("save staff %s: %w", id, err)
	}
	result.Identity = identity

	if _, err := s.Reload(ctx); err != nil {
		return result, fmt.Errorf("reload gallery: %w", err)
	}
	return result, nil
}

// findDuplicate returns the nearest other identity when it is close enough to be matched.
func (s *Service) findDuplicate(encoding facematch.Encoding, excludeID string) *DuplicateWarning {
	neighbor, err := s.index.Nearest(encoding, excludeID)
	if err != nil {
		log.Printf("enroll: duplicate check for %s failed: %v", excludeID, err)
		return nil
	}
	if neighbor == nil || neighbor.Distance > 1-s.matcher.ConfidenceThreshold() {
		return nil
	}
	return &DuplicateWarning{
		StaffID:    neighbor.Identity.ID,
		Name:       neighbor.Identity.Name,
		Distance:   neighbor.Distance,
		Confidence: 1 - neighbor.Distance,
	}
}

// Reload rebuilds the gallery and the identity index from the store and swaps them in.
// Returns the number of identities across the new galleries.
func (s *Service) Reload(ctx context.Context) (int, error) {
	identities, err := s.identities.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list staff: %w", err)
	}
	galleries, err := database.BuildGalleries(identities)
	if err != nil {
		return 0, err
	}
	registry := s.matcher.Registry()
	if err := registry.Swap(galleries...); err != nil {
		return 0, fmt.Errorf("swap galleries: %w", err)
	}
	for _, g := range galleries {
		log.Printf("gallery: %d staff with %d-component encodings", g.Len(), g.Dim())
	}
	if s.index != nil {
		s.index.Build(identities)
	}
	return registry.Len(), nil
}

// Delete removes a staff member and drops them from the gallery. Attendance history is kept.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = facematch.NormalizeStaffID(id)
	if err := s.identities.Delete(ctx, id); err != nil {
		return err
	}
	if s.index != nil {
		s.index.Delete(id)
	}
	if _, err := s.Reload(ctx); err != nil {
		return fmt.Errorf("reload gallery: %w", err)
	}
	return nil
}

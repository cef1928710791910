package database

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the format of attendance dates (local calendar day).
const DateLayout = "2006-01-02"

var (
	// ErrAlreadyMarked is returned when a staff member already has attendance for the day.
	ErrAlreadyMarked = errors.New("attendance already marked for today")

	// ErrNotFound is returned by writers when the target row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrHolidayExists is returned when a holiday is already declared for the date.
	ErrHolidayExists = errors.New("holiday already exists for this date")
)

// Holiday is a manually declared day without attendance.
type Holiday struct {
	Date      string    `json:"date"` // DateLayout
	Name      string    `json:"name"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// StoredIdentity is an enrolled staff member and their reference encoding.
type StoredIdentity struct {
	ID          string
	Name        string
	Department  string
	Email       string
	Encoding    []float32
	SampleCount int    // number of images averaged into Encoding
	Model       string // encoder model that produced Encoding
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AttendanceStatus classifies a mark relative to the attendance window.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusLate    AttendanceStatus = "late"
)

// AttendanceRecord is one staff member's attendance for one day.
type AttendanceRecord struct {
	ID         uuid.UUID
	StaffID    string
	StaffName  string
	Department string
	Date       string // DateLayout
	MarkedAt   time.Time
	Confidence float64
	Status     AttendanceStatus
}

// AttendanceStats summarizes one day.
type AttendanceStats struct {
	Date    string `json:"date"`
	Total   int    `json:"total"`
	Present int    `json:"present"`
	Late    int    `json:"late"`
	Absent  int    `json:"absent"`
}

// NewAttendanceRecord creates a record with a fresh ID for the calendar day of markedAt.
func NewAttendanceRecord(identity *StoredIdentity, markedAt time.Time, confidence float64, status AttendanceStatus) *AttendanceRecord {
	return &AttendanceRecord{
		ID:         uuid.New(),
		StaffID:    identity.ID,
		StaffName:  identity.Name,
		Department: identity.Department,
		Date:       markedAt.Format(DateLayout),
		MarkedAt:   markedAt,
		Confidence: confidence,
		Status:     status,
	}
}

// ComputeStats derives day statistics from the day's records and the enrolled staff count.
func ComputeStats(date string, enrolled int, records []AttendanceRecord) *AttendanceStats {
	stats := &AttendanceStats{Date: date, Total: enrolled}
	for _, r := range records {
		switch r.Status {
		case StatusLate:
			stats.Late++
		default:
			stats.Present++
		}
	}
	stats.Absent = max(0, enrolled-stats.Present-stats.Late)
	return stats
}

package database

import (
	"context"
)

// IdentityReader provides read-only access to enrolled staff
type IdentityReader interface {
	// Get retrieves a staff member by ID, returns nil if not found
	Get(ctx context.Context, id string) (*StoredIdentity, error)
	// List returns all staff ordered by ID
	List(ctx context.Context) ([]StoredIdentity, error)
	// Count returns the number of enrolled staff
	Count(ctx context.Context) (int, error)
	// SearchByName returns staff whose normalized name contains the normalized query
	SearchByName(ctx context.Context, query string) ([]StoredIdentity, error)
}

// IdentityWriter provides write access to enrolled staff
type IdentityWriter interface {
	IdentityReader

	// Save inserts or replaces a staff member (upsert by ID)
	Save(ctx context.Context, identity *StoredIdentity) error
	// Delete removes a staff member, returns ErrNotFound if absent.
	// Attendance history is kept.
	Delete(ctx context.Context, id string) error
}

// AttendanceReader provides read-only access to the attendance log
type AttendanceReader interface {
	// ListByDate returns the records of one day ordered by mark time
	ListByDate(ctx context.Context, date string) ([]AttendanceRecord, error)
	// ListByRange returns records with from <= date <= to ordered by date and mark time
	ListByRange(ctx context.Context, from, to string) ([]AttendanceRecord, error)
	// HasMarked checks whether a staff member has a record for the day
	HasMarked(ctx context.Context, staffID, date string) (bool, error)
	// Dates returns the distinct days with at least one record, newest first
	Dates(ctx context.Context) ([]string, error)
	// Stats summarizes one day
	Stats(ctx context.Context, date string) (*AttendanceStats, error)
}

// AttendanceWriter provides write access to the attendance log
type AttendanceWriter interface {
	AttendanceReader

	// Mark stores a record, returns ErrAlreadyMarked if the staff member has one for that day
	Mark(ctx context.Context, record *AttendanceRecord) error
}

// HolidayStore manages manually declared holidays
type HolidayStore interface {
	// Add stores a holiday, returns ErrHolidayExists if its date is taken
	Add(ctx context.Context, holiday *Holiday) error
	// Remove deletes the holiday on date, returns ErrNotFound if there is none
	Remove(ctx context.Context, date string) error
	// Get returns the holiday on date, nil if there is none
	Get(ctx context.Context, date string) (*Holiday, error)
	// ListRange returns holidays with from <= date <= to ordered by date
	ListRange(ctx context.Context, from, to string) ([]Holiday, error)
}

// SettingsStore persists runtime settings as JSON documents keyed by name
type SettingsStore interface {
	// Load decodes the setting into v, reports false if it was never saved
	Load(ctx context.Context, key string, v any) (bool, error)
	// Save replaces the setting with the JSON encoding of v
	Save(ctx context.Context, key string, v any) error
}

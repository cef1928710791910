package database

import (
	"context"
	"errors"
)

var (
	postgresIdentityReader   func() IdentityReader
	postgresIdentityWriter   func() IdentityWriter
	postgresAttendanceReader func() AttendanceReader
	postgresAttendanceWriter func() AttendanceWriter
	postgresInitialized      bool
)

var errNotInitialized = errors.New("PostgreSQL backend not initialized: DATABASE_URL is required")

// RegisterPostgresBackend registers PostgreSQL repository constructors.
// This is called from cmd to avoid import cycles between database and postgres.
func RegisterPostgresBackend(
	identityReader func() IdentityReader,
	identityWriter func() IdentityWriter,
	attendanceReader func() AttendanceReader,
	attendanceWriter func() AttendanceWriter,
) {
	postgresIdentityReader = identityReader
	postgresIdentityWriter = identityWriter
	postgresAttendanceReader = attendanceReader
	postgresAttendanceWriter = attendanceWriter
	postgresInitialized = true
}

// IsInitialized returns whether the PostgreSQL backend has been initialized.
func IsInitialized() bool {
	return postgresInitialized
}

// GetIdentityReader returns an IdentityReader from the PostgreSQL backend
func GetIdentityReader(ctx context.Context) (IdentityReader, error) {
	if !postgresInitialized {
		return nil, errNotInitialized
	}
	if postgresIdentityReader == nil {
		return nil, errors.New("PostgreSQL identity reader not registered")
	}
	return postgresIdentityReader(), nil
}

// GetIdentityWriter returns an IdentityWriter from the PostgreSQL backend
func GetIdentityWriter(ctx context.Context) (IdentityWriter, error) {
	if !postgresInitialized {
		return nil, errNotInitialized
	}
	if postgresIdentityWriter == nil {
		return nil, errors.New("PostgreSQL identity writer not registered")
	}
	return postgresIdentityWriter(), nil
}

// GetAttendanceReader returns an AttendanceReader from the PostgreSQL backend
func GetAttendanceReader(ctx context.Context) (AttendanceReader, error) {
	if !postgresInitialized {
		return nil, errNotInitialized
	}
	if postgresAttendanceReader == nil {
		return nil, errors.New("PostgreSQL attendance reader not registered")
	}
	return postgresAttendanceReader(), nil
}

// GetAttendanceWriter returns an AttendanceWriter from the PostgreSQL backend
func GetAttendanceWriter(ctx context.Context) (AttendanceWriter, error) {
	if !postgresInitialized {
		return nil, errNotInitialized
	}
	if postgresAttendanceWriter == nil {
		return nil, errors.New("PostgreSQL attendance writer not registered")
	}
	return postgresAttendanceWriter(), nil
}

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kozaktomas/staff-attendance/internal/attendance"
	"github.com/kozaktomas/staff-attendance/internal/config"
	"github.com/kozaktomas/staff-attendance/internal/database"
	"github.com/kozaktomas/staff-attendance/internal/database/postgres"
	"github.com/kozaktomas/staff-attendance/internal/encoder"
	"github.com/kozaktomas/staff-attendance/internal/facematch"
)

// stores holds the PostgreSQL repositories shared by the commands.
type stores struct {
	pool       *postgres.Pool
	staff      *postgres.StaffRepository
	attendance *postgres.AttendanceRepository
	holidays   *postgres.HolidayRepository
	settings   *postgres.SettingsRepository
}

// connectPostgres connects to PostgreSQL, applies migrations and registers the backend.
func connectPostgres(cfg *config.Config) (*stores, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}
	if err := postgres.Initialize(context.Background(), &cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	pool := postgres.GetGlobalPool()
	s := &stores{
		pool:       pool,
		staff:      postgres.NewStaffRepository(pool),
		attendance: postgres.NewAttendanceRepository(pool),
		holidays:   postgres.NewHolidayRepository(pool),
		settings:   postgres.NewSettingsRepository(pool),
	}
	database.RegisterPostgresBackend(
		func() database.IdentityReader { return s.staff },
		func() database.IdentityWriter { return s.staff },
		func() database.AttendanceReader { return s.attendance },
		func() database.AttendanceWriter { return s.attendance },
	)
	return s, nil
}

func (s *stores) Close() {
	if err := s.pool.Close(); err != nil {
		fmt.Printf("Warning: %v\n", err)
	}
}

// newEncoder returns the configured face encoder.
func newEncoder(cfg *config.Config) encoder.Encoder {
	if cfg.Encoder.Demo {
		return encoder.NewDemoEncoder()
	}
	return encoder.NewClient(cfg.Encoder.URL, cfg.Encoder.Timeout)
}

// newService builds the attendance service from configuration and loads the gallery.
func newService(ctx context.Context, cfg *config.Config, s *stores) (*attendance.Service, error) {
	window, err := attendance.ParseWindow(cfg.Policy.Attendance)
	if err != nil {
		return nil, fmt.Errorf("invalid attendance window: %w", err)
	}

	service := attendance.NewService(attendance.Options{
		Matcher:          facematch.NewMatcher(nil, cfg.Policy.Matching.ConfidenceThreshold),
		Encoder:          newEncoder(cfg),
		Identities:       s.staff,
		Attendance:       s.attendance,
		Index:            database.NewIdentityIndex(),
		Holidays:         s.holidays,
		Settings:         s.settings,
		Window:           window,
		MaxImageSize:     cfg.Encoder.MaxImageSize,
		MaxSamples:       cfg.Policy.Enrollment.MaxSamples,
		DuplicateWarning: cfg.Policy.Enrollment.DuplicateWarning,
	})
	if err := service.LoadSettings(ctx); err != nil {
		return nil, fmt.Errorf("failed to restore settings: %w", err)
	}
	if _, err := service.Reload(ctx); err != nil {
		return nil, fmt.Errorf("failed to load staff gallery: %w", err)
	}
	return service, nil
}

func outputJSON(data any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

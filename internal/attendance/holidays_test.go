package attendance

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/staff-attendance/internal/database"
)

func TestService_HolidayClosesWindow(t *testing.T) {
	ctx := context.Background()
	faces := map[int][]float32{200: enc(0.15)}
	env := newTestEnv(t, faces, anita)

	if _, err := env.service.AddHoliday(ctx, "2026-10-12", "Dussehra", "admin"); err != nil {
		t.Fatalf("AddHoliday failed: %v", err)
	}

	state := env.service.WindowState(ctx)
	if state.Open || state.Holiday != "Dussehra" || !strings.HasPrefix(state.Reason, ReasonHoliday) {
		t.Errorf("WindowState = %+v, want closed for Dussehra", state)
	}
	if state.RemainingSeconds != 0 || state.UntilStartSeconds != 0 {
		t.Errorf("holiday state should carry no countdown, got %+v", state)
	}

	result, err := env.service.Mark(ctx, testImage(t, 200))
	if !errors.Is(err, ErrWindowClosed) {
		t.Fatalf("Mark error = %v, want ErrWindowClosed", err)
	}
	if result.Window.Holiday != "Dussehra" {
		t.Errorf("Mark window = %+v", result.Window)
	}
	if env.encoder.calls.Load() != 0 {
		t.Error("holiday mark must not call the encoder")
	}

	// The next day is a working day again.
	env.now = env.now.AddDate(0, 0, 1)
	if state := env.service.WindowState(ctx); !state.Open {
		t.Errorf("expected open window on 2026-10-13, got %+v", state)
	}
}

func TestService_HolidayLookupFailureKeepsWindow(t *testing.T) {
	env := newTestEnv(t, nil)
	env.holidays.GetError = errors.New("connection reset")

	if state := env.service.WindowState(context.Background()); !state.Open {
		t.Errorf("failed holiday lookup should not close the window, got %+v", state)
	}
}

func TestService_AddHoliday(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		date    string
		holiday string
		wantErr error
	}{
		{"valid", "2026-11-08", "Diwali", nil},
		{"trims input", " 2026-11-09 ", "  Govardhan Puja ", nil},
		{"bad date", "08/11/2026", "Diwali", ErrInvalidHoliday},
		{"missing name", "2026-11-10", "   ", ErrInvalidHoliday},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			h, err := env.service.AddHoliday(ctx, tt.date, tt.holiday, "admin")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if h.Date != strings.TrimSpace(tt.date) || h.Name != strings.TrimSpace(tt.holiday) || h.CreatedBy != "admin" {
				t.Errorf("holiday = %+v", h)
			}
		})
	}

	env := newTestEnv(t, nil)
	if _, err := env.service.AddHoliday(ctx, "2026-11-08", "Diwali", "admin"); err != nil {
		t.Fatalf("AddHoliday failed: %v", err)
	}
	if _, err := env.service.AddHoliday(ctx, "2026-11-08", "Again", "admin"); !errors.Is(err, database.ErrHolidayExists) {
		t.Errorf("duplicate date error = %v, want ErrHolidayExists", err)
	}
}

func TestService_RemoveAndUpcomingHolidays(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	for date, name := range map[string]string{
		"2026-10-01": "Past",
		"2026-10-20": "Dussehra",
		"2026-11-08": "Diwali",
		"2027-01-26": "Republic Day",
	} {
		if _, err := env.service.AddHoliday(ctx, date, name, "admin"); err != nil {
			t.Fatalf("AddHoliday(%s) failed: %v", date, err)
		}
	}

	upcoming, err := env.service.UpcomingHolidays(ctx, 0)
	if err != nil {
		t.Fatalf("UpcomingHolidays failed: %v", err)
	}
	if len(upcoming) != 2 || upcoming[0].Date != "2026-10-20" || upcoming[1].Date != "2026-11-08" {
		t.Errorf("next 30 days = %+v, want Dussehra and Diwali", upcoming)
	}

	if err := env.service.RemoveHoliday(ctx, "2026-10-20"); err != nil {
		t.Fatalf("RemoveHoliday failed: %v", err)
	}
	if err := env.service.RemoveHoliday(ctx, "2026-10-20"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("second remove error = %v, want ErrNotFound", err)
	}
	if err := env.service.RemoveHoliday(ctx, "tomorrow"); !errors.Is(err, ErrInvalidHoliday) {
		t.Errorf("bad date error = %v, want ErrInvalidHoliday", err)
	}

	upcoming, _ = env.service.UpcomingHolidays(ctx, 120)
	if len(upcoming) != 2 || upcoming[0].Name != "Diwali" || upcoming[1].Name != "Republic Day" {
		t.Errorf("next 120 days = %+v, want Diwali and Republic Day", upcoming)
	}
}

func TestService_HolidaysWithoutStore(t *testing.T) {
	service := NewService(Options{Now: func() time.Time { return monday(9, 5, 0) }})
	if _, err := service.AddHoliday(context.Background(), "2026-11-08", "Diwali", "admin"); !errors.Is(err, ErrNoHolidayStore) {
		t.Errorf("error = %v, want ErrNoHolidayStore", err)
	}
	if state := service.WindowState(context.Background()); !state.Open {
		t.Errorf("window without a holiday store = %+v, want open", state)
	}
}

package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kozaktomas/staff-attendance/internal/database"
)

// DefaultHolidayHorizon is how far ahead UpcomingHolidays looks by default.
const DefaultHolidayHorizon = 30

var (
	// ErrInvalidHoliday is returned for holidays without a valid date or a name.
	ErrInvalidHoliday = errors.New("invalid holiday")
	// ErrNoHolidayStore is returned by holiday operations when no store is configured.
	ErrNoHolidayStore = errors.New("holiday store not configured")
)

// windowState checks the window at now and closes it on a declared holiday.
// A failed holiday lookup is logged and the day is treated as a working day.
func (s *Service) windowState(ctx context.Context, now time.Time) WindowState {
	state := s.Window().Check(now)
	if s.holidays == nil || state.Reason == ReasonWeekend {
		return state
	}
	holiday, err := s.holidays.Get(ctx, state.Date)
	if err != nil {
		log.Printf("attendance: holiday lookup for %s failed: %v", state.Date, err)
		return state
	}
	if holiday == nil {
		return state
	}
	return WindowState{
		Reason:  fmt.Sprintf("%s: %s", ReasonHoliday, holiday.Name),
		Date:    state.Date,
		Holiday: holiday.Name,
		Start:   state.Start,
		End:     state.End,
	}
}

// AddHoliday declares date a holiday. actor is recorded as its author.
func (s *Service) AddHoliday(ctx context.Context, date, name, actor string) (*database.Holiday, error) {
	if s.holidays == nil {
		return nil, ErrNoHolidayStore
	}
	date = strings.TrimSpace(date)
	if _, err := time.Parse(database.DateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: date %q, expected YYYY-MM-DD", ErrInvalidHoliday, date)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidHoliday)
	}

	holiday := &database.Holiday{Date: date, Name: name, CreatedBy: actor, CreatedAt: s.now()}
	if err := s.holidays.Add(ctx, holiday); err != nil {
		return nil, err
	}
	log.Printf("attendance: %s declared %s a holiday (%s)", actor, date, name)
	return holiday, nil
}

// RemoveHoliday deletes the holiday on date; database.ErrNotFound when there is none.
func (s *Service) RemoveHoliday(ctx context.Context, date string) error {
	if s.holidays == nil {
		return ErrNoHolidayStore
	}
	if _, err := time.Parse(database.DateLayout, date); err != nil {
		return fmt.Errorf("%w: date %q, expected YYYY-MM-DD", ErrInvalidHoliday, date)
	}
	return s.holidays.Remove(ctx, date)
}

// UpcomingHolidays lists holidays from today through the next days days.
func (s *Service) UpcomingHolidays(ctx context.Context, days int) ([]database.Holiday, error) {
	if s.holidays == nil {
		return nil, ErrNoHolidayStore
	}
	if days <= 0 {
		days = DefaultHolidayHorizon
	}
	today := s.now().In(s.Window().Zone())
	from := today.Format(database.DateLayout)
	to := today.AddDate(0, 0, days).Format(database.DateLayout)
	return s.holidays.ListRange(ctx, from, to)
}

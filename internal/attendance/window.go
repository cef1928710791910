// Package attendance runs the attendance session: the daily marking window,
// face recognition against the enrolled gallery, and the attendance log.
package attendance

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/staff-attendance/internal/config"
	"github.com/kozaktomas/staff-attendance/internal/database"
)

// Window state reasons
const (
	ReasonOpen    = "within attendance window"
	ReasonWeekend = "weekend"
	ReasonClosed  = "attendance window has closed"
	ReasonBefore  = "attendance starts in"
	ReasonHoliday = "holiday"
)

// ErrInvalidWindow is returned for windows whose start is not before their end.
var ErrInvalidWindow = errors.New("invalid attendance window")

// Window is the daily period in which staff can mark attendance.
// Start and End are offsets from local midnight; both bounds are inclusive.
type Window struct {
	Start          time.Duration
	End            time.Duration
	LateAfter      time.Duration // offset from Start after which a mark is late, 0 disables
	Location       *time.Location
	WeekendsClosed bool
}

// WindowState describes the window at one instant.
type WindowState struct {
	Open       bool          `json:"open"`
	Reason     string        `json:"reason"`
	Date       string        `json:"date"`
	Holiday    string        `json:"holiday,omitempty"`
	Start      string        `json:"start"`
	End        string        `json:"end"`
	UntilStart time.Duration `json:"-"`
	Remaining  time.Duration `json:"-"`

	UntilStartSeconds int64 `json:"until_start_seconds,omitempty"`
	RemainingSeconds  int64 `json:"remaining_seconds,omitempty"`
}

// DefaultWindow returns 09:00-09:30 UTC with late marks after 09:10.
func DefaultWindow() Window {
	return Window{
		Start:          9 * time.Hour,
		End:            9*time.Hour + 30*time.Minute,
		LateAfter:      10 * time.Minute,
		Location:       time.UTC,
		WeekendsClosed: true,
	}
}

// ParseWindow builds a window from the attendance policy.
func ParseWindow(p config.AttendancePolicy) (Window, error) {
	start, err := ParseClock(p.Start)
	if err != nil {
		return Window{}, fmt.Errorf("start: %w", err)
	}
	end, err := ParseClock(p.End)
	if err != nil {
		return Window{}, fmt.Errorf("end: %w", err)
	}
	w := Window{
		Start:          start,
		End:            end,
		LateAfter:      time.Duration(max(0, p.LateAfterMinutes)) * time.Minute,
		Location:       p.Location(),
		WeekendsClosed: p.WeekendsClosed,
	}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}

// ParseClock parses a HH:MM (or HH:MM:SS) wall clock time into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	limits := []int{23, 59, 59}
	units := []time.Duration{time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
		}
		d += time.Duration(n) * units[i]
	}
	return d, nil
}

// FormatClock formats an offset from midnight as HH:MM.
func FormatClock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}

// Validate checks that the window is non-empty and fits in one day.
func (w Window) Validate() error {
	if w.Start < 0 || w.End >= 24*time.Hour {
		return fmt.Errorf("%w: bounds must be within one day", ErrInvalidWindow)
	}
	if w.Start >= w.End {
		return fmt.Errorf("%w: start %s must be before end %s", ErrInvalidWindow, FormatClock(w.Start), FormatClock(w.End))
	}
	return nil
}

// Zone returns the window timezone, UTC when unset.
func (w Window) Zone() *time.Location {
	if w.Location == nil {
		return time.UTC
	}
	return w.Location
}

// sinceMidnight returns the local time-of-day offset of t.
func (w Window) sinceMidnight(t time.Time) time.Duration {
	local := t.In(w.Zone())
	h, m, s := local.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second +
		time.Duration(local.Nanosecond())
}

// Today returns the local calendar date of t in database.DateLayout.
func (w Window) Today(t time.Time) string {
	return t.In(w.Zone()).Format(database.DateLayout)
}

// Check reports whether attendance can be marked at now.
func (w Window) Check(now time.Time) WindowState {
	state := WindowState{
		Date:  w.Today(now),
		Start: FormatClock(w.Start),
		End:   FormatClock(w.End),
	}

	if w.WeekendsClosed {
		switch now.In(w.Zone()).Weekday() {
		case time.Saturday, time.Sunday:
			state.Reason = ReasonWeekend
			return state
		}
	}

	tod := w.sinceMidnight(now)
	switch {
	case tod < w.Start:
		state.UntilStart = w.Start - tod
		state.Reason = fmt.Sprintf("%s %s", ReasonBefore, state.UntilStart.Truncate(time.Second))
	case tod > w.End:
		state.Reason = ReasonClosed
	default:
		state.Open = true
		state.Reason = ReasonOpen
		state.Remaining = w.End - tod
	}
	state.UntilStartSeconds = int64(state.UntilStart / time.Second)
	state.RemainingSeconds = int64(state.Remaining / time.Second)
	return state
}

// Status classifies a mark made at t.
func (w Window) Status(t time.Time) database.AttendanceStatus {
	if w.LateAfter > 0 && w.sinceMidnight(t) > w.Start+w.LateAfter {
		return database.StatusLate
	}
	return database.StatusPresent
}

package attendance

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/kozaktomas/staff-attendance/internal/facematch"
)

// Keys of the settings persisted through database.SettingsStore.
const (
	SettingWindow    = "attendance_window"
	SettingThreshold = "confidence_threshold"
)

// windowSetting is the stored form of a window; the timezone always comes from config.
type windowSetting struct {
	Start            string `json:"start"`
	End              string `json:"end"`
	LateAfterMinutes int    `json:"late_after_minutes"`
	WeekendsClosed   bool   `json:"weekends_closed"`
}

func toWindowSetting(w Window) windowSetting {
	return windowSetting{
		Start:            FormatClock(w.Start),
		End:              FormatClock(w.End),
		LateAfterMinutes: int(w.LateAfter / time.Minute),
		WeekendsClosed:   w.WeekendsClosed,
	}
}

// apply overlays the stored setting onto base.
func (ws windowSetting) apply(base Window) (Window, error) {
	start, err := ParseClock(ws.Start)
	if err != nil {
		return Window{}, fmt.Errorf("start: %w", err)
	}
	end, err := ParseClock(ws.End)
	if err != nil {
		return Window{}, fmt.Errorf("end: %w", err)
	}
	base.Start = start
	base.End = end
	base.LateAfter = time.Duration(max(0, ws.LateAfterMinutes)) * time.Minute
	base.WeekendsClosed = ws.WeekendsClosed
	return base, base.Validate()
}

// SetWindow validates and saves the attendance window, then makes it current.
func (s *Service) SetWindow(ctx context.Context, w Window) error {
	if err := w.Validate(); err != nil {
		return err
	}
	if s.settings != nil {
		if err := s.settings.Save(ctx, SettingWindow, toWindowSetting(w)); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.window = w
	s.mu.Unlock()
	return nil
}

// SetConfidenceThreshold saves the threshold, then applies it clamped into [0, 1].
func (s *Service) SetConfidenceThreshold(ctx context.Context, v float64) error {
	v = facematch.ClampThreshold(v)
	if s.settings != nil {
		if err := s.settings.Save(ctx, SettingThreshold, v); err != nil {
			return err
		}
	}
	s.matcher.SetConfidenceThreshold(v)
	return nil
}

// LoadSettings restores the window and threshold saved by an earlier run.
// Settings never saved keep their configured values.
func (s *Service) LoadSettings(ctx context.Context) error {
	if s.settings == nil {
		return nil
	}

	var stored windowSetting
	ok, err := s.settings.Load(ctx, SettingWindow, &stored)
	if err != nil {
		return err
	}
	if ok {
		w, err := stored.apply(s.Window())
		if err != nil {
			return fmt.Errorf("stored attendance window: %w", err)
		}
		s.mu.Lock()
		s.window = w
		s.mu.Unlock()
		log.Printf("attendance: restored window %s-%s", stored.Start, stored.End)
	}

	var threshold float64
	ok, err = s.settings.Load(ctx, SettingThreshold, &threshold)
	if err != nil {
		return err
	}
	if ok {
		s.matcher.SetConfidenceThreshold(threshold)
		log.Printf("attendance: restored confidence threshold %.3f", s.matcher.ConfidenceThreshold())
	}
	return nil
}

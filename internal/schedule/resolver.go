// Package schedule resolves which weekly window, if any, is currently in
// session and validates new windows against overlaps.
package schedule

import (
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/geoattend-api/internal/models"
)

// Resolver evaluates schedule windows against wall-clock time. It holds no
// persistent state.
type Resolver struct {
	logger *zap.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{logger: logger}
}

// WeekdayIndex maps a timestamp to the 0=Monday..6=Sunday convention used by
// schedule windows.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// ActiveWindow returns the window whose tolerant interval contains now, or
// nil when no window is in session. The tolerant interval is
// [start-tolerance, end+tolerance], clamped at midnight on the low end; it
// does not wrap across midnight. The first matching window wins; more than
// one match on the same day is a misconfiguration and is logged.
func (r *Resolver) ActiveWindow(windows []models.ScheduleWindow, now time.Time, tolerance time.Duration) *models.ScheduleWindow {
	day := WeekdayIndex(now)
	current := models.MinuteOfDayFromTime(now)
	toleranceMinutes := int(tolerance.Minutes())

	var active *models.ScheduleWindow
	matches := 0
	for i := range windows {
		w := &windows[i]
		if !w.Active || w.DayOfWeek != day {
			continue
		}

		start := int(w.StartTime) - toleranceMinutes
		if start < 0 {
			start = 0
		}
		end := int(w.EndTime) + toleranceMinutes

		if int(current) >= start && int(current) <= end {
			matches++
			if active == nil {
				active = w
			}
		}
	}

	if matches > 1 {
		r.logger.Warn("multiple schedule windows active at once",
			zap.String("course_id", active.CourseID),
			zap.Int("day_of_week", day),
			zap.Int("matches", matches),
		)
	}

	return active
}

// HasConflict reports whether a window [start, end) on the given day overlaps
// any other active window. Intervals are half-open, so touching boundaries do
// not conflict. excludeID skips the window being updated.
func (r *Resolver) HasConflict(windows []models.ScheduleWindow, day int, start, end models.MinuteOfDay, excludeID string) bool {
	for i := range windows {
		w := &windows[i]
		if !w.Active || w.DayOfWeek != day {
			continue
		}
		if excludeID != "" && w.ID == excludeID {
			continue
		}
		if start < w.EndTime && end > w.StartTime {
			return true
		}
	}
	return false
}

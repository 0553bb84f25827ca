package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MinuteOfDay is a wall-clock time expressed as minutes since midnight.
type MinuteOfDay int

// ParseMinuteOfDay parses "HH:MM" or "HH:MM:SS" strings.
func ParseMinuteOfDay(raw string) (MinuteOfDay, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q", raw)
	}
	var hour, minute int
	if _, err := fmt.Sscanf(parts[0]+":"+parts[1], "%d:%d", &hour, &minute); err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", raw, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time %q out of range", raw)
	}
	return MinuteOfDay(hour*60 + minute), nil
}

// MinuteOfDayFromTime extracts the wall-clock minute from a timestamp.
func MinuteOfDayFromTime(t time.Time) MinuteOfDay {
	return MinuteOfDay(t.Hour()*60 + t.Minute())
}

// String renders the time as "HH:MM".
func (m MinuteOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

// MarshalJSON encodes the minute as an "HH:MM" string.
func (m MinuteOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts "HH:MM" and "HH:MM:SS" strings.
func (m *MinuteOfDay) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseMinuteOfDay(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ScheduleWindow is a recurring weekly class interval for a course.
// DayOfWeek uses 0=Monday through 6=Sunday.
type ScheduleWindow struct {
	ID          string      `db:"id" json:"id"`
	CourseID    string      `db:"course_id" json:"course_id"`
	DayOfWeek   int         `db:"day_of_week" json:"day_of_week"`
	StartTime   MinuteOfDay `db:"start_time" json:"start_time"`
	EndTime     MinuteOfDay `db:"end_time" json:"end_time"`
	ClassroomID *string     `db:"classroom_id" json:"classroom_id,omitempty"`
	Active      bool        `db:"is_active" json:"is_active"`
}

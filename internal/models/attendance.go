package models

import "time"

// AttendanceStatus represents the status of an attendance record.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusLate    AttendanceStatus = "late"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
	AttendanceStatusExcused AttendanceStatus = "excused"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusLate, AttendanceStatusAbsent, AttendanceStatusExcused:
		return true
	default:
		return false
	}
}

// AttendanceSource identifies how a record was produced.
type AttendanceSource string

const (
	SourceGPSAuto    AttendanceSource = "gps_auto"
	SourceManual     AttendanceSource = "manual"
	SourceImported   AttendanceSource = "imported"
	SourceCorrected  AttendanceSource = "corrected"
	SourceSystemAuto AttendanceSource = "system_auto"
)

// Valid returns true when the source is a supported value.
func (s AttendanceSource) Valid() bool {
	switch s {
	case SourceGPSAuto, SourceManual, SourceImported, SourceCorrected, SourceSystemAuto:
		return true
	default:
		return false
	}
}

// AttendanceRecord is the derived attendance outcome. At most one record may
// exist per (user, course, class_date); the table carries a unique index on
// that triple and inserts are conflict-safe.
type AttendanceRecord struct {
	ID         string  `db:"id" json:"id"`
	GPSEventID *string `db:"gps_event_id" json:"gps_event_id,omitempty"`
	UserID     string  `db:"user_id" json:"user_id"`
	UserCode   string  `db:"user_code" json:"user_code"`
	CourseID   string  `db:"course_id" json:"course_id"`
	CourseCode string  `db:"course_code" json:"course_code"`

	Status AttendanceStatus `db:"status" json:"status"`
	Source AttendanceSource `db:"source" json:"source"`

	ClassDate      time.Time  `db:"class_date" json:"class_date"`
	ScheduledStart *time.Time `db:"scheduled_start" json:"scheduled_start,omitempty"`
	ScheduledEnd   *time.Time `db:"scheduled_end" json:"scheduled_end,omitempty"`
	ActualArrival  *time.Time `db:"actual_arrival" json:"actual_arrival,omitempty"`

	ClassroomID      *string  `db:"classroom_id" json:"classroom_id,omitempty"`
	ClassroomName    *string  `db:"classroom_name" json:"classroom_name,omitempty"`
	RecordedDistance *float64 `db:"recorded_distance" json:"recorded_distance,omitempty"`

	IsLate      bool    `db:"is_late" json:"is_late"`
	MinutesLate *int    `db:"minutes_late" json:"minutes_late,omitempty"`
	Notes       *string `db:"notes" json:"notes,omitempty"`

	CreatedBy          string  `db:"created_by" json:"created_by"`
	ModifiedBy         *string `db:"modified_by" json:"modified_by,omitempty"`
	ModificationReason *string `db:"modification_reason" json:"modification_reason,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AttendanceFilter scopes record listing queries.
type AttendanceFilter struct {
	UserID    string
	CourseID  string
	Status    *AttendanceStatus
	Source    *AttendanceSource
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// AttendanceStats summarises attendance for a single user.
type AttendanceStats struct {
	TotalSessions    int     `json:"total_sessions"`
	AttendedSessions int     `json:"attended_sessions"`
	LateSessions     int     `json:"late_sessions"`
	AbsentSessions   int     `json:"absent_sessions"`
	AttendanceRate   float64 `json:"attendance_rate"`
	PunctualityRate  float64 `json:"punctuality_rate"`
}

// CourseAttendanceSummary aggregates record counts per course for reporting.
type CourseAttendanceSummary struct {
	CourseID       string `db:"course_id" json:"course_id"`
	CourseCode     string `db:"course_code" json:"course_code"`
	Total          int    `db:"total" json:"total"`
	Present        int    `db:"present" json:"present"`
	Late           int    `db:"late" json:"late"`
	Absent         int    `db:"absent" json:"absent"`
	UniqueStudents int    `db:"unique_students" json:"unique_students"`
}

// AbsentStudent identifies a student marked absent by the sweep.
type AbsentStudent struct {
	UserID   string `json:"user_id"`
	UserCode string `json:"user_code"`
}

// SweepResult summarises one absence sweep run.
type SweepResult struct {
	CourseID          string          `json:"course_id"`
	ScheduleID        string          `json:"schedule_id"`
	ClassDate         string          `json:"class_date"`
	TotalEnrolled     int             `json:"total_enrolled"`
	AlreadyRegistered int             `json:"already_registered"`
	MarkedAbsent      int             `json:"marked_absent"`
	AbsentStudents    []AbsentStudent `json:"absent_students"`
}

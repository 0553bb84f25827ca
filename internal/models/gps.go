package models

import "time"

// EventStatus represents the processing state of a GPS event.
type EventStatus string

const (
	EventStatusPending   EventStatus = "pending"
	EventStatusProcessed EventStatus = "processed"
	EventStatusRejected  EventStatus = "rejected"
	EventStatusError     EventStatus = "error"
)

// Valid returns true when the status is a supported value.
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusPending, EventStatusProcessed, EventStatusRejected, EventStatusError:
		return true
	default:
		return false
	}
}

// Terminal reports whether the event may no longer be mutated.
func (s EventStatus) Terminal() bool {
	return s == EventStatusProcessed || s == EventStatusRejected || s == EventStatusError
}

// GPSEvent is the durable record of an accepted GPS fix. It is created in
// pending state and moves to exactly one terminal status.
type GPSEvent struct {
	ID         string   `db:"id" json:"id"`
	UserID     string   `db:"user_id" json:"user_id"`
	UserCode   string   `db:"user_code" json:"user_code"`
	CourseID   string   `db:"course_id" json:"course_id"`
	CourseCode string   `db:"course_code" json:"course_code"`
	Latitude   float64  `db:"latitude" json:"latitude"`
	Longitude  float64  `db:"longitude" json:"longitude"`
	Accuracy   float64  `db:"accuracy" json:"accuracy"`
	Altitude   *float64 `db:"altitude" json:"altitude,omitempty"`

	Status             EventStatus `db:"status" json:"status"`
	ProcessingNotes    *string     `db:"processing_notes" json:"processing_notes,omitempty"`
	CalculatedDistance *float64    `db:"calculated_distance" json:"calculated_distance,omitempty"`
	NearestClassroomID *string     `db:"nearest_classroom_id" json:"nearest_classroom_id,omitempty"`
	WithinRange        *bool       `db:"within_range" json:"within_range,omitempty"`

	DeviceID   *string `db:"device_id" json:"device_id,omitempty"`
	DeviceType *string `db:"device_type" json:"device_type,omitempty"`
	AppVersion *string `db:"app_version" json:"app_version,omitempty"`

	EventTimestamp time.Time  `db:"event_timestamp" json:"event_timestamp"`
	ReceivedAt     time.Time  `db:"received_at" json:"received_at"`
	ProcessedAt    *time.Time `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// GPSEventFilter scopes event listing queries.
type GPSEventFilter struct {
	UserID   string
	CourseID string
	Status   *EventStatus
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// GPSProcessingResult is returned to the caller of the eligibility pipeline.
type GPSProcessingResult struct {
	Success            bool       `json:"success"`
	Message            string     `json:"message"`
	GPSEventID         string     `json:"gps_event_id"`
	DistanceMeters     float64    `json:"distance_meters"`
	WithinRange        bool       `json:"within_range"`
	AttendanceRecorded bool       `json:"attendance_recorded"`
	AttendanceRecordID *string    `json:"attendance_record_id,omitempty"`
	NearestClassroom   *Classroom `json:"nearest_classroom,omitempty"`
}

// Package directory defines the collaborator contracts the eligibility
// pipeline depends on, plus HTTP-backed implementations for the user, course
// and notification services.
package directory

import (
	"context"

	"github.com/noah-isme/geoattend-api/internal/models"
)

// UserDirectory resolves user identities.
type UserDirectory interface {
	FindUser(ctx context.Context, userID string) (*models.User, error)
}

// CourseDirectory exposes course enrollment, geofence and schedule lookups.
type CourseDirectory interface {
	IsEnrolled(ctx context.Context, userID, courseID string) (bool, error)
	Coordinates(ctx context.Context, courseID string) (*models.CourseCoordinates, error)
	Schedules(ctx context.Context, courseID string) ([]models.ScheduleWindow, error)
	Enrollments(ctx context.Context, courseID string) ([]models.Enrollment, error)
}

// Notification is an outbound notification request.
type Notification struct {
	UserID   string                 `json:"user_id"`
	CourseID string                 `json:"course_id"`
	Message  string                 `json:"message"`
	Type     string                 `json:"notification_type"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// NotificationSink delivers notifications best-effort.
type NotificationSink interface {
	Send(ctx context.Context, n Notification) error
}

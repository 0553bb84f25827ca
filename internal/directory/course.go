package directory

import (
	"context"
	"fmt"
	"net/http"

	"github.com/noah-isme/geoattend-api/internal/models"
	appErrors "github.com/noah-isme/geoattend-api/pkg/errors"
)

// CoordinateCache caches collaborator payloads. Implemented by
// service.CacheService; nil-safe.
type CoordinateCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
}

// HTTPCourseDirectory talks to the course service. Geofence coordinates and
// schedule windows are cached when a cache is attached, since the same
// course is looked up for every fix during a session.
type HTTPCourseDirectory struct {
	client        *Client
	baseURL       string
	coordCache    CoordinateCache
	scheduleCache CoordinateCache
}

// NewHTTPCourseDirectory constructs the course directory.
func NewHTTPCourseDirectory(client *Client, baseURL string, coordCache, scheduleCache CoordinateCache) *HTTPCourseDirectory {
	return &HTTPCourseDirectory{client: client, baseURL: baseURL, coordCache: coordCache, scheduleCache: scheduleCache}
}

// IsEnrolled reports whether the user holds an active enrollment in the
// course.
func (d *HTTPCourseDirectory) IsEnrolled(ctx context.Context, userID, courseID string) (bool, error) {
	url := fmt.Sprintf("%s/api/v1/enrollments/student/%s", d.baseURL, userID)
	var enrollments []models.Enrollment
	if err := d.client.do(ctx, http.MethodGet, url, nil, &enrollments); err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	for _, e := range enrollments {
		if e.CourseID == courseID && e.Status == "active" {
			return true, nil
		}
	}
	return false, nil
}

// Coordinates returns the course's geofence configuration.
func (d *HTTPCourseDirectory) Coordinates(ctx context.Context, courseID string) (*models.CourseCoordinates, error) {
	key := "course:coordinates:" + courseID
	if d.coordCache != nil {
		var cached models.CourseCoordinates
		if hit, err := d.coordCache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	url := fmt.Sprintf("%s/api/v1/courses/%s/coordinates", d.baseURL, courseID)
	var coords models.CourseCoordinates
	if err := d.client.do(ctx, http.MethodGet, url, nil, &coords); err != nil {
		if IsNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course coordinates not found")
		}
		return nil, err
	}

	if d.coordCache != nil {
		_ = d.coordCache.Set(ctx, key, &coords)
	}
	return &coords, nil
}

// Schedules returns the course's weekly windows for the resolver.
func (d *HTTPCourseDirectory) Schedules(ctx context.Context, courseID string) ([]models.ScheduleWindow, error) {
	key := "course:schedules:" + courseID
	if d.scheduleCache != nil {
		var cached []models.ScheduleWindow
		if hit, err := d.scheduleCache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	url := fmt.Sprintf("%s/api/v1/schedules/course/%s", d.baseURL, courseID)
	var windows []models.ScheduleWindow
	if err := d.client.do(ctx, http.MethodGet, url, nil, &windows); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	if d.scheduleCache != nil {
		_ = d.scheduleCache.Set(ctx, key, windows)
	}
	return windows, nil
}

// Enrollments lists active enrollments for the absence sweep.
func (d *HTTPCourseDirectory) Enrollments(ctx context.Context, courseID string) ([]models.Enrollment, error) {
	url := fmt.Sprintf("%s/api/v1/enrollments/course/%s", d.baseURL, courseID)
	var enrollments []models.Enrollment
	if err := d.client.do(ctx, http.MethodGet, url, nil, &enrollments); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return enrollments, nil
}

package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/geoattend-api/internal/models"
)

// GPSEventRepository handles persistence for the GPS event ledger.
type GPSEventRepository struct {
	db *sqlx.DB
}

// NewGPSEventRepository constructs the repository.
func NewGPSEventRepository(db *sqlx.DB) *GPSEventRepository {
	return &GPSEventRepository{db: db}
}

// Create inserts a new event in pending state. This is the pipeline's
// durability checkpoint; from here on the event is never discarded.
func (r *GPSEventRepository) Create(ctx context.Context, event *models.GPSEvent) error {
	now := time.Now().UTC()
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	event.Status = models.EventStatusPending
	event.ReceivedAt = now
	event.CreatedAt = now

	query := `INSERT INTO gps_events (id, user_id, user_code, course_id, course_code, latitude, longitude, accuracy, altitude,
        device_id, device_type, app_version, status, event_timestamp, received_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	if _, err := r.db.ExecContext(ctx, query,
		event.ID, event.UserID, event.UserCode, event.CourseID, event.CourseCode,
		event.Latitude, event.Longitude, event.Accuracy, event.Altitude,
		event.DeviceID, event.DeviceType, event.AppVersion,
		event.Status, event.EventTimestamp, event.ReceivedAt, event.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert gps event: %w", err)
	}
	return nil
}

// MarkProcessed moves a pending event to its processed terminal state with
// computed geofence results. Already-terminal rows are left untouched.
func (r *GPSEventRepository) MarkProcessed(ctx context.Context, id string, nearestClassroomID string, distance float64, withinRange bool) error {
	query := `UPDATE gps_events
SET status = $2, nearest_classroom_id = $3, calculated_distance = $4, within_range = $5, processed_at = $6
WHERE id = $1 AND status = $7`
	res, err := r.db.ExecContext(ctx, query, id, models.EventStatusProcessed, nearestClassroomID, distance, withinRange, time.Now().UTC(), models.EventStatusPending)
	if err != nil {
		return fmt.Errorf("mark gps event processed: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("gps event %s not pending", id)
	}
	return nil
}

// MarkError moves a pending event to the error terminal state with a note.
func (r *GPSEventRepository) MarkError(ctx context.Context, id, note string) error {
	query := `UPDATE gps_events
SET status = $2, processing_notes = $3, processed_at = $4
WHERE id = $1 AND status = $5`
	if _, err := r.db.ExecContext(ctx, query, id, models.EventStatusError, note, time.Now().UTC(), models.EventStatusPending); err != nil {
		return fmt.Errorf("mark gps event error: %w", err)
	}
	return nil
}

// FindByID loads one event.
func (r *GPSEventRepository) FindByID(ctx context.Context, id string) (*models.GPSEvent, error) {
	var event models.GPSEvent
	query := `SELECT * FROM gps_events WHERE id = $1`
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		return nil, err
	}
	return &event, nil
}

// List returns events matching the filter, most recent first.
func (r *GPSEventRepository) List(ctx context.Context, filter models.GPSEventFilter) ([]models.GPSEvent, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.UserID != "" {
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.CourseID != "" {
		where = append(where, fmt.Sprintf("course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Status != nil && filter.Status.Valid() {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.From != nil {
		where = append(where, fmt.Sprintf("event_timestamp >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		where = append(where, fmt.Sprintf("event_timestamp <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT * FROM gps_events WHERE %s ORDER BY event_timestamp DESC LIMIT %d OFFSET %d`, whereClause, size, offset)
	var rows []models.GPSEvent
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list gps events: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM gps_events WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count gps events: %w", err)
	}
	return rows, total, nil
}

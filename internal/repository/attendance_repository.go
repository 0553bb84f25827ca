package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/geoattend-api/internal/models"
)

// AttendanceRepository handles persistence for attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Create inserts a record. The attendance_records table carries a unique
// index on (user_id, course_id, class_date); the insert is conflict-safe and
// returns false when another record already holds the slot, so concurrent
// submissions cannot double-insert.
func (r *AttendanceRepository) Create(ctx context.Context, record *models.AttendanceRecord) (bool, error) {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.CreatedAt = now
	record.UpdatedAt = now

	query := `INSERT INTO attendance_records (id, gps_event_id, user_id, user_code, course_id, course_code,
        status, source, class_date, scheduled_start, scheduled_end, actual_arrival,
        classroom_id, classroom_name, recorded_distance, is_late, minutes_late, notes,
        created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
ON CONFLICT (user_id, course_id, class_date) DO NOTHING
RETURNING id`
	var id string
	err := r.db.GetContext(ctx, &id, query,
		record.ID, record.GPSEventID, record.UserID, record.UserCode, record.CourseID, record.CourseCode,
		record.Status, record.Source, record.ClassDate, record.ScheduledStart, record.ScheduledEnd, record.ActualArrival,
		record.ClassroomID, record.ClassroomName, record.RecordedDistance, record.IsLate, record.MinutesLate, record.Notes,
		record.CreatedBy, record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("insert attendance record: %w", err)
	}
	record.ID = id
	return true, nil
}

// FindRecent returns the newest record for the user and course created after
// the cutoff. Used as the fast dedup pre-check before insert.
func (r *AttendanceRepository) FindRecent(ctx context.Context, userID, courseID string, since time.Time) (*models.AttendanceRecord, error) {
	var record models.AttendanceRecord
	query := `SELECT * FROM attendance_records
WHERE user_id = $1 AND course_id = $2 AND created_at > $3
ORDER BY created_at DESC
LIMIT 1`
	err := r.db.GetContext(ctx, &record, query, userID, courseID, since)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find recent attendance: %w", err)
	}
	return &record, nil
}

// ExistsForDate reports whether the user already has a record for the class
// date.
func (r *AttendanceRepository) ExistsForDate(ctx context.Context, userID, courseID string, classDate time.Time) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM attendance_records WHERE user_id = $1 AND course_id = $2 AND class_date = $3)`
	if err := r.db.GetContext(ctx, &exists, query, userID, courseID, classDate); err != nil {
		return false, fmt.Errorf("check attendance exists: %w", err)
	}
	return exists, nil
}

// ListForCourseDate returns all records for a course on a class date.
func (r *AttendanceRepository) ListForCourseDate(ctx context.Context, courseID string, classDate time.Time) ([]models.AttendanceRecord, error) {
	var rows []models.AttendanceRecord
	query := `SELECT * FROM attendance_records WHERE course_id = $1 AND class_date = $2`
	if err := r.db.SelectContext(ctx, &rows, query, courseID, classDate); err != nil {
		return nil, fmt.Errorf("list attendance for course date: %w", err)
	}
	return rows, nil
}

// List returns records matching the filter with pagination.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
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
	if filter.Source != nil && filter.Source.Valid() {
		where = append(where, fmt.Sprintf("source = $%d", len(args)+1))
		args = append(args, *filter.Source)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("class_date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("class_date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")

	sortBy := filter.SortBy
	allowedSort := map[string]string{
		"class_date": "class_date",
		"status":     "status",
		"created_at": "created_at",
	}
	sortColumn, ok := allowedSort[sortBy]
	if !ok {
		sortColumn = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT * FROM attendance_records WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		whereClause, sortColumn, order, size, offset)
	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance records: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM attendance_records WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance records: %w", err)
	}
	return rows, total, nil
}

// StatsByUser aggregates per-status counts for a user, optionally scoped to
// one course and a date range.
func (r *AttendanceRepository) StatsByUser(ctx context.Context, userID, courseID string, from, to *time.Time) (map[models.AttendanceStatus]int, error) {
	where := []string{"user_id = $1"}
	args := []interface{}{userID}
	if courseID != "" {
		where = append(where, fmt.Sprintf("course_id = $%d", len(args)+1))
		args = append(args, courseID)
	}
	if from != nil {
		where = append(where, fmt.Sprintf("class_date >= $%d", len(args)+1))
		args = append(args, *from)
	}
	if to != nil {
		where = append(where, fmt.Sprintf("class_date <= $%d", len(args)+1))
		args = append(args, *to)
	}

	query := fmt.Sprintf(`SELECT status, COUNT(*) AS total FROM attendance_records WHERE %s GROUP BY status`, strings.Join(where, " AND "))
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("attendance stats: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.AttendanceStatus]int)
	for rows.Next() {
		var status models.AttendanceStatus
		var total int
		if err := rows.Scan(&status, &total); err != nil {
			return nil, fmt.Errorf("scan attendance stats: %w", err)
		}
		counts[status] = total
	}
	return counts, rows.Err()
}

// SummaryByCourse aggregates per-course counts for reporting.
func (r *AttendanceRepository) SummaryByCourse(ctx context.Context, courseID string, from, to *time.Time) ([]models.CourseAttendanceSummary, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if courseID != "" {
		where = append(where, fmt.Sprintf("course_id = $%d", len(args)+1))
		args = append(args, courseID)
	}
	if from != nil {
		where = append(where, fmt.Sprintf("class_date >= $%d", len(args)+1))
		args = append(args, *from)
	}
	if to != nil {
		where = append(where, fmt.Sprintf("class_date <= $%d", len(args)+1))
		args = append(args, *to)
	}

	query := fmt.Sprintf(`SELECT course_id, course_code,
        COUNT(*) AS total,
        COUNT(*) FILTER (WHERE status = 'present') AS present,
        COUNT(*) FILTER (WHERE status = 'late') AS late,
        COUNT(*) FILTER (WHERE status = 'absent') AS absent,
        COUNT(DISTINCT user_id) AS unique_students
FROM attendance_records
WHERE %s
GROUP BY course_id, course_code
ORDER BY course_code`, strings.Join(where, " AND "))

	var rows []models.CourseAttendanceSummary
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("attendance summary: %w", err)
	}
	return rows, nil
}

package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/geoattend-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestGPSEventRepositoryCreateStartsPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGPSEventRepository(db)

	mock.ExpectExec("INSERT INTO gps_events").
		WillReturnResult(sqlmock.NewResult(1, 1))

	event := &models.GPSEvent{
		UserID:         "user-1",
		UserCode:       "U001",
		CourseID:       "course-1",
		Latitude:       -12.0464,
		Longitude:      -77.0428,
		Accuracy:       5,
		EventTimestamp: time.Now().UTC(),
	}
	require.NoError(t, repo.Create(context.Background(), event))
	require.NotEmpty(t, event.ID)
	require.Equal(t, models.EventStatusPending, event.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGPSEventRepositoryMarkProcessed(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGPSEventRepository(db)

	mock.ExpectExec("UPDATE gps_events").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkProcessed(context.Background(), "evt-1", "room-1", 1.5, true)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGPSEventRepositoryMarkProcessedRequiresPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGPSEventRepository(db)

	mock.ExpectExec("UPDATE gps_events").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkProcessed(context.Background(), "evt-done", "room-1", 1.5, true)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGPSEventRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGPSEventRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "user_id", "user_code", "course_id", "course_code", "latitude", "longitude", "accuracy", "status", "event_timestamp", "received_at", "created_at"}).
		AddRow("evt-1", "user-1", "U001", "course-1", "MATH101", -12.0464, -77.0428, 5.0, models.EventStatusProcessed, now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM gps_events WHERE")).WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	events, total, err := repo.List(context.Background(), models.GPSEventFilter{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

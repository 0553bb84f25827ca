package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/geoattend-api/internal/models"
)

func TestAttendanceRepositoryCreateReturnsTrueOnInsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery("INSERT INTO attendance_records").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("rec-1"))

	record := &models.AttendanceRecord{
		UserID:    "user-1",
		CourseID:  "course-1",
		Status:    models.AttendanceStatusPresent,
		Source:    models.SourceGPSAuto,
		ClassDate: time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		CreatedBy: "system",
	}
	created, err := repo.Create(context.Background(), record)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "rec-1", record.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryCreateDetectsConflict(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	// ON CONFLICT DO NOTHING yields zero rows when the slot is taken.
	mock.ExpectQuery("INSERT INTO attendance_records").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	record := &models.AttendanceRecord{
		UserID:    "user-1",
		CourseID:  "course-1",
		Status:    models.AttendanceStatusPresent,
		Source:    models.SourceGPSAuto,
		ClassDate: time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		CreatedBy: "system",
	}
	created, err := repo.Create(context.Background(), record)
	require.NoError(t, err)
	require.False(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryFindRecentMiss(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery("SELECT \\* FROM attendance_records").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	record, err := repo.FindRecent(context.Background(), "user-1", "course-1", time.Now().Add(-5*time.Minute))
	require.NoError(t, err)
	require.Nil(t, record)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryExistsForDate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsForDate(context.Background(), "user-1", "course-1", time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryStatsByUser(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"status", "total"}).
		AddRow(models.AttendanceStatusPresent, 8).
		AddRow(models.AttendanceStatusLate, 1).
		AddRow(models.AttendanceStatusAbsent, 1)
	mock.ExpectQuery("SELECT status, COUNT").WillReturnRows(rows)

	counts, err := repo.StatsByUser(context.Background(), "user-1", "", nil, nil)
	require.NoError(t, err)
	require.Equal(t, 8, counts[models.AttendanceStatusPresent])
	require.Equal(t, 1, counts[models.AttendanceStatusLate])
	require.NoError(t, mock.ExpectationsWereMet())
}

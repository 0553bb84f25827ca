package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/geoattend-api/internal/models"
	appErrors "github.com/noah-isme/geoattend-api/pkg/errors"
)

type summaryStub struct {
	rows []models.CourseAttendanceSummary
}

func (s summaryStub) Summary(_ context.Context, _ string, _, _ *time.Time) ([]models.CourseAttendanceSummary, error) {
	return s.rows, nil
}

func TestReportServiceRendersCSV(t *testing.T) {
	svc := NewReportService(summaryStub{rows: []models.CourseAttendanceSummary{
		{CourseID: "course-1", CourseCode: "CS101", Total: 10, Present: 7, Late: 1, Absent: 2, UniqueStudents: 10},
	}}, nil, nil, zap.NewNop())

	report, err := svc.AttendanceSummary(context.Background(), "course-1", "csv", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "text/csv", report.ContentType)
	assert.True(t, strings.HasSuffix(report.Filename, ".csv"))
	body := string(report.Content)
	assert.Contains(t, body, "CS101")
	assert.Contains(t, body, "80.0")
}

func TestReportServiceRendersPDF(t *testing.T) {
	svc := NewReportService(summaryStub{rows: []models.CourseAttendanceSummary{
		{CourseCode: "CS101", Total: 4, Present: 4, UniqueStudents: 4},
	}}, nil, nil, zap.NewNop())

	report, err := svc.AttendanceSummary(context.Background(), "", "pdf", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", report.ContentType)
	assert.True(t, strings.HasPrefix(string(report.Content), "%PDF"))
}

func TestReportServiceRejectsUnknownFormat(t *testing.T) {
	svc := NewReportService(summaryStub{}, nil, nil, zap.NewNop())

	_, err := svc.AttendanceSummary(context.Background(), "", "xlsx", nil, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/geoattend-api/internal/directory"
	"github.com/noah-isme/geoattend-api/internal/models"
	"github.com/noah-isme/geoattend-api/internal/schedule"
	"github.com/noah-isme/geoattend-api/pkg/config"
	appErrors "github.com/noah-isme/geoattend-api/pkg/errors"
)

const (
	testUserID   = "user-1"
	testCourseID = "course-1"
	roomLat      = 40.0
	roomLon      = -74.0
)

// 2026-08-31 is a Monday.
var monday0810 = time.Date(2026, 8, 31, 8, 10, 0, 0, time.UTC)

type fakeEventRepo struct {
	created   []*models.GPSEvent
	processed map[string]bool
	errored   map[string]string
	markErr   error
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{processed: map[string]bool{}, errored: map[string]string{}}
}

func (r *fakeEventRepo) Create(_ context.Context, event *models.GPSEvent) error {
	event.ID = fmt.Sprintf("evt-%d", len(r.created)+1)
	event.Status = models.EventStatusPending
	r.created = append(r.created, event)
	return nil
}

func (r *fakeEventRepo) MarkProcessed(_ context.Context, id, nearestID string, distance float64, withinRange bool) error {
	if r.markErr != nil {
		return r.markErr
	}
	r.processed[id] = withinRange
	return nil
}

func (r *fakeEventRepo) MarkError(_ context.Context, id, note string) error {
	r.errored[id] = note
	return nil
}

func (r *fakeEventRepo) List(_ context.Context, _ models.GPSEventFilter) ([]models.GPSEvent, int, error) {
	out := make([]models.GPSEvent, 0, len(r.created))
	for _, e := range r.created {
		out = append(out, *e)
	}
	return out, len(out), nil
}

type fakeRecordRepo struct {
	records     []*models.AttendanceRecord
	recent      *models.AttendanceRecord
	conflict    bool
	staleList   bool
	existsCalls int
	stats       map[models.AttendanceStatus]int
}

func (r *fakeRecordRepo) Create(_ context.Context, record *models.AttendanceRecord) (bool, error) {
	if r.conflict {
		return false, nil
	}
	for _, existing := range r.records {
		if existing.UserID == record.UserID && existing.CourseID == record.CourseID && existing.ClassDate.Equal(record.ClassDate) {
			return false, nil
		}
	}
	record.ID = fmt.Sprintf("rec-%d", len(r.records)+1)
	r.records = append(r.records, record)
	return true, nil
}

func (r *fakeRecordRepo) FindRecent(_ context.Context, _, _ string, _ time.Time) (*models.AttendanceRecord, error) {
	return r.recent, nil
}

func (r *fakeRecordRepo) ExistsForDate(_ context.Context, userID, courseID string, classDate time.Time) (bool, error) {
	r.existsCalls++
	for _, rec := range r.records {
		if rec.UserID == userID && rec.CourseID == courseID && rec.ClassDate.Equal(classDate) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRecordRepo) ListForCourseDate(_ context.Context, courseID string, classDate time.Time) ([]models.AttendanceRecord, error) {
	if r.staleList {
		return nil, nil
	}
	var out []models.AttendanceRecord
	for _, rec := range r.records {
		if rec.CourseID == courseID && rec.ClassDate.Equal(classDate) {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (r *fakeRecordRepo) List(_ context.Context, _ models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	out := make([]models.AttendanceRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, *rec)
	}
	return out, len(out), nil
}

func (r *fakeRecordRepo) StatsByUser(_ context.Context, _, _ string, _, _ *time.Time) (map[models.AttendanceStatus]int, error) {
	return r.stats, nil
}

func (r *fakeRecordRepo) SummaryByCourse(_ context.Context, _ string, _, _ *time.Time) ([]models.CourseAttendanceSummary, error) {
	return nil, nil
}

type fakeUserDirectory struct {
	user *models.User
	err  error
}

func (d *fakeUserDirectory) FindUser(_ context.Context, _ string) (*models.User, error) {
	return d.user, d.err
}

type fakeCourseDirectory struct {
	enrolled    bool
	coords      *models.CourseCoordinates
	windows     []models.ScheduleWindow
	enrollments []models.Enrollment
}

func (d *fakeCourseDirectory) IsEnrolled(_ context.Context, _, _ string) (bool, error) {
	return d.enrolled, nil
}

func (d *fakeCourseDirectory) Coordinates(_ context.Context, _ string) (*models.CourseCoordinates, error) {
	return d.coords, nil
}

func (d *fakeCourseDirectory) Schedules(_ context.Context, _ string) ([]models.ScheduleWindow, error) {
	return d.windows, nil
}

func (d *fakeCourseDirectory) Enrollments(_ context.Context, _ string) ([]models.Enrollment, error) {
	return d.enrollments, nil
}

type fakeDispatcher struct {
	sent []directory.Notification
}

func (d *fakeDispatcher) Dispatch(n directory.Notification) {
	d.sent = append(d.sent, n)
}

type pipelineFixture struct {
	svc      *AttendanceService
	events   *fakeEventRepo
	records  *fakeRecordRepo
	courses  *fakeCourseDirectory
	notifier *fakeDispatcher
}

func newPipelineFixture(now time.Time) *pipelineFixture {
	events := newFakeEventRepo()
	records := &fakeRecordRepo{}
	courses := &fakeCourseDirectory{
		enrolled: true,
		coords: &models.CourseCoordinates{
			CourseID:        testCourseID,
			CourseCode:      "CS101",
			DetectionRadius: 2.0,
			Classrooms: []models.Classroom{
				{ID: "room-1", Latitude: roomLat, Longitude: roomLon, Building: "Main", Room: "101"},
			},
		},
		windows: []models.ScheduleWindow{
			{ID: "sched-1", CourseID: testCourseID, DayOfWeek: 0, StartTime: 480, EndTime: 540, Active: true},
		},
	}
	notifier := &fakeDispatcher{}

	svc := NewAttendanceService(
		events, records,
		&fakeUserDirectory{user: &models.User{ID: testUserID, Code: "S-1001", Role: "student", Active: true}},
		courses, notifier,
		schedule.NewResolver(zap.NewNop()),
		config.GPSConfig{AccuracyThresholdMeters: 10, MaxAccuracyMeters: 50, EarthRadiusKm: 6371, DefaultDetectionRadius: 2},
		config.AttendanceConfig{MinRecordInterval: 5 * time.Minute, LateGrace: 15 * time.Minute, ScheduleTolerance: 15 * time.Minute},
		nil, nil, zap.NewNop(),
	)
	svc.now = func() time.Time { return now }

	return &pipelineFixture{svc: svc, events: events, records: records, courses: courses, notifier: notifier}
}

func validRequest(at time.Time) ProcessGPSEventRequest {
	return ProcessGPSEventRequest{
		UserID:         testUserID,
		CourseID:       testCourseID,
		Latitude:       roomLat,
		Longitude:      roomLon,
		Accuracy:       5,
		EventTimestamp: at,
	}
}

func TestProcessGPSEventRejectsInvalidCoordinates(t *testing.T) {
	f := newPipelineFixture(monday0810)
	req := validRequest(monday0810)
	req.Latitude = 95

	_, err := f.svc.ProcessGPSEvent(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCoordinates.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.events.created)
}

func TestProcessGPSEventRejectsAccuracyAboveSchemaCeiling(t *testing.T) {
	f := newPipelineFixture(monday0810)
	req := validRequest(monday0810)
	req.Accuracy = 60

	_, err := f.svc.ProcessGPSEvent(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAccuracyTooLow.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.events.created)
}

func TestProcessGPSEventRejectsAccuracyAboveThreshold(t *testing.T) {
	f := newPipelineFixture(monday0810)
	req := validRequest(monday0810)
	req.Accuracy = 15

	_, err := f.svc.ProcessGPSEvent(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAccuracyTooLow.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.events.created)
}

func TestProcessGPSEventRejectsWhenNotEnrolled(t *testing.T) {
	f := newPipelineFixture(monday0810)
	f.courses.enrolled = false

	_, err := f.svc.ProcessGPSEvent(context.Background(), validRequest(monday0810))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotEnrolled.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.events.created)
}

func TestProcessGPSEventRejectsOutsideScheduleWindow(t *testing.T) {
	// 10:00 is 45 minutes past the window end plus tolerance.
	f := newPipelineFixture(time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC))

	_, err := f.svc.ProcessGPSEvent(context.Background(), validRequest(monday0810))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoActiveSchedule.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.events.created)
}

func TestProcessGPSEventRejectsWithoutClassrooms(t *testing.T) {
	f := newPipelineFixture(monday0810)
	f.courses.coords.Classrooms = nil

	_, err := f.svc.ProcessGPSEvent(context.Background(), validRequest(monday0810))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoClassroomsConfigured.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.events.created)
}

func TestProcessGPSEventWithinRangeRecordsPresent(t *testing.T) {
	f := newPipelineFixture(monday0810)

	result, err := f.svc.ProcessGPSEvent(context.Background(), validRequest(monday0810))
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.True(t, result.WithinRange)
	assert.True(t, result.AttendanceRecorded)
	require.NotNil(t, result.AttendanceRecordID)
	assert.InDelta(t, 0, result.DistanceMeters, 0.001)

	require.Len(t, f.events.created, 1)
	assert.True(t, f.events.processed[f.events.created[0].ID])

	require.Len(t, f.records.records, 1)
	record := f.records.records[0]
	assert.Equal(t, models.AttendanceStatusPresent, record.Status)
	assert.Equal(t, models.SourceGPSAuto, record.Source)
	assert.False(t, record.IsLate)
	assert.Equal(t, "CS101", record.CourseCode)
	assert.Equal(t, "S-1001", record.UserCode)
	require.NotNil(t, record.ScheduledStart)
	assert.Equal(t, 8, record.ScheduledStart.Hour())

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "attendance_recorded", f.notifier.sent[0].Type)
}

func TestProcessGPSEventMarksLateArrival(t *testing.T) {
	at := time.Date(2026, 8, 31, 8, 30, 0, 0, time.UTC)
	f := newPipelineFixture(at)

	result, err := f.svc.ProcessGPSEvent(context.Background(), validRequest(at))
	require.NoError(t, err)
	assert.True(t, result.AttendanceRecorded)

	require.Len(t, f.records.records, 1)
	record := f.records.records[0]
	assert.Equal(t, models.AttendanceStatusLate, record.Status)
	assert.True(t, record.IsLate)
	require.NotNil(t, record.MinutesLate)
	assert.Equal(t, 30, *record.MinutesLate)
}

func TestProcessGPSEventOutsideRadiusSkipsRecord(t *testing.T) {
	f := newPipelineFixture(monday0810)
	req := validRequest(monday0810)
	// ~3 meters north of the classroom, past the 2 meter radius.
	req.Latitude = roomLat + 0.000027

	result, err := f.svc.ProcessGPSEvent(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.False(t, result.WithinRange)
	assert.False(t, result.AttendanceRecorded)
	assert.Greater(t, result.DistanceMeters, 2.0)

	require.Len(t, f.events.created, 1)
	assert.Contains(t, f.events.processed, f.events.created[0].ID)
	assert.Empty(t, f.records.records)
	assert.Empty(t, f.notifier.sent)
}

func TestProcessGPSEventJustInsideRadiusRecords(t *testing.T) {
	f := newPipelineFixture(monday0810)
	req := validRequest(monday0810)
	// ~1.9 meters north of the classroom, inside the 2 meter radius.
	req.Latitude = roomLat + 0.000017

	result, err := f.svc.ProcessGPSEvent(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.WithinRange)
	assert.True(t, result.AttendanceRecorded)
}

func TestProcessGPSEventBlocksRecentDuplicate(t *testing.T) {
	f := newPipelineFixture(monday0810)
	f.records.recent = &models.AttendanceRecord{ID: "rec-existing"}

	_, err := f.svc.ProcessGPSEvent(context.Background(), validRequest(monday0810))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateAttendance.Code, appErrors.FromError(err).Code)

	// The event reached a terminal status even though the record was refused.
	require.Len(t, f.events.created, 1)
	assert.Contains(t, f.events.processed, f.events.created[0].ID)
	assert.Empty(t, f.records.records)
}

func TestProcessGPSEventLosesInsertRace(t *testing.T) {
	f := newPipelineFixture(monday0810)
	f.records.conflict = true

	_, err := f.svc.ProcessGPSEvent(context.Background(), validRequest(monday0810))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateAttendance.Code, appErrors.FromError(err).Code)
	require.Len(t, f.events.created, 1)
	assert.Contains(t, f.events.processed, f.events.created[0].ID)
}

func TestMarkAbsencesForSession(t *testing.T) {
	f := newPipelineFixture(monday0810)
	f.courses.enrollments = []models.Enrollment{
		{StudentID: "user-1", StudentCode: "S-1001", CourseID: testCourseID, Status: "active"},
		{StudentID: "user-2", StudentCode: "S-1002", CourseID: testCourseID, Status: "active"},
		{StudentID: "user-3", StudentCode: "S-1003", CourseID: testCourseID, Status: "active"},
	}
	classDate := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	f.records.records = append(f.records.records, &models.AttendanceRecord{
		ID: "rec-1", UserID: "user-1", CourseID: testCourseID,
		Status: models.AttendanceStatusPresent, ClassDate: classDate,
	})

	result, err := f.svc.MarkAbsencesForSession(context.Background(), testCourseID, "sched-1", monday0810)
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalEnrolled)
	assert.Equal(t, 1, result.AlreadyRegistered)
	assert.Equal(t, 2, result.MarkedAbsent)
	require.Len(t, result.AbsentStudents, 2)

	for _, rec := range f.records.records[1:] {
		assert.Equal(t, models.AttendanceStatusAbsent, rec.Status)
		assert.Equal(t, models.SourceSystemAuto, rec.Source)
		assert.Equal(t, "system_auto", rec.CreatedBy)
	}

	// Second run is a no-op.
	rerun, err := f.svc.MarkAbsencesForSession(context.Background(), testCourseID, "sched-1", monday0810)
	require.NoError(t, err)
	assert.Equal(t, 0, rerun.MarkedAbsent)
	assert.Equal(t, 3, rerun.AlreadyRegistered)
	assert.Len(t, f.records.records, 3)
}

func TestMarkAbsencesForSessionRechecksBeforeInsert(t *testing.T) {
	f := newPipelineFixture(monday0810)
	f.courses.enrollments = []models.Enrollment{
		{StudentID: "user-1", StudentCode: "S-1001", CourseID: testCourseID, Status: "active"},
		{StudentID: "user-2", StudentCode: "S-1002", CourseID: testCourseID, Status: "active"},
	}
	// user-1's record landed after the course-date snapshot: the listing
	// misses it but the per-student check must still see it.
	classDate := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	f.records.records = append(f.records.records, &models.AttendanceRecord{
		ID: "rec-1", UserID: "user-1", CourseID: testCourseID,
		Status: models.AttendanceStatusPresent, ClassDate: classDate,
	})
	f.records.staleList = true

	result, err := f.svc.MarkAbsencesForSession(context.Background(), testCourseID, "sched-1", monday0810)
	require.NoError(t, err)

	assert.Equal(t, 1, result.MarkedAbsent)
	assert.Equal(t, 1, result.AlreadyRegistered)
	require.Len(t, result.AbsentStudents, 1)
	assert.Equal(t, "user-2", result.AbsentStudents[0].UserID)
	assert.Equal(t, 2, f.records.existsCalls)
}

func TestMarkAbsencesForSessionNoEnrollments(t *testing.T) {
	f := newPipelineFixture(monday0810)

	result, err := f.svc.MarkAbsencesForSession(context.Background(), testCourseID, "sched-1", monday0810)
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalEnrolled)
	assert.Equal(t, 0, result.MarkedAbsent)
	assert.NotNil(t, result.AbsentStudents)
}

func TestProcessGPSEventCollaboratorOutageCountedSeparately(t *testing.T) {
	f := newPipelineFixture(monday0810)
	metrics := NewMetricsService()
	f.svc.metrics = metrics
	f.svc.users = &fakeUserDirectory{err: appErrors.ErrCollaboratorUnavailable}

	_, err := f.svc.ProcessGPSEvent(context.Background(), validRequest(monday0810))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCollaboratorUnavailable.Code, appErrors.FromError(err).Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.gpsEventsTotal.WithLabelValues("collaborator_error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.gpsEventsTotal.WithLabelValues("rejected")))
}

func TestUserStatsRates(t *testing.T) {
	f := newPipelineFixture(monday0810)
	f.records.stats = map[models.AttendanceStatus]int{
		models.AttendanceStatusPresent: 8,
		models.AttendanceStatusLate:    2,
		models.AttendanceStatusAbsent:  2,
	}

	stats, err := f.svc.UserStats(context.Background(), testUserID, testCourseID, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 12, stats.TotalSessions)
	assert.Equal(t, 10, stats.AttendedSessions)
	assert.Equal(t, 2, stats.LateSessions)
	assert.Equal(t, 2, stats.AbsentSessions)
	assert.InDelta(t, 83.33, stats.AttendanceRate, 0.01)
	assert.InDelta(t, 66.67, stats.PunctualityRate, 0.01)
}

func TestUserStatsRequiresUserID(t *testing.T) {
	f := newPipelineFixture(monday0810)

	_, err := f.svc.UserStats(context.Background(), "", "", nil, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

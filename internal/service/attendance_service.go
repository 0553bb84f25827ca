package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/geoattend-api/internal/directory"
	"github.com/noah-isme/geoattend-api/internal/geo"
	"github.com/noah-isme/geoattend-api/internal/models"
	"github.com/noah-isme/geoattend-api/internal/schedule"
	"github.com/noah-isme/geoattend-api/pkg/config"
	appErrors "github.com/noah-isme/geoattend-api/pkg/errors"
)

type gpsEventRepository interface {
	Create(ctx context.Context, event *models.GPSEvent) error
	MarkProcessed(ctx context.Context, id string, nearestClassroomID string, distance float64, withinRange bool) error
	MarkError(ctx context.Context, id, note string) error
	List(ctx context.Context, filter models.GPSEventFilter) ([]models.GPSEvent, int, error)
}

type attendanceRepository interface {
	Create(ctx context.Context, record *models.AttendanceRecord) (bool, error)
	FindRecent(ctx context.Context, userID, courseID string, since time.Time) (*models.AttendanceRecord, error)
	ExistsForDate(ctx context.Context, userID, courseID string, classDate time.Time) (bool, error)
	ListForCourseDate(ctx context.Context, courseID string, classDate time.Time) ([]models.AttendanceRecord, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error)
	StatsByUser(ctx context.Context, userID, courseID string, from, to *time.Time) (map[models.AttendanceStatus]int, error)
	SummaryByCourse(ctx context.Context, courseID string, from, to *time.Time) ([]models.CourseAttendanceSummary, error)
}

// NotificationDispatcher accepts outbound notifications for asynchronous
// delivery. Implementations never block the pipeline.
type NotificationDispatcher interface {
	Dispatch(n directory.Notification)
}

// ProcessGPSEventRequest is the fix payload submitted by the mobile client.
// The lte=50 bound is the absolute schema ceiling; the configured accuracy
// threshold is enforced separately and the stricter of the two wins.
type ProcessGPSEventRequest struct {
	UserID         string    `json:"user_id" validate:"required"`
	CourseID       string    `json:"course_id" validate:"required"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	Accuracy       float64   `json:"accuracy" validate:"gt=0,lte=50"`
	Altitude       *float64  `json:"altitude,omitempty"`
	EventTimestamp time.Time `json:"event_timestamp" validate:"required"`
	DeviceID       *string   `json:"device_id,omitempty" validate:"omitempty,max=255"`
	DeviceType     *string   `json:"device_type,omitempty" validate:"omitempty,oneof=android ios web"`
	AppVersion     *string   `json:"app_version,omitempty" validate:"omitempty,max=20"`
}

// AttendanceService runs the GPS eligibility pipeline and the absence sweep.
type AttendanceService struct {
	events    gpsEventRepository
	records   attendanceRepository
	users     directory.UserDirectory
	courses   directory.CourseDirectory
	notifier  NotificationDispatcher
	resolver  *schedule.Resolver
	gpsCfg    config.GPSConfig
	attCfg    config.AttendanceConfig
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAttendanceService constructs the pipeline service.
func NewAttendanceService(
	events gpsEventRepository,
	records attendanceRepository,
	users directory.UserDirectory,
	courses directory.CourseDirectory,
	notifier NotificationDispatcher,
	resolver *schedule.Resolver,
	gpsCfg config.GPSConfig,
	attCfg config.AttendanceConfig,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if resolver == nil {
		resolver = schedule.NewResolver(logger)
	}
	return &AttendanceService{
		events:    events,
		records:   records,
		users:     users,
		courses:   courses,
		notifier:  notifier,
		resolver:  resolver,
		gpsCfg:    gpsCfg,
		attCfg:    attCfg,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// ProcessGPSEvent runs the eligibility pipeline for one fix. Steps up to the
// pending insert are pure validation with no side effects; once the event row
// exists it always ends in a terminal status.
func (s *AttendanceService) ProcessGPSEvent(ctx context.Context, req ProcessGPSEventRequest) (*models.GPSProcessingResult, error) {
	if err := s.validator.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				if fe.Field() == "Accuracy" {
					s.metrics.RecordGPSEvent("rejected")
					return nil, appErrors.Clone(appErrors.ErrAccuracyTooLow, "GPS accuracy too low for reliable attendance")
				}
			}
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid GPS event payload")
	}

	if !geo.ValidCoordinates(req.Latitude, req.Longitude) {
		s.metrics.RecordGPSEvent("rejected")
		return nil, appErrors.ErrInvalidCoordinates
	}

	threshold := s.accuracyThreshold()
	if !geo.ValidAccuracy(req.Accuracy, threshold) {
		s.metrics.RecordGPSEvent("rejected")
		return nil, appErrors.Clone(appErrors.ErrAccuracyTooLow,
			fmt.Sprintf("GPS accuracy too low: %.1fm (threshold: %.1fm)", req.Accuracy, threshold))
	}

	user, err := s.users.FindUser(ctx, req.UserID)
	if err != nil {
		s.recordGateFailure(err)
		return nil, err
	}

	enrolled, err := s.courses.IsEnrolled(ctx, req.UserID, req.CourseID)
	if err != nil {
		s.recordGateFailure(err)
		return nil, err
	}
	if !enrolled {
		s.metrics.RecordGPSEvent("rejected")
		return nil, appErrors.ErrNotEnrolled
	}

	now := s.now()
	windows, err := s.courses.Schedules(ctx, req.CourseID)
	if err != nil {
		s.recordGateFailure(err)
		return nil, err
	}
	window := s.resolver.ActiveWindow(windows, now, s.attCfg.ScheduleTolerance)
	if window == nil {
		s.metrics.RecordGPSEvent("rejected")
		return nil, appErrors.ErrNoActiveSchedule
	}

	coords, err := s.courses.Coordinates(ctx, req.CourseID)
	if err != nil {
		s.recordGateFailure(err)
		return nil, err
	}
	if len(coords.Classrooms) == 0 {
		s.metrics.RecordGPSEvent("rejected")
		return nil, appErrors.ErrNoClassroomsConfigured
	}

	// Durability checkpoint: from here the event row exists and must reach a
	// terminal status.
	event := &models.GPSEvent{
		UserID:         req.UserID,
		UserCode:       user.Code,
		CourseID:       req.CourseID,
		CourseCode:     coords.CourseCode,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		Accuracy:       req.Accuracy,
		Altitude:       req.Altitude,
		DeviceID:       req.DeviceID,
		DeviceType:     req.DeviceType,
		AppVersion:     req.AppVersion,
		EventTimestamp: req.EventTimestamp,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist GPS event")
	}

	nearest, distance, err := geo.NearestClassroom(req.Latitude, req.Longitude, coords.Classrooms, s.gpsCfg.EarthRadiusKm)
	if err != nil {
		s.failEvent(ctx, event.ID, "nearest classroom computation failed")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute distance")
	}

	radius := coords.DetectionRadius
	if radius <= 0 {
		radius = s.gpsCfg.DefaultDetectionRadius
	}
	withinRange := distance <= radius

	if err := s.events.MarkProcessed(ctx, event.ID, nearest.ID, distance, withinRange); err != nil {
		s.failEvent(ctx, event.ID, "failed to finalize event")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to finalize GPS event")
	}
	s.metrics.RecordGPSEvent("processed")

	s.logger.Info("gps event processed",
		zap.String("event_id", event.ID),
		zap.String("user_code", user.Code),
		zap.String("course_id", req.CourseID),
		zap.Float64("distance_m", distance),
		zap.Bool("within_range", withinRange),
	)

	result := &models.GPSProcessingResult{
		Success:          true,
		Message:          "GPS event processed successfully",
		GPSEventID:       event.ID,
		DistanceMeters:   distance,
		WithinRange:      withinRange,
		NearestClassroom: &nearest,
	}
	if !withinRange {
		result.Message = "GPS event processed, outside detection radius"
		return result, nil
	}

	record, err := s.createAttendanceRecord(ctx, event, window, nearest, distance, now)
	if err != nil {
		// The event stays processed; only the record was refused.
		return nil, err
	}
	result.AttendanceRecorded = true
	result.AttendanceRecordID = &record.ID

	s.dispatchAttendanceNotification(event, record, nearest, distance)

	return result, nil
}

func (s *AttendanceService) accuracyThreshold() float64 {
	threshold := s.gpsCfg.AccuracyThresholdMeters
	ceiling := s.gpsCfg.MaxAccuracyMeters
	if ceiling > 0 && (threshold <= 0 || ceiling < threshold) {
		threshold = ceiling
	}
	return threshold
}

// recordGateFailure distinguishes definitive rejections from transient
// collaborator outages so the event outcome counters stay truthful.
func (s *AttendanceService) recordGateFailure(err error) {
	if appErrors.FromError(err).Code == appErrors.ErrCollaboratorUnavailable.Code {
		s.metrics.RecordGPSEvent("collaborator_error")
		return
	}
	s.metrics.RecordGPSEvent("rejected")
}

func (s *AttendanceService) failEvent(ctx context.Context, eventID, note string) {
	s.metrics.RecordGPSEvent("error")
	if err := s.events.MarkError(ctx, eventID, note); err != nil {
		s.logger.Error("failed to mark gps event as error", zap.String("event_id", eventID), zap.Error(err))
	}
}

func (s *AttendanceService) createAttendanceRecord(ctx context.Context, event *models.GPSEvent, window *models.ScheduleWindow, nearest models.Classroom, distance float64, now time.Time) (*models.AttendanceRecord, error) {
	cutoff := now.Add(-s.attCfg.MinRecordInterval)
	recent, err := s.records.FindRecent(ctx, event.UserID, event.CourseID, cutoff)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing attendance")
	}
	if recent != nil {
		s.metrics.RecordGPSEvent("duplicate")
		s.logger.Warn("duplicate attendance attempt blocked",
			zap.String("user_id", event.UserID),
			zap.String("course_id", event.CourseID),
		)
		return nil, appErrors.ErrDuplicateAttendance
	}

	classDate := dateOnly(now)
	scheduledStart := classDate.Add(time.Duration(window.StartTime) * time.Minute)
	scheduledEnd := classDate.Add(time.Duration(window.EndTime) * time.Minute)
	arrival := event.EventTimestamp.In(now.Location())

	status := models.AttendanceStatusPresent
	isLate := arrival.After(scheduledStart.Add(s.attCfg.LateGrace))
	var minutesLate *int
	if isLate {
		status = models.AttendanceStatusLate
		m := int(arrival.Sub(scheduledStart).Minutes())
		minutesLate = &m
	}

	label := nearest.Label()
	record := &models.AttendanceRecord{
		GPSEventID:       &event.ID,
		UserID:           event.UserID,
		UserCode:         event.UserCode,
		CourseID:         event.CourseID,
		CourseCode:       event.CourseCode,
		Status:           status,
		Source:           models.SourceGPSAuto,
		ClassDate:        classDate,
		ScheduledStart:   &scheduledStart,
		ScheduledEnd:     &scheduledEnd,
		ActualArrival:    &arrival,
		ClassroomID:      &nearest.ID,
		ClassroomName:    &label,
		RecordedDistance: &distance,
		IsLate:           isLate,
		MinutesLate:      minutesLate,
		CreatedBy:        "system",
	}

	created, err := s.records.Create(ctx, record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create attendance record")
	}
	if !created {
		// Lost the race against a concurrent fix; the unique index held the
		// once-per-day invariant.
		s.metrics.RecordGPSEvent("duplicate")
		return nil, appErrors.ErrDuplicateAttendance
	}
	s.metrics.RecordAttendance(string(status), string(models.SourceGPSAuto))

	return record, nil
}

func (s *AttendanceService) dispatchAttendanceNotification(event *models.GPSEvent, record *models.AttendanceRecord, nearest models.Classroom, distance float64) {
	if s.notifier == nil {
		return
	}
	s.notifier.Dispatch(directory.Notification{
		UserID:   event.UserID,
		CourseID: event.CourseID,
		Message:  fmt.Sprintf("Attendance recorded at %s", nearest.Label()),
		Type:     "attendance_recorded",
		Metadata: map[string]interface{}{
			"distance":  distance,
			"classroom": nearest.Room,
			"status":    string(record.Status),
			"timestamp": event.EventTimestamp.Format(time.RFC3339),
		},
	})
}

// MarkAbsencesForSession synthesizes absent records for enrolled students
// with no attendance on the class date. The operation is a set difference and
// is safely re-entrant: existing records and the unique index both prevent
// double inserts.
func (s *AttendanceService) MarkAbsencesForSession(ctx context.Context, courseID, scheduleID string, classDate time.Time) (*models.SweepResult, error) {
	if courseID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course_id is required")
	}
	day := dateOnly(classDate)

	enrollments, err := s.courses.Enrollments(ctx, courseID)
	if err != nil {
		return nil, err
	}

	result := &models.SweepResult{
		CourseID:       courseID,
		ScheduleID:     scheduleID,
		ClassDate:      day.Format("2006-01-02"),
		TotalEnrolled:  len(enrollments),
		AbsentStudents: []models.AbsentStudent{},
	}
	if len(enrollments) == 0 {
		s.logger.Warn("absence sweep found no enrollments", zap.String("course_id", courseID))
		return result, nil
	}

	existing, err := s.records.ListForCourseDate(ctx, courseID, day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance records")
	}
	recorded := make(map[string]struct{}, len(existing))
	for _, rec := range existing {
		recorded[rec.UserID] = struct{}{}
	}
	result.AlreadyRegistered = len(recorded)

	for _, enrollment := range enrollments {
		if _, ok := recorded[enrollment.StudentID]; ok {
			continue
		}
		// Re-check per student: a GPS record may have landed after the
		// course-date snapshot was taken.
		exists, err := s.records.ExistsForDate(ctx, enrollment.StudentID, courseID, day)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing attendance")
		}
		if exists {
			result.AlreadyRegistered++
			continue
		}
		record := &models.AttendanceRecord{
			UserID:    enrollment.StudentID,
			UserCode:  enrollment.StudentCode,
			CourseID:  courseID,
			Status:    models.AttendanceStatusAbsent,
			Source:    models.SourceSystemAuto,
			ClassDate: day,
			CreatedBy: "system_auto",
		}
		created, err := s.records.Create(ctx, record)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create absence record")
		}
		if !created {
			result.AlreadyRegistered++
			continue
		}
		result.MarkedAbsent++
		result.AbsentStudents = append(result.AbsentStudents, models.AbsentStudent{
			UserID:   enrollment.StudentID,
			UserCode: enrollment.StudentCode,
		})
		s.metrics.RecordAttendance(string(models.AttendanceStatusAbsent), string(models.SourceSystemAuto))
	}
	s.metrics.RecordSweepMarked(result.MarkedAbsent)

	s.logger.Info("absence sweep completed",
		zap.String("course_id", courseID),
		zap.String("class_date", result.ClassDate),
		zap.Int("total_enrolled", result.TotalEnrolled),
		zap.Int("marked_absent", result.MarkedAbsent),
	)

	return result, nil
}

// ListEvents returns GPS events with pagination metadata.
func (s *AttendanceService) ListEvents(ctx context.Context, filter models.GPSEventFilter) ([]models.GPSEvent, *models.Pagination, error) {
	events, total, err := s.events.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list GPS events")
	}
	return events, paginationFor(filter.Page, filter.PageSize, total), nil
}

// ListRecords returns attendance records with pagination metadata.
func (s *AttendanceService) ListRecords(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, *models.Pagination, error) {
	records, total, err := s.records.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance records")
	}
	return records, paginationFor(filter.Page, filter.PageSize, total), nil
}

// UserStats aggregates attendance and punctuality rates for one user.
func (s *AttendanceService) UserStats(ctx context.Context, userID, courseID string, from, to *time.Time) (*models.AttendanceStats, error) {
	if userID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user_id is required")
	}
	counts, err := s.records.StatsByUser(ctx, userID, courseID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance stats")
	}

	stats := &models.AttendanceStats{
		LateSessions:   counts[models.AttendanceStatusLate],
		AbsentSessions: counts[models.AttendanceStatusAbsent],
	}
	for _, total := range counts {
		stats.TotalSessions += total
	}
	stats.AttendedSessions = counts[models.AttendanceStatusPresent] + counts[models.AttendanceStatusLate]
	if stats.TotalSessions > 0 {
		stats.AttendanceRate = round2(float64(stats.AttendedSessions) / float64(stats.TotalSessions) * 100)
		stats.PunctualityRate = round2(float64(stats.AttendedSessions-stats.LateSessions) / float64(stats.TotalSessions) * 100)
	}
	return stats, nil
}

// Summary aggregates per-course attendance counts for reporting.
func (s *AttendanceService) Summary(ctx context.Context, courseID string, from, to *time.Time) ([]models.CourseAttendanceSummary, error) {
	rows, err := s.records.SummaryByCourse(ctx, courseID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build attendance summary")
	}
	return rows, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

func paginationFor(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}

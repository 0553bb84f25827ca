package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/geoattend-api/internal/models"
	appErrors "github.com/noah-isme/geoattend-api/pkg/errors"
	"github.com/noah-isme/geoattend-api/pkg/response"
)

type attendanceService interface {
	ListRecords(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, *models.Pagination, error)
	UserStats(ctx context.Context, userID, courseID string, from, to *time.Time) (*models.AttendanceStats, error)
	MarkAbsencesForSession(ctx context.Context, courseID, scheduleID string, classDate time.Time) (*models.SweepResult, error)
}

// AttendanceHandler exposes attendance record queries and the absence sweep.
type AttendanceHandler struct {
	service attendanceService
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(service attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

// ListRecords godoc
// @Summary List attendance records
// @Tags Attendance
// @Produce json
// @Param userId query string false "User ID"
// @Param courseId query string false "Course ID"
// @Param status query string false "Status (present/late/absent/excused)"
// @Param source query string false "Source (gps_auto/manual/imported/corrected/system_auto)"
// @Param dateFrom query string false "From date (YYYY-MM-DD)"
// @Param dateTo query string false "To date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sortBy query string false "Sort by field"
// @Param sortOrder query string false "Sort order (asc/desc)"
// @Success 200 {object} response.Envelope
// @Router /attendance/records [get]
func (h *AttendanceHandler) ListRecords(c *gin.Context) {
	filter := models.AttendanceFilter{
		UserID:    c.Query("userId"),
		CourseID:  c.Query("courseId"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
		Page:      parseQueryInt(c, "page", 1),
		PageSize:  parseQueryInt(c, "limit", 50),
	}
	if raw := c.Query("status"); raw != "" {
		status := models.AttendanceStatus(raw)
		if !status.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid attendance status"))
			return
		}
		filter.Status = &status
	}
	if raw := c.Query("source"); raw != "" {
		source := models.AttendanceSource(raw)
		if !source.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid attendance source"))
			return
		}
		filter.Source = &source
	}
	from, err := parseDateParam(c.Query("dateFrom"))
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := parseDateParam(c.Query("dateTo"))
	if err != nil {
		response.Error(c, err)
		return
	}
	filter.DateFrom = from
	filter.DateTo = to

	records, pagination, err := h.service.ListRecords(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// UserStats godoc
// @Summary Attendance statistics for one user
// @Tags Attendance
// @Produce json
// @Param id path string true "User ID"
// @Param courseId query string false "Course ID"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/stats/users/{id} [get]
func (h *AttendanceHandler) UserStats(c *gin.Context) {
	from, err := parseDateParam(c.Query("from"))
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := parseDateParam(c.Query("to"))
	if err != nil {
		response.Error(c, err)
		return
	}

	stats, err := h.service.UserStats(c.Request.Context(), c.Param("id"), c.Query("courseId"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// SweepRequest triggers the absence sweep for one course session.
type SweepRequest struct {
	CourseID   string `json:"course_id" binding:"required"`
	ScheduleID string `json:"schedule_id"`
	ClassDate  string `json:"class_date"`
}

// MarkAbsences godoc
// @Summary Mark absent students for a finished session
// @Tags Attendance
// @Accept json
// @Produce json
// @Param request body SweepRequest true "Sweep parameters"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance/sweep [post]
func (h *AttendanceHandler) MarkAbsences(c *gin.Context) {
	var req SweepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "course_id is required"))
		return
	}

	classDate := time.Now()
	if req.ClassDate != "" {
		parsed, err := time.Parse("2006-01-02", req.ClassDate)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid class_date, expected YYYY-MM-DD"))
			return
		}
		classDate = parsed
	}

	result, err := h.service.MarkAbsencesForSession(c.Request.Context(), req.CourseID, req.ScheduleID, classDate)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

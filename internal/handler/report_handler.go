package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/geoattend-api/internal/models"
	"github.com/noah-isme/geoattend-api/internal/service"
	"github.com/noah-isme/geoattend-api/pkg/response"
)

type summaryService interface {
	Summary(ctx context.Context, courseID string, from, to *time.Time) ([]models.CourseAttendanceSummary, error)
}

type reportRenderer interface {
	AttendanceSummary(ctx context.Context, courseID, format string, from, to *time.Time) (*service.RenderedReport, error)
}

// ReportHandler exposes reporting endpoints.
type ReportHandler struct {
	summaries summaryService
	reports   reportRenderer
}

// NewReportHandler constructs the handler.
func NewReportHandler(summaries summaryService, reports reportRenderer) *ReportHandler {
	return &ReportHandler{summaries: summaries, reports: reports}
}

// AttendanceSummary godoc
// @Summary Per-course attendance summary
// @Tags Reports
// @Produce json
// @Param courseId query string false "Course ID"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Param format query string false "Output format (json/csv/pdf)" default(json)
// @Success 200 {object} response.Envelope
// @Router /reports/attendance-summary [get]
func (h *ReportHandler) AttendanceSummary(c *gin.Context) {
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
	courseID := c.Query("courseId")

	format := c.DefaultQuery("format", "json")
	if format == "json" {
		rows, err := h.summaries.Summary(c.Request.Context(), courseID, from, to)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, rows, nil)
		return
	}

	report, err := h.reports.AttendanceSummary(c.Request.Context(), courseID, format, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Download(c, report.ContentType, report.Filename, report.Content)
}

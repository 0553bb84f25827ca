package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/geoattend-api/internal/models"
	"github.com/noah-isme/geoattend-api/internal/service"
	appErrors "github.com/noah-isme/geoattend-api/pkg/errors"
	"github.com/noah-isme/geoattend-api/pkg/response"
)

type gpsPipeline interface {
	ProcessGPSEvent(ctx context.Context, req service.ProcessGPSEventRequest) (*models.GPSProcessingResult, error)
	ListEvents(ctx context.Context, filter models.GPSEventFilter) ([]models.GPSEvent, *models.Pagination, error)
}

// GPSHandler exposes the GPS event ingestion endpoints.
type GPSHandler struct {
	pipeline gpsPipeline
}

// NewGPSHandler constructs the handler.
func NewGPSHandler(pipeline gpsPipeline) *GPSHandler {
	return &GPSHandler{pipeline: pipeline}
}

// ProcessEvent godoc
// @Summary Submit a GPS fix for attendance evaluation
// @Tags GPS
// @Accept json
// @Produce json
// @Param event body service.ProcessGPSEventRequest true "GPS event"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /gps/events [post]
func (h *GPSHandler) ProcessEvent(c *gin.Context) {
	var req service.ProcessGPSEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	result, err := h.pipeline.ProcessGPSEvent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ListEvents godoc
// @Summary List GPS events
// @Tags GPS
// @Produce json
// @Param userId query string false "User ID"
// @Param courseId query string false "Course ID"
// @Param status query string false "Event status (pending/processed/rejected/error)"
// @Param dateFrom query string false "From date (YYYY-MM-DD)"
// @Param dateTo query string false "To date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /gps/events [get]
func (h *GPSHandler) ListEvents(c *gin.Context) {
	filter := models.GPSEventFilter{
		UserID:   c.Query("userId"),
		CourseID: c.Query("courseId"),
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "limit", 50),
	}
	if raw := c.Query("status"); raw != "" {
		status := models.EventStatus(raw)
		if !status.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid event status"))
			return
		}
		filter.Status = &status
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
	filter.From = from
	filter.To = to

	events, pagination, err := h.pipeline.ListEvents(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, pagination)
}

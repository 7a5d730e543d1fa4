package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sala-school/timetable-api/internal/dto"
	"github.com/sala-school/timetable-api/internal/models"
	"github.com/sala-school/timetable-api/internal/service"
	appErrors "github.com/sala-school/timetable-api/pkg/errors"
	"github.com/sala-school/timetable-api/pkg/response"
)

type timetableGenerator interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error)
	Schedule(ctx context.Context) ([]models.ScheduleEntry, error)
	GroupSchedule(ctx context.Context, groupID string) ([]models.ScheduleEntry, error)
}

// TimetableHandler exposes the generation and schedule read endpoints.
type TimetableHandler struct {
	service timetableGenerator
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// Generate runs one synchronous generation pass and replaces the stored
// schedule. An empty body is accepted and uses the configured defaults.
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Schedule returns the whole persisted timetable.
func (h *TimetableHandler) Schedule(c *gin.Context) {
	entries, err := h.service.Schedule(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries)
}

// GroupSchedule returns one group's timetable.
func (h *TimetableHandler) GroupSchedule(c *gin.Context) {
	entries, err := h.service.GroupSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries)
}

package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tuition-center-api/internal/middleware"
	"github.com/noah-isme/tuition-center-api/internal/models"
	"github.com/noah-isme/tuition-center-api/internal/service"
	"github.com/noah-isme/tuition-center-api/internal/timetable"
	"github.com/noah-isme/tuition-center-api/pkg/response"
)

type scheduleService interface {
	ListForSubject(ctx context.Context, code string) (*timetable.Partition, error)
	ListForStudent(ctx context.Context, studentID string) ([]models.Timeslot, error)
	Replace(ctx context.Context, code string, req service.ReplaceTimeslotsRequest, actorID string, meta models.RequestMeta) ([]models.Timeslot, error)
	DeleteSlot(ctx context.Context, code, timeslotID string) error
}

// TimeslotHandler exposes the weekly slots of subjects and students.
type TimeslotHandler struct {
	service scheduleService
}

// NewTimeslotHandler constructs a TimeslotHandler.
func NewTimeslotHandler(svc scheduleService) *TimeslotHandler {
	return &TimeslotHandler{service: svc}
}

// ListForSubject godoc
// @Summary List a subject's timeslots split into normal and oneToOne
// @Tags Timeslots
// @Produce json
// @Param code path string true "Subject code"
// @Success 200 {object} response.Envelope
// @Router /subjects/{code}/timeslots [get]
func (h *TimeslotHandler) ListForSubject(c *gin.Context) {
	partition, err := h.service.ListForSubject(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, partition, nil)
}

// Replace godoc
// @Summary Replace every timeslot of one mode for a subject
// @Tags Timeslots
// @Accept json
// @Produce json
// @Param code path string true "Subject code"
// @Param payload body service.ReplaceTimeslotsRequest true "Replacement set"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /subjects/{code}/timeslots [post]
func (h *TimeslotHandler) Replace(c *gin.Context) {
	var req service.ReplaceTimeslotsRequest
	if !bindJSON(c, &req, "invalid timeslot payload") {
		return
	}
	slots, err := h.service.Replace(c.Request.Context(), c.Param("code"), req, actorID(c), middleware.RequestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, slots, nil)
}

// Delete godoc
// @Summary Delete one timeslot
// @Tags Timeslots
// @Param code path string true "Subject code"
// @Param timeslotId path string true "Timeslot ID"
// @Success 204
// @Router /subjects/{code}/timeslots/{timeslotId} [delete]
func (h *TimeslotHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteSlot(c.Request.Context(), c.Param("code"), c.Param("timeslotId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListForStudent godoc
// @Summary List the one-to-one timeslots of a student
// @Tags Timeslots
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /timeslots/students/{studentId} [get]
func (h *TimeslotHandler) ListForStudent(c *gin.Context) {
	slots, err := h.service.ListForStudent(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, slots, nil)
}

package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tuition-center-api/internal/models"
	"github.com/noah-isme/tuition-center-api/internal/service"
	"github.com/noah-isme/tuition-center-api/pkg/response"
)

type enrollmentService interface {
	Enroll(ctx context.Context, code string, req service.BulkEnrollRequest) (*service.BulkEnrollResult, error)
	Unenroll(ctx context.Context, code, studentID string) error
	ReplaceStudentSubjects(ctx context.Context, studentID string, req service.ReplaceSubjectsRequest) (*service.ReplaceSubjectsResult, error)
	ListAvailable(ctx context.Context, code string, filter models.AvailableStudentFilter) ([]models.StudentSummary, *models.Pagination, error)
}

// EnrollmentHandler manages student and subject links.
type EnrollmentHandler struct {
	service enrollmentService
}

// NewEnrollmentHandler constructs an EnrollmentHandler.
func NewEnrollmentHandler(svc enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc}
}

// Enroll godoc
// @Summary Enroll students in a subject
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param code path string true "Subject code"
// @Param payload body service.BulkEnrollRequest true "Student IDs"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /subjects/{code}/students [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req service.BulkEnrollRequest
	if !bindJSON(c, &req, "invalid enrollment payload") {
		return
	}
	result, err := h.service.Enroll(c.Request.Context(), c.Param("code"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, result, nil)
}

// Unenroll godoc
// @Summary Remove a student from a subject
// @Tags Enrollment
// @Param code path string true "Subject code"
// @Param studentId path string true "Student ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /subjects/{code}/students/{studentId} [delete]
func (h *EnrollmentHandler) Unenroll(c *gin.Context) {
	if err := h.service.Unenroll(c.Request.Context(), c.Param("code"), c.Param("studentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Available godoc
// @Summary Students that can still be enrolled in a subject
// @Tags Enrollment
// @Produce json
// @Param code path string true "Subject code"
// @Param search query string false "Search name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /subjects/{code}/available-students [get]
func (h *EnrollmentHandler) Available(c *gin.Context) {
	filter := models.AvailableStudentFilter{Search: strings.TrimSpace(c.Query("search"))}
	filter.Page, filter.PageSize = pageParams(c)

	students, pagination, err := h.service.ListAvailable(c.Request.Context(), c.Param("code"), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, students, pagination)
}

// ReplaceSubjects godoc
// @Summary Set the complete subject list of a student
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.ReplaceSubjectsRequest true "Desired subject codes"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students/{id}/subjects [put]
func (h *EnrollmentHandler) ReplaceSubjects(c *gin.Context) {
	var req service.ReplaceSubjectsRequest
	if !bindJSON(c, &req, "invalid subject list") {
		return
	}
	result, err := h.service.ReplaceStudentSubjects(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, result, nil)
}

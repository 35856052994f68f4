package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tuition-center-api/internal/middleware"
	"github.com/noah-isme/tuition-center-api/internal/service"
	"github.com/noah-isme/tuition-center-api/internal/timetable"
	"github.com/noah-isme/tuition-center-api/pkg/response"
)

type timetableService interface {
	Master(ctx context.Context, codes []string) (*service.MasterTimetable, error)
	OneToOne(ctx context.Context, codes []string) (*service.OneToOneTimetable, error)
	ForStudent(ctx context.Context, studentID string) (*service.CombinedTimetable, error)
	ForSubject(ctx context.Context, code string) (*service.CombinedTimetable, error)
	Legend(ctx context.Context, codes []string) ([]timetable.LegendEntry, error)
}

type timetableExporter interface {
	Timetable(ctx context.Context, codes []string, format string) (*service.ExportFile, error)
}

// TimetableHandler serves the read-only timetable grids.
type TimetableHandler struct {
	service  timetableService
	exporter timetableExporter
}

// NewTimetableHandler constructs a TimetableHandler.
func NewTimetableHandler(svc timetableService, exporter timetableExporter) *TimetableHandler {
	return &TimetableHandler{service: svc, exporter: exporter}
}

// Master godoc
// @Summary Master timetable of classroom slots
// @Tags Timetable
// @Produce json
// @Param subjects query string false "Comma separated subject codes"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetable/master [get]
func (h *TimetableHandler) Master(c *gin.Context) {
	view, err := h.service.Master(c.Request.Context(), service.ParseSubjectCodes(c.Query("subjects")))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, view.Cached)
	ok(c, view, nil)
}

// OneToOne godoc
// @Summary One-to-one timetable
// @Tags Timetable
// @Produce json
// @Param subjects query string false "Comma separated subject codes"
// @Success 200 {object} response.Envelope
// @Router /timetable/one-to-one [get]
func (h *TimetableHandler) OneToOne(c *gin.Context) {
	view, err := h.service.OneToOne(c.Request.Context(), service.ParseSubjectCodes(c.Query("subjects")))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, view.Cached)
	ok(c, view, nil)
}

// ForStudent godoc
// @Summary Timetable of one student
// @Tags Timetable
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetable/students/{id} [get]
func (h *TimetableHandler) ForStudent(c *gin.Context) {
	view, err := h.service.ForStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, view.Cached)
	ok(c, view, nil)
}

// ForSubject godoc
// @Summary Timetable of one subject
// @Tags Timetable
// @Produce json
// @Param code path string true "Subject code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetable/subjects/{code} [get]
func (h *TimetableHandler) ForSubject(c *gin.Context) {
	view, err := h.service.ForSubject(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, view.Cached)
	ok(c, view, nil)
}

// Legend godoc
// @Summary Abbreviation and colour of each subject
// @Tags Timetable
// @Produce json
// @Param subjects query string false "Comma separated subject codes"
// @Success 200 {object} response.Envelope
// @Router /timetable/legend [get]
func (h *TimetableHandler) Legend(c *gin.Context) {
	legend, err := h.service.Legend(c.Request.Context(), service.ParseSubjectCodes(c.Query("subjects")))
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, legend, nil)
}

// Export godoc
// @Summary Download the master timetable
// @Tags Timetable
// @Produce application/pdf
// @Produce text/csv
// @Param format query string false "pdf or csv"
// @Param subjects query string false "Comma separated subject codes"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /timetable/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	file, err := h.exporter.Timetable(c.Request.Context(), service.ParseSubjectCodes(c.Query("subjects")), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}

func sendFile(c *gin.Context, file *service.ExportFile) {
	response.File(c, file.Filename, file.ContentType, file.Data)
}

package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tuition-center-api/internal/middleware"
	"github.com/noah-isme/tuition-center-api/internal/models"
	"github.com/noah-isme/tuition-center-api/internal/service"
	"github.com/noah-isme/tuition-center-api/pkg/response"
)

type financeService interface {
	List(ctx context.Context, filter models.FinanceFilter) ([]models.FinanceRecord, *models.Pagination, error)
	Create(ctx context.Context, req service.CreateFinanceRecordRequest, actorID string) (*models.FinanceRecord, error)
	Delete(ctx context.Context, id, actorID string, meta models.RequestMeta) error
	Summary(ctx context.Context, month string) (*models.FinanceSummary, error)
}

type financeExporter interface {
	Finance(ctx context.Context, filter models.FinanceFilter, format string) (*service.ExportFile, error)
}

// FinanceHandler exposes income and expense tracking.
type FinanceHandler struct {
	service  financeService
	exporter financeExporter
}

// NewFinanceHandler constructs a FinanceHandler.
func NewFinanceHandler(svc financeService, exporter financeExporter) *FinanceHandler {
	return &FinanceHandler{service: svc, exporter: exporter}
}

func financeFilter(c *gin.Context) models.FinanceFilter {
	return models.FinanceFilter{
		Type:      strings.TrimSpace(c.Query("type")),
		Month:     strings.TrimSpace(c.Query("month")),
		StudentID: strings.TrimSpace(c.Query("studentId")),
	}
}

// List godoc
// @Summary List finance records
// @Tags Finance
// @Produce json
// @Param type query string false "income or expense"
// @Param month query string false "YYYY-MM"
// @Param studentId query string false "Student ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /finance/records [get]
func (h *FinanceHandler) List(c *gin.Context) {
	filter := financeFilter(c)
	filter.Page, filter.PageSize = pageParams(c)

	records, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, records, pagination)
}

// Create godoc
// @Summary Record income or expense
// @Tags Finance
// @Accept json
// @Produce json
// @Param payload body service.CreateFinanceRecordRequest true "Record"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /finance/records [post]
func (h *FinanceHandler) Create(c *gin.Context) {
	var req service.CreateFinanceRecordRequest
	if !bindJSON(c, &req, "invalid finance payload") {
		return
	}
	record, err := h.service.Create(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, record, nil)
}

// Delete godoc
// @Summary Delete finance record
// @Tags Finance
// @Param id path string true "Record ID"
// @Success 204
// @Router /finance/records/{id} [delete]
func (h *FinanceHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), actorID(c), middleware.RequestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Summary godoc
// @Summary Monthly income, expense and net
// @Tags Finance
// @Produce json
// @Param month query string false "YYYY-MM, defaults to the current month"
// @Success 200 {object} response.Envelope
// @Router /finance/summary [get]
func (h *FinanceHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context(), c.Query("month"))
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, summary, nil)
}

// Export godoc
// @Summary Download finance records
// @Tags Finance
// @Produce text/csv
// @Param format query string false "csv"
// @Param type query string false "income or expense"
// @Param month query string false "YYYY-MM"
// @Success 200 {file} file
// @Router /finance/records/export [get]
func (h *FinanceHandler) Export(c *gin.Context) {
	file, err := h.exporter.Finance(c.Request.Context(), financeFilter(c), c.DefaultQuery("format", service.FormatCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}

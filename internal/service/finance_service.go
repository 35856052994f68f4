package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tuition-center-api/internal/models"
	appErrors "github.com/noah-isme/tuition-center-api/pkg/errors"
)

const (
	monthLayout = "2006-01"
	dateLayout  = "2006-01-02"
)

type financeRepository interface {
	List(ctx context.Context, filter models.FinanceFilter) ([]models.FinanceRecord, int, error)
	ListAll(ctx context.Context, filter models.FinanceFilter) ([]models.FinanceRecord, error)
	Create(ctx context.Context, record *models.FinanceRecord) error
	Delete(ctx context.Context, id string) error
	Summary(ctx context.Context, month string) (*models.FinanceSummary, error)
}

// CreateFinanceRecordRequest is the payload for POST /finance/records.
type CreateFinanceRecordRequest struct {
	Type        string  `json:"type" validate:"required,oneof=income expense"`
	Category    string  `json:"category" validate:"required,max=100"`
	Amount      float64 `json:"amount" validate:"gt=0"`
	StudentID   string  `json:"studentId"`
	Description string  `json:"description" validate:"max=500"`
	RecordedOn  string  `json:"recordedOn"`
}

// FinanceService tracks income and expenses.
type FinanceService struct {
	repo      financeRepository
	students  timetableStudentSource
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewFinanceService constructs a FinanceService.
func NewFinanceService(repo financeRepository, students timetableStudentSource, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *FinanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FinanceService{repo: repo, students: students, audit: audit, validator: validate, logger: logger, now: time.Now}
}

// List returns finance records matching filter.
func (s *FinanceService) List(ctx context.Context, filter models.FinanceFilter) ([]models.FinanceRecord, *models.Pagination, error) {
	if err := normalizeFinanceFilter(&filter); err != nil {
		return nil, nil, err
	}
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, wrapInternal(err, "failed to list finance records")
	}
	return records, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// ListAll returns every record matching filter, for exports.
func (s *FinanceService) ListAll(ctx context.Context, filter models.FinanceFilter) ([]models.FinanceRecord, error) {
	if err := normalizeFinanceFilter(&filter); err != nil {
		return nil, err
	}
	records, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return nil, wrapInternal(err, "failed to export finance records")
	}
	return records, nil
}

// Create records an income or expense. RecordedOn defaults to today.
func (s *FinanceService) Create(ctx context.Context, req CreateFinanceRecordRequest, actorID string) (*models.FinanceRecord, error) {
	req.Type = strings.ToLower(strings.TrimSpace(req.Type))
	req.Category = strings.TrimSpace(req.Category)
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "type, category and a positive amount are required")
	}

	recordedOn := s.now().UTC().Truncate(24 * time.Hour)
	if req.RecordedOn != "" {
		parsed, err := time.Parse(dateLayout, strings.TrimSpace(req.RecordedOn))
		if err != nil {
			return nil, appErrors.Validationf("recordedOn must be YYYY-MM-DD")
		}
		recordedOn = parsed
	}

	record := &models.FinanceRecord{
		Type:        req.Type,
		Category:    req.Category,
		Amount:      math.Round(req.Amount*100) / 100,
		Description: strings.TrimSpace(req.Description),
		RecordedOn:  recordedOn,
	}
	if id := strings.TrimSpace(req.StudentID); id != "" {
		if _, err := s.students.FindByID(ctx, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Validationf("unknown student %s", id)
			}
			return nil, wrapInternal(err, "failed to load student")
		}
		record.StudentID = &id
	}
	if actorID != "" {
		record.CreatedBy = &actorID
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, wrapInternal(err, "failed to create finance record")
	}
	return record, nil
}

// Delete removes a record.
func (s *FinanceService) Delete(ctx context.Context, id, actorID string, meta models.RequestMeta) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "finance record not found", "failed to delete finance record")
	}
	recordAudit(ctx, s.audit, s.logger, newAuditEntry(models.AuditActionFinanceDelete, "finance_records", id, actorID, meta, nil))
	return nil
}

// Summary totals a month, defaulting to the current one.
func (s *FinanceService) Summary(ctx context.Context, month string) (*models.FinanceSummary, error) {
	month = strings.TrimSpace(month)
	if month == "" {
		month = s.now().UTC().Format(monthLayout)
	} else if _, err := time.Parse(monthLayout, month); err != nil {
		return nil, appErrors.Validationf("month must be YYYY-MM")
	}
	summary, err := s.repo.Summary(ctx, month)
	if err != nil {
		return nil, wrapInternal(err, "failed to summarise finance records")
	}
	return summary, nil
}

func normalizeFinanceFilter(filter *models.FinanceFilter) error {
	filter.Type = strings.ToLower(strings.TrimSpace(filter.Type))
	if filter.Type != "" && filter.Type != models.FinanceIncome && filter.Type != models.FinanceExpense {
		return appErrors.Validationf("type must be income or expense")
	}
	filter.Month = strings.TrimSpace(filter.Month)
	if filter.Month != "" {
		if _, err := time.Parse(monthLayout, filter.Month); err != nil {
			return appErrors.Validationf("month must be YYYY-MM")
		}
	}
	filter.StudentID = strings.TrimSpace(filter.StudentID)
	return nil
}

package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/tuition-center-api/internal/models"
	appErrors "github.com/noah-isme/tuition-center-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	UpdateStatus(ctx context.Context, id, status string) error
}

// CreateStudentRequest is the payload for POST /students.
type CreateStudentRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	School      string   `json:"school" validate:"max=200"`
	Standard    string   `json:"standard" validate:"required,max=20"`
	ParentName  string   `json:"parentName" validate:"max=200"`
	ParentPhone string   `json:"parentPhone" validate:"max=40"`
	Status      string   `json:"status"`
	DLP         string   `json:"dlp"`
	Modes       []string `json:"modes"`
}

// UpdateStudentRequest is a partial update; nil fields are left unchanged.
type UpdateStudentRequest struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=200"`
	School      *string  `json:"school" validate:"omitempty,max=200"`
	Standard    *string  `json:"standard" validate:"omitempty,min=1,max=20"`
	ParentName  *string  `json:"parentName" validate:"omitempty,max=200"`
	ParentPhone *string  `json:"parentPhone" validate:"omitempty,max=40"`
	Status      *string  `json:"status"`
	DLP         *string  `json:"dlp"`
	Modes       []string `json:"modes"`
}

// StudentService manages student profiles.
type StudentService struct {
	repo      studentRepository
	cache     *CacheService
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentRepository, cache *CacheService, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, cache: cache, audit: audit, validator: validate, logger: logger}
}

// NormalizeStatus lowercases a status and checks it is known.
func NormalizeStatus(raw string) (string, bool) {
	status := strings.ToLower(strings.TrimSpace(raw))
	switch status {
	case models.StudentStatusActive, models.StudentStatusPending, models.StudentStatusTrial, models.StudentStatusInactive, models.StudentStatusRemoved:
		return status, true
	}
	return "", false
}

// NormalizeDLP maps loose spellings onto DLP or NON-DLP.
func NormalizeDLP(raw string) (string, bool) {
	compact := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToUpper(strings.TrimSpace(raw)))
	switch compact {
	case "DLP", "YES", "TRUE":
		return models.DLPYes, true
	case "NONDLP", "NO", "FALSE", "":
		return models.DLPNo, true
	}
	return "", false
}

// NormalizeModes canonicalises study modes, dropping duplicates.
func NormalizeModes(raw []string) (pq.StringArray, error) {
	out := pq.StringArray{}
	seen := map[string]bool{}
	for _, m := range raw {
		mode := NormalizeSubjectType(m)
		if mode != models.ModeNormal && mode != models.ModeOneToOne {
			return nil, appErrors.Validationf("unknown mode %q", m)
		}
		if !seen[mode] {
			seen[mode] = true
			out = append(out, mode)
		}
	}
	return out, nil
}

// List returns students matching the filter.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	if filter.Status != "" {
		status, ok := NormalizeStatus(filter.Status)
		if !ok {
			return nil, nil, appErrors.Validationf("unknown status %q", filter.Status)
		}
		filter.Status = status
	}
	if filter.Mode != "" {
		filter.Mode = NormalizeSubjectType(filter.Mode)
	}
	if filter.Subject != "" {
		filter.Subject = NormalizeCode(filter.Subject)
	}
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, wrapInternal(err, "failed to list students")
	}
	return students, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a student with their subject codes.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "student not found", "failed to load student")
	}
	return student, nil
}

// Create registers a student. Status defaults to pending.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "name and standard are required")
	}

	status := models.StudentStatusPending
	if req.Status != "" {
		var ok bool
		if status, ok = NormalizeStatus(req.Status); !ok {
			return nil, appErrors.Validationf("unknown status %q", req.Status)
		}
	}
	dlp, ok := NormalizeDLP(req.DLP)
	if !ok {
		return nil, appErrors.Validationf("dlp must be DLP or NON-DLP")
	}
	modes, err := NormalizeModes(req.Modes)
	if err != nil {
		return nil, err
	}

	student := &models.Student{
		Name:        req.Name,
		School:      strings.TrimSpace(req.School),
		Standard:    strings.ToUpper(strings.TrimSpace(req.Standard)),
		ParentName:  strings.TrimSpace(req.ParentName),
		ParentPhone: strings.TrimSpace(req.ParentPhone),
		Status:      status,
		DLP:         dlp,
		Modes:       modes,
		Subjects:    pq.StringArray{},
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, wrapInternal(err, "failed to create student")
	}
	return student, nil
}

// Update applies a partial update.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid student payload")
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "student not found", "failed to load student")
	}

	if req.Name != nil {
		student.Name = strings.TrimSpace(*req.Name)
	}
	if req.School != nil {
		student.School = strings.TrimSpace(*req.School)
	}
	if req.Standard != nil {
		student.Standard = strings.ToUpper(strings.TrimSpace(*req.Standard))
	}
	if req.ParentName != nil {
		student.ParentName = strings.TrimSpace(*req.ParentName)
	}
	if req.ParentPhone != nil {
		student.ParentPhone = strings.TrimSpace(*req.ParentPhone)
	}
	if req.Status != nil {
		status, ok := NormalizeStatus(*req.Status)
		if !ok {
			return nil, appErrors.Validationf("unknown status %q", *req.Status)
		}
		student.Status = status
	}
	if req.DLP != nil {
		dlp, ok := NormalizeDLP(*req.DLP)
		if !ok {
			return nil, appErrors.Validationf("dlp must be DLP or NON-DLP")
		}
		student.DLP = dlp
	}
	if req.Modes != nil {
		modes, err := NormalizeModes(req.Modes)
		if err != nil {
			return nil, err
		}
		student.Modes = modes
	}

	if err := s.repo.Update(ctx, student); err != nil {
		return nil, notFoundOr(err, "student not found", "failed to update student")
	}
	_ = s.cache.Invalidate(ctx, TimetableCachePattern)
	return student, nil
}

// Remove soft deletes a student by moving them to the removed status.
func (s *StudentService) Remove(ctx context.Context, id, actorID string, meta models.RequestMeta) error {
	if err := s.repo.UpdateStatus(ctx, id, models.StudentStatusRemoved); err != nil {
		return notFoundOr(err, "student not found", "failed to remove student")
	}
	_ = s.cache.Invalidate(ctx, TimetableCachePattern)
	recordAudit(ctx, s.audit, s.logger, newAuditEntry(models.AuditActionStudentRemove, "students", id, actorID, meta, nil))
	return nil
}

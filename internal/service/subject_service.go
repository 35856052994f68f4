package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tuition-center-api/internal/models"
	appErrors "github.com/noah-isme/tuition-center-api/pkg/errors"
)

type subjectRepository interface {
	List(ctx context.Context, filter models.SubjectFilter) ([]models.SubjectSummary, int, error)
	FindByCode(ctx context.Context, code string) (*models.Subject, error)
	Create(ctx context.Context, subject *models.Subject) error
	Update(ctx context.Context, subject *models.Subject) error
	Delete(ctx context.Context, code string) error
	CountEnrolled(ctx context.Context, code string) (int, error)
	ListEnrolledStudents(ctx context.Context, code string) ([]models.StudentSummary, error)
}

// CreateSubjectRequest is the payload for POST /subjects.
type CreateSubjectRequest struct {
	Code     string `json:"code" validate:"required,max=32,alphanum"`
	Name     string `json:"name" validate:"required,max=200"`
	Standard string `json:"standard" validate:"required,max=20"`
	Type     string `json:"type" validate:"required,oneof=NORMAL '1 TO 1'"`
	Subject  string `json:"subject" validate:"max=200"`
}

// UpdateSubjectRequest is the payload for PUT /subjects/:code. Code may be
// echoed back but cannot change.
type UpdateSubjectRequest struct {
	Code     string `json:"code"`
	Name     string `json:"name" validate:"required,max=200"`
	Standard string `json:"standard" validate:"required,max=20"`
	Type     string `json:"type" validate:"required,oneof=NORMAL '1 TO 1'"`
	Subject  string `json:"subject" validate:"max=200"`
}

// SubjectService manages the subject catalogue.
type SubjectService struct {
	repo      subjectRepository
	cache     *CacheService
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService constructs a SubjectService.
func NewSubjectService(repo subjectRepository, cache *CacheService, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{repo: repo, cache: cache, audit: audit, validator: validate, logger: logger}
}

// NormalizeSubjectType maps loose spellings onto NORMAL or "1 TO 1".
func NormalizeSubjectType(raw string) string {
	compact := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToUpper(strings.TrimSpace(raw)))
	switch compact {
	case "NORMAL", "CLASSROOM":
		return models.ModeNormal
	case "1TO1", "ONETOONE":
		return models.ModeOneToOne
	}
	return strings.ToUpper(strings.TrimSpace(raw))
}

// NormalizeCode trims and uppercases a subject code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// List returns subjects with enrollment counts.
func (s *SubjectService) List(ctx context.Context, filter models.SubjectFilter) ([]models.SubjectSummary, *models.Pagination, error) {
	if filter.Type != "" {
		filter.Type = NormalizeSubjectType(filter.Type)
	}
	subjects, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, wrapInternal(err, "failed to list subjects")
	}
	return subjects, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a subject and the students enrolled in it.
func (s *SubjectService) Get(ctx context.Context, code string) (*models.SubjectDetail, error) {
	code = NormalizeCode(code)
	subject, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, notFoundOr(err, "subject "+code+" not found", "failed to load subject")
	}
	students, err := s.repo.ListEnrolledStudents(ctx, code)
	if err != nil {
		return nil, wrapInternal(err, "failed to load enrolled students")
	}
	if students == nil {
		students = []models.StudentSummary{}
	}
	return &models.SubjectDetail{Subject: *subject, EnrolledCount: len(students), Students: students}, nil
}

// Create adds a subject. The code is stored upper case.
func (s *SubjectService) Create(ctx context.Context, req CreateSubjectRequest) (*models.Subject, error) {
	req.Code = NormalizeCode(req.Code)
	req.Type = NormalizeSubjectType(req.Type)
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "code (letters and digits), name, standard and type are required")
	}

	if _, err := s.repo.FindByCode(ctx, req.Code); err == nil {
		return nil, appErrors.Conflictf("subject with code %s already exists", req.Code)
	}

	subject := &models.Subject{
		Code:     req.Code,
		Name:     req.Name,
		Standard: strings.ToUpper(strings.TrimSpace(req.Standard)),
		Type:     req.Type,
		Subject:  baseSubject(req.Subject, req.Name),
	}
	if err := s.repo.Create(ctx, subject); err != nil {
		return nil, wrapInternal(err, "failed to create subject")
	}
	s.invalidate(ctx)
	return subject, nil
}

// Update replaces the mutable fields of a subject.
func (s *SubjectService) Update(ctx context.Context, code string, req UpdateSubjectRequest) (*models.Subject, error) {
	code = NormalizeCode(code)
	if req.Code != "" && NormalizeCode(req.Code) != code {
		return nil, appErrors.Validationf("subject code cannot be changed from %s", code)
	}
	req.Type = NormalizeSubjectType(req.Type)
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "name, standard and type are required")
	}

	subject, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, notFoundOr(err, "subject "+code+" not found", "failed to load subject")
	}
	subject.Name = strings.TrimSpace(req.Name)
	subject.Standard = strings.ToUpper(strings.TrimSpace(req.Standard))
	subject.Type = req.Type
	subject.Subject = baseSubject(req.Subject, subject.Name)

	if err := s.repo.Update(ctx, subject); err != nil {
		return nil, notFoundOr(err, "subject "+code+" not found", "failed to update subject")
	}
	s.invalidate(ctx)
	return subject, nil
}

// Delete removes a subject that has no enrolled students.
func (s *SubjectService) Delete(ctx context.Context, code, actorID string, meta models.RequestMeta) error {
	code = NormalizeCode(code)
	if _, err := s.repo.FindByCode(ctx, code); err != nil {
		return notFoundOr(err, "subject "+code+" not found", "failed to load subject")
	}
	enrolled, err := s.repo.CountEnrolled(ctx, code)
	if err != nil {
		return wrapInternal(err, "failed to count enrolled students")
	}
	if enrolled > 0 {
		return appErrors.Conflictf("cannot delete subject %s: %d students enrolled", code, enrolled)
	}
	if err := s.repo.Delete(ctx, code); err != nil {
		return notFoundOr(err, "subject "+code+" not found", "failed to delete subject")
	}
	s.invalidate(ctx)
	recordAudit(ctx, s.audit, s.logger, newAuditEntry(models.AuditActionSubjectDelete, "subjects", code, actorID, meta, nil))
	return nil
}

func (s *SubjectService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, TimetableCachePattern)
}

func baseSubject(subject, name string) string {
	if trimmed := strings.TrimSpace(subject); trimmed != "" {
		return trimmed
	}
	return name
}

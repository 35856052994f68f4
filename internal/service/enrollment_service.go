package service

import (
	"context"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tuition-center-api/internal/models"
	"github.com/noah-isme/tuition-center-api/internal/timetable"
	appErrors "github.com/noah-isme/tuition-center-api/pkg/errors"
)

type enrollmentRepository interface {
	ListSubjectCodes(ctx context.Context, studentID string) ([]string, error)
	Enroll(ctx context.Context, code string, studentIDs []string) (int, error)
	Unenroll(ctx context.Context, code, studentID string) error
	Apply(ctx context.Context, studentID string, add, remove []string) error
}

type subjectCatalog interface {
	FindByCode(ctx context.Context, code string) (*models.Subject, error)
	ListByCodes(ctx context.Context, codes []string) ([]models.Subject, error)
}

type availableStudentLister interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Student, error)
	ListAvailable(ctx context.Context, filter models.AvailableStudentFilter) ([]models.StudentSummary, int, error)
}

// BulkEnrollRequest is the payload for POST /subjects/:code/students.
type BulkEnrollRequest struct {
	StudentIDs []string `json:"studentIds" validate:"required,min=1,dive,required"`
}

// BulkEnrollResult reports how many links were created.
type BulkEnrollResult struct {
	SubjectCode string `json:"subjectCode"`
	Requested   int    `json:"requested"`
	Enrolled    int    `json:"enrolled"`
}

// ReplaceSubjectsRequest sets the complete subject list of a student.
type ReplaceSubjectsRequest struct {
	SubjectCodes []string `json:"subjectCodes" validate:"dive,required"`
}

// ReplaceSubjectsResult describes the applied change set.
type ReplaceSubjectsResult struct {
	StudentID string   `json:"studentId"`
	Subjects  []string `json:"subjects"`
	Added     []string `json:"added"`
	Removed   []string `json:"removed"`
}

// EnrollmentService links students to subjects.
type EnrollmentService struct {
	repo      enrollmentRepository
	subjects  subjectCatalog
	students  availableStudentLister
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, subjects subjectCatalog, students availableStudentLister, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, subjects: subjects, students: students, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// Enroll links the given students to a subject. Already enrolled students are ignored.
func (s *EnrollmentService) Enroll(ctx context.Context, code string, req BulkEnrollRequest) (*BulkEnrollResult, error) {
	code = NormalizeCode(code)
	if len(req.StudentIDs) == 0 {
		return nil, appErrors.Validationf("studentIds must contain at least one student")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "studentIds must not contain empty values")
	}
	if _, err := s.subjects.FindByCode(ctx, code); err != nil {
		return nil, notFoundOr(err, "subject "+code+" not found", "failed to load subject")
	}

	ids := dedupe(req.StudentIDs, strings.TrimSpace)
	found, err := s.students.FindByIDs(ctx, ids)
	if err != nil {
		return nil, wrapInternal(err, "failed to load students")
	}
	if missing := missingIDs(ids, found); len(missing) > 0 {
		return nil, appErrors.Validationf("unknown students: %s", strings.Join(missing, ", "))
	}

	added, err := s.repo.Enroll(ctx, code, ids)
	if err != nil {
		return nil, wrapInternal(err, "failed to enroll students")
	}
	s.metrics.RecordEnrollmentChange(added, 0)
	_ = s.cache.Invalidate(ctx, TimetableCachePattern)
	return &BulkEnrollResult{SubjectCode: code, Requested: len(ids), Enrolled: added}, nil
}

// Unenroll removes one student from a subject with their one-to-one slots.
func (s *EnrollmentService) Unenroll(ctx context.Context, code, studentID string) error {
	code = NormalizeCode(code)
	if err := s.repo.Unenroll(ctx, code, studentID); err != nil {
		return notFoundOr(err, "student is not enrolled in "+code, "failed to unenroll student")
	}
	s.metrics.RecordEnrollmentChange(0, 1)
	_ = s.cache.Invalidate(ctx, TimetableCachePattern)
	return nil
}

// ReplaceStudentSubjects reconciles a student's enrollment with the desired set.
func (s *EnrollmentService) ReplaceStudentSubjects(ctx context.Context, studentID string, req ReplaceSubjectsRequest) (*ReplaceSubjectsResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "subjectCodes must not contain empty values")
	}
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		return nil, notFoundOr(err, "student not found", "failed to load student")
	}

	desired := dedupe(req.SubjectCodes, NormalizeCode)
	if len(desired) > 0 {
		known, err := s.subjects.ListByCodes(ctx, desired)
		if err != nil {
			return nil, wrapInternal(err, "failed to load subjects")
		}
		if unknown := unknownCodes(desired, known); len(unknown) > 0 {
			return nil, appErrors.Validationf("unknown subjects: %s", strings.Join(unknown, ", "))
		}
	}

	current, err := s.repo.ListSubjectCodes(ctx, studentID)
	if err != nil {
		return nil, wrapInternal(err, "failed to load current subjects")
	}

	diff := timetable.DiffEnrollment(current, desired)
	if !diff.Empty() {
		if err := s.repo.Apply(ctx, studentID, diff.Add, diff.Remove); err != nil {
			return nil, wrapInternal(err, "failed to update subjects")
		}
		s.metrics.RecordEnrollmentChange(len(diff.Add), len(diff.Remove))
		_ = s.cache.Invalidate(ctx, TimetableCachePattern)
	}

	final := diff.Apply(current)
	sort.Strings(final)
	return &ReplaceSubjectsResult{StudentID: studentID, Subjects: final, Added: diff.Add, Removed: diff.Remove}, nil
}

// ListAvailable returns students that can still be enrolled in a subject.
func (s *EnrollmentService) ListAvailable(ctx context.Context, code string, filter models.AvailableStudentFilter) ([]models.StudentSummary, *models.Pagination, error) {
	code = NormalizeCode(code)
	if _, err := s.subjects.FindByCode(ctx, code); err != nil {
		return nil, nil, notFoundOr(err, "subject "+code+" not found", "failed to load subject")
	}
	filter.SubjectCode = code
	students, total, err := s.students.ListAvailable(ctx, filter)
	if err != nil {
		return nil, nil, wrapInternal(err, "failed to list available students")
	}
	if students == nil {
		students = []models.StudentSummary{}
	}
	return students, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

func dedupe(items []string, norm func(string) string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		it = norm(it)
		if it == "" {
			continue
		}
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}

func missingIDs(ids []string, found []models.Student) []string {
	set := make(map[string]struct{}, len(found))
	for _, st := range found {
		set[st.ID] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := set[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func unknownCodes(codes []string, known []models.Subject) []string {
	set := make(map[string]struct{}, len(known))
	for _, s := range known {
		set[s.Code] = struct{}{}
	}
	var unknown []string
	for _, c := range codes {
		if _, ok := set[c]; !ok {
			unknown = append(unknown, c)
		}
	}
	return unknown
}

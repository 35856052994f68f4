package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tuition-center-api/internal/models"
	"github.com/noah-isme/tuition-center-api/internal/timetable"
	appErrors "github.com/noah-isme/tuition-center-api/pkg/errors"
)

type timeslotRepository interface {
	ListBySubject(ctx context.Context, code string) ([]models.Timeslot, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Timeslot, error)
	ReplaceForSubject(ctx context.Context, code, mode string, slots []models.Timeslot) error
	Delete(ctx context.Context, code, timeslotID string) error
}

type subjectFinder interface {
	FindByCode(ctx context.Context, code string) (*models.Subject, error)
}

type studentFinder interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Student, error)
}

type enrollmentChecker interface {
	EnrolledAmong(ctx context.Context, code string, studentIDs []string) ([]string, error)
}

// TimeslotInput is one row of a schedule replace payload.
type TimeslotInput struct {
	TimeslotID  string `json:"timeslotId"`
	Day         string `json:"day" validate:"required"`
	StartTime   string `json:"startTime" validate:"required"`
	EndTime     string `json:"endTime" validate:"required"`
	TeacherName string `json:"teacherName" validate:"max=200"`
	StudentID   string `json:"studentId"`
	StudentName string `json:"studentName"`
}

// ReplaceTimeslotsRequest replaces every slot of one mode for a subject.
type ReplaceTimeslotsRequest struct {
	Mode      string          `json:"mode" validate:"required,oneof=normal oneToOne"`
	Timeslots []TimeslotInput `json:"timeslots" validate:"dive"`
}

// ScheduleService manages the weekly timeslots of subjects.
type ScheduleService struct {
	slots       timeslotRepository
	subjects    subjectFinder
	students    studentFinder
	enrollments enrollmentChecker
	cache       *CacheService
	metrics     *MetricsService
	audit       auditRecorder
	validator   *validator.Validate
	logger      *zap.Logger
}

// ScheduleServiceParams groups constructor dependencies.
type ScheduleServiceParams struct {
	Timeslots   timeslotRepository
	Subjects    subjectFinder
	Students    studentFinder
	Enrollments enrollmentChecker
	Cache       *CacheService
	Metrics     *MetricsService
	Audit       auditRecorder
	Validator   *validator.Validate
	Logger      *zap.Logger
}

// NewScheduleService constructs a ScheduleService.
func NewScheduleService(p ScheduleServiceParams) *ScheduleService {
	if p.Validator == nil {
		p.Validator = validator.New()
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	return &ScheduleService{
		slots:       p.Timeslots,
		subjects:    p.Subjects,
		students:    p.Students,
		enrollments: p.Enrollments,
		cache:       p.Cache,
		metrics:     p.Metrics,
		audit:       p.Audit,
		validator:   p.Validator,
		logger:      p.Logger,
	}
}

// ListForSubject returns a subject's slots split by mode.
func (s *ScheduleService) ListForSubject(ctx context.Context, code string) (*timetable.Partition, error) {
	code = NormalizeCode(code)
	if _, err := s.subjects.FindByCode(ctx, code); err != nil {
		return nil, notFoundOr(err, "subject "+code+" not found", "failed to load subject")
	}
	slots, err := s.slots.ListBySubject(ctx, code)
	if err != nil {
		return nil, wrapInternal(err, "failed to list timeslots")
	}
	p := timetable.Split(slots)
	return &p, nil
}

// ListForStudent returns the one-to-one slots of a student.
func (s *ScheduleService) ListForStudent(ctx context.Context, studentID string) ([]models.Timeslot, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		return nil, notFoundOr(err, "student not found", "failed to load student")
	}
	slots, err := s.slots.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, wrapInternal(err, "failed to list timeslots")
	}
	if slots == nil {
		slots = []models.Timeslot{}
	}
	return slots, nil
}

// Replace swaps all slots of the requested mode for a subject. One-to-one
// slots must reference students enrolled in the subject; their names are
// taken from the student records.
func (s *ScheduleService) Replace(ctx context.Context, code string, req ReplaceTimeslotsRequest, actorID string, meta models.RequestMeta) ([]models.Timeslot, error) {
	code = NormalizeCode(code)
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "mode must be normal or oneToOne and every timeslot needs day, startTime and endTime")
	}
	if _, err := s.subjects.FindByCode(ctx, code); err != nil {
		return nil, notFoundOr(err, "subject "+code+" not found", "failed to load subject")
	}

	slots := make([]models.Timeslot, 0, len(req.Timeslots))
	for i, in := range req.Timeslots {
		slot, err := normalizeSlot(in, req.Mode)
		if err != nil {
			return nil, appErrors.Validationf("timeslot %d: %s", i+1, err.Error())
		}
		slot.SubjectCode = code
		slots = append(slots, slot)
	}

	if req.Mode == models.SlotModeOneToOne {
		if err := s.attachStudents(ctx, code, slots); err != nil {
			return nil, err
		}
	}

	if err := s.slots.ReplaceForSubject(ctx, code, req.Mode, slots); err != nil {
		return nil, wrapInternal(err, "failed to replace timeslots")
	}
	s.metrics.RecordScheduleReplace(req.Mode)
	_ = s.cache.Invalidate(ctx, TimetableCachePattern)
	recordAudit(ctx, s.audit, s.logger, newAuditEntry(models.AuditActionScheduleReplace, "subjects", code, actorID, meta,
		map[string]interface{}{"mode": req.Mode, "count": len(slots)}))

	s.logger.Info("timeslots replaced", zap.String("subject", code), zap.String("mode", req.Mode), zap.Int("count", len(slots)))
	return slots, nil
}

// DeleteSlot removes a single slot from a subject.
func (s *ScheduleService) DeleteSlot(ctx context.Context, code, timeslotID string) error {
	code = NormalizeCode(code)
	if err := s.slots.Delete(ctx, code, timeslotID); err != nil {
		return notFoundOr(err, "timeslot not found", "failed to delete timeslot")
	}
	_ = s.cache.Invalidate(ctx, TimetableCachePattern)
	return nil
}

func (s *ScheduleService) attachStudents(ctx context.Context, code string, slots []models.Timeslot) error {
	ids := make([]string, 0, len(slots))
	seen := make(map[string]struct{}, len(slots))
	for _, slot := range slots {
		if _, ok := seen[*slot.StudentID]; ok {
			continue
		}
		seen[*slot.StudentID] = struct{}{}
		ids = append(ids, *slot.StudentID)
	}

	enrolled, err := s.enrollments.EnrolledAmong(ctx, code, ids)
	if err != nil {
		return wrapInternal(err, "failed to check enrollment")
	}
	enrolledSet := make(map[string]struct{}, len(enrolled))
	for _, id := range enrolled {
		enrolledSet[id] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := enrolledSet[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return appErrors.Validationf("students not enrolled in %s: %s", code, strings.Join(missing, ", "))
	}

	students, err := s.students.FindByIDs(ctx, ids)
	if err != nil {
		return wrapInternal(err, "failed to load students")
	}
	names := make(map[string]string, len(students))
	for _, st := range students {
		names[st.ID] = st.Name
	}
	for i := range slots {
		name, ok := names[*slots[i].StudentID]
		if !ok {
			return appErrors.Validationf("student %s not found", *slots[i].StudentID)
		}
		slots[i].StudentName = &name
	}
	return nil
}

func normalizeSlot(in TimeslotInput, mode string) (models.Timeslot, error) {
	day, ok := timetable.CanonicalDay(in.Day)
	if !ok {
		return models.Timeslot{}, fmt.Errorf("unknown day %q", in.Day)
	}
	start, err := timetable.ParseClock(in.StartTime)
	if err != nil {
		return models.Timeslot{}, err
	}
	end, err := timetable.ParseClock(in.EndTime)
	if err != nil {
		return models.Timeslot{}, err
	}
	if end <= start {
		return models.Timeslot{}, fmt.Errorf("endTime %s must be after startTime %s", end, start)
	}

	slot := models.Timeslot{
		TimeslotID:  strings.TrimSpace(in.TimeslotID),
		Day:         day,
		StartTime:   start,
		EndTime:     end,
		TeacherName: strings.TrimSpace(in.TeacherName),
	}
	studentID := strings.TrimSpace(in.StudentID)
	switch mode {
	case models.SlotModeOneToOne:
		if studentID == "" {
			return models.Timeslot{}, fmt.Errorf("studentId is required for one-to-one slots")
		}
		slot.StudentID = &studentID
	default:
		if studentID != "" || strings.TrimSpace(in.StudentName) != "" {
			return models.Timeslot{}, fmt.Errorf("classroom slots cannot reference a student")
		}
	}
	return slot, nil
}

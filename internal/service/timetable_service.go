package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tuition-center-api/internal/models"
	"github.com/noah-isme/tuition-center-api/internal/timetable"
	appErrors "github.com/noah-isme/tuition-center-api/pkg/errors"
)

type timetableSlotSource interface {
	ListBySubjects(ctx context.Context, codes []string) ([]models.Timeslot, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Timeslot, error)
}

type timetableSubjectSource interface {
	FindByCode(ctx context.Context, code string) (*models.Subject, error)
	ListByCodes(ctx context.Context, codes []string) ([]models.Subject, error)
}

type timetableStudentSource interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// MasterTimetable is the classroom grid with its legend.
type MasterTimetable struct {
	Grid   timetable.FixedGrid     `json:"grid"`
	Legend []timetable.LegendEntry `json:"legend"`
	Cached bool                    `json:"-"`
}

// OneToOneTimetable is the one-to-one grid with its legend.
type OneToOneTimetable struct {
	Grid   timetable.DynamicGrid   `json:"grid"`
	Legend []timetable.LegendEntry `json:"legend"`
	Cached bool                    `json:"-"`
}

// CombinedTimetable carries both grids for a single student or subject.
type CombinedTimetable struct {
	Student  *models.StudentSummary  `json:"student,omitempty"`
	Subject  *models.Subject         `json:"subject,omitempty"`
	Fixed    timetable.FixedGrid     `json:"fixed"`
	OneToOne timetable.DynamicGrid   `json:"oneToOne"`
	Legend   []timetable.LegendEntry `json:"legend"`
	Cached   bool                    `json:"-"`
}

// TimetableService assembles read-only timetable views.
type TimetableService struct {
	slots    timetableSlotSource
	subjects timetableSubjectSource
	students timetableStudentSource
	cache    *CacheService
	metrics  *MetricsService
	ttl      time.Duration
	logger   *zap.Logger
}

// NewTimetableService constructs a TimetableService.
func NewTimetableService(slots timetableSlotSource, subjects timetableSubjectSource, students timetableStudentSource, cache *CacheService, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{slots: slots, subjects: subjects, students: students, cache: cache, metrics: metrics, ttl: ttl, logger: logger}
}

// ParseSubjectCodes splits a comma separated selection, uppercasing and
// dropping blanks and repeats.
func ParseSubjectCodes(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return dedupe(strings.Split(raw, ","), NormalizeCode)
}

// Master builds the fixed-window grid for the selected subjects. An empty
// selection covers every subject.
func (s *TimetableService) Master(ctx context.Context, codes []string) (*MasterTimetable, error) {
	codes = dedupe(codes, NormalizeCode)
	key := timetableKey("master", codes...)
	var cached MasterTimetable
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		cached.Cached = true
		return &cached, nil
	}

	slots, subjects, err := s.load(ctx, codes)
	if err != nil {
		return nil, err
	}
	grid := timetable.BuildFixedGrid(slots, subjects, codes)
	s.metrics.RecordGridBuild("fixed", grid.Skipped)
	s.logSkipped("fixed", grid.Skipped)

	view := &MasterTimetable{Grid: grid, Legend: legendFor(subjects, fixedCodes(grid))}
	_ = s.cache.Set(ctx, key, view, s.ttl)
	return view, nil
}

// OneToOne builds the dynamic grid of one-to-one slots for the selected subjects.
func (s *TimetableService) OneToOne(ctx context.Context, codes []string) (*OneToOneTimetable, error) {
	codes = dedupe(codes, NormalizeCode)
	key := timetableKey("one-to-one", codes...)
	var cached OneToOneTimetable
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		cached.Cached = true
		return &cached, nil
	}

	slots, subjects, err := s.load(ctx, codes)
	if err != nil {
		return nil, err
	}
	grid := timetable.BuildDynamicGrid(slots, subjects, codes)
	s.metrics.RecordGridBuild("dynamic", grid.Skipped)
	s.logSkipped("dynamic", grid.Skipped)

	view := &OneToOneTimetable{Grid: grid, Legend: legendFor(subjects, dynamicCodes(grid))}
	_ = s.cache.Set(ctx, key, view, s.ttl)
	return view, nil
}

// ForStudent shows the classroom slots of the student's enrolled subjects next
// to the one-to-one slots attached to the student.
func (s *TimetableService) ForStudent(ctx context.Context, studentID string) (*CombinedTimetable, error) {
	key := timetableKey("student", studentID)
	var cached CombinedTimetable
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		cached.Cached = true
		return &cached, nil
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, notFoundOr(err, "student not found", "failed to load student")
	}

	codes := dedupe([]string(student.Subjects), NormalizeCode)
	subjects := map[string]models.Subject{}
	var classSlots []models.Timeslot
	if len(codes) > 0 {
		// An empty code list would load every subject, so only query when enrolled.
		all, lookup, err := s.load(ctx, codes)
		if err != nil {
			return nil, err
		}
		classSlots, subjects = timetable.BySubjects(all, codes).Normal, lookup
	}

	personal, err := s.slots.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, wrapInternal(err, "failed to load student timeslots")
	}
	if err := s.addMissingSubjects(ctx, subjects, personal); err != nil {
		return nil, err
	}

	view := &CombinedTimetable{
		Student: &models.StudentSummary{ID: student.ID, Name: student.Name, Standard: student.Standard, Status: student.Status},
	}
	s.fill(view, classSlots, timetable.ForStudent(personal, studentID).OneToOne, subjects)
	_ = s.cache.Set(ctx, key, view, s.ttl)
	return view, nil
}

// ForSubject shows both grids for a single subject.
func (s *TimetableService) ForSubject(ctx context.Context, code string) (*CombinedTimetable, error) {
	code = NormalizeCode(code)
	key := timetableKey("subject", code)
	var cached CombinedTimetable
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		cached.Cached = true
		return &cached, nil
	}

	subject, err := s.subjects.FindByCode(ctx, code)
	if err != nil {
		return nil, notFoundOr(err, "subject "+code+" not found", "failed to load subject")
	}
	all, err := s.slots.ListBySubjects(ctx, []string{code})
	if err != nil {
		return nil, wrapInternal(err, "failed to load timeslots")
	}
	part := timetable.ForSubject(all, code)

	view := &CombinedTimetable{Subject: subject}
	s.fill(view, part.Normal, part.OneToOne, map[string]models.Subject{code: *subject})
	_ = s.cache.Set(ctx, key, view, s.ttl)
	return view, nil
}

// Legend derives abbreviations and colours for the selected subjects.
func (s *TimetableService) Legend(ctx context.Context, codes []string) ([]timetable.LegendEntry, error) {
	codes = dedupe(codes, NormalizeCode)
	key := timetableKey("legend", codes...)
	var cached []timetable.LegendEntry
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	subjects, err := s.subjects.ListByCodes(ctx, codes)
	if err != nil {
		return nil, wrapInternal(err, "failed to load subjects")
	}
	legend := timetable.BuildLegend(subjects)
	_ = s.cache.Set(ctx, key, legend, s.ttl)
	return legend, nil
}

func (s *TimetableService) load(ctx context.Context, codes []string) ([]models.Timeslot, map[string]models.Subject, error) {
	subjects, err := s.subjects.ListByCodes(ctx, codes)
	if err != nil {
		return nil, nil, wrapInternal(err, "failed to load subjects")
	}
	if len(codes) > 0 && len(subjects) == 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "none of the selected subjects exist")
	}
	slots, err := s.slots.ListBySubjects(ctx, codes)
	if err != nil {
		return nil, nil, wrapInternal(err, "failed to load timeslots")
	}
	lookup := make(map[string]models.Subject, len(subjects))
	for _, subject := range subjects {
		lookup[subject.Code] = subject
	}
	return slots, lookup, nil
}

// addMissingSubjects loads subjects referenced by slots that are not in lookup yet.
func (s *TimetableService) addMissingSubjects(ctx context.Context, lookup map[string]models.Subject, slots []models.Timeslot) error {
	var missing []string
	for _, slot := range slots {
		if _, ok := lookup[slot.SubjectCode]; !ok {
			missing = append(missing, slot.SubjectCode)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	extra, err := s.subjects.ListByCodes(ctx, dedupe(missing, NormalizeCode))
	if err != nil {
		return wrapInternal(err, "failed to load subjects")
	}
	for _, subject := range extra {
		lookup[subject.Code] = subject
	}
	return nil
}

func (s *TimetableService) fill(view *CombinedTimetable, normal, oneToOne []models.Timeslot, subjects map[string]models.Subject) {
	view.Fixed = timetable.BuildFixedGrid(normal, subjects, nil)
	view.OneToOne = timetable.BuildDynamicGrid(oneToOne, subjects, nil)
	s.metrics.RecordGridBuild("fixed", view.Fixed.Skipped)
	s.metrics.RecordGridBuild("dynamic", view.OneToOne.Skipped)
	s.logSkipped("fixed", view.Fixed.Skipped)
	s.logSkipped("dynamic", view.OneToOne.Skipped)

	codes := append(fixedCodes(view.Fixed), dynamicCodes(view.OneToOne)...)
	view.Legend = legendFor(subjects, codes)
}

func (s *TimetableService) logSkipped(grid string, skipped int) {
	if skipped > 0 {
		s.logger.Debug("timetable slots skipped", zap.String("grid", grid), zap.Int("skipped", skipped))
	}
}

// legendFor builds legend entries for the subjects that actually appear in a grid.
func legendFor(lookup map[string]models.Subject, codes []string) []timetable.LegendEntry {
	seen := map[string]bool{}
	subjects := make([]models.Subject, 0, len(codes))
	for _, code := range codes {
		subject, ok := lookup[code]
		if !ok || seen[code] {
			continue
		}
		seen[code] = true
		subjects = append(subjects, subject)
	}
	return timetable.BuildLegend(subjects)
}

func fixedCodes(grid timetable.FixedGrid) []string {
	var codes []string
	for _, row := range grid.Cells {
		for _, cell := range row {
			for _, entry := range cell {
				codes = append(codes, entry.SubjectCode)
			}
		}
	}
	sort.Strings(codes)
	return codes
}

func dynamicCodes(grid timetable.DynamicGrid) []string {
	var codes []string
	for _, cols := range grid.Cells {
		for _, cell := range cols {
			for _, entry := range cell {
				codes = append(codes, entry.SubjectCode)
			}
		}
	}
	sort.Strings(codes)
	return codes
}

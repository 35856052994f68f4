package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/tuition-center-api/internal/models"
)

type studentCounter interface {
	CountByStatus(ctx context.Context) ([]models.CountByKey, error)
}

type subjectCounter interface {
	CountByType(ctx context.Context) ([]models.CountByKey, error)
}

type timeslotCounter interface {
	CountByMode(ctx context.Context) ([]models.CountByKey, error)
}

// DashboardService composes the landing page counters.
type DashboardService struct {
	students  studentCounter
	subjects  subjectCounter
	timeslots timeslotCounter
	logger    *zap.Logger
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(students studentCounter, subjects subjectCounter, timeslots timeslotCounter, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{students: students, subjects: subjects, timeslots: timeslots, logger: logger}
}

// Summary returns grouped counts of students, subjects and timeslots.
func (s *DashboardService) Summary(ctx context.Context) (*models.DashboardSummary, error) {
	byStatus, err := s.students.CountByStatus(ctx)
	if err != nil {
		return nil, wrapInternal(err, "failed to count students")
	}
	byType, err := s.subjects.CountByType(ctx)
	if err != nil {
		return nil, wrapInternal(err, "failed to count subjects")
	}
	byMode, err := s.timeslots.CountByMode(ctx)
	if err != nil {
		return nil, wrapInternal(err, "failed to count timeslots")
	}

	summary := &models.DashboardSummary{
		StudentsByStatus:  nonNilCounts(byStatus),
		SubjectsByType:    nonNilCounts(byType),
		TimeslotsByMode:   nonNilCounts(byMode),
		ActiveStudents:    countFor(byStatus, models.StudentStatusActive),
		OneToOneSlotCount: countFor(byMode, models.SlotModeOneToOne),
	}
	return summary, nil
}

func countFor(rows []models.CountByKey, key string) int {
	for _, row := range rows {
		if row.Key == key {
			return row.Count
		}
	}
	return 0
}

func nonNilCounts(rows []models.CountByKey) []models.CountByKey {
	if rows == nil {
		return []models.CountByKey{}
	}
	return rows
}

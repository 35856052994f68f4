package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/tuition-center-api/internal/models"
	appErrors "github.com/noah-isme/tuition-center-api/pkg/errors"
)

func newTimetableFixture() (*TimetableService, *memDB, *fakeCache, *MetricsService) {
	db := newMemDB()
	db.addSubject("MM4", "Matematik", models.ModeNormal)
	db.addSubject("KIM4", "Kimia", models.ModeNormal)
	db.addSubject("FIZ4", "Fizik", models.ModeOneToOne)
	db.addStudent("s1", "Ali", "MM4", "FIZ4")
	db.slots = []models.Timeslot{
		{TimeslotID: "1", SubjectCode: "MM4", Day: "Monday", StartTime: "20:15", EndTime: "21:15", TeacherName: "Lim"},
		{TimeslotID: "2", SubjectCode: "KIM4", Day: "Monday", StartTime: "21:20", EndTime: "22:20", TeacherName: "Tan"},
		{TimeslotID: "3", SubjectCode: "KIM4", Day: "Tuesday", StartTime: "19:00", EndTime: "20:00"},
		{TimeslotID: "4", SubjectCode: "FIZ4", Day: "Saturday", StartTime: "10:00", EndTime: "11:00", StudentID: strPtr("s1"), StudentName: strPtr("Ali")},
		{TimeslotID: "5", SubjectCode: "GONE", Day: "Monday", StartTime: "20:15", EndTime: "21:15"},
	}
	cache := newFakeCache()
	metrics := NewMetricsService()
	svc := NewTimetableService(fakeTimeslotRepo{db}, fakeSubjectRepo{db}, fakeStudentRepo{db},
		NewCacheService(cache, metrics, 0, zap.NewNop(), true), metrics, time.Minute, zap.NewNop())
	return svc, db, cache, metrics
}

func TestParseSubjectCodes(t *testing.T) {
	assert.Nil(t, ParseSubjectCodes(" "))
	assert.Equal(t, []string{"MM4", "KIM4"}, ParseSubjectCodes("mm4, KIM4,,mm4"))
}

func TestTimetableServiceMaster(t *testing.T) {
	svc, _, cache, metrics := newTimetableFixture()

	view, err := svc.Master(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, view.Grid.Cell("Monday", 0), 1)
	assert.Len(t, view.Grid.Cell("Monday", 1), 1)
	assert.Equal(t, 2, view.Grid.Len())
	require.Len(t, view.Legend, 2)
	assert.Equal(t, "KIM", view.Legend[0].Abbreviation)
	assert.Equal(t, "MM", view.Legend[1].Abbreviation)
	// The 19:00 slot and the orphaned subject are left off.
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.gridSkipped.WithLabelValues("fixed")))
	assert.Contains(t, cache.entries, "timetable:master:all")
}

func TestTimetableServiceMasterSelectionAndCache(t *testing.T) {
	svc, db, _, metrics := newTimetableFixture()

	view, err := svc.Master(context.Background(), []string{"kim4"})
	require.NoError(t, err)
	assert.Equal(t, 1, view.Grid.Len())
	assert.False(t, view.Cached)

	db.slots = nil
	cached, err := svc.Master(context.Background(), []string{"KIM4"})
	require.NoError(t, err)
	assert.Equal(t, 1, cached.Grid.Len())
	assert.True(t, cached.Cached)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.gridBuilds.WithLabelValues("fixed")))
}

func TestTimetableServiceMasterUnknownSelection(t *testing.T) {
	svc, _, _, _ := newTimetableFixture()
	_, err := svc.Master(context.Background(), []string{"ZZZ"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestTimetableServiceOneToOne(t *testing.T) {
	svc, _, _, _ := newTimetableFixture()

	view, err := svc.OneToOne(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00–11:00"}, view.Grid.Labels["Saturday"])
	assert.Len(t, view.Grid.Cell("Saturday", "10:00–11:00"), 1)
	assert.Equal(t, []string{"-"}, view.Grid.Labels["Monday"])
	require.Len(t, view.Legend, 1)
	assert.Equal(t, "FIZ4", view.Legend[0].Code)
}

func TestTimetableServiceForStudent(t *testing.T) {
	svc, _, _, _ := newTimetableFixture()

	view, err := svc.ForStudent(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, view.Student)
	assert.Equal(t, "Ali", view.Student.Name)
	assert.Equal(t, 1, view.Fixed.Len())
	assert.Equal(t, "MM4", view.Fixed.Cell("Monday", 0)[0].SubjectCode)
	assert.Equal(t, 1, view.OneToOne.Len())
	assert.Len(t, view.Legend, 2)

	_, err = svc.ForStudent(context.Background(), "ghost")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestTimetableServiceForStudentWithoutSubjects(t *testing.T) {
	svc, db, _, _ := newTimetableFixture()
	db.addStudent("s2", "Siti")

	view, err := svc.ForStudent(context.Background(), "s2")
	require.NoError(t, err)
	assert.Equal(t, 0, view.Fixed.Len())
	assert.Equal(t, 0, view.OneToOne.Len())
	assert.Empty(t, view.Legend)
}

func TestTimetableServiceForSubject(t *testing.T) {
	svc, _, _, _ := newTimetableFixture()

	view, err := svc.ForSubject(context.Background(), "fiz4")
	require.NoError(t, err)
	require.NotNil(t, view.Subject)
	assert.Equal(t, 0, view.Fixed.Len())
	assert.Equal(t, 1, view.OneToOne.Len())

	_, err = svc.ForSubject(context.Background(), "nope")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestTimetableServiceLegend(t *testing.T) {
	svc, _, _, _ := newTimetableFixture()

	legend, err := svc.Legend(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, legend, 3)
	for _, entry := range legend {
		assert.NotEmpty(t, entry.Color)
	}
}

func TestTimetableServiceCacheInvalidatedByMutation(t *testing.T) {
	svc, db, cache, _ := newTimetableFixture()
	_, err := svc.Master(context.Background(), nil)
	require.NoError(t, err)
	require.NotEmpty(t, cache.entries)

	subjects := NewSubjectService(fakeSubjectRepo{db}, NewCacheService(cache, nil, 0, nil, true), nil, nil, nil)
	_, err = subjects.Create(context.Background(), CreateSubjectRequest{Code: "BIO4", Name: "Biologi", Standard: "F4", Type: "NORMAL"})
	require.NoError(t, err)
	assert.Empty(t, cache.entries)
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/tuition-center-api/internal/models"
	appErrors "github.com/noah-isme/tuition-center-api/pkg/errors"
)

func newStudentFixture() (*StudentService, *memDB, *fakeCache) {
	db := newMemDB()
	cache := newFakeCache()
	svc := NewStudentService(fakeStudentRepo{db}, NewCacheService(cache, nil, 0, zap.NewNop(), true), db, nil, zap.NewNop())
	return svc, db, cache
}

func TestNormalizeStatus(t *testing.T) {
	status, ok := NormalizeStatus(" Active ")
	assert.True(t, ok)
	assert.Equal(t, models.StudentStatusActive, status)

	_, ok = NormalizeStatus("graduated")
	assert.False(t, ok)
}

func TestNormalizeDLP(t *testing.T) {
	for raw, want := range map[string]string{"dlp": models.DLPYes, "Non-DLP": models.DLPNo, "non dlp": models.DLPNo, "": models.DLPNo} {
		got, ok := NormalizeDLP(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}
	_, ok := NormalizeDLP("maybe")
	assert.False(t, ok)
}

func TestNormalizeModes(t *testing.T) {
	modes, err := NormalizeModes([]string{"normal", "1 to 1", "NORMAL"})
	require.NoError(t, err)
	assert.Equal(t, []string{models.ModeNormal, models.ModeOneToOne}, []string(modes))

	_, err = NormalizeModes([]string{"group"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestStudentServiceCreateDefaults(t *testing.T) {
	svc, db, _ := newStudentFixture()
	student, err := svc.Create(context.Background(), CreateStudentRequest{Name: " Ali ", Standard: "f4", DLP: "dlp", Modes: []string{"1to1"}})
	require.NoError(t, err)
	assert.NotEmpty(t, student.ID)
	assert.Equal(t, "Ali", student.Name)
	assert.Equal(t, "F4", student.Standard)
	assert.Equal(t, models.StudentStatusPending, student.Status)
	assert.Equal(t, models.DLPYes, student.DLP)
	assert.Equal(t, []string{models.ModeOneToOne}, []string(student.Modes))
	assert.Contains(t, db.students, student.ID)
}

func TestStudentServiceCreateValidation(t *testing.T) {
	svc, _, _ := newStudentFixture()
	_, err := svc.Create(context.Background(), CreateStudentRequest{Standard: "F4"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))

	_, err = svc.Create(context.Background(), CreateStudentRequest{Name: "Ali", Standard: "F4", Status: "graduated"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestStudentServiceUpdatePartial(t *testing.T) {
	svc, db, cache := newStudentFixture()
	db.addStudent("s1", "Ali", "MM4")

	status := "TRIAL"
	phone := "012-3456789"
	student, err := svc.Update(context.Background(), "s1", UpdateStudentRequest{Status: &status, ParentPhone: &phone})
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusTrial, student.Status)
	assert.Equal(t, "012-3456789", student.ParentPhone)
	assert.Equal(t, "Ali", student.Name)
	assert.Equal(t, []string{"MM4"}, []string(student.Subjects))
	assert.NotEmpty(t, cache.invalidated)

	_, err = svc.Update(context.Background(), "ghost", UpdateStudentRequest{Status: &status})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestStudentServiceRemoveIsSoft(t *testing.T) {
	svc, db, _ := newStudentFixture()
	db.addStudent("s1", "Ali")
	db.addStudent("s2", "Siti")

	require.NoError(t, svc.Remove(context.Background(), "s1", "actor", models.RequestMeta{}))
	assert.Equal(t, models.StudentStatusRemoved, db.students["s1"].Status)
	require.Len(t, db.audits, 1)
	assert.Equal(t, models.AuditActionStudentRemove, db.audits[0].Action)

	students, pagination, err := svc.List(context.Background(), models.StudentFilter{})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "s2", students[0].ID)
	assert.Equal(t, 1, pagination.TotalCount)

	removed, _, err := svc.List(context.Background(), models.StudentFilter{Status: "Removed"})
	require.NoError(t, err)
	assert.Len(t, removed, 1)

	err = svc.Remove(context.Background(), "ghost", "actor", models.RequestMeta{})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestStudentServiceListRejectsUnknownStatus(t *testing.T) {
	svc, _, _ := newStudentFixture()
	_, _, err := svc.List(context.Background(), models.StudentFilter{Status: "graduated"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

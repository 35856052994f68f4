package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tuition-center-api/internal/models"
	appErrors "github.com/noah-isme/tuition-center-api/pkg/errors"
)

func TestSubjectRepositoryList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"code", "name", "standard", "type", "subject", "created_at", "updated_at", "enrolled_count"}).
		AddRow("MMF4", "Matematik F4", "F4", models.ModeNormal, "Matematik", now, now, 3)
	mock.ExpectQuery(`SELECT s.code, .* enrolled_count FROM subjects s WHERE 1=1 AND s.type = \$1 ORDER BY s.code ASC LIMIT 20 OFFSET 0`).
		WithArgs(models.ModeNormal).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM subjects s WHERE 1=1 AND s.type = $1")).
		WithArgs(models.ModeNormal).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	subjects, total, err := repo.List(context.Background(), models.SubjectFilter{Type: models.ModeNormal})
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.Equal(t, 3, subjects[0].EnrolledCount)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	mock.ExpectExec("INSERT INTO subjects").WillReturnError(&pq.Error{Code: pqUniqueViolation})

	err := repo.Create(context.Background(), &models.Subject{Code: "MMF4", Name: "Matematik"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict))
	assert.Contains(t, appErrors.FromError(err).Message, "MMF4")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryUpdateMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	mock.ExpectExec("UPDATE subjects SET").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Subject{Code: "NOPE"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryCountEnrolled(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM student_subjects WHERE subject_code = $1")).
		WithArgs("MMF4").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountEnrolled(context.Background(), "MMF4")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryListByCodes(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM subjects WHERE code = ANY($1) ORDER BY code")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"code", "name", "standard", "type", "subject", "created_at", "updated_at"}).
			AddRow("KIMF4", "Kimia F4", "F4", models.ModeNormal, "Kimia", now, now))

	subjects, err := repo.ListByCodes(context.Background(), []string{"KIMF4"})
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.Equal(t, "Kimia", subjects[0].Subject)
	assert.NoError(t, mock.ExpectationsWereMet())
}

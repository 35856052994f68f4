package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tuition-center-api/internal/models"
)

var studentRowColumns = []string{"id", "name", "school", "standard", "parent_name", "parent_phone", "status", "dlp", "modes", "subjects", "created_at", "updated_at"}

func TestStudentRepositoryListHidesRemoved(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(studentRowColumns).
		AddRow("s1", "Ali", "SMK Damai", "F4", "Abu", "0123", "active", "DLP", "{NORMAL,\"1 TO 1\"}", "{KIMF4,MMF4}", now, now)
	mock.ExpectQuery(`FROM students s WHERE 1=1 AND s.status <> 'removed' AND \$1 = ANY\(s.modes\) ORDER BY s.name ASC LIMIT 20 OFFSET 0`).
		WithArgs(models.ModeOneToOne).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students s WHERE 1=1 AND s.status <> 'removed' AND $1 = ANY(s.modes)")).
		WithArgs(models.ModeOneToOne).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{Mode: models.ModeOneToOne})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, []string{"NORMAL", "1 TO 1"}, []string(students[0].Modes))
	assert.Equal(t, []string{"KIMF4", "MMF4"}, []string(students[0].Subjects))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListAvailable(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(`SELECT s.id, s.name, s.standard, s.status FROM students s WHERE s.status <> 'removed' AND NOT EXISTS .* AND LOWER\(s.name\) LIKE \$2 ORDER BY s.name LIMIT 20 OFFSET 0`).
		WithArgs("MMF4", "%al%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "standard", "status"}).AddRow("s1", "Ali", "F4", "active"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM students s WHERE`).
		WithArgs("MMF4", "%al%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.ListAvailable(context.Background(), models.AvailableStudentFilter{SubjectCode: "MMF4", Search: "Al"})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateDefaultsModes(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{Name: "Mei", Status: models.StudentStatusTrial, DLP: models.DLPNo}
	require.NoError(t, repo.Create(context.Background(), student))
	assert.NotEmpty(t, student.ID)
	assert.NotNil(t, student.Modes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET status = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("s1", models.StudentStatusRemoved, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "s1", models.StudentStatusRemoved))
	assert.NoError(t, mock.ExpectationsWereMet())
}

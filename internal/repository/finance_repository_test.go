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

func TestFinanceRepositoryListByMonth(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFinanceRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "type", "category", "amount", "student_id", "description", "recorded_on", "created_by", "created_at"}).
		AddRow("f1", models.FinanceIncome, "fees", 150.0, "s1", "October fees", now, nil, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM finance_records WHERE 1=1 AND type = $1 AND to_char(recorded_on, 'YYYY-MM') = $2 ORDER BY recorded_on DESC")).
		WithArgs(models.FinanceIncome, "2026-10").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM finance_records")).
		WithArgs(models.FinanceIncome, "2026-10").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	records, total, err := repo.List(context.Background(), models.FinanceFilter{Type: models.FinanceIncome, Month: "2026-10"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 150.0, records[0].Amount)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinanceRepositorySummary(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFinanceRepository(db)

	mock.ExpectQuery("SUM\\(amount\\) FILTER").
		WithArgs("2026-10").
		WillReturnRows(sqlmock.NewRows([]string{"month", "income", "expense", "net"}).AddRow("2026-10", 500.0, 120.0, 380.0))

	summary, err := repo.Summary(context.Background(), "2026-10")
	require.NoError(t, err)
	assert.Equal(t, 380.0, summary.Net)
	assert.NoError(t, mock.ExpectationsWereMet())
}

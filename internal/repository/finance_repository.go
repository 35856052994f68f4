package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tuition-center-api/internal/models"
)

const financeColumns = "id, type, category, amount, student_id, description, recorded_on, created_by, created_at"

// FinanceRepository persists income and expense records.
type FinanceRepository struct {
	db *sqlx.DB
}

// NewFinanceRepository creates a finance repository.
func NewFinanceRepository(db *sqlx.DB) *FinanceRepository {
	return &FinanceRepository{db: db}
}

func financeConditions(filter models.FinanceFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if filter.Month != "" {
		conditions = append(conditions, fmt.Sprintf("to_char(recorded_on, 'YYYY-MM') = $%d", len(args)+1))
		args = append(args, filter.Month)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	base := "FROM finance_records WHERE 1=1"
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}
	return base, args
}

// List returns finance records newest first.
func (r *FinanceRepository) List(ctx context.Context, filter models.FinanceFilter) ([]models.FinanceRecord, int, error) {
	base, args := financeConditions(filter)
	limit, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY recorded_on DESC, created_at DESC LIMIT %d OFFSET %d", financeColumns, base, limit, offset)
	var records []models.FinanceRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list finance records: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count finance records: %w", err)
	}
	return records, total, nil
}

// ListAll returns every record matching filter without pagination, for exports.
func (r *FinanceRepository) ListAll(ctx context.Context, filter models.FinanceFilter) ([]models.FinanceRecord, error) {
	base, args := financeConditions(filter)
	query := fmt.Sprintf("SELECT %s %s ORDER BY recorded_on, created_at", financeColumns, base)
	var records []models.FinanceRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("export finance records: %w", err)
	}
	return records, nil
}

// Create inserts a finance record.
func (r *FinanceRepository) Create(ctx context.Context, record *models.FinanceRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO finance_records (id, type, category, amount, student_id, description, recorded_on, created_by, created_at) VALUES (:id, :type, :category, :amount, :student_id, :description, :recorded_on, :created_by, :created_at)`
	_, err := r.db.NamedExecContext(ctx, query, record)
	return translate(err, "create finance record", "finance record references an unknown student")
}

// Delete removes a finance record.
func (r *FinanceRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM finance_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete finance record: %w", err)
	}
	return expectAffected(res, "delete finance record")
}

// Summary totals income and expense for a YYYY-MM month.
func (r *FinanceRepository) Summary(ctx context.Context, month string) (*models.FinanceSummary, error) {
	const query = `SELECT $1 AS month,
		COALESCE(SUM(amount) FILTER (WHERE type = 'income'), 0) AS income,
		COALESCE(SUM(amount) FILTER (WHERE type = 'expense'), 0) AS expense,
		COALESCE(SUM(CASE WHEN type = 'income' THEN amount ELSE -amount END), 0) AS net
		FROM finance_records WHERE to_char(recorded_on, 'YYYY-MM') = $1`
	var summary models.FinanceSummary
	if err := r.db.GetContext(ctx, &summary, query, month); err != nil {
		return nil, fmt.Errorf("finance summary: %w", err)
	}
	return &summary, nil
}

package models

import "time"

// Finance record types.
const (
	FinanceIncome  = "income"
	FinanceExpense = "expense"
)

// FinanceRecord is a single income or expense entry, optionally tied to a student.
type FinanceRecord struct {
	ID          string    `db:"id" json:"id"`
	Type        string    `db:"type" json:"type"`
	Category    string    `db:"category" json:"category"`
	Amount      float64   `db:"amount" json:"amount"`
	StudentID   *string   `db:"student_id" json:"studentId,omitempty"`
	Description string    `db:"description" json:"description"`
	RecordedOn  time.Time `db:"recorded_on" json:"recordedOn"`
	CreatedBy   *string   `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// FinanceFilter narrows finance record listings. Month is YYYY-MM.
type FinanceFilter struct {
	Type      string
	Month     string
	StudentID string
	Page      int
	PageSize  int
}

// FinanceSummary aggregates a month's records.
type FinanceSummary struct {
	Month   string  `db:"month" json:"month"`
	Income  float64 `db:"income" json:"income"`
	Expense float64 `db:"expense" json:"expense"`
	Net     float64 `db:"net" json:"net"`
}

package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/tuition-center-api/internal/models"
	"github.com/noah-isme/tuition-center-api/pkg/database"
)

const timeslotColumns = "timeslot_id, subject_code, day, start_time, end_time, teacher_name, student_id, student_name"

// TimeslotRepository persists weekly timeslots.
type TimeslotRepository struct {
	db *sqlx.DB
}

// NewTimeslotRepository creates a timeslot repository.
func NewTimeslotRepository(db *sqlx.DB) *TimeslotRepository {
	return &TimeslotRepository{db: db}
}

// ListBySubject returns all slots of a subject.
func (r *TimeslotRepository) ListBySubject(ctx context.Context, code string) ([]models.Timeslot, error) {
	query := `SELECT ` + timeslotColumns + ` FROM timeslots WHERE subject_code = $1 ORDER BY day, start_time, timeslot_id`
	var slots []models.Timeslot
	if err := r.db.SelectContext(ctx, &slots, query, code); err != nil {
		return nil, fmt.Errorf("list timeslots by subject: %w", err)
	}
	return slots, nil
}

// ListBySubjects returns slots for the given subjects, or every slot when codes is empty.
func (r *TimeslotRepository) ListBySubjects(ctx context.Context, codes []string) ([]models.Timeslot, error) {
	query := `SELECT ` + timeslotColumns + ` FROM timeslots`
	var args []interface{}
	if len(codes) > 0 {
		query += ` WHERE subject_code = ANY($1)`
		args = append(args, pq.Array(codes))
	}
	query += ` ORDER BY subject_code, start_time, timeslot_id`

	var slots []models.Timeslot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("list timeslots: %w", err)
	}
	return slots, nil
}

// ListByStudent returns the one-to-one slots attached to a student.
func (r *TimeslotRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Timeslot, error) {
	query := `SELECT ` + timeslotColumns + ` FROM timeslots WHERE student_id = $1 ORDER BY day, start_time`
	var slots []models.Timeslot
	if err := r.db.SelectContext(ctx, &slots, query, studentID); err != nil {
		return nil, fmt.Errorf("list timeslots by student: %w", err)
	}
	return slots, nil
}

// ReplaceForSubject swaps the slots of one mode for a subject inside a single
// transaction. Slots of the other mode are left untouched.
func (r *TimeslotRepository) ReplaceForSubject(ctx context.Context, code, mode string, slots []models.Timeslot) error {
	del := `DELETE FROM timeslots WHERE subject_code = $1 AND student_id IS NULL`
	if mode == models.SlotModeOneToOne {
		del = `DELETE FROM timeslots WHERE subject_code = $1 AND student_id IS NOT NULL`
	}
	const insert = `INSERT INTO timeslots (timeslot_id, subject_code, day, start_time, end_time, teacher_name, student_id, student_name) VALUES (:timeslot_id, :subject_code, :day, :start_time, :end_time, :teacher_name, :student_id, :student_name)`

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, del, code); err != nil {
			return fmt.Errorf("clear timeslots: %w", err)
		}
		for i := range slots {
			slot := &slots[i]
			if slot.TimeslotID == "" {
				slot.TimeslotID = uuid.NewString()
			}
			slot.SubjectCode = code
			if _, err := tx.NamedExecContext(ctx, insert, slot); err != nil {
				return translate(err, "insert timeslot", fmt.Sprintf("timeslot %s conflicts with an existing record", slot.TimeslotID))
			}
		}
		return nil
	})
}

// Delete removes one slot of a subject.
func (r *TimeslotRepository) Delete(ctx context.Context, code, timeslotID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM timeslots WHERE subject_code = $1 AND timeslot_id = $2`, code, timeslotID)
	if err != nil {
		return fmt.Errorf("delete timeslot: %w", err)
	}
	return expectAffected(res, "delete timeslot")
}

// CountByMode groups slots into normal and oneToOne.
func (r *TimeslotRepository) CountByMode(ctx context.Context) ([]models.CountByKey, error) {
	const query = `SELECT CASE WHEN student_id IS NULL THEN 'normal' ELSE 'oneToOne' END AS key, COUNT(*) AS count FROM timeslots GROUP BY 1 ORDER BY 1`
	var rows []models.CountByKey
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count timeslots by mode: %w", err)
	}
	return rows, nil
}

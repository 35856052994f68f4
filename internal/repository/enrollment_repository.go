package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/tuition-center-api/pkg/database"
)

// EnrollmentRepository manages the student_subjects join table.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository creates a new repository instance.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ListSubjectCodes returns the subject codes a student is enrolled in.
func (r *EnrollmentRepository) ListSubjectCodes(ctx context.Context, studentID string) ([]string, error) {
	var codes []string
	if err := r.db.SelectContext(ctx, &codes, `SELECT subject_code FROM student_subjects WHERE student_id = $1 ORDER BY subject_code`, studentID); err != nil {
		return nil, fmt.Errorf("list student subjects: %w", err)
	}
	return codes, nil
}

// EnrolledAmong returns which of studentIDs are enrolled in the subject.
func (r *EnrollmentRepository) EnrolledAmong(ctx context.Context, code string, studentIDs []string) ([]string, error) {
	if len(studentIDs) == 0 {
		return []string{}, nil
	}
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT student_id FROM student_subjects WHERE subject_code = $1 AND student_id = ANY($2)`, code, pq.Array(studentIDs)); err != nil {
		return nil, fmt.Errorf("check enrollment: %w", err)
	}
	return ids, nil
}

// Enroll links students to a subject, ignoring existing links. It returns
// the number of new links.
func (r *EnrollmentRepository) Enroll(ctx context.Context, code string, studentIDs []string) (int, error) {
	const query = `INSERT INTO student_subjects (student_id, subject_code) SELECT unnest($1::text[]), $2 ON CONFLICT (student_id, subject_code) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, pq.Array(studentIDs), code)
	if err != nil {
		return 0, translate(err, "enroll students", fmt.Sprintf("cannot enroll students in %s", code))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("enroll students rows affected: %w", err)
	}
	return int(n), nil
}

// Unenroll removes a student from a subject together with that student's
// one-to-one slots for the subject.
func (r *EnrollmentRepository) Unenroll(ctx context.Context, code, studentID string) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM student_subjects WHERE subject_code = $1 AND student_id = $2`, code, studentID)
		if err != nil {
			return fmt.Errorf("unenroll student: %w", err)
		}
		if err := expectAffected(res, "unenroll student"); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM timeslots WHERE subject_code = $1 AND student_id = $2`, code, studentID); err != nil {
			return fmt.Errorf("remove one-to-one slots: %w", err)
		}
		return nil
	})
}

// Apply adds and removes subject links for a student in one transaction.
// One-to-one slots of removed subjects are dropped with the links.
func (r *EnrollmentRepository) Apply(ctx context.Context, studentID string, add, remove []string) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if len(remove) > 0 {
			if _, err := tx.ExecContext(ctx, `DELETE FROM student_subjects WHERE student_id = $1 AND subject_code = ANY($2)`, studentID, pq.Array(remove)); err != nil {
				return fmt.Errorf("remove subjects: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM timeslots WHERE student_id = $1 AND subject_code = ANY($2)`, studentID, pq.Array(remove)); err != nil {
				return fmt.Errorf("remove one-to-one slots: %w", err)
			}
		}
		if len(add) > 0 {
			const insert = `INSERT INTO student_subjects (student_id, subject_code) SELECT $1, unnest($2::text[]) ON CONFLICT (student_id, subject_code) DO NOTHING`
			if _, err := tx.ExecContext(ctx, insert, studentID, pq.Array(add)); err != nil {
				return translate(err, "add subjects", "one or more subjects do not exist")
			}
		}
		return nil
	})
}

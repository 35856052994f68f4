package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/tuition-center-api/internal/models"
)

const subjectColumns = "code, name, standard, type, subject, created_at, updated_at"

// SubjectRepository handles persistence for subjects.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new repository instance.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// List returns subjects with their enrolled counts.
func (r *SubjectRepository) List(ctx context.Context, filter models.SubjectFilter) ([]models.SubjectSummary, int, error) {
	base := "FROM subjects s WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("s.type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if filter.Standard != "" {
		conditions = append(conditions, fmt.Sprintf("UPPER(s.standard) = UPPER($%d)", len(args)+1))
		args = append(args, filter.Standard)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.code) LIKE $%d OR LOWER(s.name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"code":       true,
		"name":       true,
		"standard":   true,
		"type":       true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "code"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	limit, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT s.code, s.name, s.standard, s.type, s.subject, s.created_at, s.updated_at, (SELECT COUNT(*) FROM student_subjects ss WHERE ss.subject_code = s.code) AS enrolled_count %s ORDER BY s.%s %s LIMIT %d OFFSET %d`, base, sortBy, order, limit, offset)
	var subjects []models.SubjectSummary
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list subjects: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count subjects: %w", err)
	}
	return subjects, total, nil
}

// FindByCode returns a subject by its code.
func (r *SubjectRepository) FindByCode(ctx context.Context, code string) (*models.Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE code = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, code); err != nil {
		return nil, err
	}
	return &subject, nil
}

// ListByCodes returns the subjects with the given codes, or every subject when codes is empty.
func (r *SubjectRepository) ListByCodes(ctx context.Context, codes []string) ([]models.Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects`
	var args []interface{}
	if len(codes) > 0 {
		query += ` WHERE code = ANY($1)`
		args = append(args, pq.Array(codes))
	}
	query += ` ORDER BY code`

	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, fmt.Errorf("list subjects by code: %w", err)
	}
	return subjects, nil
}

// Create persists a new subject. A duplicate code yields a conflict error naming it.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	now := time.Now().UTC()
	subject.CreatedAt = now
	subject.UpdatedAt = now

	const query = `INSERT INTO subjects (code, name, standard, type, subject, created_at, updated_at) VALUES (:code, :name, :standard, :type, :subject, :created_at, :updated_at)`
	_, err := r.db.NamedExecContext(ctx, query, subject)
	return translate(err, "create subject", fmt.Sprintf("subject with code %s already exists", subject.Code))
}

// Update modifies the mutable fields of a subject.
func (r *SubjectRepository) Update(ctx context.Context, subject *models.Subject) error {
	subject.UpdatedAt = time.Now().UTC()
	const query = `UPDATE subjects SET name = :name, standard = :standard, type = :type, subject = :subject, updated_at = :updated_at WHERE code = :code`
	res, err := r.db.NamedExecContext(ctx, query, subject)
	if err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	return expectAffected(res, "update subject")
}

// Delete removes a subject and its timeslots.
func (r *SubjectRepository) Delete(ctx context.Context, code string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subjects WHERE code = $1`, code)
	if err != nil {
		return translate(err, "delete subject", fmt.Sprintf("subject %s is still referenced", code))
	}
	return expectAffected(res, "delete subject")
}

// CountEnrolled returns how many students are enrolled in the subject.
func (r *SubjectRepository) CountEnrolled(ctx context.Context, code string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM student_subjects WHERE subject_code = $1`, code); err != nil {
		return 0, fmt.Errorf("count enrolled students: %w", err)
	}
	return count, nil
}

// ListEnrolledStudents returns the students linked to a subject.
func (r *SubjectRepository) ListEnrolledStudents(ctx context.Context, code string) ([]models.StudentSummary, error) {
	const query = `SELECT st.id, st.name, st.standard, st.status FROM student_subjects ss JOIN students st ON st.id = ss.student_id WHERE ss.subject_code = $1 ORDER BY st.name`
	var students []models.StudentSummary
	if err := r.db.SelectContext(ctx, &students, query, code); err != nil {
		return nil, fmt.Errorf("list enrolled students: %w", err)
	}
	return students, nil
}

// CountByType groups subjects by type.
func (r *SubjectRepository) CountByType(ctx context.Context) ([]models.CountByKey, error) {
	var rows []models.CountByKey
	if err := r.db.SelectContext(ctx, &rows, `SELECT type AS key, COUNT(*) AS count FROM subjects GROUP BY type ORDER BY type`); err != nil {
		return nil, fmt.Errorf("count subjects by type: %w", err)
	}
	return rows, nil
}

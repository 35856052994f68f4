package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/tuition-center-api/internal/models"
)

const studentSelect = `SELECT s.id, s.name, s.school, s.standard, s.parent_name, s.parent_phone, s.status, s.dlp, s.modes,
	COALESCE(ARRAY(SELECT ss.subject_code FROM student_subjects ss WHERE ss.student_id = s.id ORDER BY ss.subject_code), '{}') AS subjects,
	s.created_at, s.updated_at`

// StudentRepository handles persistence for students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students and the total count. Removed students are hidden
// unless the status filter asks for them.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	base := "FROM students s WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("s.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	} else {
		conditions = append(conditions, fmt.Sprintf("s.status <> '%s'", models.StudentStatusRemoved))
	}
	if filter.Mode != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(s.modes)", len(args)+1))
		args = append(args, filter.Mode)
	}
	if filter.Subject != "" {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM student_subjects x WHERE x.student_id = s.id AND x.subject_code = $%d)", len(args)+1))
		args = append(args, filter.Subject)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.name) LIKE $%d OR LOWER(s.school) LIKE $%d OR LOWER(s.parent_name) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	base += " AND " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]bool{
		"name":       true,
		"standard":   true,
		"status":     true,
		"created_at": true,
	}
	sortBy := filter.SortBy
	if !allowedSorts[sortBy] {
		sortBy = "name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	limit, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s %s ORDER BY s.%s %s LIMIT %d OFFSET %d", studentSelect, base, sortBy, order, limit, offset)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID returns a student with their enrolled subject codes.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	var student models.Student
	if err := r.db.GetContext(ctx, &student, studentSelect+` FROM students s WHERE s.id = $1`, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByIDs returns the students among ids that exist and are not removed.
func (r *StudentRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Student, error) {
	if len(ids) == 0 {
		return []models.Student{}, nil
	}
	query := studentSelect + ` FROM students s WHERE s.id = ANY($1) AND s.status <> 'removed' ORDER BY s.name`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find students by ids: %w", err)
	}
	return students, nil
}

// ListAvailable returns students not yet enrolled in a subject.
func (r *StudentRepository) ListAvailable(ctx context.Context, filter models.AvailableStudentFilter) ([]models.StudentSummary, int, error) {
	base := `FROM students s WHERE s.status <> 'removed' AND NOT EXISTS (SELECT 1 FROM student_subjects ss WHERE ss.student_id = s.id AND ss.subject_code = $1)`
	args := []interface{}{filter.SubjectCode}
	if filter.Search != "" {
		base += " AND LOWER(s.name) LIKE $2"
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	limit, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT s.id, s.name, s.standard, s.status %s ORDER BY s.name LIMIT %d OFFSET %d", base, limit, offset)
	var students []models.StudentSummary
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list available students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count available students: %w", err)
	}
	return students, total, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	if student.Modes == nil {
		student.Modes = pq.StringArray{}
	}

	const query = `INSERT INTO students (id, name, school, standard, parent_name, parent_phone, status, dlp, modes, created_at, updated_at) VALUES (:id, :name, :school, :standard, :parent_name, :parent_phone, :status, :dlp, :modes, :created_at, :updated_at)`
	_, err := r.db.NamedExecContext(ctx, query, student)
	return translate(err, "create student", "student already exists")
}

// Update modifies a student profile.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET name = :name, school = :school, standard = :standard, parent_name = :parent_name, parent_phone = :parent_phone, status = :status, dlp = :dlp, modes = :modes, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return expectAffected(res, "update student")
}

// UpdateStatus sets the status of a student, used for soft removal.
func (r *StudentRepository) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE students SET status = $2, updated_at = $3 WHERE id = $1`, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update student status: %w", err)
	}
	return expectAffected(res, "update student status")
}

// CountByStatus groups students by status.
func (r *StudentRepository) CountByStatus(ctx context.Context) ([]models.CountByKey, error) {
	var rows []models.CountByKey
	if err := r.db.SelectContext(ctx, &rows, `SELECT status AS key, COUNT(*) AS count FROM students GROUP BY status ORDER BY status`); err != nil {
		return nil, fmt.Errorf("count students by status: %w", err)
	}
	return rows, nil
}

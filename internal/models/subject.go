package models

import "time"

// Study modes shared by subjects, students and timeslot payloads.
const (
	ModeNormal   = "NORMAL"
	ModeOneToOne = "1 TO 1"
)

// Subject represents a class offered by the center. Code is immutable once created.
type Subject struct {
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	Standard  string    `db:"standard" json:"standard"`
	Type      string    `db:"type" json:"type"`
	Subject   string    `db:"subject" json:"subject"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// IsOneToOne reports whether the subject is taught per student.
func (s Subject) IsOneToOne() bool {
	return s.Type == ModeOneToOne
}

// SubjectSummary is a list row with its enrollment count.
type SubjectSummary struct {
	Subject
	EnrolledCount int `db:"enrolled_count" json:"enrolledCount"`
}

// SubjectDetail bundles a subject with the students enrolled in it.
type SubjectDetail struct {
	Subject
	EnrolledCount int              `json:"enrolledCount"`
	Students      []StudentSummary `json:"students"`
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	Type      string
	Standard  string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

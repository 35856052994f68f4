package models

import (
	"time"

	"github.com/lib/pq"
)

// StudentStatus values; removed is a soft delete.
const (
	StudentStatusActive   = "active"
	StudentStatusPending  = "pending"
	StudentStatusTrial    = "trial"
	StudentStatusInactive = "inactive"
	StudentStatusRemoved  = "removed"
)

// DLP markers stored in canonical upper case.
const (
	DLPYes = "DLP"
	DLPNo  = "NON-DLP"
)

// Student represents a learner registered at the center.
type Student struct {
	ID          string         `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	School      string         `db:"school" json:"school"`
	Standard    string         `db:"standard" json:"standard"`
	ParentName  string         `db:"parent_name" json:"parentName"`
	ParentPhone string         `db:"parent_phone" json:"parentPhone"`
	Status      string         `db:"status" json:"status"`
	DLP         string         `db:"dlp" json:"dlp"`
	Modes       pq.StringArray `db:"modes" json:"modes"`
	Subjects    pq.StringArray `db:"subjects" json:"subjects"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updatedAt"`
}

// StudentSummary is the compact form used in subject detail and search views.
type StudentSummary struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Standard string `db:"standard" json:"standard"`
	Status   string `db:"status" json:"status"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Status    string
	Mode      string
	Subject   string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// AvailableStudentFilter narrows the enrollable-students search for a subject.
type AvailableStudentFilter struct {
	SubjectCode string
	Search      string
	Page        int
	PageSize    int
}

package models

// CountByKey is a generic grouped count row.
type CountByKey struct {
	Key   string `db:"key" json:"key"`
	Count int    `db:"count" json:"count"`
}

// DashboardSummary backs the landing page counters.
type DashboardSummary struct {
	StudentsByStatus  []CountByKey `json:"studentsByStatus"`
	SubjectsByType    []CountByKey `json:"subjectsByType"`
	TimeslotsByMode   []CountByKey `json:"timeslotsByMode"`
	ActiveStudents    int          `json:"activeStudents"`
	OneToOneSlotCount int          `json:"oneToOneSlotCount"`
}

package models

// Slot modes accepted by the schedule replace endpoint.
const (
	SlotModeNormal   = "normal"
	SlotModeOneToOne = "oneToOne"
)

// Timeslot is one weekly session of a subject. Classroom slots carry no
// student; one-to-one slots carry both StudentID and StudentName.
type Timeslot struct {
	TimeslotID  string  `db:"timeslot_id" json:"timeslotId"`
	SubjectCode string  `db:"subject_code" json:"subjectCode"`
	Day         string  `db:"day" json:"day"`
	StartTime   string  `db:"start_time" json:"startTime"`
	EndTime     string  `db:"end_time" json:"endTime"`
	TeacherName string  `db:"teacher_name" json:"teacherName"`
	StudentID   *string `db:"student_id" json:"studentId"`
	StudentName *string `db:"student_name" json:"studentName"`
}

// IsOneToOne reports whether the slot belongs to a single student.
func (t Timeslot) IsOneToOne() bool {
	return t.StudentID != nil
}

// Mode returns the slot mode as used by the replace payload.
func (t Timeslot) Mode() string {
	if t.IsOneToOne() {
		return SlotModeOneToOne
	}
	return SlotModeNormal
}

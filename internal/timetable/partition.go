package timetable

import "github.com/noah-isme/tuition-center-api/internal/models"

// Partition splits slots into classroom and one-to-one groups.
type Partition struct {
	Normal   []models.Timeslot `json:"normal"`
	OneToOne []models.Timeslot `json:"oneToOne"`
}

// Split partitions slots by whether a student is attached. The input is not modified.
func Split(slots []models.Timeslot) Partition {
	return filter(slots, func(models.Timeslot) bool { return true })
}

// ForSubject keeps the slots of one subject.
func ForSubject(slots []models.Timeslot, code string) Partition {
	return filter(slots, func(s models.Timeslot) bool { return s.SubjectCode == code })
}

// ForStudent keeps the one-to-one slots attached to a student.
func ForStudent(slots []models.Timeslot, studentID string) Partition {
	return filter(slots, func(s models.Timeslot) bool {
		return s.StudentID != nil && *s.StudentID == studentID
	})
}

// BySubjects concatenates ForSubject for every code in order. Repeated codes
// produce repeated rows.
func BySubjects(slots []models.Timeslot, codes []string) Partition {
	out := Partition{Normal: []models.Timeslot{}, OneToOne: []models.Timeslot{}}
	for _, code := range codes {
		p := ForSubject(slots, code)
		out.Normal = append(out.Normal, p.Normal...)
		out.OneToOne = append(out.OneToOne, p.OneToOne...)
	}
	return out
}

func filter(slots []models.Timeslot, keep func(models.Timeslot) bool) Partition {
	p := Partition{Normal: []models.Timeslot{}, OneToOne: []models.Timeslot{}}
	for _, s := range slots {
		if !keep(s) {
			continue
		}
		if s.IsOneToOne() {
			p.OneToOne = append(p.OneToOne, s)
		} else {
			p.Normal = append(p.Normal, s)
		}
	}
	return p
}

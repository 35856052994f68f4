package timetable

import (
	"sort"
	"strings"

	"github.com/noah-isme/tuition-center-api/internal/models"
)

// PlaceholderLabel is the single column rendered for a day without one-to-one slots.
const PlaceholderLabel = "-"

// Entry is one subject occurrence inside a grid cell.
type Entry struct {
	SubjectCode  string `json:"subjectCode"`
	Subject      string `json:"subject"`
	TeacherName  string `json:"teacherName"`
	StudentID    string `json:"studentId,omitempty"`
	StudentName  string `json:"studentName,omitempty"`
	StartTime    string `json:"startTime"`
	EndTime      string `json:"endTime"`
	Abbreviation string `json:"abbreviation"`
	Color        string `json:"color"`
}

// FixedGrid is the classroom view: weekday by night window.
type FixedGrid struct {
	Days    []string             `json:"days"`
	Windows []Window             `json:"windows"`
	Cells   map[string][][]Entry `json:"cells"`
	// Skipped counts slots that were orphaned, unmatched or on an unknown day.
	Skipped int `json:"-"`
}

// Cell returns the entries for a day and window index.
func (g FixedGrid) Cell(day string, window int) []Entry {
	row, ok := g.Cells[day]
	if !ok || window < 0 || window >= len(row) {
		return nil
	}
	return row[window]
}

// Len counts all placed entries.
func (g FixedGrid) Len() int {
	n := 0
	for _, row := range g.Cells {
		for _, cell := range row {
			n += len(cell)
		}
	}
	return n
}

// DynamicGrid is the one-to-one view: weekday by time range label.
type DynamicGrid struct {
	Days   []string                      `json:"days"`
	Labels map[string][]string           `json:"labels"`
	Cells  map[string]map[string][]Entry `json:"cells"`
	// Skipped counts orphaned slots and slots on an unknown day.
	Skipped int `json:"-"`
}

// Cell returns the entries for a day and range label.
func (g DynamicGrid) Cell(day, label string) []Entry {
	return g.Cells[day][label]
}

// Len counts all placed entries.
func (g DynamicGrid) Len() int {
	n := 0
	for _, cols := range g.Cells {
		for _, cell := range cols {
			n += len(cell)
		}
	}
	return n
}

// BuildFixedGrid places classroom slots of the selected subjects into the
// night windows. An empty selection keeps every subject. Slots whose subject
// is missing from subjects, whose window does not match exactly, or whose day
// is unknown are skipped. Cells keep input order.
func BuildFixedGrid(slots []models.Timeslot, subjects map[string]models.Subject, selected []string) FixedGrid {
	grid := FixedGrid{
		Days:    append([]string(nil), Weekdays...),
		Windows: append([]Window(nil), NightWindows[:]...),
		Cells:   make(map[string][][]Entry, len(Weekdays)),
	}
	for _, day := range Weekdays {
		row := make([][]Entry, len(NightWindows))
		for i := range row {
			row[i] = []Entry{}
		}
		grid.Cells[day] = row
	}

	keep := selection(selected)
	for _, slot := range slots {
		if slot.IsOneToOne() || !keep(slot.SubjectCode) {
			continue
		}
		idx, ok := ClassifyWindow(slot.StartTime, slot.EndTime)
		if !ok {
			grid.Skipped++
			continue
		}
		subject, ok := subjects[slot.SubjectCode]
		if !ok {
			grid.Skipped++
			continue
		}
		day, ok := CanonicalDay(slot.Day)
		if !ok {
			grid.Skipped++
			continue
		}
		grid.Cells[day][idx] = append(grid.Cells[day][idx], newEntry(slot, subject))
	}
	return grid
}

// BuildDynamicGrid places one-to-one slots of the selected subjects into
// per-day columns labelled by their time range. Labels are sorted as strings.
func BuildDynamicGrid(slots []models.Timeslot, subjects map[string]models.Subject, selected []string) DynamicGrid {
	grid := DynamicGrid{
		Days:   append([]string(nil), Weekdays...),
		Labels: make(map[string][]string, len(Weekdays)),
		Cells:  make(map[string]map[string][]Entry, len(Weekdays)),
	}

	keep := selection(selected)
	byDay := make(map[string][]models.Timeslot, len(Weekdays))
	for _, slot := range slots {
		if !slot.IsOneToOne() || !keep(slot.SubjectCode) {
			continue
		}
		if _, ok := subjects[slot.SubjectCode]; !ok {
			grid.Skipped++
			continue
		}
		day, ok := CanonicalDay(slot.Day)
		if !ok {
			grid.Skipped++
			continue
		}
		byDay[day] = append(byDay[day], slot)
	}

	for _, day := range Weekdays {
		daySlots := byDay[day]
		if len(daySlots) == 0 {
			grid.Labels[day] = []string{PlaceholderLabel}
			grid.Cells[day] = map[string][]Entry{PlaceholderLabel: {}}
			continue
		}

		seen := make(map[string]struct{}, len(daySlots))
		labels := make([]string, 0, len(daySlots))
		for _, slot := range daySlots {
			label := RangeLabel(slot.StartTime, slot.EndTime)
			if _, dup := seen[label]; dup {
				continue
			}
			seen[label] = struct{}{}
			labels = append(labels, label)
		}
		sort.Strings(labels)
		grid.Labels[day] = labels

		cols := make(map[string][]Entry, len(labels))
		for _, label := range labels {
			cols[label] = []Entry{}
		}
		for _, slot := range daySlots {
			label := RangeLabel(slot.StartTime, slot.EndTime)
			cols[label] = append(cols[label], newEntry(slot, subjects[slot.SubjectCode]))
		}
		grid.Cells[day] = cols
	}
	return grid
}

func newEntry(slot models.Timeslot, subject models.Subject) Entry {
	abbr := AbbreviateSubject(subject)
	e := Entry{
		SubjectCode:  slot.SubjectCode,
		Subject:      subject.Name,
		TeacherName:  slot.TeacherName,
		StartTime:    NormalizeTime(slot.StartTime),
		EndTime:      NormalizeTime(slot.EndTime),
		Abbreviation: abbr,
		Color:        ColorFor(abbr),
	}
	if slot.StudentID != nil {
		e.StudentID = *slot.StudentID
	}
	if slot.StudentName != nil {
		e.StudentName = *slot.StudentName
	}
	return e
}

func selection(codes []string) func(string) bool {
	if len(codes) == 0 {
		return func(string) bool { return true }
	}
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
	}
	return func(code string) bool {
		_, ok := set[code]
		return ok
	}
}

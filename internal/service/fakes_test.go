package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/noah-isme/tuition-center-api/internal/models"
	appErrors "github.com/noah-isme/tuition-center-api/pkg/errors"
)

// memDB backs the in-memory repositories used by service tests.
type memDB struct {
	mu       sync.Mutex
	subjects map[string]models.Subject
	students map[string]models.Student
	slots    []models.Timeslot
	links    map[string]map[string]bool // student -> subject codes
	finance  []models.FinanceRecord
	audits   []*models.AuditLog
	failWith error
}

func newMemDB() *memDB {
	return &memDB{
		subjects: map[string]models.Subject{},
		students: map[string]models.Student{},
		links:    map[string]map[string]bool{},
	}
}

func (db *memDB) addSubject(code, name, kind string) {
	db.subjects[code] = models.Subject{Code: code, Name: name, Standard: "F4", Type: kind, Subject: name}
}

func (db *memDB) addStudent(id, name string, codes ...string) {
	db.students[id] = models.Student{ID: id, Name: name, Standard: "F4", Status: models.StudentStatusActive, DLP: models.DLPNo, Modes: pq.StringArray{}}
	for _, code := range codes {
		db.link(id, code)
	}
}

func (db *memDB) link(studentID, code string) bool {
	if db.links[studentID] == nil {
		db.links[studentID] = map[string]bool{}
	}
	if db.links[studentID][code] {
		return false
	}
	db.links[studentID][code] = true
	return true
}

func (db *memDB) codesOf(studentID string) []string {
	codes := []string{}
	for code := range db.links[studentID] {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func (db *memDB) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.audits = append(db.audits, log)
	return nil
}

type fakeSubjectRepo struct{ db *memDB }

func (r fakeSubjectRepo) List(ctx context.Context, filter models.SubjectFilter) ([]models.SubjectSummary, int, error) {
	var out []models.SubjectSummary
	for _, s := range r.db.subjects {
		if filter.Type != "" && s.Type != filter.Type {
			continue
		}
		n, _ := r.CountEnrolled(ctx, s.Code)
		out = append(out, models.SubjectSummary{Subject: s, EnrolledCount: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, len(out), nil
}

func (r fakeSubjectRepo) FindByCode(ctx context.Context, code string) (*models.Subject, error) {
	if r.db.failWith != nil {
		return nil, r.db.failWith
	}
	s, ok := r.db.subjects[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (r fakeSubjectRepo) ListByCodes(ctx context.Context, codes []string) ([]models.Subject, error) {
	var out []models.Subject
	for _, s := range r.db.subjects {
		if len(codes) == 0 || contains(codes, s.Code) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r fakeSubjectRepo) Create(ctx context.Context, subject *models.Subject) error {
	r.db.subjects[subject.Code] = *subject
	return nil
}

func (r fakeSubjectRepo) Update(ctx context.Context, subject *models.Subject) error {
	if _, ok := r.db.subjects[subject.Code]; !ok {
		return sql.ErrNoRows
	}
	r.db.subjects[subject.Code] = *subject
	return nil
}

func (r fakeSubjectRepo) Delete(ctx context.Context, code string) error {
	if _, ok := r.db.subjects[code]; !ok {
		return sql.ErrNoRows
	}
	delete(r.db.subjects, code)
	return nil
}

func (r fakeSubjectRepo) CountEnrolled(ctx context.Context, code string) (int, error) {
	n := 0
	for _, codes := range r.db.links {
		if codes[code] {
			n++
		}
	}
	return n, nil
}

func (r fakeSubjectRepo) ListEnrolledStudents(ctx context.Context, code string) ([]models.StudentSummary, error) {
	var out []models.StudentSummary
	for id, codes := range r.db.links {
		if codes[code] {
			st := r.db.students[id]
			out = append(out, models.StudentSummary{ID: st.ID, Name: st.Name, Standard: st.Standard, Status: st.Status})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeSubjectRepo) CountByType(ctx context.Context) ([]models.CountByKey, error) {
	counts := map[string]int{}
	for _, s := range r.db.subjects {
		counts[s.Type]++
	}
	return sortedCounts(counts), nil
}

type fakeStudentRepo struct{ db *memDB }

func (r fakeStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	var out []models.Student
	for _, st := range r.db.students {
		if filter.Status == "" && st.Status == models.StudentStatusRemoved {
			continue
		}
		if filter.Status != "" && st.Status != filter.Status {
			continue
		}
		if filter.Subject != "" && !r.db.links[st.ID][filter.Subject] {
			continue
		}
		st.Subjects = r.db.codesOf(st.ID)
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r fakeStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	st, ok := r.db.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	st.Subjects = r.db.codesOf(id)
	return &st, nil
}

func (r fakeStudentRepo) FindByIDs(ctx context.Context, ids []string) ([]models.Student, error) {
	var out []models.Student
	for _, id := range ids {
		if st, ok := r.db.students[id]; ok && st.Status != models.StudentStatusRemoved {
			out = append(out, st)
		}
	}
	return out, nil
}

func (r fakeStudentRepo) ListAvailable(ctx context.Context, filter models.AvailableStudentFilter) ([]models.StudentSummary, int, error) {
	var out []models.StudentSummary
	for _, st := range r.db.students {
		if st.Status == models.StudentStatusRemoved || r.db.links[st.ID][filter.SubjectCode] {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(st.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, models.StudentSummary{ID: st.ID, Name: st.Name, Standard: st.Standard, Status: st.Status})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r fakeStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	student.CreatedAt = time.Now()
	r.db.students[student.ID] = *student
	return nil
}

func (r fakeStudentRepo) Update(ctx context.Context, student *models.Student) error {
	if _, ok := r.db.students[student.ID]; !ok {
		return sql.ErrNoRows
	}
	r.db.students[student.ID] = *student
	return nil
}

func (r fakeStudentRepo) UpdateStatus(ctx context.Context, id, status string) error {
	st, ok := r.db.students[id]
	if !ok {
		return sql.ErrNoRows
	}
	st.Status = status
	r.db.students[id] = st
	return nil
}

func (r fakeStudentRepo) CountByStatus(ctx context.Context) ([]models.CountByKey, error) {
	counts := map[string]int{}
	for _, st := range r.db.students {
		counts[st.Status]++
	}
	return sortedCounts(counts), nil
}

type fakeTimeslotRepo struct{ db *memDB }

func (r fakeTimeslotRepo) ListBySubject(ctx context.Context, code string) ([]models.Timeslot, error) {
	return r.ListBySubjects(ctx, []string{code})
}

func (r fakeTimeslotRepo) ListBySubjects(ctx context.Context, codes []string) ([]models.Timeslot, error) {
	var out []models.Timeslot
	for _, s := range r.db.slots {
		if len(codes) == 0 || contains(codes, s.SubjectCode) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r fakeTimeslotRepo) ListByStudent(ctx context.Context, studentID string) ([]models.Timeslot, error) {
	var out []models.Timeslot
	for _, s := range r.db.slots {
		if s.StudentID != nil && *s.StudentID == studentID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r fakeTimeslotRepo) ReplaceForSubject(ctx context.Context, code, mode string, slots []models.Timeslot) error {
	kept := r.db.slots[:0:0]
	for _, s := range r.db.slots {
		if s.SubjectCode == code && s.Mode() == mode {
			continue
		}
		kept = append(kept, s)
	}
	for _, s := range slots {
		if s.TimeslotID == "" {
			s.TimeslotID = uuid.NewString()
		}
		kept = append(kept, s)
	}
	r.db.slots = kept
	return nil
}

func (r fakeTimeslotRepo) Delete(ctx context.Context, code, timeslotID string) error {
	for i, s := range r.db.slots {
		if s.SubjectCode == code && s.TimeslotID == timeslotID {
			r.db.slots = append(r.db.slots[:i], r.db.slots[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (r fakeTimeslotRepo) CountByMode(ctx context.Context) ([]models.CountByKey, error) {
	counts := map[string]int{}
	for _, s := range r.db.slots {
		counts[s.Mode()]++
	}
	return sortedCounts(counts), nil
}

type fakeEnrollmentRepo struct{ db *memDB }

func (r fakeEnrollmentRepo) ListSubjectCodes(ctx context.Context, studentID string) ([]string, error) {
	return r.db.codesOf(studentID), nil
}

func (r fakeEnrollmentRepo) EnrolledAmong(ctx context.Context, code string, ids []string) ([]string, error) {
	var out []string
	for _, id := range ids {
		if r.db.links[id][code] {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r fakeEnrollmentRepo) Enroll(ctx context.Context, code string, ids []string) (int, error) {
	n := 0
	for _, id := range ids {
		if r.db.link(id, code) {
			n++
		}
	}
	return n, nil
}

func (r fakeEnrollmentRepo) Unenroll(ctx context.Context, code, studentID string) error {
	if !r.db.links[studentID][code] {
		return sql.ErrNoRows
	}
	delete(r.db.links[studentID], code)
	r.dropStudentSlots(studentID, code)
	return nil
}

func (r fakeEnrollmentRepo) Apply(ctx context.Context, studentID string, add, remove []string) error {
	for _, code := range add {
		r.db.link(studentID, code)
	}
	for _, code := range remove {
		delete(r.db.links[studentID], code)
		r.dropStudentSlots(studentID, code)
	}
	return nil
}

func (r fakeEnrollmentRepo) dropStudentSlots(studentID, code string) {
	kept := r.db.slots[:0:0]
	for _, s := range r.db.slots {
		if s.SubjectCode == code && s.StudentID != nil && *s.StudentID == studentID {
			continue
		}
		kept = append(kept, s)
	}
	r.db.slots = kept
}

type fakeFinanceRepo struct{ db *memDB }

func (r fakeFinanceRepo) List(ctx context.Context, filter models.FinanceFilter) ([]models.FinanceRecord, int, error) {
	out, _ := r.ListAll(ctx, filter)
	return out, len(out), nil
}

func (r fakeFinanceRepo) ListAll(ctx context.Context, filter models.FinanceFilter) ([]models.FinanceRecord, error) {
	var out []models.FinanceRecord
	for _, rec := range r.db.finance {
		if filter.Type != "" && rec.Type != filter.Type {
			continue
		}
		if filter.Month != "" && rec.RecordedOn.Format("2006-01") != filter.Month {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r fakeFinanceRepo) Create(ctx context.Context, record *models.FinanceRecord) error {
	record.ID = uuid.NewString()
	r.db.finance = append(r.db.finance, *record)
	return nil
}

func (r fakeFinanceRepo) Delete(ctx context.Context, id string) error {
	for i, rec := range r.db.finance {
		if rec.ID == id {
			r.db.finance = append(r.db.finance[:i], r.db.finance[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (r fakeFinanceRepo) Summary(ctx context.Context, month string) (*models.FinanceSummary, error) {
	summary := &models.FinanceSummary{Month: month}
	for _, rec := range r.db.finance {
		if rec.RecordedOn.Format("2006-01") != month {
			continue
		}
		if rec.Type == models.FinanceIncome {
			summary.Income += rec.Amount
		} else {
			summary.Expense += rec.Amount
		}
	}
	summary.Net = summary.Income - summary.Expense
	return summary, nil
}

// fakeCache is a map-backed CacheRepository that records invalidations.
type fakeCache struct {
	entries     map[string][]byte
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}}
}

func (c *fakeCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *fakeCache) DeleteByPattern(ctx context.Context, pattern string) error {
	c.invalidated = append(c.invalidated, pattern)
	c.entries = map[string][]byte{}
	return nil
}

func contains(items []string, v string) bool {
	for _, it := range items {
		if it == v {
			return true
		}
	}
	return false
}

func sortedCounts(counts map[string]int) []models.CountByKey {
	out := make([]models.CountByKey, 0, len(counts))
	for k, v := range counts {
		out = append(out, models.CountByKey{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func strPtr(s string) *string { return &s }

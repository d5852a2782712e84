package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tuition-server-go/models"
)

type (
	// MemoryStore keeps every collection in process memory. It backs tests and the
	// "memory" store driver.
	MemoryStore struct {
		mu       sync.RWMutex
		seq      int64
		students map[string]*memRow[models.Student]
		classes  map[string]*memRow[models.ClassRecord]
		payments map[string]*memRow[models.Payment]
		notes    map[string]*memRow[models.Note]
		settings map[string]models.Setting
	}

	memRow[T any] struct {
		seq int64
		val T
	}
)

var _ Repository = (*MemoryStore)(nil) // interface compliance check

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		students: make(map[string]*memRow[models.Student]),
		classes:  make(map[string]*memRow[models.ClassRecord]),
		payments: make(map[string]*memRow[models.Payment]),
		notes:    make(map[string]*memRow[models.Note]),
		settings: make(map[string]models.Setting),
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) next() int64 {
	m.seq++
	return m.seq
}

// newestFirst lists the table in reverse insertion order.
func newestFirst[T any](table map[string]*memRow[T], keep func(T) bool) []T {
	rows := make([]*memRow[T], 0, len(table))
	for _, r := range table {
		if keep == nil || keep(r.val) {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.val)
	}
	return out
}

func (m *MemoryStore) checkStudents(collection string, ids []string) error {
	for _, id := range ids {
		if _, ok := m.students[id]; !ok {
			return &BatchError{Collection: collection, Err: fmt.Errorf("student %s does not exist", id)}
		}
	}
	return nil
}

func (m *MemoryStore) InsertStudents(_ context.Context, rows []models.NewStudent) ([]models.Student, error) {
	if err := validateRows(models.SectionStudents, rows); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	out := make([]models.Student, 0, len(rows))
	for _, row := range rows {
		st := models.Student{
			ID:                   uuid.NewString(),
			Name:                 row.Name,
			Class:                row.Class,
			Contact:              row.Contact,
			MonthlyTargetClasses: row.MonthlyTargetClasses,
			FeesPerMonth:         row.FeesPerMonth,
			CreatedAt:            now,
		}
		m.students[st.ID] = &memRow[models.Student]{seq: m.next(), val: st}
		out = append(out, st)
	}
	return out, nil
}

func (m *MemoryStore) FindAllStudents(_ context.Context) ([]models.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newestFirst(m.students, nil), nil
}

func (m *MemoryStore) GetStudent(_ context.Context, id string) (models.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.students[id]; ok {
		return r.val, nil
	}
	return models.Student{}, ErrNotFound
}

func (m *MemoryStore) UpdateStudentTarget(_ context.Context, id string, target int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.students[id]
	if !ok {
		return ErrNotFound
	}
	r.val.MonthlyTargetClasses = target
	return nil
}

func (m *MemoryStore) DeleteStudent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[id]; !ok {
		return ErrNotFound
	}
	delete(m.students, id)
	for k, r := range m.classes {
		if r.val.StudentID == id {
			delete(m.classes, k)
		}
	}
	for k, r := range m.payments {
		if r.val.StudentID == id {
			delete(m.payments, k)
		}
	}
	for k, r := range m.notes {
		if r.val.StudentID == id {
			delete(m.notes, k)
		}
	}
	return nil
}

func (m *MemoryStore) InsertClasses(_ context.Context, rows []models.NewClassRecord) ([]models.ClassRecord, error) {
	if err := validateRows(models.SectionClasses, rows); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkStudents(models.SectionClasses, studentIDsOf(rows, func(r models.NewClassRecord) string { return r.StudentID })); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	out := make([]models.ClassRecord, 0, len(rows))
	for _, row := range rows {
		rec := models.ClassRecord{
			ID:             uuid.NewString(),
			StudentID:      row.StudentID,
			Date:           row.Date,
			CompletedCount: row.CompletedCount,
			CreatedAt:      now,
		}
		m.classes[rec.ID] = &memRow[models.ClassRecord]{seq: m.next(), val: rec}
		out = append(out, rec)
	}
	return out, nil
}

func (m *MemoryStore) FindClasses(_ context.Context, filter models.ClassFilter) ([]models.ClassRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	records := newestFirst(m.classes, filter.Match)
	sort.SliceStable(records, func(i, j int) bool { return records[i].Date > records[j].Date })
	return records, nil
}

func (m *MemoryStore) DeleteClass(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.classes[id]; !ok {
		return ErrNotFound
	}
	delete(m.classes, id)
	return nil
}

func (m *MemoryStore) DeleteClassesByStudent(_ context.Context, studentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, r := range m.classes {
		if r.val.StudentID == studentID {
			delete(m.classes, k)
		}
	}
	return nil
}

func (m *MemoryStore) InsertPayments(_ context.Context, rows []models.NewPayment) ([]models.Payment, error) {
	if err := validateRows(models.SectionPayments, rows); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkStudents(models.SectionPayments, studentIDsOf(rows, func(r models.NewPayment) string { return r.StudentID })); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	out := make([]models.Payment, 0, len(rows))
	for _, row := range rows {
		p := models.Payment{
			ID:        uuid.NewString(),
			StudentID: row.StudentID,
			Amount:    row.Amount,
			Date:      row.Date,
			Month:     row.Month,
			Year:      row.Year,
			CreatedAt: now,
		}
		m.payments[p.ID] = &memRow[models.Payment]{seq: m.next(), val: p}
		out = append(out, p)
	}
	return out, nil
}

func (m *MemoryStore) FindPayments(_ context.Context, filter models.PaymentFilter) ([]models.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newestFirst(m.payments, filter.Match), nil
}

func (m *MemoryStore) DeletePayment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[id]; !ok {
		return ErrNotFound
	}
	delete(m.payments, id)
	return nil
}

func (m *MemoryStore) InsertNotes(_ context.Context, rows []models.NewNote) ([]models.Note, error) {
	if err := validateRows(models.SectionNotes, rows); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkStudents(models.SectionNotes, studentIDsOf(rows, func(r models.NewNote) string { return r.StudentID })); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	out := make([]models.Note, 0, len(rows))
	for _, row := range rows {
		n := models.Note{
			ID:        uuid.NewString(),
			StudentID: row.StudentID,
			NoteText:  row.NoteText,
			CreatedAt: now,
		}
		m.notes[n.ID] = &memRow[models.Note]{seq: m.next(), val: n}
		out = append(out, n)
	}
	return out, nil
}

func (m *MemoryStore) FindNotes(_ context.Context, filter models.NoteFilter) ([]models.Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newestFirst(m.notes, filter.Match), nil
}

func (m *MemoryStore) UpdateNoteText(_ context.Context, id, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.notes[id]
	if !ok {
		return ErrNotFound
	}
	r.val.NoteText = text
	return nil
}

func (m *MemoryStore) DeleteNote(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notes[id]; !ok {
		return ErrNotFound
	}
	delete(m.notes, id)
	return nil
}

func (m *MemoryStore) GetSettings(_ context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.settings))
	for k, s := range m.settings {
		out[k] = s.Value
	}
	return out, nil
}

func (m *MemoryStore) GetSetting(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.settings[key]; ok {
		return s.Value, nil
	}
	return "", ErrNotFound
}

func (m *MemoryStore) UpsertSetting(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = models.Setting{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return nil
}

package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tuition-server-go/models"
)

func seedStudent(t *testing.T, repo Repository, name string) models.Student {
	t.Helper()
	students, err := repo.InsertStudents(context.Background(), []models.NewStudent{{Name: name, Class: "Grade 10"}})
	require.NoError(t, err)
	require.Len(t, students, 1)
	return students[0]
}

func TestMemoryStore_InsertStudents(t *testing.T) {
	repo := NewMemoryStore()
	ctx := context.Background()

	students, err := repo.InsertStudents(ctx, []models.NewStudent{
		{Name: "John Doe", Class: "Grade 10", MonthlyTargetClasses: 8, FeesPerMonth: 5000},
		{Name: "Jane Smith", Class: "Grade 9"},
	})
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.NotEmpty(t, students[0].ID)
	assert.NotEqual(t, students[0].ID, students[1].ID)

	all, err := repo.FindAllStudents(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Jane Smith", all[0].Name, "newest first")

	got, err := repo.GetStudent(ctx, students[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 8, got.MonthlyTargetClasses)
	assert.Equal(t, 5000.0, got.FeesPerMonth)
}

func TestMemoryStore_InsertStudentsRejectsWholeBatch(t *testing.T) {
	repo := NewMemoryStore()

	_, err := repo.InsertStudents(context.Background(), []models.NewStudent{{Name: "Ok"}, {Name: ""}})
	require.Error(t, err)
	assert.True(t, IsBatchError(err))
	assert.Contains(t, err.Error(), "students row 1")

	all, err := repo.FindAllStudents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMemoryStore_InsertClassesUnknownStudent(t *testing.T) {
	repo := NewMemoryStore()
	st := seedStudent(t, repo, "John Doe")

	_, err := repo.InsertClasses(context.Background(), []models.NewClassRecord{
		{StudentID: st.ID, Date: "2025-01-15", CompletedCount: 1},
		{StudentID: "missing", Date: "2025-01-16", CompletedCount: 1},
	})
	require.Error(t, err)
	var be *BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, models.SectionClasses, be.Collection)

	classes, err := repo.FindClasses(context.Background(), models.ClassFilter{})
	require.NoError(t, err)
	assert.Empty(t, classes)
}

func TestMemoryStore_InsertClassesBadDate(t *testing.T) {
	repo := NewMemoryStore()
	st := seedStudent(t, repo, "John Doe")

	_, err := repo.InsertClasses(context.Background(), []models.NewClassRecord{{StudentID: st.ID, Date: "15/01/2025", CompletedCount: 1}})
	assert.True(t, IsBatchError(err))
}

func TestMemoryStore_FindClasses(t *testing.T) {
	repo := NewMemoryStore()
	ctx := context.Background()
	john := seedStudent(t, repo, "John Doe")
	jane := seedStudent(t, repo, "Jane Smith")

	_, err := repo.InsertClasses(ctx, []models.NewClassRecord{
		{StudentID: john.ID, Date: "2025-01-10", CompletedCount: 1},
		{StudentID: john.ID, Date: "2025-01-20", CompletedCount: 2},
		{StudentID: jane.ID, Date: "2025-02-01", CompletedCount: 1},
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter models.ClassFilter
		dates  []string
	}{
		{"all", models.ClassFilter{}, []string{"2025-02-01", "2025-01-20", "2025-01-10"}},
		{"by student", models.ClassFilter{StudentID: john.ID}, []string{"2025-01-20", "2025-01-10"}},
		{"from", models.ClassFilter{From: "2025-01-15"}, []string{"2025-02-01", "2025-01-20"}},
		{"range", models.ClassFilter{From: "2025-01-10", To: "2025-01-20"}, []string{"2025-01-20", "2025-01-10"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			classes, err := repo.FindClasses(ctx, tc.filter)
			require.NoError(t, err)
			dates := make([]string, 0, len(classes))
			for _, c := range classes {
				dates = append(dates, c.Date)
			}
			assert.Equal(t, tc.dates, dates)
		})
	}
}

func TestMemoryStore_DeleteStudentCascades(t *testing.T) {
	repo := NewMemoryStore()
	ctx := context.Background()
	john := seedStudent(t, repo, "John Doe")
	jane := seedStudent(t, repo, "Jane Smith")

	_, err := repo.InsertClasses(ctx, []models.NewClassRecord{{StudentID: john.ID, Date: "2025-01-15", CompletedCount: 1}})
	require.NoError(t, err)
	_, err = repo.InsertPayments(ctx, []models.NewPayment{
		{StudentID: john.ID, Amount: 5000, Date: "2025-01-15", Month: "January", Year: 2025},
		{StudentID: jane.ID, Amount: 4000, Date: "2025-01-15", Month: "January", Year: 2025},
	})
	require.NoError(t, err)
	_, err = repo.InsertNotes(ctx, []models.NewNote{{StudentID: john.ID, NoteText: "Good progress"}})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteStudent(ctx, john.ID))

	_, err = repo.GetStudent(ctx, john.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	classes, _ := repo.FindClasses(ctx, models.ClassFilter{})
	assert.Empty(t, classes)
	payments, _ := repo.FindPayments(ctx, models.PaymentFilter{})
	require.Len(t, payments, 1)
	assert.Equal(t, jane.ID, payments[0].StudentID)
	notes, _ := repo.FindNotes(ctx, models.NoteFilter{})
	assert.Empty(t, notes)

	assert.ErrorIs(t, repo.DeleteStudent(ctx, john.ID), ErrNotFound)
}

func TestMemoryStore_PaymentsFilter(t *testing.T) {
	repo := NewMemoryStore()
	ctx := context.Background()
	st := seedStudent(t, repo, "John Doe")

	_, err := repo.InsertPayments(ctx, []models.NewPayment{
		{StudentID: st.ID, Amount: 5000, Date: "2025-01-15", Month: "January", Year: 2025},
		{StudentID: st.ID, Amount: 5000, Date: "2025-02-15", Month: "February", Year: 2025},
		{StudentID: st.ID, Amount: 4500, Date: "2024-12-15", Month: "December", Year: 2024},
	})
	require.NoError(t, err)

	payments, err := repo.FindPayments(ctx, models.PaymentFilter{Month: "january"})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "2025-01-15", payments[0].Date)

	payments, err = repo.FindPayments(ctx, models.PaymentFilter{Year: 2025})
	require.NoError(t, err)
	assert.Len(t, payments, 2)

	_, err = repo.InsertPayments(ctx, []models.NewPayment{{StudentID: st.ID, Amount: 0, Date: "2025-03-15"}})
	assert.True(t, IsBatchError(err), "zero amount is rejected")
}

func TestMemoryStore_Notes(t *testing.T) {
	repo := NewMemoryStore()
	ctx := context.Background()
	st := seedStudent(t, repo, "John Doe")

	notes, err := repo.InsertNotes(ctx, []models.NewNote{{StudentID: st.ID, NoteText: "Needs help with algebra"}})
	require.NoError(t, err)

	require.NoError(t, repo.UpdateNoteText(ctx, notes[0].ID, "Algebra improving"))
	found, err := repo.FindNotes(ctx, models.NoteFilter{Search: "ALGEBRA"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Algebra improving", found[0].NoteText)

	require.NoError(t, repo.DeleteNote(ctx, notes[0].ID))
	assert.ErrorIs(t, repo.DeleteNote(ctx, notes[0].ID), ErrNotFound)
	assert.ErrorIs(t, repo.UpdateNoteText(ctx, "missing", "x"), ErrNotFound)
}

func TestMemoryStore_Settings(t *testing.T) {
	repo := NewMemoryStore()
	ctx := context.Background()

	_, err := repo.GetSetting(ctx, "app_name")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.UpsertSetting(ctx, "app_name", "Tutor Hub"))
	require.NoError(t, repo.UpsertSetting(ctx, "app_name", "Tutor Hub 2"))

	value, err := repo.GetSetting(ctx, "app_name")
	require.NoError(t, err)
	assert.Equal(t, "Tutor Hub 2", value)

	settings, err := repo.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"app_name": "Tutor Hub 2"}, settings)
}

func TestMemoryStore_UpdateStudentTarget(t *testing.T) {
	repo := NewMemoryStore()
	ctx := context.Background()
	st := seedStudent(t, repo, "John Doe")

	require.NoError(t, repo.UpdateStudentTarget(ctx, st.ID, 12))
	got, err := repo.GetStudent(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, got.MonthlyTargetClasses)

	assert.ErrorIs(t, repo.UpdateStudentTarget(ctx, "missing", 1), ErrNotFound)
}

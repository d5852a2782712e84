package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tuition-server-go/db"
	"tuition-server-go/models"
)

// faultyStore wraps the memory store and fails selected calls.
type faultyStore struct {
	*db.MemoryStore
	failStudents error
	failFind     error
	failClasses  error
	failPayments error
	failNotes    error
	calls        []string
}

func (s *faultyStore) InsertStudents(ctx context.Context, rows []models.NewStudent) ([]models.Student, error) {
	s.calls = append(s.calls, "students")
	if s.failStudents != nil {
		return nil, s.failStudents
	}
	return s.MemoryStore.InsertStudents(ctx, rows)
}

func (s *faultyStore) FindAllStudents(ctx context.Context) ([]models.Student, error) {
	s.calls = append(s.calls, "find")
	if s.failFind != nil {
		return nil, s.failFind
	}
	return s.MemoryStore.FindAllStudents(ctx)
}

func (s *faultyStore) InsertClasses(ctx context.Context, rows []models.NewClassRecord) ([]models.ClassRecord, error) {
	s.calls = append(s.calls, "classes")
	if s.failClasses != nil {
		return nil, s.failClasses
	}
	return s.MemoryStore.InsertClasses(ctx, rows)
}

func (s *faultyStore) InsertPayments(ctx context.Context, rows []models.NewPayment) ([]models.Payment, error) {
	s.calls = append(s.calls, "payments")
	if s.failPayments != nil {
		return nil, s.failPayments
	}
	return s.MemoryStore.InsertPayments(ctx, rows)
}

func (s *faultyStore) InsertNotes(ctx context.Context, rows []models.NewNote) ([]models.Note, error) {
	s.calls = append(s.calls, "notes")
	if s.failNotes != nil {
		return nil, s.failNotes
	}
	return s.MemoryStore.InsertNotes(ctx, rows)
}

func batchErr(collection, msg string) error {
	return &db.BatchError{Collection: collection, Err: errors.New(msg)}
}

func TestImport_EndToEnd(t *testing.T) {
	store := db.NewMemoryStore()
	im := New(store, zap.NewNop())

	doc := models.ImportDocument{
		Students: []models.ImportStudent{{Name: "A", Class: "Grade 1", MonthlyTargetClasses: 4, FeesPerMonth: 100}},
		Classes:  []models.ImportClass{{StudentName: "A", Date: "2024-01-01", CompletedCount: 2}},
		Payments: []models.ImportPayment{{StudentName: "B", Amount: 100, Date: "2024-01-01", Month: "January", Year: 2024}},
	}
	report, err := im.Import(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, models.CollectionResult{Success: 1, Failed: 0, Errors: []string{}}, report.Students)
	assert.Equal(t, models.CollectionResult{Success: 1, Failed: 0, Errors: []string{}}, report.Classes)
	assert.Equal(t, models.CollectionResult{Success: 0, Failed: 1, Errors: []string{`Student "B" not found`}}, report.Payments)
	assert.Equal(t, models.CollectionResult{Success: 0, Failed: 0, Errors: []string{}}, report.Notes)

	classes, err := store.FindClasses(context.Background(), models.ClassFilter{})
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, 2, classes[0].CompletedCount)

	payments, err := store.FindPayments(context.Background(), models.PaymentFilter{})
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestImport_EmptyDocument(t *testing.T) {
	store := &faultyStore{MemoryStore: db.NewMemoryStore()}
	report, err := New(store, nil).Import(context.Background(), models.ImportDocument{})
	require.NoError(t, err)
	assert.Equal(t, models.NewImportReport(), report)
	assert.Equal(t, []string{"find"}, store.calls)

	data, err := sonic.Marshal(report)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"students": {"success": 0, "failed": 0, "errors": []},
		"classes":  {"success": 0, "failed": 0, "errors": []},
		"payments": {"success": 0, "failed": 0, "errors": []},
		"notes":    {"success": 0, "failed": 0, "errors": []}
	}`, string(data))
}

func TestImport_CompletedCountDefaultsToOne(t *testing.T) {
	store := db.NewMemoryStore()
	doc := models.ImportDocument{
		Students: []models.ImportStudent{{Name: "A"}},
		Classes:  []models.ImportClass{{StudentName: "A", Date: "2024-01-01"}},
	}
	report, err := New(store, zap.NewNop()).Import(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Classes.Success)

	classes, err := store.FindClasses(context.Background(), models.ClassFilter{})
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, 1, classes[0].CompletedCount)
}

func TestImport_UnknownStudentDoesNotBlockSiblings(t *testing.T) {
	store := db.NewMemoryStore()
	doc := models.ImportDocument{
		Students: []models.ImportStudent{{Name: "A"}, {Name: "B"}},
		Classes: []models.ImportClass{
			{StudentName: "A", Date: "2024-01-01", CompletedCount: 1},
			{StudentName: "Ghost", Date: "2024-01-02", CompletedCount: 1},
			{StudentName: "B", Date: "2024-01-03", CompletedCount: 1},
		},
		Notes: []models.ImportNote{
			{StudentName: "B", NoteText: "Quiet"},
			{StudentName: "Nobody", NoteText: "Who?"},
		},
	}
	report, err := New(store, zap.NewNop()).Import(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Classes.Success)
	assert.Equal(t, 1, report.Classes.Failed)
	assert.Equal(t, []string{`Student "Ghost" not found`}, report.Classes.Errors)
	assert.Equal(t, 1, report.Notes.Success)
	assert.Equal(t, 1, report.Notes.Failed)
	assert.Equal(t, []string{`Student "Nobody" not found`}, report.Notes.Errors)

	classes, _ := store.FindClasses(context.Background(), models.ClassFilter{})
	assert.Len(t, classes, 2)
}

func TestImport_FreshStudentWinsOverExisting(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	old, err := store.InsertStudents(ctx, []models.NewStudent{{Name: "A", Class: "old"}})
	require.NoError(t, err)

	doc := models.ImportDocument{
		Students: []models.ImportStudent{{Name: "A", Class: "new"}},
		Notes:    []models.ImportNote{{StudentName: "A", NoteText: "hello"}},
	}
	report, err := New(store, zap.NewNop()).Import(ctx, doc)
	require.NoError(t, err)
	require.Equal(t, 1, report.Notes.Success)

	notes, err := store.FindNotes(ctx, models.NoteFilter{})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.NotEqual(t, old[0].ID, notes[0].StudentID)

	fresh, err := store.GetStudent(ctx, notes[0].StudentID)
	require.NoError(t, err)
	assert.Equal(t, "new", fresh.Class)
}

func TestImport_ReferencesStudentsFromEarlierImport(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	im := New(store, zap.NewNop())

	first := models.ImportDocument{
		Students: []models.ImportStudent{{Name: "A"}},
		Classes:  []models.ImportClass{{StudentName: "A", Date: "2024-01-01", CompletedCount: 1}},
	}
	_, err := im.Import(ctx, first)
	require.NoError(t, err)

	second := models.ImportDocument{
		Classes:  []models.ImportClass{{StudentName: "A", Date: "2024-01-02", CompletedCount: 1}},
		Payments: []models.ImportPayment{{StudentName: "A", Amount: 100, Date: "2024-01-02", Month: "January", Year: 2024}},
	}
	report, err := im.Import(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, models.CollectionResult{Errors: []string{}}, report.Students)
	assert.Equal(t, 1, report.Classes.Success)
	assert.Equal(t, 1, report.Payments.Success)

	students, err := store.FindAllStudents(ctx)
	require.NoError(t, err)
	assert.Len(t, students, 1)
	classes, err := store.FindClasses(ctx, models.ClassFilter{StudentID: students[0].ID})
	require.NoError(t, err)
	assert.Len(t, classes, 2)
}

func TestImport_StudentBatchRejected(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()

	// The second row fails store-side validation, so no student is stored.
	doc := models.ImportDocument{
		Students: []models.ImportStudent{{Name: "A"}, {Name: ""}},
		Classes:  []models.ImportClass{{StudentName: "A", Date: "2024-01-01"}},
	}
	report, err := New(store, zap.NewNop()).Import(ctx, doc)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Students.Success)
	assert.Equal(t, 2, report.Students.Failed)
	require.Len(t, report.Students.Errors, 1)
	assert.Contains(t, report.Students.Errors[0], "students row 1")
	assert.Equal(t, 1, report.Classes.Failed)
	assert.Equal(t, []string{`Student "A" not found`}, report.Classes.Errors)
}

func TestImport_BatchRejectionAddsToResolutionFailures(t *testing.T) {
	store := &faultyStore{
		MemoryStore: db.NewMemoryStore(),
		failClasses: batchErr(models.SectionClasses, "invalid input syntax for type date"),
	}
	doc := models.ImportDocument{
		Students: []models.ImportStudent{{Name: "A"}},
		Classes: []models.ImportClass{
			{StudentName: "A", Date: "yesterday"},
			{StudentName: "Ghost", Date: "2024-01-01"},
			{StudentName: "A", Date: "2024-01-02"},
		},
		Notes: []models.ImportNote{{StudentName: "A", NoteText: "still imported"}},
	}
	report, err := New(store, zap.NewNop()).Import(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Classes.Success)
	assert.Equal(t, 3, report.Classes.Failed)
	assert.Equal(t, []string{`Student "Ghost" not found`, "invalid input syntax for type date"}, report.Classes.Errors)
	assert.Equal(t, 1, report.Notes.Success)
	assert.Equal(t, []string{"students", "find", "classes", "notes"}, store.calls)
}

func TestImport_TransportErrorReturnsPartialReport(t *testing.T) {
	store := &faultyStore{
		MemoryStore:  db.NewMemoryStore(),
		failPayments: errors.New("connection reset by peer"),
	}
	doc := Template()
	report, err := New(store, zap.NewNop()).Import(context.Background(), doc)

	require.Error(t, err)
	assert.EqualError(t, err, "import failed: connection reset by peer")
	assert.False(t, db.IsBatchError(err))
	assert.Equal(t, 2, report.Students.Success)
	assert.Equal(t, 2, report.Classes.Success)
	assert.Equal(t, models.CollectionResult{Errors: []string{}}, report.Payments)
	assert.Equal(t, models.CollectionResult{Errors: []string{}}, report.Notes)
	assert.Equal(t, []string{"students", "find", "classes", "payments"}, store.calls)
}

func TestImport_FetchExistingFailureAborts(t *testing.T) {
	store := &faultyStore{
		MemoryStore: db.NewMemoryStore(),
		failFind:    errors.New("i/o timeout"),
	}
	report, err := New(store, zap.NewNop()).Import(context.Background(), Template())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "i/o timeout")
	assert.Equal(t, 2, report.Students.Success)
	assert.Equal(t, []string{"students", "find"}, store.calls)
}

func TestImport_Template(t *testing.T) {
	store := db.NewMemoryStore()
	report, err := New(store, zap.NewNop()).Import(context.Background(), Template())
	require.NoError(t, err)
	for _, r := range []models.CollectionResult{report.Students, report.Classes, report.Payments, report.Notes} {
		assert.Equal(t, 2, r.Success)
		assert.Zero(t, r.Failed)
		assert.Empty(t, r.Errors)
	}
}

func TestInsertClasses_Stage(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	students, err := store.InsertStudents(ctx, []models.NewStudent{{Name: "A"}})
	require.NoError(t, err)
	im := New(store, zap.NewNop())

	names := nameTable{"A": students[0].ID}
	report, err := im.insertClasses(ctx, []models.ImportClass{
		{StudentName: "A", Date: "2024-03-01", CompletedCount: 3},
		{StudentName: "Z", Date: "2024-03-01"},
	}, models.NewImportReport(), names)
	require.NoError(t, err)
	assert.Equal(t, models.CollectionResult{Success: 1, Failed: 1, Errors: []string{`Student "Z" not found`}}, report.Classes)
	assert.Equal(t, models.CollectionResult{Errors: []string{}}, report.Students)

	// Nothing resolvable: no store call, only failures.
	report, err = im.insertPayments(ctx, []models.ImportPayment{{StudentName: "Q", Amount: 1, Date: "2024-03-01"}}, report, names)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Payments.Failed)
	assert.Equal(t, 1, report.Classes.Success)
}

func TestInsertStudents_DuplicateNameLaterRowWins(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	im := New(store, zap.NewNop())

	names := nameTable{}
	report, err := im.insertStudents(ctx, []models.ImportStudent{{Name: "A", Class: "first"}, {Name: "A", Class: "second"}}, models.NewImportReport(), names)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Students.Success)

	st, err := store.GetStudent(ctx, names["A"])
	require.NoError(t, err)
	assert.Equal(t, "second", st.Class)
}

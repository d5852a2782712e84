package db

import (
	"context"
	"errors"

	"tuition-server-go/models"
)

// ErrNotFound is returned when a single entity lookup or mutation targets a missing id or key.
var ErrNotFound = errors.New("not found")

// Repository is the persistence backend of the tuition server.
// Insert methods are batch operations: either every row is stored or none is,
// and a rejected batch is reported as a *BatchError.
type Repository interface {
	InsertStudents(ctx context.Context, rows []models.NewStudent) ([]models.Student, error)
	FindAllStudents(ctx context.Context) ([]models.Student, error)
	GetStudent(ctx context.Context, id string) (models.Student, error)
	UpdateStudentTarget(ctx context.Context, id string, target int) error
	// DeleteStudent removes the student together with their classes, payments and notes.
	DeleteStudent(ctx context.Context, id string) error

	InsertClasses(ctx context.Context, rows []models.NewClassRecord) ([]models.ClassRecord, error)
	FindClasses(ctx context.Context, filter models.ClassFilter) ([]models.ClassRecord, error)
	DeleteClass(ctx context.Context, id string) error
	DeleteClassesByStudent(ctx context.Context, studentID string) error

	InsertPayments(ctx context.Context, rows []models.NewPayment) ([]models.Payment, error)
	FindPayments(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error)
	DeletePayment(ctx context.Context, id string) error

	InsertNotes(ctx context.Context, rows []models.NewNote) ([]models.Note, error)
	FindNotes(ctx context.Context, filter models.NoteFilter) ([]models.Note, error)
	UpdateNoteText(ctx context.Context, id, text string) error
	DeleteNote(ctx context.Context, id string) error

	GetSettings(ctx context.Context) (map[string]string, error)
	GetSetting(ctx context.Context, key string) (string, error)
	UpsertSetting(ctx context.Context, key, value string) error

	Close() error
}

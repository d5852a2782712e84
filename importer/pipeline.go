// Package importer turns uploaded import documents into stored students, classes,
// payments and notes. Documents are validated for shape first; the import then runs
// in fixed stages and reports per collection what succeeded and what failed.
package importer

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"tuition-server-go/db"
	"tuition-server-go/models"
)

// Store is the part of the repository the import needs.
type Store interface {
	InsertStudents(ctx context.Context, rows []models.NewStudent) ([]models.Student, error)
	FindAllStudents(ctx context.Context) ([]models.Student, error)
	InsertClasses(ctx context.Context, rows []models.NewClassRecord) ([]models.ClassRecord, error)
	InsertPayments(ctx context.Context, rows []models.NewPayment) ([]models.Payment, error)
	InsertNotes(ctx context.Context, rows []models.NewNote) ([]models.Note, error)
}

// nameTable maps a student display name to a stored id.
type nameTable map[string]string

type Importer struct {
	store  Store
	logger *zap.Logger
}

func New(store Store, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{store: store, logger: logger}
}

// Import stores doc stage by stage: students, then classes, payments and notes.
// A rejected batch or an unknown student name is recorded in the report and the
// import moves on; nothing is rolled back. A transport failure stops the import and
// is returned together with the report accumulated up to that point.
func (im *Importer) Import(ctx context.Context, doc models.ImportDocument) (models.ImportReport, error) {
	report := models.NewImportReport()
	names := nameTable{}

	var err error
	if report, err = im.insertStudents(ctx, doc.Students, report, names); err != nil {
		return report, im.fail(models.SectionStudents, err)
	}
	if err = im.resolveExisting(ctx, names); err != nil {
		return report, im.fail(models.SectionStudents, err)
	}
	if report, err = im.insertClasses(ctx, doc.Classes, report, names); err != nil {
		return report, im.fail(models.SectionClasses, err)
	}
	if report, err = im.insertPayments(ctx, doc.Payments, report, names); err != nil {
		return report, im.fail(models.SectionPayments, err)
	}
	if report, err = im.insertNotes(ctx, doc.Notes, report, names); err != nil {
		return report, im.fail(models.SectionNotes, err)
	}

	im.logger.Info("import finished",
		zap.Int("students", report.Students.Success),
		zap.Int("classes", report.Classes.Success),
		zap.Int("payments", report.Payments.Success),
		zap.Int("notes", report.Notes.Success),
		zap.Int("failed", report.Students.Failed+report.Classes.Failed+report.Payments.Failed+report.Notes.Failed),
	)
	return report, nil
}

func (im *Importer) fail(stage string, err error) error {
	im.logger.Error("import aborted", zap.String("stage", stage), zap.Error(err))
	return errors.Wrap(err, "import failed")
}

// insertStudents stores all students as one batch and records their ids.
// When a name occurs twice in the batch the later row wins.
func (im *Importer) insertStudents(ctx context.Context, rows []models.ImportStudent, report models.ImportReport, names nameTable) (models.ImportReport, error) {
	if len(rows) == 0 {
		return report, nil
	}
	batch := make([]models.NewStudent, 0, len(rows))
	for _, r := range rows {
		batch = append(batch, models.NewStudent{
			Name:                 r.Name,
			Class:                r.Class,
			Contact:              r.Contact,
			MonthlyTargetClasses: r.MonthlyTargetClasses,
			FeesPerMonth:         r.FeesPerMonth,
		})
	}

	inserted, err := im.store.InsertStudents(ctx, batch)
	if err != nil {
		if !db.IsBatchError(err) {
			return report, err
		}
		im.logger.Warn("students batch rejected", zap.Int("rows", len(rows)), zap.Error(err))
		report.Students.Failed = len(rows)
		report.Students.Errors = append(report.Students.Errors, err.Error())
		return report, nil
	}

	report.Students.Success = len(inserted)
	for _, st := range inserted {
		names[st.Name] = st.ID
	}
	return report, nil
}

// resolveExisting adds every stored student whose name is not resolved yet, so
// later stages can reference students from earlier imports.
func (im *Importer) resolveExisting(ctx context.Context, names nameTable) error {
	existing, err := im.store.FindAllStudents(ctx)
	if err != nil {
		return errors.Wrap(err, "fetching existing students")
	}
	for _, st := range existing {
		if _, ok := names[st.Name]; !ok {
			names[st.Name] = st.ID
		}
	}
	return nil
}

func (im *Importer) insertClasses(ctx context.Context, rows []models.ImportClass, report models.ImportReport, names nameTable) (models.ImportReport, error) {
	batch := make([]models.NewClassRecord, 0, len(rows))
	for _, r := range rows {
		id, ok := names.resolve(r.StudentName, &report.Classes)
		if !ok {
			continue
		}
		count := r.CompletedCount
		if count == 0 {
			count = 1
		}
		batch = append(batch, models.NewClassRecord{StudentID: id, Date: r.Date, CompletedCount: count})
	}
	if len(batch) == 0 {
		return report, nil
	}

	_, err := im.store.InsertClasses(ctx, batch)
	return im.record(models.SectionClasses, &report, &report.Classes, len(batch), err)
}

func (im *Importer) insertPayments(ctx context.Context, rows []models.ImportPayment, report models.ImportReport, names nameTable) (models.ImportReport, error) {
	batch := make([]models.NewPayment, 0, len(rows))
	for _, r := range rows {
		id, ok := names.resolve(r.StudentName, &report.Payments)
		if !ok {
			continue
		}
		batch = append(batch, models.NewPayment{
			StudentID: id,
			Amount:    r.Amount,
			Date:      r.Date,
			Month:     r.Month,
			Year:      r.Year,
		})
	}
	if len(batch) == 0 {
		return report, nil
	}

	_, err := im.store.InsertPayments(ctx, batch)
	return im.record(models.SectionPayments, &report, &report.Payments, len(batch), err)
}

func (im *Importer) insertNotes(ctx context.Context, rows []models.ImportNote, report models.ImportReport, names nameTable) (models.ImportReport, error) {
	batch := make([]models.NewNote, 0, len(rows))
	for _, r := range rows {
		id, ok := names.resolve(r.StudentName, &report.Notes)
		if !ok {
			continue
		}
		batch = append(batch, models.NewNote{StudentID: id, NoteText: r.NoteText})
	}
	if len(batch) == 0 {
		return report, nil
	}

	_, err := im.store.InsertNotes(ctx, batch)
	return im.record(models.SectionNotes, &report, &report.Notes, len(batch), err)
}

// resolve looks up name and records a failure in result when it is unknown.
func (names nameTable) resolve(name string, result *models.CollectionResult) (string, bool) {
	id, ok := names[name]
	if !ok {
		result.Failed++
		result.Errors = append(result.Errors, fmt.Sprintf(`Student "%s" not found`, name))
	}
	return id, ok
}

// record books the outcome of one insert batch into result, which points into report.
func (im *Importer) record(collection string, report *models.ImportReport, result *models.CollectionResult, size int, err error) (models.ImportReport, error) {
	switch {
	case err == nil:
		result.Success = size
	case db.IsBatchError(err):
		im.logger.Warn("batch rejected", zap.String("collection", collection), zap.Int("rows", size), zap.Error(err))
		result.Failed += size
		result.Errors = append(result.Errors, err.Error())
	default:
		return *report, err
	}
	return *report, nil
}

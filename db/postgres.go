package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"tuition-server-go/models"
)

//go:embed schema.sql
var schema string

// PostgresStore stores the tuition collections in PostgreSQL tables.
type PostgresStore struct {
	DB     *sqlx.DB
	Logger *zap.Logger
}

var _ Repository = (*PostgresStore)(nil)

// OpenPostgres connects to dsn and waits for the database to answer.
func OpenPostgres(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "pinging database")
	}
	return &PostgresStore{DB: db, Logger: logger}, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, db *sqlx.DB) error {
	var err error
	maxAttempts := 10
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "DB ping timeout")
}

// Migrate creates the tables when they do not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.DB.Close()
}

// batchOrTransport classifies a failed statement: data exceptions and constraint
// violations reject the batch, anything else is a transport failure.
func batchOrTransport(collection string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "22", "23":
			return &BatchError{Collection: collection, Err: fmt.Errorf("%s: %s", collection, pqErr.Message)}
		}
	}
	return errors.Wrapf(err, "inserting %s", collection)
}

// notFoundOr maps missing rows and malformed ids to ErrNotFound.
func notFoundOr(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == "22" {
		return ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// insertBatch runs a multi-row named insert inside a transaction.
func (s *PostgresStore) insertBatch(ctx context.Context, collection, query string, rows interface{}) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if _, err = tx.NamedExecContext(ctx, query, rows); err != nil {
		_ = tx.Rollback()
		s.Logger.Warn("insert rejected", zap.String("collection", collection), zap.Error(err))
		return batchOrTransport(collection, err)
	}
	if err = tx.Commit(); err != nil {
		return batchOrTransport(collection, err)
	}
	return nil
}

func execAffected(ctx context.Context, db *sqlx.DB, msg, query string, args ...interface{}) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return notFoundOr(err, msg)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, msg)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Students ---

const studentColumns = `id, name, class, contact, monthly_target_classes, fees_per_month, created_at`

func (s *PostgresStore) InsertStudents(ctx context.Context, rows []models.NewStudent) ([]models.Student, error) {
	if err := validateRows(models.SectionStudents, rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []models.Student{}, nil
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	students := make([]models.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, models.Student{
			ID:                   uuid.NewString(),
			Name:                 row.Name,
			Class:                row.Class,
			Contact:              row.Contact,
			MonthlyTargetClasses: row.MonthlyTargetClasses,
			FeesPerMonth:         row.FeesPerMonth,
			CreatedAt:            now,
		})
	}
	q := `INSERT INTO students (` + studentColumns + `)
		VALUES (:id, :name, :class, :contact, :monthly_target_classes, :fees_per_month, :created_at)`
	if err := s.insertBatch(ctx, models.SectionStudents, q, students); err != nil {
		return nil, err
	}
	return students, nil
}

func (s *PostgresStore) FindAllStudents(ctx context.Context) ([]models.Student, error) {
	students := []models.Student{}
	q := `SELECT ` + studentColumns + ` FROM students ORDER BY created_at DESC, id`
	if err := s.DB.SelectContext(ctx, &students, q); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	return students, nil
}

func (s *PostgresStore) GetStudent(ctx context.Context, id string) (models.Student, error) {
	var st models.Student
	q := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`
	if err := s.DB.GetContext(ctx, &st, q, id); err != nil {
		return models.Student{}, notFoundOr(err, "selecting student")
	}
	return st, nil
}

func (s *PostgresStore) UpdateStudentTarget(ctx context.Context, id string, target int) error {
	return execAffected(ctx, s.DB, "updating student",
		`UPDATE students SET monthly_target_classes = $2 WHERE id = $1`, id, target)
}

// DeleteStudent relies on ON DELETE CASCADE for the dependent rows.
func (s *PostgresStore) DeleteStudent(ctx context.Context, id string) error {
	return execAffected(ctx, s.DB, "deleting student", `DELETE FROM students WHERE id = $1`, id)
}

// --- Classes ---

const classColumns = `id, student_id, to_char(date, 'YYYY-MM-DD') AS date, completed_count, created_at`

func (s *PostgresStore) InsertClasses(ctx context.Context, rows []models.NewClassRecord) ([]models.ClassRecord, error) {
	if err := validateRows(models.SectionClasses, rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []models.ClassRecord{}, nil
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	records := make([]models.ClassRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, models.ClassRecord{
			ID:             uuid.NewString(),
			StudentID:      row.StudentID,
			Date:           row.Date,
			CompletedCount: row.CompletedCount,
			CreatedAt:      now,
		})
	}
	q := `INSERT INTO classes (id, student_id, date, completed_count, created_at)
		VALUES (:id, :student_id, :date, :completed_count, :created_at)`
	if err := s.insertBatch(ctx, models.SectionClasses, q, records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *PostgresStore) FindClasses(ctx context.Context, filter models.ClassFilter) ([]models.ClassRecord, error) {
	var where whereClause
	if filter.StudentID != "" {
		where.add("student_id = ?", filter.StudentID)
	}
	if filter.From != "" {
		where.add("date >= ?", filter.From)
	}
	if filter.To != "" {
		where.add("date <= ?", filter.To)
	}
	records := []models.ClassRecord{}
	q := s.DB.Rebind(`SELECT ` + classColumns + ` FROM classes` + where.String() + ` ORDER BY classes.date DESC, created_at DESC, id`)
	if err := s.DB.SelectContext(ctx, &records, q, where.args...); err != nil {
		if err = notFoundOr(err, "selecting classes"); errors.Is(err, ErrNotFound) {
			return records, nil
		}
		return nil, err
	}
	return records, nil
}

func (s *PostgresStore) DeleteClass(ctx context.Context, id string) error {
	return execAffected(ctx, s.DB, "deleting class", `DELETE FROM classes WHERE id = $1`, id)
}

func (s *PostgresStore) DeleteClassesByStudent(ctx context.Context, studentID string) error {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM classes WHERE student_id = $1`, studentID); err != nil {
		if err = notFoundOr(err, "deleting classes"); errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// --- Payments ---

const paymentColumns = `id, student_id, amount, to_char(date, 'YYYY-MM-DD') AS date, month, year, created_at`

func (s *PostgresStore) InsertPayments(ctx context.Context, rows []models.NewPayment) ([]models.Payment, error) {
	if err := validateRows(models.SectionPayments, rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []models.Payment{}, nil
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	payments := make([]models.Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, models.Payment{
			ID:        uuid.NewString(),
			StudentID: row.StudentID,
			Amount:    row.Amount,
			Date:      row.Date,
			Month:     row.Month,
			Year:      row.Year,
			CreatedAt: now,
		})
	}
	q := `INSERT INTO payments (id, student_id, amount, date, month, year, created_at)
		VALUES (:id, :student_id, :amount, :date, :month, :year, :created_at)`
	if err := s.insertBatch(ctx, models.SectionPayments, q, payments); err != nil {
		return nil, err
	}
	return payments, nil
}

func (s *PostgresStore) FindPayments(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error) {
	var where whereClause
	if filter.StudentID != "" {
		where.add("student_id = ?", filter.StudentID)
	}
	if filter.Month != "" {
		where.add("lower(month) = lower(?)", filter.Month)
	}
	if filter.Year != 0 {
		where.add("year = ?", filter.Year)
	}
	payments := []models.Payment{}
	q := s.DB.Rebind(`SELECT ` + paymentColumns + ` FROM payments` + where.String() + ` ORDER BY created_at DESC, id`)
	if err := s.DB.SelectContext(ctx, &payments, q, where.args...); err != nil {
		if err = notFoundOr(err, "selecting payments"); errors.Is(err, ErrNotFound) {
			return payments, nil
		}
		return nil, err
	}
	return payments, nil
}

func (s *PostgresStore) DeletePayment(ctx context.Context, id string) error {
	return execAffected(ctx, s.DB, "deleting payment", `DELETE FROM payments WHERE id = $1`, id)
}

// --- Notes ---

const noteColumns = `id, student_id, note_text, created_at`

func (s *PostgresStore) InsertNotes(ctx context.Context, rows []models.NewNote) ([]models.Note, error) {
	if err := validateRows(models.SectionNotes, rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []models.Note{}, nil
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	notes := make([]models.Note, 0, len(rows))
	for _, row := range rows {
		notes = append(notes, models.Note{
			ID:        uuid.NewString(),
			StudentID: row.StudentID,
			NoteText:  row.NoteText,
			CreatedAt: now,
		})
	}
	q := `INSERT INTO notes (` + noteColumns + `) VALUES (:id, :student_id, :note_text, :created_at)`
	if err := s.insertBatch(ctx, models.SectionNotes, q, notes); err != nil {
		return nil, err
	}
	return notes, nil
}

func (s *PostgresStore) FindNotes(ctx context.Context, filter models.NoteFilter) ([]models.Note, error) {
	var where whereClause
	if filter.StudentID != "" {
		where.add("student_id = ?", filter.StudentID)
	}
	if filter.Search != "" {
		where.add("note_text ILIKE ?", "%"+filter.Search+"%")
	}
	notes := []models.Note{}
	q := s.DB.Rebind(`SELECT ` + noteColumns + ` FROM notes` + where.String() + ` ORDER BY created_at DESC, id`)
	if err := s.DB.SelectContext(ctx, &notes, q, where.args...); err != nil {
		if err = notFoundOr(err, "selecting notes"); errors.Is(err, ErrNotFound) {
			return notes, nil
		}
		return nil, err
	}
	return notes, nil
}

func (s *PostgresStore) UpdateNoteText(ctx context.Context, id, text string) error {
	return execAffected(ctx, s.DB, "updating note", `UPDATE notes SET note_text = $2 WHERE id = $1`, id, text)
}

func (s *PostgresStore) DeleteNote(ctx context.Context, id string) error {
	return execAffected(ctx, s.DB, "deleting note", `DELETE FROM notes WHERE id = $1`, id)
}

// --- Settings ---

func (s *PostgresStore) GetSettings(ctx context.Context) (map[string]string, error) {
	var rows []models.Setting
	if err := s.DB.SelectContext(ctx, &rows, `SELECT key, value, updated_at FROM settings`); err != nil {
		return nil, errors.Wrap(err, "selecting settings")
	}
	settings := make(map[string]string, len(rows))
	for _, row := range rows {
		settings[row.Key] = row.Value
	}
	return settings, nil
}

func (s *PostgresStore) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	if err := s.DB.GetContext(ctx, &value, `SELECT value FROM settings WHERE key = $1`, key); err != nil {
		return "", notFoundOr(err, "selecting setting")
	}
	return value, nil
}

func (s *PostgresStore) UpsertSetting(ctx context.Context, key, value string) error {
	q := `INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	if _, err := s.DB.ExecContext(ctx, q, key, value); err != nil {
		return errors.Wrap(err, "upserting setting")
	}
	return nil
}

// whereClause collects "?" placeholder conditions, rebound to $n by sqlx.
type whereClause struct {
	conds []string
	args  []interface{}
}

func (w *whereClause) add(cond string, arg interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, arg)
}

func (w whereClause) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

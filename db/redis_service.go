package db

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tuition-server-go/models"
)

const (
	studentsKey       = "students"            // Set: Stores all student IDs
	studentInfoPrefix = "student:"            // Hash prefix: student:{id} -> stores student details
	classesKey        = "classes"             // Set: Stores all class record IDs
	classInfoPrefix   = "class:"              // Hash prefix: class:{id}
	paymentsKey       = "payments"            // Set: Stores all payment IDs
	paymentInfoPrefix = "payment:"            // Hash prefix: payment:{id}
	notesKey          = "notes"               // Set: Stores all note IDs
	noteInfoPrefix    = "note:"               // Hash prefix: note:{id}
	settingsKey       = "settings"            // Hash: setting key -> value
	settingsStampKey  = "settings:updated_at" // Hash: setting key -> RFC3339 timestamp
)

// RedisService stores the tuition collections in Redis
type RedisService struct {
	Client *redis.Client
	Logger *zap.Logger
}

var _ Repository = (*RedisService)(nil)

// NewRedisService creates a new RedisService instance
func NewRedisService(client *redis.Client, logger *zap.Logger) *RedisService {
	return &RedisService{
		Client: client,
		Logger: logger,
	}
}

// RedisOptions configures the Redis connection
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient creates and tests a Redis client connection
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	// Ping Redis to check connection
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("could not connect to Redis at %s: %w", opts.Addr, err)
	}
	return rdb, nil
}

func (s *RedisService) Close() error {
	return s.Client.Close()
}

// Helper to generate student info key
func getStudentInfoKey(studentID string) string {
	return studentInfoPrefix + studentID
}

// Helper to generate the per-student index set of a collection, e.g. student:{id}:classes
func getStudentRecordsKey(studentID, collection string) string {
	return studentInfoPrefix + studentID + ":" + collection
}

// --- Student Operations ---

// InsertStudents stores all rows in a single MULTI/EXEC transaction
func (s *RedisService) InsertStudents(ctx context.Context, rows []models.NewStudent) ([]models.Student, error) {
	if err := validateRows(models.SectionStudents, rows); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
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

	_, err := s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, st := range students {
			pipe.SAdd(ctx, studentsKey, st.ID)
			pipe.HSet(ctx, getStudentInfoKey(st.ID), map[string]interface{}{
				"id":                     st.ID,
				"name":                   st.Name,
				"class":                  st.Class,
				"contact":                st.Contact,
				"monthly_target_classes": st.MonthlyTargetClasses,
				"fees_per_month":         st.FeesPerMonth,
				"created_at":             st.CreatedAt.Format(time.RFC3339Nano),
			})
		}
		return nil
	})
	if err != nil {
		s.Logger.Error("adding students", zap.Int("count", len(students)), zap.Error(err))
		return nil, fmt.Errorf("failed to add students to Redis: %w", err)
	}
	s.Logger.Debug("added students", zap.Int("count", len(students)))
	return students, nil
}

// FindAllStudents retrieves all students, newest first
func (s *RedisService) FindAllStudents(ctx context.Context) ([]models.Student, error) {
	hashes, err := s.loadCollection(ctx, studentsKey, studentInfoPrefix)
	if err != nil {
		return nil, err
	}
	students := make([]models.Student, 0, len(hashes))
	for _, data := range hashes {
		students = append(students, studentFromHash(data))
	}
	sort.SliceStable(students, func(i, j int) bool {
		return newerFirst(students[i].CreatedAt, students[j].CreatedAt, students[i].ID, students[j].ID)
	})
	return students, nil
}

// GetStudent retrieves a student by their ID
func (s *RedisService) GetStudent(ctx context.Context, id string) (models.Student, error) {
	data, err := s.Client.HGetAll(ctx, getStudentInfoKey(id)).Result()
	if err != nil {
		s.Logger.Error("getting student", zap.String("id", id), zap.Error(err))
		return models.Student{}, fmt.Errorf("failed to get student from Redis: %w", err)
	}
	if len(data) == 0 {
		return models.Student{}, ErrNotFound
	}
	return studentFromHash(data), nil
}

func (s *RedisService) UpdateStudentTarget(ctx context.Context, id string, target int) error {
	if err := s.ensureMember(ctx, studentsKey, id); err != nil {
		return err
	}
	if err := s.Client.HSet(ctx, getStudentInfoKey(id), "monthly_target_classes", target).Err(); err != nil {
		s.Logger.Error("updating student target", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to update student in Redis: %w", err)
	}
	return nil
}

// DeleteStudent removes the student and every record indexed under them
func (s *RedisService) DeleteStudent(ctx context.Context, id string) error {
	if err := s.ensureMember(ctx, studentsKey, id); err != nil {
		return err
	}

	related := []struct {
		setKey, prefix, collection string
	}{
		{classesKey, classInfoPrefix, models.SectionClasses},
		{paymentsKey, paymentInfoPrefix, models.SectionPayments},
		{notesKey, noteInfoPrefix, models.SectionNotes},
	}
	recordIDs := make([][]string, len(related))
	for i, r := range related {
		ids, err := s.Client.SMembers(ctx, getStudentRecordsKey(id, r.collection)).Result()
		if err != nil {
			return fmt.Errorf("failed to get %s of student %s: %w", r.collection, id, err)
		}
		recordIDs[i] = ids
	}

	_, err := s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, r := range related {
			for _, recID := range recordIDs[i] {
				pipe.Del(ctx, r.prefix+recID)
				pipe.SRem(ctx, r.setKey, recID)
			}
			pipe.Del(ctx, getStudentRecordsKey(id, r.collection))
		}
		pipe.Del(ctx, getStudentInfoKey(id))
		pipe.SRem(ctx, studentsKey, id)
		return nil
	})
	if err != nil {
		s.Logger.Error("deleting student", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete student from Redis: %w", err)
	}
	return nil
}

// --- Class Operations ---

func (s *RedisService) InsertClasses(ctx context.Context, rows []models.NewClassRecord) ([]models.ClassRecord, error) {
	if err := validateRows(models.SectionClasses, rows); err != nil {
		return nil, err
	}
	if err := s.ensureStudents(ctx, models.SectionClasses, studentIDsOf(rows, func(r models.NewClassRecord) string { return r.StudentID })); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
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

	_, err := s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, rec := range records {
			pipe.SAdd(ctx, classesKey, rec.ID)
			pipe.SAdd(ctx, getStudentRecordsKey(rec.StudentID, models.SectionClasses), rec.ID)
			pipe.HSet(ctx, classInfoPrefix+rec.ID, map[string]interface{}{
				"id":              rec.ID,
				"student_id":      rec.StudentID,
				"date":            rec.Date,
				"completed_count": rec.CompletedCount,
				"created_at":      rec.CreatedAt.Format(time.RFC3339Nano),
			})
		}
		return nil
	})
	if err != nil {
		s.Logger.Error("adding classes", zap.Int("count", len(records)), zap.Error(err))
		return nil, fmt.Errorf("failed to add classes to Redis: %w", err)
	}
	return records, nil
}

// FindClasses retrieves matching class records, latest date first
func (s *RedisService) FindClasses(ctx context.Context, filter models.ClassFilter) ([]models.ClassRecord, error) {
	setKey := classesKey
	if filter.StudentID != "" {
		setKey = getStudentRecordsKey(filter.StudentID, models.SectionClasses)
	}
	hashes, err := s.loadCollection(ctx, setKey, classInfoPrefix)
	if err != nil {
		return nil, err
	}
	records := make([]models.ClassRecord, 0, len(hashes))
	for _, data := range hashes {
		rec := models.ClassRecord{
			ID:             data["id"],
			StudentID:      data["student_id"],
			Date:           data["date"],
			CompletedCount: atoi(data["completed_count"]),
			CreatedAt:      parseTime(data["created_at"]),
		}
		if filter.Match(rec) {
			records = append(records, rec)
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Date != records[j].Date {
			return records[i].Date > records[j].Date
		}
		return newerFirst(records[i].CreatedAt, records[j].CreatedAt, records[i].ID, records[j].ID)
	})
	return records, nil
}

func (s *RedisService) DeleteClass(ctx context.Context, id string) error {
	return s.deleteRecord(ctx, classesKey, classInfoPrefix, models.SectionClasses, id)
}

// DeleteClassesByStudent resets the class history of a student
func (s *RedisService) DeleteClassesByStudent(ctx context.Context, studentID string) error {
	indexKey := getStudentRecordsKey(studentID, models.SectionClasses)
	ids, err := s.Client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return fmt.Errorf("failed to get classes of student %s: %w", studentID, err)
	}
	_, err = s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.Del(ctx, classInfoPrefix+id)
			pipe.SRem(ctx, classesKey, id)
		}
		pipe.Del(ctx, indexKey)
		return nil
	})
	if err != nil {
		s.Logger.Error("deleting classes of student", zap.String("student_id", studentID), zap.Error(err))
		return fmt.Errorf("failed to delete classes from Redis: %w", err)
	}
	return nil
}

// --- Payment Operations ---

func (s *RedisService) InsertPayments(ctx context.Context, rows []models.NewPayment) ([]models.Payment, error) {
	if err := validateRows(models.SectionPayments, rows); err != nil {
		return nil, err
	}
	if err := s.ensureStudents(ctx, models.SectionPayments, studentIDsOf(rows, func(r models.NewPayment) string { return r.StudentID })); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
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

	_, err := s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, p := range payments {
			pipe.SAdd(ctx, paymentsKey, p.ID)
			pipe.SAdd(ctx, getStudentRecordsKey(p.StudentID, models.SectionPayments), p.ID)
			pipe.HSet(ctx, paymentInfoPrefix+p.ID, map[string]interface{}{
				"id":         p.ID,
				"student_id": p.StudentID,
				"amount":     p.Amount,
				"date":       p.Date,
				"month":      p.Month,
				"year":       p.Year,
				"created_at": p.CreatedAt.Format(time.RFC3339Nano),
			})
		}
		return nil
	})
	if err != nil {
		s.Logger.Error("adding payments", zap.Int("count", len(payments)), zap.Error(err))
		return nil, fmt.Errorf("failed to add payments to Redis: %w", err)
	}
	return payments, nil
}

// FindPayments retrieves matching payments, newest first
func (s *RedisService) FindPayments(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error) {
	setKey := paymentsKey
	if filter.StudentID != "" {
		setKey = getStudentRecordsKey(filter.StudentID, models.SectionPayments)
	}
	hashes, err := s.loadCollection(ctx, setKey, paymentInfoPrefix)
	if err != nil {
		return nil, err
	}
	payments := make([]models.Payment, 0, len(hashes))
	for _, data := range hashes {
		p := models.Payment{
			ID:        data["id"],
			StudentID: data["student_id"],
			Amount:    parseFloat(data["amount"]),
			Date:      data["date"],
			Month:     data["month"],
			Year:      atoi(data["year"]),
			CreatedAt: parseTime(data["created_at"]),
		}
		if filter.Match(p) {
			payments = append(payments, p)
		}
	}
	sort.SliceStable(payments, func(i, j int) bool {
		return newerFirst(payments[i].CreatedAt, payments[j].CreatedAt, payments[i].ID, payments[j].ID)
	})
	return payments, nil
}

func (s *RedisService) DeletePayment(ctx context.Context, id string) error {
	return s.deleteRecord(ctx, paymentsKey, paymentInfoPrefix, models.SectionPayments, id)
}

// --- Note Operations ---

func (s *RedisService) InsertNotes(ctx context.Context, rows []models.NewNote) ([]models.Note, error) {
	if err := validateRows(models.SectionNotes, rows); err != nil {
		return nil, err
	}
	if err := s.ensureStudents(ctx, models.SectionNotes, studentIDsOf(rows, func(r models.NewNote) string { return r.StudentID })); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	notes := make([]models.Note, 0, len(rows))
	for _, row := range rows {
		notes = append(notes, models.Note{
			ID:        uuid.NewString(),
			StudentID: row.StudentID,
			NoteText:  row.NoteText,
			CreatedAt: now,
		})
	}

	_, err := s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, n := range notes {
			pipe.SAdd(ctx, notesKey, n.ID)
			pipe.SAdd(ctx, getStudentRecordsKey(n.StudentID, models.SectionNotes), n.ID)
			pipe.HSet(ctx, noteInfoPrefix+n.ID, map[string]interface{}{
				"id":         n.ID,
				"student_id": n.StudentID,
				"note_text":  n.NoteText,
				"created_at": n.CreatedAt.Format(time.RFC3339Nano),
			})
		}
		return nil
	})
	if err != nil {
		s.Logger.Error("adding notes", zap.Int("count", len(notes)), zap.Error(err))
		return nil, fmt.Errorf("failed to add notes to Redis: %w", err)
	}
	return notes, nil
}

func (s *RedisService) FindNotes(ctx context.Context, filter models.NoteFilter) ([]models.Note, error) {
	setKey := notesKey
	if filter.StudentID != "" {
		setKey = getStudentRecordsKey(filter.StudentID, models.SectionNotes)
	}
	hashes, err := s.loadCollection(ctx, setKey, noteInfoPrefix)
	if err != nil {
		return nil, err
	}
	notes := make([]models.Note, 0, len(hashes))
	for _, data := range hashes {
		n := models.Note{
			ID:        data["id"],
			StudentID: data["student_id"],
			NoteText:  data["note_text"],
			CreatedAt: parseTime(data["created_at"]),
		}
		if filter.Match(n) {
			notes = append(notes, n)
		}
	}
	sort.SliceStable(notes, func(i, j int) bool {
		return newerFirst(notes[i].CreatedAt, notes[j].CreatedAt, notes[i].ID, notes[j].ID)
	})
	return notes, nil
}

func (s *RedisService) UpdateNoteText(ctx context.Context, id, text string) error {
	if err := s.ensureMember(ctx, notesKey, id); err != nil {
		return err
	}
	if err := s.Client.HSet(ctx, noteInfoPrefix+id, "note_text", text).Err(); err != nil {
		s.Logger.Error("updating note", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to update note in Redis: %w", err)
	}
	return nil
}

func (s *RedisService) DeleteNote(ctx context.Context, id string) error {
	return s.deleteRecord(ctx, notesKey, noteInfoPrefix, models.SectionNotes, id)
}

// --- Settings ---

func (s *RedisService) GetSettings(ctx context.Context) (map[string]string, error) {
	settings, err := s.Client.HGetAll(ctx, settingsKey).Result()
	if err != nil {
		s.Logger.Error("getting settings", zap.Error(err))
		return nil, fmt.Errorf("failed to get settings from Redis: %w", err)
	}
	return settings, nil
}

func (s *RedisService) GetSetting(ctx context.Context, key string) (string, error) {
	value, err := s.Client.HGet(ctx, settingsKey, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		s.Logger.Error("getting setting", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("failed to get setting %s from Redis: %w", key, err)
	}
	return value, nil
}

func (s *RedisService) UpsertSetting(ctx context.Context, key, value string) error {
	_, err := s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, settingsKey, key, value)
		pipe.HSet(ctx, settingsStampKey, key, time.Now().UTC().Format(time.RFC3339Nano))
		return nil
	})
	if err != nil {
		s.Logger.Error("updating setting", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to update setting %s in Redis: %w", key, err)
	}
	return nil
}

// --- Utility ---

// loadCollection fetches the hashes of every ID in setKey with a single pipeline.
// IDs whose hash has disappeared are skipped.
func (s *RedisService) loadCollection(ctx context.Context, setKey, prefix string) ([]map[string]string, error) {
	ids, err := s.Client.SMembers(ctx, setKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		s.Logger.Error("getting IDs", zap.String("key", setKey), zap.Error(err))
		return nil, fmt.Errorf("failed to get IDs of %s from Redis: %w", setKey, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.StringStringMapCmd, len(ids))
	_, err = s.Client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, prefix+id)
		}
		return nil
	})
	if err != nil {
		s.Logger.Error("getting hashes", zap.String("key", setKey), zap.Error(err))
		return nil, fmt.Errorf("failed to get %s from Redis: %w", setKey, err)
	}

	hashes := make([]map[string]string, 0, len(cmds))
	for _, cmd := range cmds {
		if data := cmd.Val(); len(data) > 0 {
			hashes = append(hashes, data)
		}
	}
	return hashes, nil
}

func (s *RedisService) ensureMember(ctx context.Context, setKey, id string) error {
	exists, err := s.Client.SIsMember(ctx, setKey, id).Result()
	if err != nil {
		return fmt.Errorf("failed to check existence of %s in %s: %w", id, setKey, err)
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}

// ensureStudents rejects the batch when a referenced student does not exist,
// like a foreign key would.
func (s *RedisService) ensureStudents(ctx context.Context, collection string, ids []string) error {
	for _, id := range ids {
		exists, err := s.Client.SIsMember(ctx, studentsKey, id).Result()
		if err != nil {
			return fmt.Errorf("failed to check student %s: %w", id, err)
		}
		if !exists {
			return &BatchError{Collection: collection, Err: fmt.Errorf("student %s does not exist", id)}
		}
	}
	return nil
}

func (s *RedisService) deleteRecord(ctx context.Context, setKey, prefix, collection, id string) error {
	studentID, err := s.Client.HGet(ctx, prefix+id, "student_id").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get %s %s from Redis: %w", collection, id, err)
	}
	_, err = s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, prefix+id)
		pipe.SRem(ctx, setKey, id)
		pipe.SRem(ctx, getStudentRecordsKey(studentID, collection), id)
		return nil
	})
	if err != nil {
		s.Logger.Error("deleting record", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete %s %s from Redis: %w", collection, id, err)
	}
	return nil
}

func studentFromHash(data map[string]string) models.Student {
	return models.Student{
		ID:                   data["id"],
		Name:                 data["name"],
		Class:                data["class"],
		Contact:              data["contact"],
		MonthlyTargetClasses: atoi(data["monthly_target_classes"]),
		FeesPerMonth:         parseFloat(data["fees_per_month"]),
		CreatedAt:            parseTime(data["created_at"]),
	}
}

func studentIDsOf[T any](rows []T, id func(T) string) []string {
	seen := make(map[string]struct{}, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		sid := id(row)
		if _, ok := seen[sid]; ok {
			continue
		}
		seen[sid] = struct{}{}
		ids = append(ids, sid)
	}
	return ids
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// newerFirst orders by creation time descending, then by ID for a stable listing.
func newerFirst(a, b time.Time, idA, idB string) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return idA < idB
}

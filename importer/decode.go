package importer

import (
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"tuition-server-go/models"
)

// Parse decodes an uploaded JSON file without imposing a schema, so that
// Validate sees the document exactly as the user wrote it.
func Parse(data []byte) (any, error) {
	var doc any
	if err := sonic.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parsing import file")
	}
	return doc, nil
}

// Decode converts a generically decoded document into typed records.
// Call it on documents that passed Validate; anything unexpected decodes to zero values.
func Decode(doc any) models.ImportDocument {
	var out models.ImportDocument
	root, _ := doc.(map[string]any)

	for _, r := range records(root, models.SectionStudents) {
		out.Students = append(out.Students, models.ImportStudent{
			Name:                 str(r["name"]),
			Class:                str(r["class"]),
			Contact:              str(r["contact"]),
			MonthlyTargetClasses: integer(r["monthly_target_classes"]),
			FeesPerMonth:         number(r["fees_per_month"]),
		})
	}
	for _, r := range records(root, models.SectionClasses) {
		out.Classes = append(out.Classes, models.ImportClass{
			StudentName:    str(r["student_name"]),
			Date:           str(r["date"]),
			CompletedCount: integer(r["completed_count"]),
		})
	}
	for _, r := range records(root, models.SectionPayments) {
		out.Payments = append(out.Payments, models.ImportPayment{
			StudentName: str(r["student_name"]),
			Amount:      number(r["amount"]),
			Date:        str(r["date"]),
			Month:       str(r["month"]),
			Year:        integer(r["year"]),
		})
	}
	for _, r := range records(root, models.SectionNotes) {
		out.Notes = append(out.Notes, models.ImportNote{
			StudentName: str(r["student_name"]),
			NoteText:    str(r["note_text"]),
		})
	}
	return out
}

// records returns the elements of root[section]; non-object elements become empty records.
func records(root map[string]any, section string) []map[string]any {
	items, _ := root[section].([]any)
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		r, _ := item.(map[string]any)
		out = append(out, r)
	}
	return out
}

func str(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	}
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}

func number(v any) float64 {
	if f, ok := toFloat(v); ok {
		return f
	}
	if s, ok := v.(string); ok {
		f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f
	}
	return 0
}

func integer(v any) int {
	return int(number(v))
}

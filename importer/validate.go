package importer

import (
	"math"

	"tuition-server-go/models"
)

const rootStructureMessage = "Invalid JSON structure. Expected an object."

// Validate checks the shape of a generically decoded import document.
// It never consults the store, so references to unknown students pass here and
// are reported per record by the import itself.
func Validate(doc any) models.ValidationResult {
	errs := []models.ValidationError{}

	root, ok := doc.(map[string]any)
	if !ok || root == nil {
		errs = append(errs, models.ValidationError{Field: "root", Message: rootStructureMessage})
		return models.ValidationResult{Valid: false, Errors: errs}
	}

	for _, section := range models.Sections {
		value, present := root[section]
		if !present {
			continue
		}
		items, isArray := value.([]any)
		if !isArray {
			errs = append(errs, models.ValidationError{Field: section, Message: collectionTitle(section) + " must be an array"})
			continue
		}
		check := recordCheckers[section]
		for i, item := range items {
			record, _ := item.(map[string]any)
			for _, fe := range check(record) {
				idx := i
				fe.Section = section
				fe.Index = &idx
				errs = append(errs, fe)
			}
		}
	}

	return models.ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

var recordCheckers = map[string]func(map[string]any) []models.ValidationError{
	models.SectionStudents: checkStudent,
	models.SectionClasses:  checkClass,
	models.SectionPayments: checkPayment,
	models.SectionNotes:    checkNote,
}

func checkStudent(r map[string]any) []models.ValidationError {
	var errs []models.ValidationError
	if name, ok := r["name"].(string); !ok || name == "" {
		errs = append(errs, fieldError("name", "Student name is required"))
	}
	for _, field := range []string{"monthly_target_classes", "fees_per_month"} {
		if v, present := r[field]; present && !isNumber(v) {
			errs = append(errs, fieldError(field, "Must be a number"))
		}
	}
	return errs
}

func checkClass(r map[string]any) []models.ValidationError {
	var errs []models.ValidationError
	if !truthy(r["student_name"]) {
		errs = append(errs, fieldError("student_name", "Student name is required"))
	}
	if !truthy(r["date"]) {
		errs = append(errs, fieldError("date", "Date is required"))
	}
	if v, present := r["completed_count"]; present && !isNumber(v) {
		errs = append(errs, fieldError("completed_count", "Must be a number"))
	}
	return errs
}

func checkPayment(r map[string]any) []models.ValidationError {
	var errs []models.ValidationError
	if !truthy(r["student_name"]) {
		errs = append(errs, fieldError("student_name", "Student name is required"))
	}
	if amount := r["amount"]; !truthy(amount) || !isNumber(amount) {
		errs = append(errs, fieldError("amount", "Amount is required and must be a number"))
	}
	if !truthy(r["date"]) {
		errs = append(errs, fieldError("date", "Date is required"))
	}
	return errs
}

func checkNote(r map[string]any) []models.ValidationError {
	var errs []models.ValidationError
	if !truthy(r["student_name"]) {
		errs = append(errs, fieldError("student_name", "Student name is required"))
	}
	if !truthy(r["note_text"]) {
		errs = append(errs, fieldError("note_text", "Note text is required"))
	}
	return errs
}

func fieldError(field, message string) models.ValidationError {
	return models.ValidationError{Field: field, Message: message}
}

func collectionTitle(section string) string {
	return string(section[0]-'a'+'A') + section[1:]
}

// truthy treats missing, null, false, zero and the empty string as absent.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	default:
		if f, ok := toFloat(v); ok {
			return f != 0 && !math.IsNaN(f)
		}
		return true
	}
}

func isNumber(v any) bool {
	_, ok := toFloat(v)
	return ok
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}

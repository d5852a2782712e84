package models

// Import collection names, also used as section names in validation errors.
const (
	SectionStudents = "students"
	SectionClasses  = "classes"
	SectionPayments = "payments"
	SectionNotes    = "notes"
)

// Sections lists the import collections in pipeline order.
var Sections = []string{SectionStudents, SectionClasses, SectionPayments, SectionNotes}

// ImportStudent is a student row of an import document.
type ImportStudent struct {
	Name                 string  `json:"name"`
	Class                string  `json:"class"`
	Contact              string  `json:"contact"`
	MonthlyTargetClasses int     `json:"monthly_target_classes"`
	FeesPerMonth         float64 `json:"fees_per_month"`
}

// ImportClass references its student by name since ids do not exist client-side.
type ImportClass struct {
	StudentName    string `json:"student_name"`
	Date           string `json:"date"`
	CompletedCount int    `json:"completed_count"`
}

type ImportPayment struct {
	StudentName string  `json:"student_name"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	Month       string  `json:"month"`
	Year        int     `json:"year"`
}

type ImportNote struct {
	StudentName string `json:"student_name"`
	NoteText    string `json:"note_text"`
}

// ImportDocument is the typed form of an uploaded import file. Every collection is optional.
type ImportDocument struct {
	Students []ImportStudent `json:"students,omitempty"`
	Classes  []ImportClass   `json:"classes,omitempty"`
	Payments []ImportPayment `json:"payments,omitempty"`
	Notes    []ImportNote    `json:"notes,omitempty"`
}

// ValidationError locates a single structural problem of an import document.
// Section and Index are empty for root and whole-collection errors.
type ValidationError struct {
	Section string `json:"section,omitempty"`
	Index   *int   `json:"index,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors"`
}

// CollectionResult counts the outcome of one import collection.
type CollectionResult struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

// ImportReport is returned once per import call.
type ImportReport struct {
	Students CollectionResult `json:"students"`
	Classes  CollectionResult `json:"classes"`
	Payments CollectionResult `json:"payments"`
	Notes    CollectionResult `json:"notes"`
}

// NewImportReport returns an empty report whose error lists marshal as [] rather than null.
func NewImportReport() ImportReport {
	return ImportReport{
		Students: CollectionResult{Errors: []string{}},
		Classes:  CollectionResult{Errors: []string{}},
		Payments: CollectionResult{Errors: []string{}},
		Notes:    CollectionResult{Errors: []string{}},
	}
}

package models

import "time"

// Student represents a tutored student
type Student struct {
	ID                   string    `json:"id" db:"id"`                                         // Generated UUID
	Name                 string    `json:"name" db:"name"`                                     // Display name, used to resolve imports
	Class                string    `json:"class" db:"class"`                                   // Class label, e.g. "Grade 10"
	Contact              string    `json:"contact" db:"contact"`                               // Phone number or similar
	MonthlyTargetClasses int       `json:"monthly_target_classes" db:"monthly_target_classes"` // Classes planned per month
	FeesPerMonth         float64   `json:"fees_per_month" db:"fees_per_month"`                 // Monthly fee amount
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
}

// NewStudent contains the information needed to create a Student.
type NewStudent struct {
	Name                 string  `json:"name" validate:"required"`
	Class                string  `json:"class"`
	Contact              string  `json:"contact"`
	MonthlyTargetClasses int     `json:"monthly_target_classes" validate:"gte=0"`
	FeesPerMonth         float64 `json:"fees_per_month" validate:"gte=0"`
}

// ClassRecord represents completed classes of a student on a given day
type ClassRecord struct {
	ID             string    `json:"id" db:"id"`
	StudentID      string    `json:"student_id" db:"student_id"`
	Date           string    `json:"date" db:"date"` // YYYY-MM-DD
	CompletedCount int       `json:"completed_count" db:"completed_count"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// NewClassRecord contains the information needed to record classes.
type NewClassRecord struct {
	StudentID      string `json:"student_id" validate:"required"`
	Date           string `json:"date" validate:"required,datetime=2006-01-02"`
	CompletedCount int    `json:"completed_count" validate:"gte=0"`
}

// Payment represents a single fee payment
type Payment struct {
	ID        string    `json:"id" db:"id"`
	StudentID string    `json:"student_id" db:"student_id"`
	Amount    float64   `json:"amount" db:"amount"`
	Date      string    `json:"date" db:"date"`   // YYYY-MM-DD
	Month     string    `json:"month" db:"month"` // Month the payment covers, e.g. "January"
	Year      int       `json:"year" db:"year"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewPayment contains the information needed to record a Payment.
type NewPayment struct {
	StudentID string  `json:"student_id" validate:"required"`
	Amount    float64 `json:"amount" validate:"required"`
	Date      string  `json:"date" validate:"required,datetime=2006-01-02"`
	Month     string  `json:"month"`
	Year      int     `json:"year"`
}

// Note is a free-text annotation on a student
type Note struct {
	ID        string    `json:"id" db:"id"`
	StudentID string    `json:"student_id" db:"student_id"`
	NoteText  string    `json:"note_text" db:"note_text"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewNote contains the information needed to create a Note.
type NewNote struct {
	StudentID string `json:"student_id" validate:"required"`
	NoteText  string `json:"note_text" validate:"required"`
}

// Setting is a single key-value application setting
type Setting struct {
	Key       string    `json:"key" db:"key"`
	Value     string    `json:"value" db:"value"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// StudentDetail bundles a student with everything recorded for them.
type StudentDetail struct {
	Student  Student       `json:"student"`
	Classes  []ClassRecord `json:"classes"`
	Payments []Payment     `json:"payments"`
	Notes    []Note        `json:"notes"`
}

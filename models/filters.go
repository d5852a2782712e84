package models

import "strings"

// StudentFilter narrows a student listing. Search matches name or class, case-insensitive.
type StudentFilter struct {
	Search string
}

func (f StudentFilter) Match(s Student) bool {
	if f.Search == "" {
		return true
	}
	q := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(s.Name), q) || strings.Contains(strings.ToLower(s.Class), q)
}

// ClassFilter narrows a class listing. From and To are inclusive YYYY-MM-DD bounds.
type ClassFilter struct {
	StudentID string
	From      string
	To        string
}

func (f ClassFilter) Match(c ClassRecord) bool {
	if f.StudentID != "" && c.StudentID != f.StudentID {
		return false
	}
	// ISO dates compare lexically
	if f.From != "" && c.Date < f.From {
		return false
	}
	if f.To != "" && c.Date > f.To {
		return false
	}
	return true
}

type PaymentFilter struct {
	StudentID string
	Month     string
	Year      int
}

func (f PaymentFilter) Match(p Payment) bool {
	if f.StudentID != "" && p.StudentID != f.StudentID {
		return false
	}
	if f.Month != "" && !strings.EqualFold(p.Month, f.Month) {
		return false
	}
	if f.Year != 0 && p.Year != f.Year {
		return false
	}
	return true
}

type NoteFilter struct {
	StudentID string
	Search    string
}

func (f NoteFilter) Match(n Note) bool {
	if f.StudentID != "" && n.StudentID != f.StudentID {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(n.NoteText), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

// Package reports renders per-student workbooks for download.
package reports

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"tuition-server-go/models"
)

const summarySheet = "Summary"

// Totals aggregates the recorded classes and payments of a student.
type Totals struct {
	Classes int
	Paid    float64
}

func Summarize(detail models.StudentDetail) Totals {
	var t Totals
	for _, c := range detail.Classes {
		t.Classes += c.CompletedCount
	}
	for _, p := range detail.Payments {
		t.Paid += p.Amount
	}
	return t
}

// FileName is the download name of a student's report.
func FileName(st models.Student) string {
	return fmt.Sprintf("student-report-%s.xlsx", st.ID)
}

// StudentWorkbook renders the student's details with one sheet for each of
// classes, payments and notes. The caller closes the returned file.
func StudentWorkbook(detail models.StudentDetail) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := writeStudentWorkbook(f, detail); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func writeStudentWorkbook(f *excelize.File, detail models.StudentDetail) error {
	if err := f.SetSheetName(f.GetSheetName(0), summarySheet); err != nil {
		return errors.Wrap(err, "naming summary sheet")
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating style")
	}

	st := detail.Student
	totals := Summarize(detail)
	summary := [][]interface{}{
		{"Name", st.Name},
		{"Class", st.Class},
		{"Contact", st.Contact},
		{"Monthly target classes", st.MonthlyTargetClasses},
		{"Fees per month", st.FeesPerMonth},
		{"Total classes", totals.Classes},
		{"Total paid", totals.Paid},
	}
	if err = writeRows(f, summarySheet, summary); err != nil {
		return err
	}
	if err = f.SetColStyle(summarySheet, "A", bold); err != nil {
		return errors.Wrap(err, "styling summary")
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 24)
	_ = f.SetColWidth(summarySheet, "B", "B", 32)

	classes := [][]interface{}{{"Date", "Completed"}}
	for _, c := range detail.Classes {
		classes = append(classes, []interface{}{c.Date, c.CompletedCount})
	}
	payments := [][]interface{}{{"Date", "Amount", "Month", "Year"}}
	for _, p := range detail.Payments {
		payments = append(payments, []interface{}{p.Date, p.Amount, p.Month, p.Year})
	}
	notes := [][]interface{}{{"Created", "Note"}}
	for _, n := range detail.Notes {
		notes = append(notes, []interface{}{n.CreatedAt.Format("2006-01-02 15:04"), n.NoteText})
	}

	for _, sheet := range []struct {
		name string
		rows [][]interface{}
	}{
		{"Classes", classes},
		{"Payments", payments},
		{"Notes", notes},
	} {
		if _, err = f.NewSheet(sheet.name); err != nil {
			return errors.Wrapf(err, "creating sheet %s", sheet.name)
		}
		if err = writeRows(f, sheet.name, sheet.rows); err != nil {
			return err
		}
		if err = f.SetRowStyle(sheet.name, 1, 1, bold); err != nil {
			return errors.Wrapf(err, "styling %s header", sheet.name)
		}
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		row := row
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err = f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrapf(err, "writing %s row %d", sheet, i+1)
		}
	}
	return nil
}

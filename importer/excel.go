package importer

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"tuition-server-go/models"
)

// WorkbookTemplateFileName is the download name of the workbook template.
const WorkbookTemplateFileName = "import-template.xlsx"

// workbookColumns is the header row of each sheet.
var workbookColumns = map[string][]string{
	models.SectionStudents: {"name", "class", "contact", "monthly_target_classes", "fees_per_month"},
	models.SectionClasses:  {"student_name", "date", "completed_count"},
	models.SectionPayments: {"student_name", "amount", "date", "month", "year"},
	models.SectionNotes:    {"student_name", "note_text"},
}

// numericColumns hold numbers in the JSON form of the document.
var numericColumns = map[string]bool{
	"monthly_target_classes": true,
	"fees_per_month":         true,
	"completed_count":        true,
	"amount":                 true,
	"year":                   true,
}

// ParseWorkbook reads an .xlsx upload into the same generic shape Parse produces.
// Each collection lives in a sheet named after it, with field names in the first row.
// Missing sheets are treated as absent collections; empty cells as absent fields.
func ParseWorkbook(r io.Reader) (map[string]any, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening workbook")
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := make(map[string]string)
	for _, name := range f.GetSheetList() {
		sheets[strings.ToLower(strings.TrimSpace(name))] = name
	}

	doc := make(map[string]any)
	for _, section := range models.Sections {
		sheet, ok := sheets[section]
		if !ok {
			continue
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, errors.Wrapf(err, "reading sheet %s", sheet)
		}
		doc[section] = sheetRecords(rows)
	}
	if len(doc) == 0 {
		return nil, fmt.Errorf("workbook has none of the sheets %s", strings.Join(models.Sections, ", "))
	}
	return doc, nil
}

func sheetRecords(rows [][]string) []any {
	records := []any{}
	if len(rows) == 0 {
		return records
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	for _, row := range rows[1:] {
		record := make(map[string]any)
		for i, cell := range row {
			if i >= len(header) || header[i] == "" {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			if numericColumns[header[i]] {
				if f, err := strconv.ParseFloat(cell, 64); err == nil {
					record[header[i]] = f
					continue
				}
			}
			record[header[i]] = cell
		}
		// Skip blank rows
		if len(record) == 0 {
			continue
		}
		records = append(records, record)
	}
	return records
}

// TemplateWorkbook renders Template as a workbook with one sheet per collection.
// The caller closes the returned file.
func TemplateWorkbook() (*excelize.File, error) {
	doc := Template()
	rows := map[string][][]interface{}{}
	for _, s := range doc.Students {
		rows[models.SectionStudents] = append(rows[models.SectionStudents],
			[]interface{}{s.Name, s.Class, s.Contact, s.MonthlyTargetClasses, s.FeesPerMonth})
	}
	for _, c := range doc.Classes {
		rows[models.SectionClasses] = append(rows[models.SectionClasses],
			[]interface{}{c.StudentName, c.Date, c.CompletedCount})
	}
	for _, p := range doc.Payments {
		rows[models.SectionPayments] = append(rows[models.SectionPayments],
			[]interface{}{p.StudentName, p.Amount, p.Date, p.Month, p.Year})
	}
	for _, n := range doc.Notes {
		rows[models.SectionNotes] = append(rows[models.SectionNotes],
			[]interface{}{n.StudentName, n.NoteText})
	}

	f := excelize.NewFile()
	for i, section := range models.Sections {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), section); err != nil {
				_ = f.Close()
				return nil, errors.Wrap(err, "naming sheet")
			}
		} else if _, err := f.NewSheet(section); err != nil {
			_ = f.Close()
			return nil, errors.Wrapf(err, "creating sheet %s", section)
		}

		header := make([]interface{}, 0, len(workbookColumns[section]))
		for _, col := range workbookColumns[section] {
			header = append(header, col)
		}
		if err := f.SetSheetRow(section, "A1", &header); err != nil {
			_ = f.Close()
			return nil, errors.Wrapf(err, "writing %s header", section)
		}
		for j, row := range rows[section] {
			row := row
			if err := f.SetSheetRow(section, fmt.Sprintf("A%d", j+2), &row); err != nil {
				_ = f.Close()
				return nil, errors.Wrapf(err, "writing %s row %d", section, j+1)
			}
		}
	}
	return f, nil
}

package importer

import (
	"github.com/bytedance/sonic"

	"tuition-server-go/models"
)

// TemplateFileName is the download name of the JSON template.
const TemplateFileName = "import-template.json"

// Template returns the example import document offered for download.
// Its field names are exactly the ones Validate expects.
func Template() models.ImportDocument {
	return models.ImportDocument{
		Students: []models.ImportStudent{
			{Name: "John Doe", Class: "Grade 10", Contact: "01712345678", MonthlyTargetClasses: 8, FeesPerMonth: 2000},
			{Name: "Jane Smith", Class: "Grade 9", Contact: "01798765432", MonthlyTargetClasses: 10, FeesPerMonth: 2500},
		},
		Classes: []models.ImportClass{
			{StudentName: "John Doe", Date: "2024-01-15", CompletedCount: 1},
			{StudentName: "Jane Smith", Date: "2024-01-15", CompletedCount: 1},
		},
		Payments: []models.ImportPayment{
			{StudentName: "John Doe", Amount: 2000, Date: "2024-01-01", Month: "January", Year: 2024},
			{StudentName: "Jane Smith", Amount: 2500, Date: "2024-01-01", Month: "January", Year: 2024},
		},
		Notes: []models.ImportNote{
			{StudentName: "John Doe", NoteText: "Excellent progress in mathematics"},
			{StudentName: "Jane Smith", NoteText: "Needs improvement in physics"},
		},
	}
}

// TemplateJSON renders Template as indented JSON.
func TemplateJSON() ([]byte, error) {
	return sonic.ConfigStd.MarshalIndent(Template(), "", "  ")
}

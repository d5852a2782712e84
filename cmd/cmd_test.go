package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tuition-server-go/db"
	"tuition-server-go/importer"
	"tuition-server-go/models"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("TUITION_STORE_DRIVER", "memory")
	t.Setenv("TUITION_LOG_LEVEL", "error")

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestTemplateCmd(t *testing.T) {
	out, err := run(t, "template")
	require.NoError(t, err)

	doc, err := importer.Parse([]byte(out))
	require.NoError(t, err)
	assert.True(t, importer.Validate(doc).Valid)

	path := filepath.Join(t.TempDir(), "template.xlsx")
	_, err = run(t, "template", "--xlsx", "--out", path)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	parsed, err := importer.ParseWorkbook(f)
	require.NoError(t, err)
	assert.Equal(t, importer.Template(), importer.Decode(parsed))
}

func TestValidateCmd(t *testing.T) {
	valid := writeFile(t, "ok.json", `{"students": [{"name": "A"}]}`)
	out, err := run(t, "validate", "--file", valid)
	require.NoError(t, err)
	assert.Contains(t, out, "document is valid")

	invalid := writeFile(t, "bad.json", `{"students": [{"name": "A"}, {}], "notes": "x"}`)
	out, err = run(t, "validate", "-f", invalid)
	assert.ErrorIs(t, err, errInvalidDocument)
	assert.Contains(t, out, "students[1].name: Student name is required")
	assert.Contains(t, out, "notes: Notes must be an array")

	_, err = run(t, "validate", "--file", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = run(t, "validate")
	assert.Error(t, err, "--file is required")
}

func TestImportCmd(t *testing.T) {
	doc := writeFile(t, "doc.json", `{
		"students": [{"name": "A"}],
		"classes": [{"student_name": "A", "date": "2024-01-01"}],
		"payments": [{"student_name": "B", "amount": 100, "date": "2024-01-01"}]
	}`)

	out, err := run(t, "import", "--file", doc, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing imported")

	out, err = run(t, "import", "--file", doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"students": {"success": 1, "failed": 0, "errors": []},
		"classes":  {"success": 1, "failed": 0, "errors": []},
		"payments": {"success": 0, "failed": 1, "errors": ["Student \"B\" not found"]},
		"notes":    {"success": 0, "failed": 0, "errors": []}
	}`, out)

	bad := writeFile(t, "bad.json", `[]`)
	out, err = run(t, "import", "--file", bad)
	assert.ErrorIs(t, err, errInvalidDocument)
	assert.Contains(t, out, "root: Invalid JSON structure. Expected an object.")
}

func TestMigrateCmd_RequiresPostgres(t *testing.T) {
	_, err := run(t, "migrate")
	assert.Error(t, err)
}

func TestSeedIfEmpty(t *testing.T) {
	ctx := context.Background()
	repo := db.NewMemoryStore()

	seedIfEmpty(ctx, repo, zap.NewNop())
	students, err := repo.FindAllStudents(ctx)
	require.NoError(t, err)
	assert.Len(t, students, 2)
	notes, err := repo.FindNotes(ctx, models.NoteFilter{})
	require.NoError(t, err)
	assert.Len(t, notes, 2)

	seedIfEmpty(ctx, repo, zap.NewNop())
	students, err = repo.FindAllStudents(ctx)
	require.NoError(t, err)
	assert.Len(t, students, 2, "seed runs only on an empty store")
}

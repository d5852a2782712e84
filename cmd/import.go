package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tuition-server-go/importer"
	"tuition-server-go/models"
)

type importOptions struct {
	file   string
	dryRun bool
}

// errInvalidDocument is returned after the validation errors have been printed.
var errInvalidDocument = errors.New("import document is invalid")

func newImportCmd(a *app) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import students, classes, payments and notes from a JSON or xlsx file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runImport(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Import file, .json or .xlsx (required)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Validate only, do not write to the store")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (a *app) runImport(cmd *cobra.Command, opts importOptions) error {
	doc, err := readDocument(opts.file)
	if err != nil {
		return err
	}
	if err = reportValidation(cmd.OutOrStdout(), importer.Validate(doc)); err != nil {
		return err
	}
	if opts.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "dry run: document is valid, nothing imported")
		return nil
	}

	ctx := cmd.Context()
	repo, err := a.openStore(ctx)
	if err != nil {
		return errors.Wrap(err, "opening store")
	}
	defer repo.Close()

	a.logger.Info("importing", zap.String("file", opts.file))
	report, importErr := importer.New(repo, a.logger).Import(ctx, importer.Decode(doc))
	if err = printJSON(cmd.OutOrStdout(), report); err != nil {
		return err
	}
	return importErr
}

func newValidateCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the structure of an import file without importing it",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(file)
			if err != nil {
				return err
			}
			if err = reportValidation(cmd.OutOrStdout(), importer.Validate(doc)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "document is valid")
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Import file, .json or .xlsx (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// readDocument parses a .json or .xlsx import file into its generic form.
func readDocument(path string) (any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening import file")
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return importer.ParseWorkbook(f)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrap(err, "reading import file")
	}
	return importer.Parse(data)
}

// reportValidation prints one line per error and fails when there are any.
func reportValidation(w io.Writer, res models.ValidationResult) error {
	if res.Valid {
		return nil
	}
	for _, fe := range res.Errors {
		if fe.Index != nil {
			fmt.Fprintf(w, "%s[%d].%s: %s\n", fe.Section, *fe.Index, fe.Field, fe.Message)
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", fe.Field, fe.Message)
	}
	return errInvalidDocument
}

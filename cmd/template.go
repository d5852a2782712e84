package cmd

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"tuition-server-go/importer"
)

func newTemplateCmd(a *app) *cobra.Command {
	var (
		xlsx bool
		out  string
	)
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write the example import document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if xlsx {
				if out == "" {
					out = importer.WorkbookTemplateFileName
				}
				f, err := importer.TemplateWorkbook()
				if err != nil {
					return err
				}
				defer f.Close()
				if err = f.SaveAs(out); err != nil {
					return errors.Wrapf(err, "saving %s", out)
				}
				cmd.Printf("wrote %s\n", out)
				return nil
			}

			data, err := importer.TemplateJSON()
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			if err = os.WriteFile(out, append(data, '\n'), 0o644); err != nil {
				return errors.Wrapf(err, "writing %s", out)
			}
			cmd.Printf("wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&xlsx, "xlsx", false, "Write an xlsx workbook instead of JSON")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path (JSON defaults to stdout)")
	return cmd
}

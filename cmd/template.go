// =============================================================================
// Plano de Aplicação Converter - Template Command
// =============================================================================
//
// COMMAND USAGE:
//   plano template [--path modelo.xlsx]
//
// Prints the header row discovered in the template and the column each
// header maps to.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/types"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/xlsxparser"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Show the header row discovered in the XLSX template",

	RunE: func(cmd *cobra.Command, args []string) error {
		header, err := xlsxparser.ReadHeader(mainConfig.TemplatePath, mainConfig.HeaderOptions())
		if err != nil {
			return err
		}
		return printHeader(cmd.OutOrStdout(), mainConfig.TemplatePath, header)
	},
}

func init() {
	rootCmd.AddCommand(templateCmd)

	templateCmd.Flags().String("path", "", "Template to inspect (default from template_path)")
	_ = v.BindPFlag("template_path", templateCmd.Flags().Lookup("path"))
}

func printHeader(out io.Writer, path string, header *types.HeaderInfo) error {
	fmt.Fprintf(out, "Template:   %s\n", path)
	fmt.Fprintf(out, "Sheet:      %s\n", header.Sheet)
	fmt.Fprintf(out, "Header row: %d (data starts at row %d)\n\n", header.Row, header.Row+1)

	for _, h := range header.Columns.Headers() {
		name, err := excelize.ColumnNumberToName(header.Columns[h])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %-4s %s\n", name, h)
	}
	return nil
}

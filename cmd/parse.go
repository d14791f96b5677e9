// =============================================================================
// Plano de Aplicação Converter - Parse Command
// =============================================================================
//
// COMMAND USAGE:
//   plano parse --file plano.pdf [--fields] [--lines]
//
// Dumps the line items found in a PDF as YAML, for checking how a document
// is segmented before converting it.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/converter"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/pdftext"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/types"
)

var (
	parseFile   string
	parseFields bool
	parseLines  bool
)

// parsedItem is the YAML shape of one item in the dump.
type parsedItem struct {
	Goal              string                     `yaml:"goal"`
	Item              string                     `yaml:"item"`
	Status            types.Status               `yaml:"status"`
	Lines             []string                   `yaml:"lines,omitempty"`
	Fields            map[types.FieldName]string `yaml:"fields,omitempty"`
	LegalBasisArticle string                     `yaml:"legal_basis_article,omitempty"`
}

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Dump the line items parsed from a PDF as YAML",

	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(parseFile)
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		opts, err := converter.OptionsFromConfig(mainConfig)
		if err != nil {
			return err
		}
		doc, err := converter.NewPipeline(pdftext.NewExtractor(), opts, logger).Parse(cmd.Context(), data)
		if err != nil {
			return err
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()

		return enc.Encode(dumpItems(doc, parseLines, parseFields))
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringVar(&parseFile, "file", "", "PDF to parse")
	parseCmd.Flags().BoolVar(&parseFields, "fields", false, "Include the extracted fields")
	parseCmd.Flags().BoolVar(&parseLines, "lines", true, "Include the raw body lines")
	_ = parseCmd.MarkFlagRequired("file")
}

func dumpItems(doc *converter.Document, withLines, withFields bool) []parsedItem {
	out := make([]parsedItem, len(doc.Items))
	for i, item := range doc.Items {
		out[i] = parsedItem{Goal: item.GoalID, Item: item.ItemID, Status: item.Status}
		if withLines {
			out[i].Lines = item.RawLines
		}
		if withFields {
			out[i].Fields = doc.Fields[i].Values
			out[i].LegalBasisArticle = doc.Fields[i].LegalBasisArticle
		}
	}
	return out
}

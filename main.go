// =============================================================================
// Plano de Aplicação Converter - Main Entry Point
// =============================================================================
//
// USAGE:
//   plano fill       - Convert every PDF in the input directory
//   plano serve      - Run the upload form
//   plano parse      - Dump the items parsed from a PDF
//   plano template   - Show the header row discovered in the template
//   plano version    - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Core conversion logic
//   - pkg/       : Shared file utilities
//   - templates/ : The XLSX template filled by the converter
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/plano-aplicacao-xlsx/cmd"
)

func main() {
	cmd.Execute()
}

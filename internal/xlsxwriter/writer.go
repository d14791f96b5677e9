// =============================================================================
// Plano de Aplicação Converter - XLSX Template Writer
// =============================================================================
//
// This module writes output rows into a copy of the destination template.
//
// LAYOUT:
//   Rows are written to consecutive spreadsheet rows starting immediately
//   below the discovered header row, one cell per template column:
//
//   | Row        | Número do Item | Descrição do Bem | Valor Total |
//   |------------|----------------|------------------|-------------|
//   | header     | (template)     | (template)       | (template)  |
//   | header + 1 | 1              | Compra de ...    | 1.234,56    |
//   | header + 2 | 2              | Reforma de ...   | 300,00      |
//
// Every written cell gets word wrap and top alignment. Numeric cells also get
// a thousands/decimal number format. The template file itself is never
// modified; the filled workbook is returned as bytes.
//
// =============================================================================

package xlsxwriter

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/types"
)

// =============================================================================
// FILL OPTIONS
// =============================================================================

// FillOptions contains options for writing rows.
type FillOptions struct {
	// NumberFormat is applied to float64 cells.
	// Default: "#,##0.00"
	NumberFormat string

	// VerticalAlign is the vertical alignment of every written cell.
	// Default: "top"
	VerticalAlign string
}

// DefaultFillOptions returns the default fill options.
func DefaultFillOptions() FillOptions {
	return FillOptions{
		NumberFormat:  "#,##0.00",
		VerticalAlign: "top",
	}
}

// =============================================================================
// MAIN FILL FUNCTION
// =============================================================================

// Fill opens the template, writes rows below header.Row and returns the
// resulting workbook.
func Fill(templatePath string, header *types.HeaderInfo, rows []types.OutputRow) ([]byte, error) {
	return FillWithOptions(templatePath, header, rows, DefaultFillOptions())
}

// FillWithOptions is Fill with custom formatting options.
func FillWithOptions(templatePath string, header *types.HeaderInfo, rows []types.OutputRow, options FillOptions) ([]byte, error) {
	if header == nil || header.Row <= 0 {
		return nil, fmt.Errorf("invalid header info")
	}

	f, err := excelize.OpenFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open template file: %w", err)
	}
	defer f.Close()

	if err := WriteRows(f, header, rows, options); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteRows writes rows into an open workbook.
func WriteRows(f *excelize.File, header *types.HeaderInfo, rows []types.OutputRow, options FillOptions) error {
	sheet := header.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}

	textStyle, numberStyle, err := newStyles(f, options)
	if err != nil {
		return err
	}

	headers := header.Columns.Headers()
	for i, row := range rows {
		rowIdx := header.Row + 1 + i

		for _, h := range headers {
			cell, err := excelize.CoordinatesToCellName(header.Columns[h], rowIdx)
			if err != nil {
				return fmt.Errorf("invalid cell for column %q: %w", h, err)
			}

			value, ok := row[h]
			if !ok || value == nil {
				value = ""
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}

			style := textStyle
			if _, isNumber := value.(float64); isNumber {
				style = numberStyle
			}
			if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
				return fmt.Errorf("failed to style cell %s: %w", cell, err)
			}
		}
	}

	return nil
}

// newStyles registers the wrap style and the numeric wrap style.
func newStyles(f *excelize.File, options FillOptions) (int, int, error) {
	def := DefaultFillOptions()
	if options.NumberFormat == "" {
		options.NumberFormat = def.NumberFormat
	}
	if options.VerticalAlign == "" {
		options.VerticalAlign = def.VerticalAlign
	}

	alignment := &excelize.Alignment{WrapText: true, Vertical: options.VerticalAlign}

	textStyle, err := f.NewStyle(&excelize.Style{Alignment: alignment})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create text style: %w", err)
	}

	numFmt := options.NumberFormat
	numberStyle, err := f.NewStyle(&excelize.Style{Alignment: alignment, CustomNumFmt: &numFmt})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create number style: %w", err)
	}

	return textStyle, numberStyle, nil
}

// =============================================================================
// Plano de Aplicação Converter - XLSX Template Header Reader
// =============================================================================
//
// This module locates the header row of the destination spreadsheet template
// and maps each header text to its column.
//
// HEADER SNIFFING:
//   Templates are laid out by hand and the header is not always on row 1 (a
//   title or a blank line often comes first). The reader therefore scans a
//   bounded window of rows and takes the first one with a cell containing a
//   header keyword:
//
//   | Row | Column A                   | Column B          | Column C  |
//   |-----|----------------------------|-------------------|-----------|
//   | 1   | PLANO DE APLICAÇÃO 2024    |                   |           |
//   | 2   | Número do Item             | Descrição do Bem  | Status    |  <- header
//   | 3   | (data rows start here)     |                   |           |
//
//   Matching is accent- and case-insensitive. The discovered row index is
//   returned so callers can report it.
//
// =============================================================================

package xlsxparser

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/textutil"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/types"
)

var (
	// ErrTemplateNotFound is returned when the template file does not exist.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrHeaderNotFound is returned when no row in the scan window contains a
	// header keyword.
	ErrHeaderNotFound = errors.New("header row not found")
)

// =============================================================================
// OPTIONS
// =============================================================================

// HeaderOptions controls header sniffing.
type HeaderOptions struct {
	// Sheet is the worksheet to read. Empty means the active sheet.
	Sheet string

	// ScanRows is how many rows from the top are searched.
	// Default: 5
	ScanRows int

	// Keywords are folded, lower-case fragments identifying a header cell.
	// Default: item, meta, numero
	Keywords []string
}

// DefaultHeaderOptions returns the default sniffing window and keywords.
func DefaultHeaderOptions() HeaderOptions {
	return HeaderOptions{
		ScanRows: 5,
		Keywords: []string{"item", "meta", "numero"},
	}
}

func (o HeaderOptions) withDefaults() HeaderOptions {
	def := DefaultHeaderOptions()
	if o.ScanRows <= 0 {
		o.ScanRows = def.ScanRows
	}
	if len(o.Keywords) == 0 {
		o.Keywords = def.Keywords
	}
	return o
}

// =============================================================================
// MAIN READ FUNCTION
// =============================================================================

// ReadHeader opens the template at path and locates its header row.
//
// RETURNS:
//   - The header row index, sheet name and ColumnMap.
//   - ErrTemplateNotFound if the file is missing, ErrHeaderNotFound if no
//     header row is found; both wrapped with the path.
func ReadHeader(path string, opts HeaderOptions) (*types.HeaderInfo, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat template file: %w", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open template file: %w", err)
	}
	defer f.Close()

	header, err := FindHeader(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return header, nil
}

// FindHeader locates the header row in an already opened workbook.
func FindHeader(f *excelize.File, opts HeaderOptions) (*types.HeaderInfo, error) {
	opts = opts.withDefaults()

	sheet := opts.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}
	if sheet == "" {
		return nil, fmt.Errorf("template file has no sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	for i := 0; i < opts.ScanRows && i < len(rows); i++ {
		if !isHeaderRow(rows[i], opts.Keywords) {
			continue
		}
		return &types.HeaderInfo{
			Sheet:   sheet,
			Row:     i + 1,
			Columns: columnMap(rows[i]),
		}, nil
	}

	return nil, fmt.Errorf("%w in the first %d rows of sheet %q", ErrHeaderNotFound, opts.ScanRows, sheet)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func isHeaderRow(row []string, keywords []string) bool {
	for _, cell := range row {
		folded := textutil.FoldLower(cell)
		for _, kw := range keywords {
			if kw != "" && strings.Contains(folded, kw) {
				return true
			}
		}
	}
	return false
}

// columnMap maps every non-empty header cell to its 1-based column. A header
// text that appears twice keeps its first column.
func columnMap(row []string) types.ColumnMap {
	columns := make(types.ColumnMap, len(row))
	for j, cell := range row {
		header := strings.TrimSpace(cell)
		if header == "" {
			continue
		}
		if _, exists := columns[header]; exists {
			continue
		}
		columns[header] = j + 1
	}
	return columns
}

package xlsxparser

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/types"
)

// writeTemplate saves a single-sheet workbook whose rows are given top-down.
func writeTemplate(t *testing.T, rows [][]string) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	for i, row := range rows {
		for j, value := range row {
			if value == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, value))
		}
	}

	path := filepath.Join(t.TempDir(), "modelo.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadHeaderFirstRow(t *testing.T) {
	path := writeTemplate(t, [][]string{
		{"Número do Item", "Descrição do Bem", "Status"},
	})

	header, err := ReadHeader(path, DefaultHeaderOptions())
	require.NoError(t, err)

	assert.Equal(t, 1, header.Row)
	assert.Equal(t, "Sheet1", header.Sheet)
	assert.Equal(t, types.ColumnMap{"Número do Item": 1, "Descrição do Bem": 2, "Status": 3}, header.Columns)
}

func TestReadHeaderAfterTitleRows(t *testing.T) {
	path := writeTemplate(t, [][]string{
		{"PLANO DE APLICAÇÃO 2024"},
		{},
		{"META", "", "Descrição", "  Valor Total  "},
	})

	header, err := ReadHeader(path, DefaultHeaderOptions())
	require.NoError(t, err)

	assert.Equal(t, 3, header.Row)
	assert.Equal(t, types.ColumnMap{"META": 1, "Descrição": 3, "Valor Total": 4}, header.Columns)
}

func TestReadHeaderAccentInsensitive(t *testing.T) {
	path := writeTemplate(t, [][]string{{"NÚMERO", "OBJETO"}})

	header, err := ReadHeader(path, DefaultHeaderOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, header.Row)
}

func TestReadHeaderDuplicateKeepsFirst(t *testing.T) {
	path := writeTemplate(t, [][]string{{"Item", "Observação", "Observação"}})

	header, err := ReadHeader(path, DefaultHeaderOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, header.Columns["Observação"])
	assert.Equal(t, []string{"Item", "Observação"}, header.Columns.Headers())
}

func TestReadHeaderOutsideWindow(t *testing.T) {
	rows := make([][]string, 6)
	rows[5] = []string{"Item", "Descrição"}
	path := writeTemplate(t, rows)

	_, err := ReadHeader(path, DefaultHeaderOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHeaderNotFound))

	opts := DefaultHeaderOptions()
	opts.ScanRows = 6
	header, err := ReadHeader(path, opts)
	require.NoError(t, err)
	assert.Equal(t, 6, header.Row)
}

func TestReadHeaderCustomKeywords(t *testing.T) {
	path := writeTemplate(t, [][]string{{"Código", "Objeto"}})

	_, err := ReadHeader(path, DefaultHeaderOptions())
	require.ErrorIs(t, err, ErrHeaderNotFound)

	opts := DefaultHeaderOptions()
	opts.Keywords = []string{"codigo"}
	header, err := ReadHeader(path, opts)
	require.NoError(t, err)
	assert.Equal(t, types.ColumnMap{"Código": 1, "Objeto": 2}, header.Columns)
}

func TestReadHeaderMissingTemplate(t *testing.T) {
	_, err := ReadHeader(filepath.Join(t.TempDir(), "nao-existe.xlsx"), DefaultHeaderOptions())
	require.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestReadHeaderUnknownSheet(t *testing.T) {
	path := writeTemplate(t, [][]string{{"Item"}})

	opts := DefaultHeaderOptions()
	opts.Sheet = "Planilha2"
	_, err := ReadHeader(path, opts)
	assert.Error(t, err)
}

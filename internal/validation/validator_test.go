package validation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/types"
)

var testColumns = types.ColumnMap{"Número do Item": 1, "Descrição": 2, "Valor Total": 3}

func TestValidateRowsClean(t *testing.T) {
	rows := []types.OutputRow{
		{"Número do Item": "1", "Descrição": "Viatura", "Valor Total": 1234.56},
		{"Número do Item": "2", "Descrição": "Sede", "Valor Total": ""},
	}

	result := NewValidator(testColumns, DefaultOptions()).ValidateRows(rows, []string{"1/1", "1/2"}, 3)

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Diagnostics)
	assert.Equal(t, 2, result.RowsValidated)
}

func TestValidateRowChecks(t *testing.T) {
	tests := []struct {
		name     string
		row      types.OutputRow
		rule     string
		severity Severity
		column   string
	}{
		{
			name:     "missing column",
			row:      types.OutputRow{"Número do Item": "1", "Descrição": "x"},
			rule:     "completeness",
			severity: SeverityError,
			column:   "Valor Total",
		},
		{
			name:     "extra column",
			row:      types.OutputRow{"Número do Item": "1", "Descrição": "x", "Valor Total": "", "Outro": ""},
			rule:     "completeness",
			severity: SeverityError,
			column:   "Outro",
		},
		{
			name:     "unsupported type",
			row:      types.OutputRow{"Número do Item": 7, "Descrição": "x", "Valor Total": ""},
			rule:     "value_type",
			severity: SeverityError,
			column:   "Número do Item",
		},
		{
			name:     "required empty",
			row:      types.OutputRow{"Número do Item": "1", "Descrição": "", "Valor Total": ""},
			rule:     "required",
			severity: SeverityWarning,
			column:   "Descrição",
		},
		{
			name:     "too long",
			row:      types.OutputRow{"Número do Item": "1", "Descrição": strings.Repeat("a", MaxCellLength+1), "Valor Total": ""},
			rule:     "max_length",
			severity: SeverityWarning,
			column:   "Descrição",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := NewValidator(testColumns, DefaultOptions()).ValidateRow(tt.row, 4, "2/1")
			require.Len(t, ds, 1)
			assert.Equal(t, tt.rule, ds[0].Rule)
			assert.Equal(t, tt.severity, ds[0].Severity)
			assert.Equal(t, tt.column, ds[0].Column)
			assert.Equal(t, 4, ds[0].Row)
			assert.Equal(t, "2/1", ds[0].Item)
		})
	}
}

func TestValidateRowsCounts(t *testing.T) {
	rows := []types.OutputRow{
		{"Número do Item": "1", "Descrição": "", "Valor Total": ""},
		{"Número do Item": "2", "Descrição": "x"},
	}

	result := NewValidator(testColumns, DefaultOptions()).ValidateRows(rows, []string{"1/1"}, 2)

	assert.False(t, result.IsValid)
	assert.Equal(t, 1, result.WarningCount)
	assert.Equal(t, 1, result.ErrorCount)
	assert.Equal(t, 2, result.Diagnostics[0].Row)
	assert.Equal(t, 3, result.Diagnostics[1].Row)
	assert.Empty(t, result.Diagnostics[1].Item, "rows without a label are still checked")
}

func TestValidateRowsWarningsAsErrors(t *testing.T) {
	rows := []types.OutputRow{{"Número do Item": "1", "Descrição": "", "Valor Total": ""}}
	opts := DefaultOptions()
	opts.TreatWarningsAsErrors = true

	result := NewValidator(testColumns, opts).ValidateRows(rows, nil, 2)

	assert.False(t, result.IsValid)
	assert.Equal(t, 0, result.ErrorCount)
}

func TestFormatDiagnostics(t *testing.T) {
	assert.Equal(t, "No diagnostics.", FormatDiagnostics(nil))

	out := FormatDiagnostics([]Diagnostic{{
		Severity: SeverityWarning, Row: 5, Item: "2/3", Column: "Valor Total",
		Value: "a definir", Rule: "numeric", Message: "not a number",
	}})
	assert.Contains(t, out, "1 diagnostic(s)")
	assert.Contains(t, out, "[WARNING] row 5, item 2/3, column 'Valor Total': not a number (value: 'a definir')")
}

func TestWriteLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saida.log")
	ds := []Diagnostic{{Severity: SeverityError, Row: 2, Column: "Outro", Rule: "completeness", Message: "column is not in the template"}}

	require.NoError(t, WriteLog(ds, "plano.pdf", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Source: plano.pdf")
	assert.Contains(t, string(data), "column 'Outro'")
}

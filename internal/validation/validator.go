// =============================================================================
// Plano de Aplicação Converter - Validation
// =============================================================================
//
// This module checks the rows produced by the row builder before they are
// written to the template. Nothing here ever aborts a conversion: problems are
// collected as Diagnostics and reported next to the output.
//
// ROW CHECKS:
//   1. Completeness: a row has exactly one entry per template column
//   2. Value type:   every value is a string or a float64
//   3. Required:     configured columns must not be empty (warning)
//   4. Cell length:  text longer than a spreadsheet cell can hold (warning)
//
// The row builder reports its own non-fatal problems (a monetary value that
// did not parse) with the same Diagnostic type.
//
// =============================================================================

package validation

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/textutil"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/types"
)

// MaxCellLength is the number of characters a single XLSX cell can hold.
const MaxCellLength = 32767

// =============================================================================
// DIAGNOSTICS
// =============================================================================

// Severity classifies a Diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic describes one problem found while building or checking a row.
type Diagnostic struct {
	Severity Severity `yaml:"severity"`

	// Row is the spreadsheet row the value lands on. Zero when the row has not
	// been placed yet.
	Row int `yaml:"row"`

	// Item is the "goal/item" identity of the line item behind the row.
	Item string `yaml:"item,omitempty"`

	// Column is the template header text.
	Column string `yaml:"column"`

	Value   string `yaml:"value,omitempty"`
	Rule    string `yaml:"rule"`
	Message string `yaml:"message"`
}

// Error implements the error interface.
func (d Diagnostic) Error() string {
	return fmt.Sprintf("[%s] row %d, item %s, column '%s': %s (value: '%s')",
		strings.ToUpper(string(d.Severity)),
		d.Row,
		d.Item,
		d.Column,
		d.Message,
		d.Value,
	)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// Result contains the outcome of validating a batch of rows.
type Result struct {
	// IsValid is true if there are no error-severity diagnostics.
	IsValid bool

	Diagnostics  []Diagnostic
	ErrorCount   int
	WarningCount int

	RowsValidated int
}

// Add records diagnostics and updates the counters.
func (r *Result) Add(ds ...Diagnostic) {
	for _, d := range ds {
		r.Diagnostics = append(r.Diagnostics, d)
		if d.Severity == SeverityError {
			r.ErrorCount++
			r.IsValid = false
		} else {
			r.WarningCount++
		}
	}
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Options contains options for validation.
type Options struct {
	// RequiredKeywords lists folded, lower-case header fragments. A column
	// whose header contains one of them must not be empty.
	RequiredKeywords []string

	// TreatWarningsAsErrors makes any warning mark the result invalid.
	TreatWarningsAsErrors bool
}

// DefaultOptions returns the default validation options: every row is
// expected to carry a description.
func DefaultOptions() Options {
	return Options{
		RequiredKeywords: []string{"descricao"},
	}
}

// Validator checks rows against the template's column map.
type Validator struct {
	columns types.ColumnMap
	options Options
}

// NewValidator creates a Validator for the given columns.
func NewValidator(columns types.ColumnMap, options Options) *Validator {
	return &Validator{columns: columns, options: options}
}

// ValidateRows checks every row. firstRow is the spreadsheet row of rows[0].
func (v *Validator) ValidateRows(rows []types.OutputRow, items []string, firstRow int) *Result {
	result := &Result{IsValid: true, RowsValidated: len(rows)}

	for i, row := range rows {
		item := ""
		if i < len(items) {
			item = items[i]
		}
		result.Add(v.ValidateRow(row, firstRow+i, item)...)
	}

	if v.options.TreatWarningsAsErrors && result.WarningCount > 0 {
		result.IsValid = false
	}
	return result
}

// ValidateRow checks a single row.
func (v *Validator) ValidateRow(row types.OutputRow, rowNum int, item string) []Diagnostic {
	var ds []Diagnostic

	newDiag := func(sev Severity, column, value, rule, msg string) Diagnostic {
		return Diagnostic{
			Severity: sev,
			Row:      rowNum,
			Item:     item,
			Column:   column,
			Value:    value,
			Rule:     rule,
			Message:  msg,
		}
	}

	for _, header := range v.columns.Headers() {
		value, ok := row[header]
		if !ok {
			ds = append(ds, newDiag(SeverityError, header, "", "completeness", "column has no value"))
			continue
		}

		var text string
		switch val := value.(type) {
		case string:
			text = val
		case float64:
			continue
		default:
			ds = append(ds, newDiag(SeverityError, header, fmt.Sprint(value), "value_type",
				fmt.Sprintf("unsupported value type %T", value)))
			continue
		}

		if text == "" && v.isRequired(header) {
			ds = append(ds, newDiag(SeverityWarning, header, text, "required", "required column is empty"))
		}

		if n := len([]rune(text)); n > MaxCellLength {
			ds = append(ds, newDiag(SeverityWarning, header, truncate(text, 40), "max_length",
				fmt.Sprintf("value exceeds cell limit of %d characters (actual: %d)", MaxCellLength, n)))
		}
	}

	for header := range row {
		if _, ok := v.columns[header]; !ok {
			ds = append(ds, newDiag(SeverityError, header, "", "completeness", "column is not in the template"))
		}
	}

	return ds
}

func (v *Validator) isRequired(header string) bool {
	folded := textutil.FoldLower(header)
	for _, kw := range v.options.RequiredKeywords {
		if kw != "" && strings.Contains(folded, kw) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatDiagnostics formats diagnostics for display or logging.
func FormatDiagnostics(ds []Diagnostic) string {
	if len(ds) == 0 {
		return "No diagnostics."
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "Conversion completed with %d diagnostic(s):\n\n", len(ds))
	for i, d := range ds {
		fmt.Fprintf(&builder, "%d. %s\n", i+1, d.Error())
	}
	return builder.String()
}

// WriteLog writes diagnostics for one source file to filePath.
func WriteLog(ds []Diagnostic, source, filePath string) error {
	var builder strings.Builder
	fmt.Fprintf(&builder, "Source: %s\nGenerated: %s\n\n", source, time.Now().Format(time.RFC3339))
	builder.WriteString(FormatDiagnostics(ds))

	if err := os.WriteFile(filePath, []byte(builder.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write diagnostics log: %w", err)
	}
	return nil
}

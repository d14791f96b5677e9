package converter

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/textutil"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/types"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/validation"
)

// =============================================================================
// COLUMN KEYWORD TABLE
// =============================================================================
// Template headers are matched on their folded, lower-case text. The first
// rule whose keywords match decides the value; order matters ("Descrição do
// Bem" is a description column, not a good/service column).

type valueSource int

const (
	sourceItemID valueSource = iota
	sourceGoal
	sourceField
	sourceMoney
	sourceStatus
)

type columnRule struct {
	// all must every one be present; any needs just one.
	all    []string
	any    []string
	source valueSource
	field  types.FieldName
}

var columnRules = []columnRule{
	{all: []string{"item", "numero"}, source: sourceItemID},
	{any: []string{"meta"}, source: sourceGoal},
	{any: []string{"descricao"}, source: sourceField, field: types.FieldDescription},
	{any: []string{"destinacao", "unidade destinataria"}, source: sourceField, field: types.FieldDestination},
	{any: []string{"nome", "bem"}, source: sourceField, field: types.FieldGoodService},
	{any: []string{"unidade"}, source: sourceField, field: types.FieldMeasurementUnit},
	{any: []string{"quantidade"}, source: sourceField, field: types.FieldPlannedQuantity},
	{all: []string{"valor", "total"}, source: sourceMoney, field: types.FieldTotalValue},
	{any: []string{"orgao", "instituicao"}, source: sourceField, field: types.FieldInstitution},
	{any: []string{"natureza"}, source: sourceField, field: types.FieldExpenditureNature},
	{any: []string{"artigo", "fundamento"}, source: sourceField, field: types.FieldLegalBasis},
	{any: []string{"status", "situacao"}, source: sourceStatus},
}

func (r columnRule) matches(header string) bool {
	for _, kw := range r.all {
		if !strings.Contains(header, kw) {
			return false
		}
	}
	if len(r.any) == 0 {
		return len(r.all) > 0
	}
	for _, kw := range r.any {
		if strings.Contains(header, kw) {
			return true
		}
	}
	return false
}

// ruleFor returns the rule for a header, or nil when no keyword matches.
func ruleFor(header string) *columnRule {
	folded := textutil.FoldLower(header)
	for i := range columnRules {
		if columnRules[i].matches(folded) {
			return &columnRules[i]
		}
	}
	return nil
}

// =============================================================================
// ROW BUILDING
// =============================================================================

// ItemLabel is the "goal/item" label used in diagnostics and logs.
func ItemLabel(item types.LineItem) string {
	return fmt.Sprintf("%s/%s", item.GoalID, item.ItemID)
}

// BuildRow maps one item and its fields onto the template columns. The row
// always has exactly one entry per column; columns no rule recognizes get "".
// A monetary value that does not parse is kept as text and reported.
func BuildRow(item types.LineItem, fields types.FieldSet, columns types.ColumnMap) (types.OutputRow, []validation.Diagnostic) {
	row := make(types.OutputRow, len(columns))
	var diags []validation.Diagnostic

	for _, header := range columns.Headers() {
		rule := ruleFor(header)
		if rule == nil {
			row[header] = ""
			continue
		}

		switch rule.source {
		case sourceItemID:
			row[header] = item.ItemID

		case sourceGoal:
			row[header] = goalValue(item, fields)

		case sourceStatus:
			row[header] = item.Status.String()

		case sourceMoney:
			value, diag := moneyValue(fields.Get(rule.field))
			row[header] = value
			if diag != nil {
				diag.Item = ItemLabel(item)
				diag.Column = header
				diags = append(diags, *diag)
			}

		default:
			row[header] = fields.Get(rule.field)
		}
	}

	return row, diags
}

// goalValue is the goal number, or the legal-basis clause for items printed
// outside any goal.
func goalValue(item types.LineItem, fields types.FieldSet) string {
	if item.GoalID != types.GoalUnknown {
		return item.GoalID
	}
	if basis := fields.Get(types.FieldLegalBasis); basis != "" {
		return basis
	}
	return item.GoalID
}

func moneyValue(raw string) (any, *validation.Diagnostic) {
	if raw == "" {
		return "", nil
	}
	d, err := ParseAmount(raw)
	if err != nil {
		return raw, &validation.Diagnostic{
			Severity: validation.SeverityWarning,
			Value:    raw,
			Rule:     "numeric",
			Message:  "monetary value is not a number; kept as text",
		}
	}
	return d.InexactFloat64(), nil
}

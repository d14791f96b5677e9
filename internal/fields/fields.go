// =============================================================================
// Plano de Aplicação Converter - Field Extractor
// =============================================================================
//
// This module turns the raw body lines of one line item into a FieldSet.
//
// EXTRACTION PASS (one walk over the lines, "current" = field being filled):
//   1. Labeled field   "Descrição: ..."  -> seed that field, current = field
//   2. Legal basis     "Art. 7º (2): ..." -> keep the whole clause, current unchanged
//   3. Continuation    any other non-noise line is appended to current
//
// After the pass every field is joined with single spaces and whitespace is
// collapsed. The monetary field also has its currency noise removed.
//
// Extraction never fails. A label that never appears leaves its field empty.
//
// =============================================================================

package fields

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/textutil"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/types"
)

// =============================================================================
// LABEL TABLE
// =============================================================================

// labelRule pairs a field with the recognizer for its label. Patterns run on
// folded text and must consume the label and its colon.
type labelRule struct {
	field   types.FieldName
	pattern *regexp.Regexp
}

// labelRules is evaluated in order; the first match wins.
var labelRules = []labelRule{
	{types.FieldGoodService, regexp.MustCompile(`(?i)^BEM\s*(?:/|OU)\s*SERVICO\s*:\s*`)},
	{types.FieldDescription, regexp.MustCompile(`(?i)^DESCRICAO(?:\s+D[OA]\s+(?:BEM|ITEM|SERVICO))?\s*:\s*`)},
	{types.FieldDestination, regexp.MustCompile(`(?i)^(?:DESTINACAO|UNIDADE\s+DESTINATARIA)\s*:\s*`)},
	{types.FieldMeasurementUnit, regexp.MustCompile(`(?i)^UNIDADE\s+DE\s+MEDIDA\s*:\s*`)},
	{types.FieldPlannedQuantity, regexp.MustCompile(`(?i)^(?:QTD\.?|QUANTIDADE)\s*PLANEJADA\s*:\s*`)},
	{types.FieldExpenditureNature, regexp.MustCompile(`(?i)^NATUREZA\s+(?:DA\s+|DE\s+)?DESPESA\s*:\s*`)},
	{types.FieldInstitution, regexp.MustCompile(`(?i)^(?:INSTITUICAO|ORGAO)\s*:\s*`)},
	{types.FieldTotalValue, regexp.MustCompile(`(?i)^VALOR\s+(?:PLANEJADO\s+)?TOTAL\s*:\s*`)},
}

// legalBasisPattern matches "Art. 6", "Art. 7º (2)", "ART 8:" clauses.
var legalBasisPattern = regexp.MustCompile(`(?i)^ART\.?\s*([678])\s*[º°O]?\s*(?:\(\s*(\d+)\s*\))?\s*:\s*(.*)$`)

// moneyPattern matches one "R$ 1.234,56" style amount.
var moneyPattern = regexp.MustCompile(`R\$\s*\d[\d.]*(?:,\d+)?`)

// =============================================================================
// OPTIONS
// =============================================================================

// MoneyPolicy selects which embedded "R$ <amount>" substring is kept when the
// monetary field contains several.
type MoneyPolicy string

const (
	// MoneyLast keeps the last amount. The first one is often truncated
	// metadata printed before the real total.
	MoneyLast MoneyPolicy = "last"

	// MoneyFirst keeps the first amount.
	MoneyFirst MoneyPolicy = "first"
)

// ParseMoneyPolicy validates a policy name read from configuration.
// An empty name selects MoneyLast.
func ParseMoneyPolicy(name string) (MoneyPolicy, error) {
	switch MoneyPolicy(strings.ToLower(strings.TrimSpace(name))) {
	case "", MoneyLast:
		return MoneyLast, nil
	case MoneyFirst:
		return MoneyFirst, nil
	default:
		return "", fmt.Errorf("unknown money policy %q (want %q or %q)", name, MoneyLast, MoneyFirst)
	}
}

// Options controls field extraction.
type Options struct {
	MoneyPolicy MoneyPolicy

	// Noise recognizes lines that must never be appended to a field.
	Noise *textutil.NoiseFilter
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		MoneyPolicy: MoneyLast,
		Noise:       textutil.DefaultNoiseFilter(),
	}
}

// =============================================================================
// EXTRACTION
// =============================================================================

// Extract walks rawLines once and returns the normalized fields.
func Extract(rawLines []string, opts Options) types.FieldSet {
	parts := make(map[types.FieldName][]string, len(labelRules))
	result := types.NewFieldSet()
	var current types.FieldName

	for _, raw := range rawLines {
		line := textutil.Compose(raw)
		if line == "" {
			continue
		}
		folded := textutil.Fold(line)

		if field, seed, ok := matchLabel(line, folded); ok {
			// A repeated label restarts the field.
			parts[field] = nil
			if seed != "" {
				parts[field] = append(parts[field], seed)
			}
			current = field
			continue
		}

		if m := legalBasisPattern.FindStringSubmatch(folded); m != nil {
			result.Values[types.FieldLegalBasis] = textutil.Collapse(line)
			result.LegalBasisArticle = m[1]
			continue
		}

		if current == "" || opts.Noise.IsNoise(line) {
			continue
		}
		parts[current] = append(parts[current], line)
	}

	for field, fragments := range parts {
		value := textutil.Collapse(strings.Join(fragments, " "))
		if field == types.FieldTotalValue {
			value = CleanMoney(value, opts.MoneyPolicy)
		}
		if value != "" {
			result.Values[field] = value
		}
	}

	return result
}

// matchLabel tries every label rule against the folded line and returns the
// remainder of the original line after the label.
func matchLabel(line, folded string) (types.FieldName, string, bool) {
	for _, rule := range labelRules {
		loc := rule.pattern.FindStringIndex(folded)
		if loc == nil {
			continue
		}
		seed := strings.TrimSpace(textutil.SliceFromFolded(line, folded, loc[1]))
		return rule.field, seed, true
	}
	return "", "", false
}

// CleanMoney reduces a monetary field to a single "R$ <amount>" substring
// chosen by policy. Text without any such substring is returned collapsed but
// otherwise unchanged.
func CleanMoney(value string, policy MoneyPolicy) string {
	value = textutil.Collapse(value)
	matches := moneyPattern.FindAllString(value, -1)
	if len(matches) == 0 {
		return value
	}
	chosen := matches[len(matches)-1]
	if policy == MoneyFirst {
		chosen = matches[0]
	}
	return textutil.Collapse(strings.Replace(chosen, "R$", "R$ ", 1))
}

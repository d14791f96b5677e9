// =============================================================================
// Plano de Aplicação Converter - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - segmenter   (LineItem, Status)
//   - fields      (FieldSet, FieldName)
//   - converter   (OutputRow, ColumnMap)
//   - xlsxparser  (HeaderInfo, ColumnMap)
//   - xlsxwriter  (HeaderInfo, OutputRow)
//
// =============================================================================

package types

import (
	"sort"
	"strings"
)

// =============================================================================
// LINE ITEM TYPES
// =============================================================================

// GoalUnknown is the goal identifier used for items that appear before any
// goal marker.
const GoalUnknown = "N/A"

// Status is the approval status printed next to an item marker.
type Status int

const (
	// StatusPlanned is the default when the marker carries no status word.
	StatusPlanned Status = iota
	StatusApproved
	StatusCancelled
)

// String returns the status name written to the spreadsheet.
func (s Status) String() string {
	switch s {
	case StatusApproved:
		return "Approved"
	case StatusCancelled:
		return "Cancelled"
	default:
		return "Planned"
	}
}

// MarshalYAML renders the status by name in parse dumps.
func (s Status) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

// ParseStatusWord maps a (folded) status word found on an item marker line to
// a Status. Unknown or empty words map to StatusPlanned.
func ParseStatusWord(word string) Status {
	switch w := strings.ToUpper(strings.TrimSpace(word)); {
	case strings.HasPrefix(w, "APROVAD"):
		return StatusApproved
	case strings.HasPrefix(w, "CANCELAD"):
		return StatusCancelled
	default:
		return StatusPlanned
	}
}

// LineItem represents a single planned expenditure line of the document.
// It is created when the segmenter sees an item marker and grows until the
// next item or goal marker.
type LineItem struct {
	// GoalID is the number of the enclosing "Meta Específica", or GoalUnknown.
	GoalID string `yaml:"goal"`

	// ItemID is the number printed on the item marker.
	ItemID string `yaml:"item"`

	// Status is taken from the marker line; defaults to StatusPlanned.
	Status Status `yaml:"status"`

	// RawLines are the body lines belonging to this item, in document order.
	RawLines []string `yaml:"lines"`
}

// Key returns the identity key (goal, item) used for deduplication.
func (li LineItem) Key() ItemKey {
	return ItemKey{GoalID: li.GoalID, ItemID: li.ItemID}
}

// ItemKey is the composite identity of a line item.
type ItemKey struct {
	GoalID string
	ItemID string
}

// =============================================================================
// FIELD TYPES
// =============================================================================

// FieldName identifies one semantic attribute extracted from an item's lines.
type FieldName string

const (
	FieldGoodService       FieldName = "good_service"
	FieldDescription       FieldName = "description"
	FieldDestination       FieldName = "destination"
	FieldMeasurementUnit   FieldName = "measurement_unit"
	FieldPlannedQuantity   FieldName = "planned_quantity"
	FieldExpenditureNature FieldName = "expenditure_nature"
	FieldInstitution       FieldName = "institution"
	FieldTotalValue        FieldName = "total_value"
	FieldLegalBasis        FieldName = "legal_basis"
)

// AllFields lists every field name in a fixed order.
var AllFields = []FieldName{
	FieldGoodService,
	FieldDescription,
	FieldDestination,
	FieldMeasurementUnit,
	FieldPlannedQuantity,
	FieldExpenditureNature,
	FieldInstitution,
	FieldTotalValue,
	FieldLegalBasis,
}

// FieldSet holds the normalized values extracted from one LineItem.
type FieldSet struct {
	// Values maps each field to its collapsed value. Absent fields read as "".
	Values map[FieldName]string `yaml:"values"`

	// LegalBasisArticle is the article number (6, 7 or 8) of the legal-basis
	// clause, when one was found.
	LegalBasisArticle string `yaml:"legal_basis_article,omitempty"`
}

// NewFieldSet returns an empty FieldSet.
func NewFieldSet() FieldSet {
	return FieldSet{Values: make(map[FieldName]string, len(AllFields))}
}

// Get returns the value of a field, or "" when it was not captured.
func (fs FieldSet) Get(name FieldName) string {
	if fs.Values == nil {
		return ""
	}
	return fs.Values[name]
}

// =============================================================================
// OUTPUT TYPES
// =============================================================================

// OutputRow maps a destination column header to its value. Values are either
// string or float64.
type OutputRow map[string]any

// ColumnMap maps template header text to its 1-based column index.
type ColumnMap map[string]int

// Headers returns the header texts ordered by column index, so that callers
// iterating a ColumnMap always see the same order.
func (cm ColumnMap) Headers() []string {
	headers := make([]string, 0, len(cm))
	for h := range cm {
		headers = append(headers, h)
	}
	sort.Slice(headers, func(i, j int) bool {
		if cm[headers[i]] == cm[headers[j]] {
			return headers[i] < headers[j]
		}
		return cm[headers[i]] < cm[headers[j]]
	})
	return headers
}

// HeaderInfo describes the header row discovered in a template.
type HeaderInfo struct {
	// Sheet is the worksheet the header was found on.
	Sheet string

	// Row is the 1-based row index of the header. Data rows start at Row+1.
	Row int

	// Columns is the header text to column index mapping.
	Columns ColumnMap
}

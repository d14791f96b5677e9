// =============================================================================
// Plano de Aplicação Converter - Line Segmenter & Item Parser
// =============================================================================
//
// This module groups the raw text lines of a "Plano de Aplicação" document
// into line items. It is a single left-to-right pass over the lines with three
// pieces of state, all local to one ParseItems call:
//
//   currentGoal : number of the last "META ESPECÍFICA" marker (default "N/A")
//   current     : the item being built, if any
//   seen        : (goal, item) keys already emitted
//
// LINE RULES (first match wins):
//   1. Goal marker   "META ESPECÍFICA 2"      -> close current item, update currentGoal
//   2. Item marker   "Item 5" / "Item 5 Aprovado"
//                    unseen key -> close current item, open a new one
//                    seen key   -> drop the marker (see DuplicatePolicy)
//   3. Body line     appended to the open item unless it is boilerplate
//
// The item marker must be the whole line. A sentence such as
// "REMANEJAMENTO DE SALDO DO ITEM 30" never opens an item.
//
// =============================================================================

package segmenter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/textutil"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/types"
)

// =============================================================================
// MARKER PATTERNS
// =============================================================================
// Both patterns run on folded (accent-free) text, so "ESPECÍFICA" and
// "ESPECIFICA" are the same label.

// goalPattern matches a goal marker at line start. Text after the number
// (a goal title) is allowed.
var goalPattern = regexp.MustCompile(`(?i)^META\s+ESPECIFICA\s*(?:N[º°O.]*\s*)?(\d+)\b`)

// itemPattern matches an item marker that is the entire line, optionally
// followed by a status word.
var itemPattern = regexp.MustCompile(`(?i)^ITEM\s+(\d+)\s*(?:[-–:]\s*)?(PLANEJAD[OA]|APROVAD[OA]|CANCELAD[OA])?\s*$`)

// =============================================================================
// OPTIONS
// =============================================================================

// DuplicatePolicy decides what happens to the body lines that follow an item
// marker whose (goal, item) key was already emitted.
type DuplicatePolicy string

const (
	// DuplicateSkip discards every line until the next unseen item marker.
	// The earlier record is never extended.
	DuplicateSkip DuplicatePolicy = "skip"

	// DuplicateAppend drops only the marker line and keeps appending body
	// lines to whichever item is currently open.
	DuplicateAppend DuplicatePolicy = "append"
)

// ParseDuplicatePolicy validates a policy name read from configuration.
// An empty name selects DuplicateSkip.
func ParseDuplicatePolicy(name string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(strings.ToLower(strings.TrimSpace(name))) {
	case "", DuplicateSkip:
		return DuplicateSkip, nil
	case DuplicateAppend:
		return DuplicateAppend, nil
	default:
		return "", fmt.Errorf("unknown duplicate policy %q (want %q or %q)", name, DuplicateSkip, DuplicateAppend)
	}
}

// Options controls the segmenter.
type Options struct {
	// DuplicatePolicy defaults to DuplicateSkip.
	DuplicatePolicy DuplicatePolicy

	// Noise recognizes boilerplate lines. Nil uses the built-in patterns.
	Noise *textutil.NoiseFilter
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		DuplicatePolicy: DuplicateSkip,
		Noise:           textutil.DefaultNoiseFilter(),
	}
}

// =============================================================================
// PARSER
// =============================================================================

// ParseItems groups lines into line items, in document order, keeping only
// the first occurrence of every (goal, item) key.
func ParseItems(lines []string, opts Options) []types.LineItem {
	var (
		items       []types.LineItem
		currentGoal = types.GoalUnknown
		current     *types.LineItem
		skipping    bool
		seen        = make(map[types.ItemKey]struct{})
	)

	flush := func() {
		if current != nil {
			items = append(items, *current)
			current = nil
		}
	}

	for _, raw := range lines {
		line := textutil.Compose(raw)
		folded := textutil.Fold(line)

		// Rule 1: goal marker. It also closes the open item.
		if m := goalPattern.FindStringSubmatch(folded); m != nil {
			flush()
			currentGoal = normalizeNumber(m[1])
			continue
		}

		// Rule 2: item marker.
		if m := itemPattern.FindStringSubmatch(folded); m != nil {
			key := types.ItemKey{GoalID: currentGoal, ItemID: normalizeNumber(m[1])}
			if _, dup := seen[key]; dup {
				if opts.DuplicatePolicy != DuplicateAppend {
					skipping = true
				}
				continue
			}

			flush()
			seen[key] = struct{}{}
			skipping = false
			current = &types.LineItem{
				GoalID:   key.GoalID,
				ItemID:   key.ItemID,
				Status:   types.ParseStatusWord(m[2]),
				RawLines: []string{},
			}
			continue
		}

		// Rule 3: body line.
		if current == nil || skipping || line == "" {
			continue
		}
		if opts.Noise.IsNoise(line) {
			continue
		}
		current.RawLines = append(current.RawLines, line)
	}

	flush()
	return items
}

// normalizeNumber strips leading zeros so "05" and "5" share a key.
func normalizeNumber(s string) string {
	n, err := strconv.Atoi(s)
	if err != nil {
		return s
	}
	return strconv.Itoa(n)
}

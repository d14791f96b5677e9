// =============================================================================
// Plano de Aplicação Converter - PDF Text Extraction
// =============================================================================
//
// This module turns a PDF document into the ordered sequence of visual text
// lines the segmenter consumes.
//
// EXTRACTION:
//   1. Every page is read with github.com/ledongthuc/pdf
//   2. GetTextByRow groups text runs that share a baseline
//   3. Runs inside a row are sorted left to right and joined; a space is
//      inserted when the horizontal gap between runs is wider than a fraction
//      of the font size
//   4. Rows are emitted top to bottom, page after page; empty rows are dropped
//
// A document that yields no text at all (a scanned image, for instance)
// returns ErrNoText.
//
// =============================================================================

package pdftext

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoText is returned when a PDF has no extractable text layer.
var ErrNoText = errors.New("pdf has no extractable text")

// defaultGapFactor is the share of the font size above which two runs on the
// same row are considered separate words.
const defaultGapFactor = 0.15

// LineSource produces the visual lines of a PDF document.
type LineSource interface {
	Lines(ctx context.Context, r io.ReaderAt, size int64) ([]string, error)
}

// Extractor is the LineSource backed by ledongthuc/pdf.
type Extractor struct {
	// GapFactor overrides defaultGapFactor when positive.
	GapFactor float64
}

// NewExtractor creates an Extractor with the default word gap.
func NewExtractor() *Extractor {
	return &Extractor{GapFactor: defaultGapFactor}
}

// Lines extracts the text lines of the document in r.
func (e *Extractor) Lines(ctx context.Context, r io.ReaderAt, size int64) (lines []string, err error) {
	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if rec := recover(); rec != nil {
			lines = nil
			err = fmt.Errorf("failed to read pdf: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("failed to read text of page %d: %w", i, err)
		}
		lines = append(lines, rowsToLines(rows, e.gapFactor())...)
	}

	if len(lines) == 0 {
		return nil, ErrNoText
	}
	return lines, nil
}

func (e *Extractor) gapFactor() float64 {
	if e == nil || e.GapFactor <= 0 {
		return defaultGapFactor
	}
	return e.GapFactor
}

// rowsToLines renders the rows of one page, top to bottom.
func rowsToLines(rows pdf.Rows, gapFactor float64) []string {
	sorted := make([]*pdf.Row, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			sorted = append(sorted, row)
		}
	}
	// PDF y grows upwards.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Position > sorted[j].Position
	})

	lines := make([]string, 0, len(sorted))
	for _, row := range sorted {
		if line := joinRow(row.Content, gapFactor); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// joinRow concatenates the runs of one row in reading order.
func joinRow(texts []pdf.Text, gapFactor float64) string {
	runs := make([]pdf.Text, 0, len(texts))
	for _, t := range texts {
		if t.S != "" {
			runs = append(runs, t)
		}
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].X < runs[j].X })

	var b strings.Builder
	for i, t := range runs {
		if i > 0 && needsSpace(runs[i-1], t, gapFactor) {
			b.WriteByte(' ')
		}
		b.WriteString(t.S)
	}
	return strings.TrimSpace(b.String())
}

func needsSpace(prev, next pdf.Text, gapFactor float64) bool {
	if strings.HasSuffix(prev.S, " ") || strings.HasPrefix(next.S, " ") {
		return false
	}
	// Without a width the gap is unknown; multi-glyph runs are words.
	if prev.W <= 0 {
		return len([]rune(prev.S)) > 1 || len([]rune(next.S)) > 1
	}
	fontSize := prev.FontSize
	if fontSize <= 0 {
		fontSize = next.FontSize
	}
	gap := next.X - (prev.X + prev.W)
	return gap > fontSize*gapFactor
}

package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/config"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/fields"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/logging"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/pdftext"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/segmenter"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/types"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/validation"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/xlsxparser"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/xlsxwriter"
)

// ErrNoItems is returned when a document contains no item markers.
var ErrNoItems = errors.New("no line items found in document")

// Logger is the logging surface used by the converter.
// CUSTOMIZATION: any *zap.SugaredLogger satisfies it.
type Logger = logging.Logger

// =============================================================================
// TEMPLATE
// =============================================================================

// Template is a spreadsheet template with its discovered header row.
type Template struct {
	Path   string
	Header *types.HeaderInfo
}

// LoadTemplate reads the header row of the template at path.
func LoadTemplate(path string, opts xlsxparser.HeaderOptions) (*Template, error) {
	header, err := xlsxparser.ReadHeader(path, opts)
	if err != nil {
		return nil, err
	}
	return &Template{Path: path, Header: header}, nil
}

// =============================================================================
// PIPELINE OPTIONS
// =============================================================================

// PipelineOptions tunes each stage of the pipeline.
type PipelineOptions struct {
	Segmenter  segmenter.Options
	Fields     fields.Options
	Validation validation.Options

	// ValidatePDF runs a structural check before text extraction.
	ValidatePDF bool
}

// DefaultPipelineOptions returns the options used without a config file.
func DefaultPipelineOptions() PipelineOptions {
	return PipelineOptions{
		Segmenter:   segmenter.DefaultOptions(),
		Fields:      fields.DefaultOptions(),
		Validation:  validation.DefaultOptions(),
		ValidatePDF: true,
	}
}

// OptionsFromConfig builds pipeline options from the main configuration.
func OptionsFromConfig(cfg *config.MainConfig) (PipelineOptions, error) {
	segOpts, err := cfg.SegmenterOptions()
	if err != nil {
		return PipelineOptions{}, fmt.Errorf("segmenter options: %w", err)
	}
	fieldOpts, err := cfg.FieldOptions()
	if err != nil {
		return PipelineOptions{}, fmt.Errorf("field options: %w", err)
	}
	return PipelineOptions{
		Segmenter:   segOpts,
		Fields:      fieldOpts,
		Validation:  cfg.ValidationOptions(),
		ValidatePDF: cfg.Parser.ValidatePDF,
	}, nil
}

// =============================================================================
// PIPELINE
// =============================================================================

// Document is everything the pipeline learned about one PDF.
type Document struct {
	// Lines is the number of text lines extracted.
	Lines int

	Items  []types.LineItem
	Fields []types.FieldSet

	// Rows, Validation and Total are set by BuildRows.
	Rows       []types.OutputRow
	Validation *validation.Result
	Total      *AmountTotal
}

// Pipeline turns PDF bytes into template rows. It holds no per-document
// state and is safe for concurrent use.
type Pipeline struct {
	source  pdftext.LineSource
	options PipelineOptions
	logger  Logger
}

// NewPipeline creates a Pipeline. A nil logger discards output.
func NewPipeline(source pdftext.LineSource, options PipelineOptions, logger Logger) *Pipeline {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Pipeline{source: source, options: options, logger: logger}
}

// Parse extracts the items of a document and their fields.
//
// RETURNS:
//   - The parsed document without rows.
//   - pdftext.ErrInvalidPDF, pdftext.ErrNoText or ErrNoItems (wrapped) when
//     the document cannot produce any row.
func (p *Pipeline) Parse(ctx context.Context, data []byte) (*Document, error) {
	// =========================================================================
	// STEP 1: STRUCTURAL CHECK
	// =========================================================================

	if p.options.ValidatePDF {
		info, err := pdftext.Inspect(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		p.logger.Debugw("pdf inspected", "pages", info.Pages)
	}

	// =========================================================================
	// STEP 2: EXTRACT LINES
	// =========================================================================

	lines, err := p.source.Lines(ctx, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}
	if len(lines) == 0 {
		return nil, pdftext.ErrNoText
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// =========================================================================
	// STEP 3: SEGMENT INTO ITEMS
	// =========================================================================

	items := segmenter.ParseItems(lines, p.options.Segmenter)
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	p.logger.Debugw("document segmented", "lines", len(lines), "items", len(items))

	// =========================================================================
	// STEP 4: EXTRACT FIELDS
	// =========================================================================

	doc := &Document{
		Lines:  len(lines),
		Items:  items,
		Fields: make([]types.FieldSet, len(items)),
	}
	for i, item := range items {
		doc.Fields[i] = fields.Extract(item.RawLines, p.options.Fields)
	}

	return doc, ctx.Err()
}

// BuildRows maps the parsed items onto the template columns and validates
// the result. Rows are numbered as they will land below the header.
func (p *Pipeline) BuildRows(doc *Document, header *types.HeaderInfo) {
	firstRow := header.Row + 1
	result := &validation.Result{IsValid: true}
	total := NewAmountTotal()

	doc.Rows = make([]types.OutputRow, len(doc.Items))
	labels := make([]string, len(doc.Items))

	for i, item := range doc.Items {
		row, diags := BuildRow(item, doc.Fields[i], header.Columns)
		for j := range diags {
			diags[j].Row = firstRow + i
		}
		result.Add(diags...)

		doc.Rows[i] = row
		labels[i] = ItemLabel(item)

		if amount, err := ParseAmount(doc.Fields[i].Get(types.FieldTotalValue)); err == nil {
			total.Add(amount)
		}
	}

	checked := validation.NewValidator(header.Columns, p.options.Validation).ValidateRows(doc.Rows, labels, firstRow)
	result.Add(checked.Diagnostics...)
	result.RowsValidated = checked.RowsValidated
	if !checked.IsValid {
		result.IsValid = false
	}

	for _, d := range result.Diagnostics {
		p.logger.Warnw("row diagnostic",
			"row", d.Row, "item", d.Item, "column", d.Column, "rule", d.Rule, "message", d.Message)
	}

	doc.Validation = result
	doc.Total = total
}

// Convert runs the whole pipeline and returns the filled workbook.
func (p *Pipeline) Convert(ctx context.Context, data []byte, tmpl *Template) ([]byte, *Document, error) {
	doc, err := p.Parse(ctx, data)
	if err != nil {
		return nil, nil, err
	}

	p.BuildRows(doc, tmpl.Header)

	out, err := xlsxwriter.Fill(tmpl.Path, tmpl.Header, doc.Rows)
	if err != nil {
		return nil, doc, fmt.Errorf("failed to fill template: %w", err)
	}
	return out, doc, nil
}

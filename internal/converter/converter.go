// =============================================================================
// Plano de Aplicação Converter - Converter Module
// =============================================================================
//
// This module contains the file-oriented conversion logic. It runs the
// pipeline for a single PDF on disk and takes care of everything around it.
//
// CONVERSION PIPELINE:
//   1. Read the source PDF
//   2. Extract text lines and segment them into line items
//   3. Extract the fields of each item
//   4. Build one template row per item and validate it
//   5. Fill the XLSX template
//   6. Write the output file (and the diagnostics log, if enabled)
//   7. Archive the processed files
//
// CONCURRENCY:
//   Each file is processed in its own goroutine. A Pipeline and a Template
//   are read-only and are shared by every Converter of a batch.
//
// =============================================================================

package converter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/config"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/logging"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/validation"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/pkg/utils"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single file.
type Result struct {
	// FilePath is the path to the input PDF that was processed.
	FilePath string

	// OutputFile is the path to the generated spreadsheet.
	// This is empty if processing failed or on a dry run.
	OutputFile string

	// Success indicates whether the processing was successful.
	Success bool

	// Error contains the error if processing failed.
	Error error

	// Stats contains processing statistics.
	Stats ProcessingStats

	// Diagnostics are the row problems reported during conversion. They never
	// make a conversion fail.
	Diagnostics []validation.Diagnostic
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// Lines is the number of text lines extracted from the PDF.
	Lines int

	// Items is the number of line items found.
	Items int

	// Rows is the number of spreadsheet rows written.
	Rows int

	// Diagnostics is the number of row diagnostics.
	Diagnostics int

	// TotalCents is the sum of the parseable total values, in centavos.
	TotalCents int64

	// TotalDisplay is TotalCents formatted as BRL.
	TotalDisplay string

	// ProcessingTime is the time taken to process the file.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter handles the conversion of a single PDF file to XLSX.
type Converter struct {
	pdfPath    string
	pipeline   *Pipeline
	template   *Template
	mainConfig *config.MainConfig
	files      *utils.FileManager
	logger     Logger

	// DryRun parses and validates without writing or archiving anything.
	DryRun bool
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// New creates a new Converter instance.
//
// PARAMETERS:
//   - pdfPath: The path to the input PDF.
//   - pipeline: The shared conversion pipeline.
//   - template: The shared template with its header row.
//   - mainConfig: The main application configuration.
//   - files: Archival and naming helper. If nil, one is built from mainConfig.
//   - logger: If nil, output is discarded.
func New(pdfPath string, pipeline *Pipeline, template *Template, mainConfig *config.MainConfig,
	files *utils.FileManager, logger Logger) *Converter {
	if files == nil {
		files = utils.NewFileManager(mainConfig.InputDir, mainConfig.OutputDir,
			mainConfig.InputArchiveDir, mainConfig.OutputArchiveDir)
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Converter{
		pdfPath:    pdfPath,
		pipeline:   pipeline,
		template:   template,
		mainConfig: mainConfig,
		files:      files,
		logger:     logger,
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the conversion for the file.
//
// RETURNS:
//   - A Result struct containing the outcome of the processing.
func (c *Converter) Run(ctx context.Context) Result {
	startTime := time.Now()
	result := Result{FilePath: c.pdfPath}

	c.logger.Infow("processing file", "file", c.pdfPath)

	// =========================================================================
	// STEP 1: READ SOURCE
	// =========================================================================

	data, err := os.ReadFile(c.pdfPath)
	if err != nil {
		result.Error = fmt.Errorf("failed to read input: %w", err)
		return result
	}

	// =========================================================================
	// STEP 2: PARSE, BUILD ROWS AND FILL TEMPLATE
	// =========================================================================

	var (
		out []byte
		doc *Document
	)
	if c.DryRun {
		doc, err = c.pipeline.Parse(ctx, data)
		if err == nil {
			c.pipeline.BuildRows(doc, c.template.Header)
		}
	} else {
		out, doc, err = c.pipeline.Convert(ctx, data, c.template)
	}
	if err != nil {
		result.Error = err
		return result
	}

	result.Stats.Lines = doc.Lines
	result.Stats.Items = len(doc.Items)
	result.Stats.Rows = len(doc.Rows)
	result.Stats.Diagnostics = len(doc.Validation.Diagnostics)
	result.Stats.TotalCents = doc.Total.Cents()
	result.Stats.TotalDisplay = doc.Total.Display()
	result.Diagnostics = doc.Validation.Diagnostics

	if c.DryRun {
		c.logger.Infow("dry run complete", "file", c.pdfPath, "items", result.Stats.Items,
			"diagnostics", result.Stats.Diagnostics, "total", result.Stats.TotalDisplay)
		result.Success = true
		result.Stats.ProcessingTime = time.Since(startTime)
		return result
	}

	// =========================================================================
	// STEP 3: WRITE OUTPUT FILE
	// =========================================================================

	outputPath, err := c.writeOutput(out)
	if err != nil {
		result.Error = fmt.Errorf("failed to write output: %w", err)
		return result
	}
	result.OutputFile = outputPath
	c.logger.Infow("wrote output", "file", outputPath, "rows", result.Stats.Rows)

	if c.mainConfig.WriteDiagnostics && len(result.Diagnostics) > 0 {
		logPath := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".log"
		if err := validation.WriteLog(result.Diagnostics, c.pdfPath, logPath); err != nil {
			c.logger.Warnw("failed to write diagnostics log", "file", logPath, "error", err)
		}
	}

	// =========================================================================
	// STEP 4: ARCHIVE FILES
	// =========================================================================

	if err := c.archiveFiles(outputPath); err != nil {
		// Log the error but don't fail the processing.
		c.logger.Warnw("failed to archive files", "error", err)
	}

	result.Success = true
	result.Stats.ProcessingTime = time.Since(startTime)
	return result
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// writeOutput writes the workbook to the output directory.
func (c *Converter) writeOutput(workbook []byte) (string, error) {
	if err := os.MkdirAll(c.mainConfig.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	name := utils.GenerateOutputFileName(c.mainConfig.OutputNameFormat, map[string]string{
		"original": utils.OriginalName(c.pdfPath),
	})
	outputPath := filepath.Join(c.mainConfig.OutputDir, name)

	if err := os.WriteFile(outputPath, workbook, 0o644); err != nil {
		return "", err
	}
	return outputPath, nil
}

// archiveFiles moves the input to the input archive and copies the output
// to the output archive.
func (c *Converter) archiveFiles(outputPath string) error {
	if _, err := c.files.ArchiveInputFile(c.pdfPath); err != nil {
		return fmt.Errorf("input: %w", err)
	}
	if _, err := c.files.ArchiveOutputFile(outputPath); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	return nil
}

// =============================================================================
// Plano de Aplicação Converter - Fill Command
// =============================================================================
//
// This file defines the 'fill' command, the batch conversion of PDFs into
// filled spreadsheets.
//
// COMMAND USAGE:
//   plano fill [flags]
//
// FLAGS:
//   --file               : Convert only this PDF
//   --dry-run            : Parse and validate without writing or archiving
//   --archive-retention  : Remove archived files older than this duration
//
// PROCESSING PIPELINE:
//   1. Load the template header row
//   2. Discover PDFs in the input directory
//   3. Convert files concurrently (at most max_concurrency at once)
//   4. Archive processed files
//   5. Write the processing summary
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/config"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/converter"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/logging"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/pdftext"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	fillFile         string
	fillDryRun       bool
	archiveRetention time.Duration
)

var fillCmd = &cobra.Command{
	Use:   "fill",
	Short: "Convert PDFs in the input directory into filled spreadsheets",
	Long: `The fill command scans the input directory for PDF files and writes one
filled copy of the XLSX template per document into the output directory.

On successful processing:
  - The spreadsheet is placed in the output directory
  - The original PDF is moved to the input archive
  - A copy of the spreadsheet goes to the output archive

On error:
  - The original PDF remains in the input directory
  - Processing continues for other files unless continue_on_error is false

A processing summary is written to the output directory after every run.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runFill(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(fillCmd)

	fillCmd.Flags().StringVar(&fillFile, "file", "", "Convert only this PDF")
	fillCmd.Flags().BoolVar(&fillDryRun, "dry-run", false, "Parse and validate without writing output files")
	fillCmd.Flags().DurationVar(&archiveRetention, "archive-retention", 0,
		"Remove archived files older than this (e.g. 720h); 0 keeps everything")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runFill(ctx context.Context, out io.Writer) error {
	// =========================================================================
	// STEP 1: PREPARE
	// =========================================================================

	if err := mainConfig.EnsureDirectories(); err != nil {
		return err
	}

	opts, err := converter.OptionsFromConfig(mainConfig)
	if err != nil {
		return err
	}
	pipeline := converter.NewPipeline(pdftext.NewExtractor(), opts, logger)

	tmpl, err := converter.LoadTemplate(mainConfig.TemplatePath, mainConfig.HeaderOptions())
	if err != nil {
		return fmt.Errorf("failed to load template: %w", err)
	}
	logger.Infow("template loaded", "path", tmpl.Path, "sheet", tmpl.Header.Sheet,
		"header_row", tmpl.Header.Row, "columns", len(tmpl.Header.Columns))

	// =========================================================================
	// STEP 2: DISCOVER INPUT FILES
	// =========================================================================

	files := utils.NewFileManager(mainConfig.InputDir, mainConfig.OutputDir,
		mainConfig.InputArchiveDir, mainConfig.OutputArchiveDir)

	var inputFiles []string
	if fillFile != "" {
		inputFiles = []string{fillFile}
	} else {
		inputFiles, err = files.DiscoverInputFiles(".pdf")
		if err != nil {
			return fmt.Errorf("failed to discover input files: %w", err)
		}
	}

	if len(inputFiles) == 0 {
		fmt.Fprintln(out, "No PDF files found in the input directory.")
		return nil
	}
	fmt.Fprintf(out, "Found %d file(s) to process\n", len(inputFiles))

	// =========================================================================
	// STEP 3: PROCESS FILES CONCURRENTLY
	// =========================================================================

	batch := batchJob{
		config:   mainConfig,
		pipeline: pipeline,
		template: tmpl,
		files:    files,
		dryRun:   fillDryRun,
		logger:   logger,
	}
	summary, runErr := batch.run(ctx, inputFiles)

	// =========================================================================
	// STEP 4: REPORT
	// =========================================================================

	printSummary(out, summary)

	if !fillDryRun {
		path, err := utils.WriteSummaryLog(summary, mainConfig.OutputDir)
		if err != nil {
			logger.Warnw("failed to write summary", "error", err)
		} else {
			fmt.Fprintf(out, "Summary written to %s\n", path)
		}
	}

	if archiveRetention > 0 {
		for _, dir := range []string{mainConfig.InputArchiveDir, mainConfig.OutputArchiveDir} {
			removed, err := utils.CleanOldArchives(dir, archiveRetention)
			if err != nil {
				logger.Warnw("failed to clean archive", "dir", dir, "error", err)
				continue
			}
			logger.Infow("archive cleaned", "dir", dir, "removed", removed)
		}
	}

	return runErr
}

// =============================================================================
// BATCH
// =============================================================================

type batchJob struct {
	config   *config.MainConfig
	pipeline *converter.Pipeline
	template *converter.Template
	files    *utils.FileManager
	dryRun   bool
	logger   logging.Logger
}

// run converts inputFiles with at most config.MaxConcurrency conversions in
// flight. Without continue_on_error the first failure cancels the rest and
// is returned.
func (b batchJob) run(ctx context.Context, inputFiles []string) (utils.ProcessingSummary, error) {
	summary := utils.ProcessingSummary{StartTime: time.Now(), TotalFiles: len(inputFiles)}
	results := make([]converter.Result, len(inputFiles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.config.MaxConcurrency)

	for i, file := range inputFiles {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = converter.Result{FilePath: file, Error: err}
				return nil
			}

			conv := converter.New(file, b.pipeline, b.template, b.config, b.files, b.logger)
			conv.DryRun = b.dryRun
			results[i] = conv.Run(gctx)

			if !results[i].Success {
				b.logger.Errorw("conversion failed", "file", file, "error", results[i].Error)
				if !b.config.ContinueOnError {
					return fmt.Errorf("%s: %w", filepath.Base(file), results[i].Error)
				}
			}
			return nil
		})
	}
	err := g.Wait()

	total := converter.NewAmountTotal()
	for _, r := range results {
		if !r.Success {
			summary.FailedFiles++
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    r.FilePath,
				ErrorMessage: errorMessage(r.Error),
			})
			continue
		}

		summary.SuccessfulFiles++
		summary.TotalItems += r.Stats.Items
		summary.Diagnostics += r.Stats.Diagnostics
		total.Add(decimal.New(r.Stats.TotalCents, -2))

		summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
			InputFile:    r.FilePath,
			OutputFile:   r.OutputFile,
			Items:        r.Stats.Items,
			Diagnostics:  r.Stats.Diagnostics,
			TotalPlanned: r.Stats.TotalDisplay,
			ProcessTime:  r.Stats.ProcessingTime,
		})
	}

	summary.TotalPlanned = total.Display()
	summary.EndTime = time.Now()
	return summary, err
}

func errorMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func printSummary(out io.Writer, summary utils.ProcessingSummary) {
	for _, pf := range summary.ProcessedFiles {
		target := pf.OutputFile
		if target == "" {
			target = "(dry run)"
		}
		fmt.Fprintf(out, "  ✓ %s -> %s (%d items, %s)\n",
			filepath.Base(pf.InputFile), target, pf.Items, pf.TotalPlanned)
	}
	for _, ff := range summary.FailedFilesList {
		fmt.Fprintf(out, "  ✗ %s: %s\n", filepath.Base(ff.InputFile), ff.ErrorMessage)
	}

	fmt.Fprintln(out, "\n=== Processing Complete ===")
	fmt.Fprintf(out, "Total files:     %d\n", summary.TotalFiles)
	fmt.Fprintf(out, "Successful:      %d\n", summary.SuccessfulFiles)
	fmt.Fprintf(out, "Errors:          %d\n", summary.FailedFiles)
	fmt.Fprintf(out, "Line items:      %d\n", summary.TotalItems)
	fmt.Fprintf(out, "Diagnostics:     %d\n", summary.Diagnostics)
	fmt.Fprintf(out, "Total planned:   %s\n", summary.TotalPlanned)
	fmt.Fprintf(out, "Time elapsed:    %s\n", summary.EndTime.Sub(summary.StartTime))
}

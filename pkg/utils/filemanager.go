// =============================================================================
// Plano de Aplicação Converter - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for batch conversion:
//   - Discovery of source PDFs
//   - Archival of processed inputs and generated spreadsheets
//   - Output file naming
//   - Processing summary generation
//   - Archive retention
//
// ARCHIVAL STRATEGY:
//   - Input PDFs are moved to input_archive after a successful conversion
//   - Output spreadsheets are copied to output_archive for long-term storage
//   - Failed files remain in their original location
//   - Processing summaries are created in the output directory
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the converter.
type FileManager struct {
	// InputDir is the directory where source PDFs are placed.
	InputDir string

	// OutputDir is the directory where spreadsheets are written.
	OutputDir string

	// InputArchiveDir is the directory for archived PDFs.
	InputArchiveDir string

	// OutputArchiveDir is the directory for archived spreadsheets.
	OutputArchiveDir string

	// UseTimestampSubdirs creates date-based subdirectories in archives.
	// Example: input_archive/2024/01/15/plano.pdf
	UseTimestampSubdirs bool

	// ArchiveOnSuccess determines whether to archive files after successful processing.
	ArchiveOnSuccess bool

	now func() time.Time
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(inputDir, outputDir, inputArchiveDir, outputArchiveDir string) *FileManager {
	return &FileManager{
		InputDir:         inputDir,
		OutputDir:        outputDir,
		InputArchiveDir:  inputArchiveDir,
		OutputArchiveDir: outputArchiveDir,
		ArchiveOnSuccess: true,
		now:              time.Now,
	}
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles lists the regular files in the input directory whose
// extension matches ext, case-insensitively, sorted by name.
//
// PARAMETERS:
//   - ext: The extension to match, with the dot. If empty, defaults to ".pdf".
func (fm *FileManager) DiscoverInputFiles(ext string) ([]string, error) {
	if ext == "" {
		ext = ".pdf"
	}

	entries, err := os.ReadDir(fm.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	var result []string
	for _, entry := range entries {
		if entry.IsDir() || !entry.Type().IsRegular() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			result = append(result, filepath.Join(fm.InputDir, entry.Name()))
		}
	}

	sort.Strings(result)
	return result, nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves an input file to the archive directory.
//
// RETURNS:
//   - The path to the archived file.
//   - An error if archival fails.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	if !fm.ArchiveOnSuccess {
		return filePath, nil
	}

	archivePath := fm.getArchivePath(fm.InputArchiveDir, filePath)
	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Cross-device: copy then delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

// ArchiveOutputFile copies an output file to the archive directory. The
// original stays in the output directory.
func (fm *FileManager) ArchiveOutputFile(filePath string) (string, error) {
	if !fm.ArchiveOnSuccess {
		return filePath, nil
	}

	archivePath := fm.getArchivePath(fm.OutputArchiveDir, filePath)
	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := copyFile(filePath, archivePath); err != nil {
		return "", fmt.Errorf("failed to copy file to archive: %w", err)
	}

	return archivePath, nil
}

// getArchivePath constructs the archive path for a file.
func (fm *FileManager) getArchivePath(archiveDir, filePath string) string {
	fileName := filepath.Base(filePath)

	if fm.UseTimestampSubdirs {
		now := fm.clock()
		return filepath.Join(
			archiveDir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
			fileName,
		)
	}

	return filepath.Join(archiveDir, fileName)
}

func (fm *FileManager) clock() time.Time {
	if fm.now == nil {
		return time.Now()
	}
	return fm.now()
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName generates a unique output file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {uuid}      - A random UUID
//               {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//               {date}      - Current date (YYYYMMDD)
//               {original}  - Source file name without extension
//   - params: Extra placeholder values, keyed without braces.
//
// EXAMPLE:
//   format: "{original}_{timestamp}.xlsx"
//   params: {"original": "plano_2024"}
//   output: "plano_2024_20240115_143022.xlsx"
func GenerateOutputFileName(format string, params map[string]string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = sanitizeFileName(value)
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if !strings.HasSuffix(strings.ToLower(result), ".xlsx") {
		result += ".xlsx"
	}
	return result
}

// OriginalName returns a file's base name without its extension.
func OriginalName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// sanitizeFileName replaces path separators and other characters that are
// unsafe in file names.
func sanitizeFileName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary contains summary information about a processing run.
type ProcessingSummary struct {
	StartTime       time.Time
	EndTime         time.Time
	TotalFiles      int
	SuccessfulFiles int
	FailedFiles     int
	TotalItems      int
	Diagnostics     int

	// TotalPlanned is the formatted sum of every parseable total value.
	TotalPlanned string

	ProcessedFiles  []ProcessedFileInfo
	FailedFilesList []FailedFileInfo
}

// ProcessedFileInfo contains information about a successfully processed file.
type ProcessedFileInfo struct {
	InputFile    string
	OutputFile   string
	Items        int
	Diagnostics  int
	TotalPlanned string
	ProcessTime  time.Duration
}

// FailedFileInfo contains information about a failed file.
type FailedFileInfo struct {
	InputFile    string
	ErrorMessage string
}

// WriteSummaryLog writes a processing summary to a log file in outputDir.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	timestamp := time.Now().Format("20060102_150405")
	summaryPath := filepath.Join(outputDir, fmt.Sprintf("processing_summary_%s.txt", timestamp))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	if err := writeSummary(file, summary); err != nil {
		return "", err
	}
	return summaryPath, nil
}

func writeSummary(w io.Writer, summary ProcessingSummary) error {
	writer := bufio.NewWriter(w)
	rule := strings.Repeat("=", 80) + "\n"
	thin := strings.Repeat("-", 80) + "\n"

	fmt.Fprintf(writer, "Plano de Aplicação Converter - Processing Summary\n%s\n", rule)
	fmt.Fprintf(writer, "Run Information:\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n",
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Sub(summary.StartTime).String())
	fmt.Fprintf(writer, "Statistics:\n"+
		"  Total Files:    %d\n"+
		"  Successful:     %d\n"+
		"  Failed:         %d\n"+
		"  Line Items:     %d\n"+
		"  Diagnostics:    %d\n"+
		"  Total Planned:  %s\n\n",
		summary.TotalFiles,
		summary.SuccessfulFiles,
		summary.FailedFiles,
		summary.TotalItems,
		summary.Diagnostics,
		summary.TotalPlanned)

	if len(summary.ProcessedFiles) > 0 {
		fmt.Fprintf(writer, "Successful Files:\n%s", thin)
		for _, pf := range summary.ProcessedFiles {
			fmt.Fprintf(writer, "  Input:        %s\n", pf.InputFile)
			fmt.Fprintf(writer, "  Output:       %s\n", pf.OutputFile)
			fmt.Fprintf(writer, "  Items:        %d\n", pf.Items)
			fmt.Fprintf(writer, "  Diagnostics:  %d\n", pf.Diagnostics)
			fmt.Fprintf(writer, "  Total:        %s\n", pf.TotalPlanned)
			fmt.Fprintf(writer, "  Process Time: %s\n\n", pf.ProcessTime.String())
		}
	}

	if len(summary.FailedFilesList) > 0 {
		fmt.Fprintf(writer, "Failed Files:\n%s", thin)
		for _, ff := range summary.FailedFilesList {
			fmt.Fprintf(writer, "  File:  %s\n", ff.InputFile)
			fmt.Fprintf(writer, "  Error: %s\n\n", ff.ErrorMessage)
		}
	}

	fmt.Fprintf(writer, "%sEnd of Summary\n", rule)

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush summary file: %w", err)
	}
	return nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}

// CleanOldArchives removes archive files older than maxAge.
//
// RETURNS:
//   - The number of files removed.
//   - An error if cleaning fails.
func CleanOldArchives(archiveDir string, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	err := filepath.WalkDir(archiveDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("failed to clean archives: %w", err)
	}

	return removed, nil
}

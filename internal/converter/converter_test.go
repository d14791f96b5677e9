package converter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/config"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/xlsxparser"
)

func newTestConfig(t *testing.T) *config.MainConfig {
	t.Helper()
	root := t.TempDir()

	cfg := config.Default()
	cfg.InputDir = filepath.Join(root, "input")
	cfg.OutputDir = filepath.Join(root, "output")
	cfg.InputArchiveDir = filepath.Join(root, "input_archive")
	cfg.OutputArchiveDir = filepath.Join(root, "output_archive")
	cfg.OutputNameFormat = "{original}_{uuid}.xlsx"
	cfg.Parser.ValidatePDF = false
	require.NoError(t, cfg.EnsureDirectories())
	return cfg
}

func newTestConverter(t *testing.T, cfg *config.MainConfig, lines []string) (*Converter, string) {
	t.Helper()

	pdfPath := filepath.Join(cfg.InputDir, "plano_2024.pdf")
	require.NoError(t, os.WriteFile(pdfPath, []byte("%PDF-1.4"), 0o644))

	tmpl, err := LoadTemplate(writeTemplate(t), xlsxparser.DefaultHeaderOptions())
	require.NoError(t, err)

	opts, err := OptionsFromConfig(cfg)
	require.NoError(t, err)

	p := NewPipeline(fakeSource{lines: lines}, opts, nil)
	return New(pdfPath, p, tmpl, cfg, nil, nil), pdfPath
}

func TestConverterRun(t *testing.T) {
	cfg := newTestConfig(t)
	c, pdfPath := newTestConverter(t, cfg, samplePlan)

	result := c.Run(context.Background())
	require.NoError(t, result.Error)
	assert.True(t, result.Success)

	assert.Equal(t, 2, result.Stats.Items)
	assert.Equal(t, 2, result.Stats.Rows)
	assert.Equal(t, int64(30123456), result.Stats.TotalCents)
	assert.Equal(t, "R$301.234,56", result.Stats.TotalDisplay)

	assert.True(t, strings.HasPrefix(filepath.Base(result.OutputFile), "plano_2024_"))
	assert.Equal(t, ".xlsx", filepath.Ext(result.OutputFile))
	assert.FileExists(t, result.OutputFile)

	assert.NoFileExists(t, pdfPath)
	assert.FileExists(t, filepath.Join(cfg.InputArchiveDir, "plano_2024.pdf"))
	assert.FileExists(t, filepath.Join(cfg.OutputArchiveDir, filepath.Base(result.OutputFile)))
}

func TestConverterRunWritesDiagnosticsLog(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.WriteDiagnostics = true
	c, _ := newTestConverter(t, cfg, []string{"Item 1", "Descrição: Capacete", "Valor Total: a definir"})

	result := c.Run(context.Background())
	require.True(t, result.Success)
	require.Len(t, result.Diagnostics, 1)

	logPath := strings.TrimSuffix(result.OutputFile, ".xlsx") + ".log"
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "plano_2024.pdf")
	assert.Contains(t, string(data), "Valor Total")
}

func TestConverterDryRun(t *testing.T) {
	cfg := newTestConfig(t)
	c, pdfPath := newTestConverter(t, cfg, samplePlan)
	c.DryRun = true

	result := c.Run(context.Background())
	require.True(t, result.Success)
	assert.Empty(t, result.OutputFile)
	assert.Equal(t, 2, result.Stats.Items)
	assert.FileExists(t, pdfPath, "dry run leaves the input in place")

	entries, err := os.ReadDir(cfg.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestConverterRunNoItems(t *testing.T) {
	cfg := newTestConfig(t)
	c, pdfPath := newTestConverter(t, cfg, []string{"documento sem itens"})

	result := c.Run(context.Background())
	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Error, ErrNoItems)
	assert.FileExists(t, pdfPath, "failed files stay in the input directory")
}

func TestConverterRunMissingInput(t *testing.T) {
	cfg := newTestConfig(t)
	c, pdfPath := newTestConverter(t, cfg, samplePlan)
	require.NoError(t, os.Remove(pdfPath))

	result := c.Run(context.Background())
	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Error, os.ErrNotExist)
}

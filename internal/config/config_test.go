package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/fields"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/segmenter"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "./input", cfg.InputDir)
	assert.Equal(t, "./templates/modelo.xlsx", cfg.TemplatePath)
	assert.Equal(t, "{original}_{uuid}.xlsx", cfg.OutputNameFormat)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.True(t, cfg.ContinueOnError)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, int64(20<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, "skip", cfg.Parser.DuplicatePolicy)
	assert.Equal(t, "last", cfg.Parser.MoneyPolicy)
	assert.Equal(t, 5, cfg.Parser.HeaderScanRows)
	assert.True(t, cfg.Parser.ValidatePDF)
}

func TestLoadMainConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
input_dir: ./pdfs
template_path: ./modelo.xlsx
max_concurrency: 2
continue_on_error: false
server:
  addr: "127.0.0.1:9000"
  read_timeout: 5s
parser:
  duplicate_policy: append
  money_policy: first
  validate_pdf: false
  noise_patterns:
    - "(?i)^RASCUNHO$"
`)

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "./pdfs", cfg.InputDir)
	assert.Equal(t, "./output", cfg.OutputDir, "unset keys keep defaults")
	assert.Equal(t, 2, cfg.MaxConcurrency)
	assert.False(t, cfg.ContinueOnError)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.False(t, cfg.Parser.ValidatePDF)

	segOpts, err := cfg.SegmenterOptions()
	require.NoError(t, err)
	assert.Equal(t, segmenter.DuplicateAppend, segOpts.DuplicatePolicy)
	assert.True(t, segOpts.Noise.IsNoise("Rascunho"))

	fieldOpts, err := cfg.FieldOptions()
	require.NoError(t, err)
	assert.Equal(t, fields.MoneyFirst, fieldOpts.MoneyPolicy)
}

func TestLoadMainConfigMissingDefaultPath(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadMainConfig(DefaultConfigPath)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMainConfigMissingExplicitPath(t *testing.T) {
	_, err := LoadMainConfig(filepath.Join(t.TempDir(), "outro.yaml"))
	assert.Error(t, err)
}

func TestLoadMainConfigInvalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":          "input_dir: [",
		"duplicate policy":  "parser:\n  duplicate_policy: overwrite\n",
		"money policy":      "parser:\n  money_policy: middle\n",
		"noise pattern":     "parser:\n  noise_patterns: ['(']\n",
		"log level":         "log_level: chatty\n",
		"concurrency":       "max_concurrency: -1\n",
		"name placeholders": "output_name_format: saida.xlsx\n",
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadMainConfig(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadAppliesEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "template_path: ./arquivo.xlsx\nserver:\n  addr: \":8080\"\n")

	t.Setenv("PLANO_TEMPLATE_PATH", "/srv/modelo.xlsx")
	t.Setenv("PLANO_SERVER_ADDR", ":9999")
	t.Setenv("PLANO_MAX_CONCURRENCY", "8")
	t.Setenv("PLANO_PARSER_VALIDATE_PDF", "false")

	cfg, err := Load(path, NewViper())
	require.NoError(t, err)

	assert.Equal(t, "/srv/modelo.xlsx", cfg.TemplatePath)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, 8, cfg.MaxConcurrency)
	assert.False(t, cfg.Parser.ValidatePDF)
}

func TestLoadRejectsInvalidOverride(t *testing.T) {
	t.Setenv("PLANO_PARSER_MONEY_POLICY", "average")

	_, err := Load(writeConfig(t, ""), NewViper())
	assert.Error(t, err)
}

func TestEnsureDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.InputDir = filepath.Join(root, "in")
	cfg.OutputDir = filepath.Join(root, "out")
	cfg.InputArchiveDir = filepath.Join(root, "archive", "in")
	cfg.OutputArchiveDir = filepath.Join(root, "archive", "out")

	require.NoError(t, cfg.EnsureDirectories())
	for _, dir := range []string{cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.OutputArchiveDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

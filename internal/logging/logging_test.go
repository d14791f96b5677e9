package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{" WARN ", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewWritesToLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "plano.log")

	logger, err := New("debug", path)
	require.NoError(t, err)

	logger.Sugar().Infow("converted", "file", "plano.pdf", "items", 3)
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"converted"`)
	assert.Contains(t, string(data), `"items":3`)
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New("verbose", "")
	assert.Error(t, err)
}

func TestNopSatisfiesLogger(t *testing.T) {
	var l Logger = Nop()
	l.Infow("ignored", "k", "v")
}

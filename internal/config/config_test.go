package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.ClassifyModel)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.ExtractModel)
	assert.Equal(t, 3, cfg.Anthropic.MaxRetries)
	assert.Equal(t, 5, cfg.Anthropic.RequestsPerSec)
	assert.Equal(t, "mistral-ocr-latest", cfg.Mistral.Model)
	assert.Equal(t, "https://api.mistral.ai", cfg.Mistral.BaseURL)
	assert.Equal(t, "vision", cfg.Pipeline.Backend)
	assert.Equal(t, 15, cfg.Pipeline.ClassifyBatchSize)
	assert.Equal(t, 1, cfg.Pipeline.MaxSecondTurnPasses)
	assert.Equal(t, 8, cfg.Pipeline.AnnotatePageLimit)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
log:
  level: debug
  format: console
pipeline:
  backend: document
  classify_batch_size: 10
anthropic:
  extract_model: claude-opus-4-6
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "document", cfg.Pipeline.Backend)
	assert.Equal(t, 10, cfg.Pipeline.ClassifyBatchSize)
	assert.Equal(t, "claude-opus-4-6", cfg.Anthropic.ExtractModel)
	// Untouched keys keep their defaults.
	assert.Equal(t, 1, cfg.Pipeline.MaxSecondTurnPasses)
}

func TestLoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("CONTRACT_ANTHROPIC_KEY", "sk-test")
	t.Setenv("CONTRACT_PIPELINE_CLASSIFY_BATCH_SIZE", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.Anthropic.Key)
	assert.Equal(t, 5, cfg.Pipeline.ClassifyBatchSize)
}

func TestInitLogger(t *testing.T) {
	assert.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "nope", Format: "json"}))
}

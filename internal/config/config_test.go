package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ProjectConfig(t *testing.T) {
	dir := t.TempDir()
	projectDir := filepath.Join(dir, ".tandem")
	require.NoError(t, os.MkdirAll(projectDir, 0o755))

	// JSONC comments must be tolerated.
	content := `{
		// local backend
		"backendURL": "http://localhost:7777",
		"logLevel": "DEBUG",
	}`
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "tandem.jsonc"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:7777", cfg.BackendURL)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	projectDir := filepath.Join(dir, ".tandem")
	require.NoError(t, os.MkdirAll(projectDir, 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(projectDir, "tandem.json"),
		[]byte(`{"backendURL": "http://file"}`), 0o644))

	t.Setenv("TANDEM_BACKEND_URL", "http://env")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "http://env", cfg.BackendURL)
}

func TestLoad_MissingFilesAreFine(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, cfg.BackendURL)
}

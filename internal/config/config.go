package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"

	"github.com/tandem-dev/tandem/pkg/types"
)

// Load reads configuration in priority order:
//  1. Global config (~/.config/tandem/tandem.json[c])
//  2. Project config (<dir>/.tandem/tandem.json[c])
//  3. TANDEM_CONFIG file override
//  4. Environment variables (highest priority)
//
// Missing files are skipped silently; the zero config is valid.
func Load(directory string) (*types.Config, error) {
	config := &types.Config{}

	loaded := make(map[string]bool)
	loadOnce := func(path string) {
		abs, err := filepath.Abs(path)
		if err != nil || loaded[abs] {
			return
		}
		if loadFile(path, config) == nil {
			loaded[abs] = true
		}
	}

	globalDir := GetPaths().Config
	loadOnce(filepath.Join(globalDir, "tandem.json"))
	loadOnce(filepath.Join(globalDir, "tandem.jsonc"))

	if directory != "" {
		projectDir := filepath.Join(directory, ".tandem")
		loadOnce(filepath.Join(projectDir, "tandem.json"))
		loadOnce(filepath.Join(projectDir, "tandem.jsonc"))
	}

	if path := os.Getenv("TANDEM_CONFIG"); path != "" {
		loadOnce(path)
	}

	applyEnvOverrides(config)

	return config, nil
}

// loadFile merges a single JSONC config file into config.
func loadFile(path string, config *types.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	data = jsonc.ToJSON(data)

	var fileConfig types.Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return err
	}

	merge(config, &fileConfig)
	return nil
}

func merge(target, source *types.Config) {
	if source.Schema != "" {
		target.Schema = source.Schema
	}
	if source.BackendURL != "" {
		target.BackendURL = source.BackendURL
	}
	if source.SystemPrompt != "" {
		target.SystemPrompt = source.SystemPrompt
	}
	if source.LogLevel != "" {
		target.LogLevel = source.LogLevel
	}
	if source.DataDir != "" {
		target.DataDir = source.DataDir
	}
}

func applyEnvOverrides(config *types.Config) {
	if v := os.Getenv("TANDEM_BACKEND_URL"); v != "" {
		config.BackendURL = v
	}
	if v := os.Getenv("TANDEM_LOG_LEVEL"); v != "" {
		config.LogLevel = v
	}
	if v := os.Getenv("TANDEM_DATA_DIR"); v != "" {
		config.DataDir = v
	}
}

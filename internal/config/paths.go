// Package config provides configuration loading and path management for the
// tandem client.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Paths holds the XDG-style directories used by the client.
type Paths struct {
	Data   string // ~/.local/share/tandem
	Config string // ~/.config/tandem
	State  string // ~/.local/state/tandem
}

// GetPaths resolves the client directories from the environment.
func GetPaths() *Paths {
	return &Paths{
		Data:   filepath.Join(envOr("XDG_DATA_HOME", defaultDataHome()), "tandem"),
		Config: filepath.Join(envOr("XDG_CONFIG_HOME", defaultConfigHome()), "tandem"),
		State:  filepath.Join(envOr("XDG_STATE_HOME", defaultStateHome()), "tandem"),
	}
}

// EnsurePaths creates the directories if missing.
func (p *Paths) EnsurePaths() error {
	for _, dir := range []string{p.Data, p.Config, p.State} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// StoragePath is where the key-value store lives.
func (p *Paths) StoragePath() string {
	return filepath.Join(p.Data, "storage")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultDataHome() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("APPDATA")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "share")
}

func defaultConfigHome() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("APPDATA")
	}
	return filepath.Join(os.Getenv("HOME"), ".config")
}

func defaultStateHome() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("APPDATA")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "state")
}

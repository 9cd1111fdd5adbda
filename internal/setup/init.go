// Package setup handles agdad configuration directory initialization.
package setup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/choukh/agda-mode-vscode/internal/model"
	atomicyaml "github.com/choukh/agda-mode-vscode/internal/yaml"
)

const (
	// DirName is the config directory under $HOME.
	DirName = ".agdad"
	// ConfigFileName is the config file inside it.
	ConfigFileName = "config.yaml"
)

// BaseDir resolves the agdad directory, honoring the AGDAD_DIR override
// used by tests and uncommon setups.
func BaseDir() (string, error) {
	if dir := os.Getenv("AGDAD_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// ConfigPath returns the config file path inside baseDir.
func ConfigPath(baseDir string) string {
	return filepath.Join(baseDir, ConfigFileName)
}

// Run initializes the agdad directory: subdirectories plus a default
// config written atomically. It refuses to clobber an existing config.
func Run(baseDir string) error {
	for _, d := range []string{"logs", "locks", "quarantine"} {
		if err := os.MkdirAll(filepath.Join(baseDir, d), 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", d, err)
		}
	}

	cfgPath := ConfigPath(baseDir)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}

	if err := atomicyaml.AtomicWrite(cfgPath, model.DefaultConfig()); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}

// LoadConfig reads the config, strictly: unknown keys are corruption, not
// noise. A corrupt file is quarantined and regenerated from the backup or
// the defaults.
func LoadConfig(baseDir string) (model.Config, error) {
	cfgPath := ConfigPath(baseDir)
	var cfg model.Config
	err := atomicyaml.LoadStrict(cfgPath, &cfg)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return model.Config{}, fmt.Errorf("no config at %s (run: agdad setup): %w", cfgPath, err)
	}

	if rerr := atomicyaml.RecoverCorruptedFile(baseDir, cfgPath, model.DefaultConfig()); rerr != nil {
		return model.Config{}, fmt.Errorf("recover config: %w (original error: %v)", rerr, err)
	}
	cfg = model.Config{}
	if err := atomicyaml.LoadStrict(cfgPath, &cfg); err != nil {
		return model.Config{}, fmt.Errorf("reload recovered config: %w", err)
	}
	return cfg, nil
}

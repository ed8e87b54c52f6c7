package app

import (
	"fmt"
	"os"
	"path/filepath"

	"ffctl/internal/config"
)

const (
	envConfigPath = "FFCTL_CONFIG_PATH"
	envHome       = "FFCTL_HOME"
	envDataDir    = "FFCTL_DATA_DIR"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - FFCTL_CONFIG_PATH: config file location (default: ~/.config/ffctl.toml)
//   - FFCTL_HOME: base directory for ffctl data (default: ~/.local/share/ffctl)
//   - FFCTL_DATA_DIR: snapshot directory (default: $FFCTL_HOME/data)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	dataDir := os.Getenv(envDataDir)
	if dataDir == "" {
		dataDir = filepath.Join(baseDir, "data")
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"data_dir":    dataDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// ApplyOverrides points cfg at FFCTL_DATA_DIR when it is set. A credentials
// file that lived in the old data directory moves with it; one configured
// elsewhere is left alone.
func ApplyOverrides(cfg *config.Config) {
	dir := os.Getenv(envDataDir)
	if dir == "" || dir == cfg.DataDir {
		return
	}
	if cfg.Credentials.EnvFile == "" || cfg.Credentials.EnvFile == filepath.Join(cfg.DataDir, ".env") {
		cfg.Credentials.EnvFile = filepath.Join(dir, ".env")
	}
	cfg.DataDir = dir
}

// getConfigPath returns the config file path, checking FFCTL_CONFIG_PATH first,
// then falling back to ~/.config/ffctl.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv(envConfigPath); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "ffctl.toml"), nil
}

// getBaseDir returns the base directory for ffctl data, checking FFCTL_HOME
// first, then falling back to the XDG default ~/.local/share/ffctl.
func getBaseDir() (string, error) {
	if path := os.Getenv(envHome); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "ffctl"), nil
}

package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DefaultBaseURL is the platform REST API root.
const DefaultBaseURL = "https://platform.flatfile.com/api/v1"

// Config represents the main configuration for ffctl.
type Config struct {
	HostID  string `toml:"host_id"`
	BaseDir string `toml:"base_dir"`
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	// LogLevel is the stderr threshold: debug, info, warn (default) or error.
	LogLevel    string            `toml:"log_level"`
	API         APIConfig         `toml:"api"`
	Credentials CredentialsConfig `toml:"credentials"`
	Vaults      []VaultConfig     `toml:"vaults"`
	Encryption  EncryptionConfig  `toml:"encryption"`
	Database    DatabaseConfig    `toml:"database"`
	Blueprints  BlueprintsConfig  `toml:"blueprints"`
}

// APIConfig holds platform connection settings.
type APIConfig struct {
	BaseURL        string `toml:"base_url"`
	ClientID       string `toml:"client_id,omitempty"`
	Secret         string `toml:"secret,omitempty"`
	TimeoutSeconds int    `toml:"timeout_seconds"`

	// RequestsPerSecond caps the request rate; 0 means unlimited.
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// CredentialsConfig points at the dotenv-style file that mirrors the current API key.
type CredentialsConfig struct {
	EnvFile string `toml:"env_file"`
}

// EncryptionConfig holds paths to the age key pair used for exports.
type EncryptionConfig struct {
	Type           string `toml:"type"`             // "none" (default), "age" or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// BlueprintsConfig holds blueprint indexer settings.
type BlueprintsConfig struct {
	Root   string   `toml:"root,omitempty"`
	Ignore []string `toml:"ignore"`
}

// VaultConfig represents configuration for an export vault.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket string `toml:"s3_bucket,omitempty"`
	S3Prefix string `toml:"s3_prefix,omitempty"`
	S3Region string `toml:"s3_region,omitempty"`
	// S3Endpoint targets an S3-compatible store and switches to path-style addressing.
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// DatabaseConfig represents configuration for the run history database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// NewConfig creates a new Config with the provided values and default paths.
func NewConfig(hostID, baseDir string) *Config {
	dataDir := filepath.Join(baseDir, "data")
	return &Config{
		HostID:   hostID,
		BaseDir:  baseDir,
		DataDir:  dataDir,
		LogDir:   filepath.Join(baseDir, "log"),
		LogLevel: "warn",
		API: APIConfig{
			BaseURL:        DefaultBaseURL,
			TimeoutSeconds: 30,
		},
		Credentials: CredentialsConfig{
			EnvFile: filepath.Join(dataDir, ".env"),
		},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "ffctl.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "ffctl.key"),
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Vaults: []VaultConfig{
			{Type: "filesystem", Name: "local", FSVaultRoot: filepath.Join(baseDir, "vault")},
		},
		Blueprints: BlueprintsConfig{
			Root:   "Blueprints",
			Ignore: []string{},
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// applyDefaults fills settings that older or hand-written files leave out.
func (c *Config) applyDefaults() {
	if c.DataDir == "" && c.BaseDir != "" {
		c.DataDir = filepath.Join(c.BaseDir, "data")
	}
	if c.LogDir == "" && c.BaseDir != "" {
		c.LogDir = filepath.Join(c.BaseDir, "log")
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = 30
	}
	if c.Credentials.EnvFile == "" && c.DataDir != "" {
		c.Credentials.EnvFile = filepath.Join(c.DataDir, ".env")
	}
	if c.Encryption.Type == "" {
		c.Encryption.Type = "none"
	}
	if c.Database.Type == "" {
		c.Database.Type = "memory"
	}
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file may carry the client secret.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}

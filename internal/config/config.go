package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for evscan.
type Config struct {
	BaseDir  string         `toml:"base_dir"`
	LogDir   string         `toml:"log_dir"`
	Patterns PatternsConfig `toml:"patterns"`
	Scan     ScanConfig     `toml:"scan"`
	Output   OutputConfig   `toml:"output"`
	Store    StoreConfig    `toml:"store"`
}

// PatternsConfig locates the pattern rule file and the flags applied to
// rules that do not declare their own.
type PatternsConfig struct {
	Path         string   `toml:"path"`
	DefaultFlags []string `toml:"default_flags"`
}

// ScanConfig holds scan-phase settings.
type ScanConfig struct {
	// ContextWindow is the number of characters captured around each
	// match. Zero uses the engine default.
	ContextWindow int `toml:"context_window"`
	// ScratchDir receives materialized database copies. Empty uses the
	// system temp directory.
	ScratchDir string `toml:"scratch_dir"`
}

// OutputConfig names the report artifacts.
type OutputConfig struct {
	Dir      string `toml:"dir"`
	JSONFile string `toml:"json_file"`
	CSVFile  string `toml:"csv_file"`
}

// StoreConfig configures optional publication of report artifacts to a
// case store. This uses a tagged union pattern - the Type field
// determines which other fields are relevant.
type StoreConfig struct {
	Type string `toml:"type"` // "none", "filesystem", "memory", or "s3"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSStoreRoot string `toml:"fs_store_root,omitempty"`

	// RecipientsPath points at an age recipients file. When set,
	// artifacts are encrypted before publication.
	RecipientsPath string `toml:"recipients_path,omitempty"`
}

// JSONPath returns the structured artifact destination.
func (o OutputConfig) JSONPath() string {
	return filepath.Join(o.Dir, o.JSONFile)
}

// CSVPath returns the tabular artifact destination.
func (o OutputConfig) CSVPath() string {
	return filepath.Join(o.Dir, o.CSVFile)
}

// NewConfig creates a new Config with defaults rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Patterns: PatternsConfig{
			Path:         filepath.Join(baseDir, "patterns.json"),
			DefaultFlags: []string{"ignorecase"},
		},
		Scan: ScanConfig{
			ScratchDir: filepath.Join(baseDir, "scratch"),
		},
		Output: OutputConfig{
			Dir:      filepath.Join(baseDir, "outputs"),
			JSONFile: "evscan_results.json",
			CSVFile:  "evscan_results.csv",
		},
		Store: StoreConfig{Type: "none"},
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
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
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
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
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

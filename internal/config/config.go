package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete tool configuration
type Config struct {
	Workspace WorkspaceConfig `yaml:"workspace"`
	Extract   ExtractConfig   `yaml:"extract"`
	Package   PackageConfig   `yaml:"package"`
	Logging   LoggingConfig   `yaml:"logging"`
	OSS       OSSConfig       `yaml:"oss"`
}

// WorkspaceConfig controls where a run writes its files
type WorkspaceConfig struct {
	Root      string `yaml:"root"`
	ImagesDir string `yaml:"images_dir"`
}

// ExtractConfig contains extraction and matching settings
type ExtractConfig struct {
	MediaPrefix string `yaml:"media_prefix"`
	Extension   string `yaml:"extension"`
	NameColumn  string `yaml:"name_column"`
}

// PackageConfig contains zip packaging settings
type PackageConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ArchiveName string `yaml:"archive_name"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// OSSConfig contains Alibaba Cloud OSS settings
type OSSConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Endpoint        string        `yaml:"endpoint"`
	Bucket          string        `yaml:"bucket"`
	AccessKeyID     string        `yaml:"access_key_id"`
	AccessKeySecret string        `yaml:"access_key_secret"`
	PartSize        int64         `yaml:"part_size"`
	SignedURLExpiry time.Duration `yaml:"signed_url_expiry"`
	MaxRetries      int           `yaml:"max_retries"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Workspace: WorkspaceConfig{
			Root:      "temp",
			ImagesDir: "extracted_images",
		},
		Extract: ExtractConfig{
			MediaPrefix: "xl/media/",
			Extension:   ".jpeg",
			NameColumn:  "Name",
		},
		Package: PackageConfig{
			Enabled:     true,
			ArchiveName: "images.zip",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		OSS: OSSConfig{
			PartSize:        10 * 1024 * 1024, // 10MB
			SignedURLExpiry: 24 * time.Hour,
			MaxRetries:      3,
		},
	}
}

// LoadConfig loads configuration from a YAML file. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	if val := os.Getenv("SHEETPIX_WORKSPACE"); val != "" {
		c.Workspace.Root = val
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Logging.Level = val
	}
	if val := os.Getenv("OSS_ENDPOINT"); val != "" {
		c.OSS.Endpoint = val
	}
	if val := os.Getenv("OSS_BUCKET"); val != "" {
		c.OSS.Bucket = val
	}
	if val := os.Getenv("OSS_ACCESS_KEY_ID"); val != "" {
		c.OSS.AccessKeyID = val
	}
	if val := os.Getenv("OSS_ACCESS_KEY_SECRET"); val != "" {
		c.OSS.AccessKeySecret = val
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Workspace.Root == "" {
		return fmt.Errorf("workspace root is required")
	}
	if err := validateBaseName("images dir", c.Workspace.ImagesDir); err != nil {
		return err
	}
	if c.Extract.MediaPrefix == "" {
		return fmt.Errorf("media prefix is required")
	}
	if !strings.HasPrefix(c.Extract.Extension, ".") {
		return fmt.Errorf("extension must start with a dot: %q", c.Extract.Extension)
	}
	if c.Extract.NameColumn == "" {
		return fmt.Errorf("name column is required")
	}
	if c.Package.Enabled {
		if err := validateBaseName("archive name", c.Package.ArchiveName); err != nil {
			return err
		}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}
	if c.OSS.Enabled {
		if c.OSS.Endpoint == "" {
			return fmt.Errorf("OSS endpoint is required")
		}
		if c.OSS.Bucket == "" {
			return fmt.Errorf("OSS bucket is required")
		}
		if c.OSS.AccessKeyID == "" {
			return fmt.Errorf("OSS access key ID is required")
		}
		if c.OSS.AccessKeySecret == "" {
			return fmt.Errorf("OSS access key secret is required")
		}
		if c.OSS.PartSize <= 0 {
			return fmt.Errorf("OSS part size must be positive")
		}
		if c.OSS.MaxRetries < 0 {
			return fmt.Errorf("OSS max retries cannot be negative")
		}
	}
	return nil
}

// ImagesPath returns the output directory of a run
func (c *Config) ImagesPath() string {
	return filepath.Join(c.Workspace.Root, c.Workspace.ImagesDir)
}

func validateBaseName(field, name string) error {
	if name == "" {
		return fmt.Errorf("%s is required", field)
	}
	if name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("%s must be a plain name: %q", field, name)
	}
	return nil
}

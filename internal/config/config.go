package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Data      DataConfig      `yaml:"data"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DataConfig locates the health export and the processed output tree.
type DataConfig struct {
	Dir        string `yaml:"dir"`
	ExportFile string `yaml:"export_file"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// ExportPath returns the absolute path of the export document.
func (d DataConfig) ExportPath() string {
	return filepath.Join(d.Dir, d.ExportFile)
}

// ProcessedDir returns the root of the processed output tree.
func (d DataConfig) ProcessedDir() string {
	return filepath.Join(d.Dir, "processed")
}

// Load reads config from a YAML file, then applies environment variable
// overrides. A missing config file is not an error: defaults place the data
// directory next to the binary (current working directory), matching the
// single-local-user setup. Env vars use the prefix HEALTHDASH_:
//
//	HEALTHDASH_SERVER_HOST, HEALTHDASH_SERVER_PORT,
//	HEALTHDASH_DATA_DIR, HEALTHDASH_EXPORT_FILE,
//	HEALTHDASH_TS_HOSTNAME, HEALTHDASH_TS_STATE_DIR
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case os.IsNotExist(err):
		// fall through to defaults + env
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{Host: "127.0.0.1", Port: 5000},
		Data:   DataConfig{Dir: ".", ExportFile: "export.xml"},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HEALTHDASH_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("HEALTHDASH_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("HEALTHDASH_DATA_DIR"); v != "" {
		cfg.Data.Dir = v
	}
	if v := os.Getenv("HEALTHDASH_EXPORT_FILE"); v != "" {
		cfg.Data.ExportFile = v
	}
	if v := os.Getenv("HEALTHDASH_TS_HOSTNAME"); v != "" {
		cfg.Tailscale.Enabled = true
		cfg.Tailscale.Hostname = v
	}
	if v := os.Getenv("HEALTHDASH_TS_STATE_DIR"); v != "" {
		cfg.Tailscale.StateDir = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Data.Dir == "" {
		return fmt.Errorf("data.dir is required")
	}
	if c.Data.ExportFile == "" {
		return fmt.Errorf("data.export_file is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	return nil
}

package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Pivothunt PivothuntConfig `yaml:"pivothunt"`
}

// PivothuntConfig is the project configuration.
type PivothuntConfig struct {
	Indexer IndexerConfig `yaml:"indexer"`
	Manager ManagerConfig `yaml:"manager"`
	Redis   RedisConfig   `yaml:"redis"`
	Server  ServerConfig  `yaml:"server"`
	Drift   DriftConfig   `yaml:"drift"`
	Logging LoggingConfig `yaml:"logging"`
}

// IndexerConfig controls the full-text indexer backend.
type IndexerConfig struct {
	URL           string        `yaml:"url"`
	Username      string        `yaml:"username"`
	Password      string        `yaml:"password"`
	Timeout       time.Duration `yaml:"timeout"`
	AlertsIndex   string        `yaml:"alerts_index"`
	ArchivesIndex string        `yaml:"archives_index"`
}

// ManagerConfig controls the paginated manager REST backend.
type ManagerConfig struct {
	URL               string        `yaml:"url"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
}

// RedisConfig controls baseline and saved-search persistence.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// ServerConfig controls the HTTP API listener.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// DriftConfig controls snapshot collection.
type DriftConfig struct {
	// DataSource selects live collection or the embedded fixtures: live|fixture.
	DataSource string `yaml:"data_source"`
}

// LoggingConfig controls logging output.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

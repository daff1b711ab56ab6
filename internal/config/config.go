package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	CSVPath         string   `json:"csv_path" yaml:"csv_path"`
	DBPath          string   `json:"db_path" yaml:"db_path"`
	LogPath         string   `json:"log_path" yaml:"log_path"`
	TemplatesPath   string   `json:"templates_path,omitempty" yaml:"templates_path,omitempty"`
	WebPort         int      `json:"web_port" yaml:"web_port"`
	CORSOrigins     []string `json:"cors_origins,omitempty" yaml:"cors_origins,omitempty"`
	RestoreSnapshot bool     `json:"restore_snapshot" yaml:"restore_snapshot"`
}

func Default() Config {
	return Config{WebPort: 8080}
}

func DefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "lazytrip", "config.json"), nil
}

// FillPaths sets any empty file locations to defaults beside the config file.
func (c *Config) FillPaths(configPath string) {
	dir := filepath.Dir(configPath)
	if c.CSVPath == "" {
		c.CSVPath = filepath.Join(dir, "itinerary.csv")
	}
	if c.DBPath == "" {
		c.DBPath = filepath.Join(dir, "lazytrip.db")
	}
	if c.LogPath == "" {
		c.LogPath = filepath.Join(dir, "lazytrip.log")
	}
	if c.WebPort == 0 {
		c.WebPort = 8080
	}
}

func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func Load(path string) (Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return Config{}, err
	}

	if isYAML(path) {
		err = yaml.Unmarshal(data, &config)
	} else {
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return config, nil
}

func Save(path string, cfg Config) error {
	if err := EnsureDir(path); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

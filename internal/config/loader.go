package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/wan0ge/sleepy/pkg/types"
)

// Config holds runtime parameters for the daemon. Zero values mean
// "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Main    Main                      `json:"main" yaml:"main" toml:"main"`
	Page    Page                      `json:"page" yaml:"page" toml:"page"`
	Status  Status                    `json:"status" yaml:"status" toml:"status"`
	Metrics Metrics                   `json:"metrics" yaml:"metrics" toml:"metrics"`
	CORS    CORS                      `json:"cors" yaml:"cors" toml:"cors"`
	Plugins Plugins                   `json:"plugins" yaml:"plugins" toml:"plugins"`
	Plugin  map[string]map[string]any `json:"plugin" yaml:"plugin" toml:"plugin"`
}

type Main struct {
	Addr     string `json:"addr" yaml:"addr" toml:"addr"`
	Secret   string `json:"secret" yaml:"secret" toml:"secret"`
	Timezone string `json:"timezone" yaml:"timezone" toml:"timezone"`
	Debug    bool   `json:"debug" yaml:"debug" toml:"debug"`
	DataFile string `json:"data_file" yaml:"data_file" toml:"data_file"`
}

type Page struct {
	Name          string `json:"name" yaml:"name" toml:"name"`
	Title         string `json:"title" yaml:"title" toml:"title"`
	Desc          string `json:"desc" yaml:"desc" toml:"desc"`
	Favicon       string `json:"favicon" yaml:"favicon" toml:"favicon"`
	Background    string `json:"background" yaml:"background" toml:"background"`
	Theme         string `json:"theme" yaml:"theme" toml:"theme"`
	MoreText      string `json:"more_text" yaml:"more_text" toml:"more_text"`
	LearnMoreLink string `json:"learn_more_link" yaml:"learn_more_link" toml:"learn_more_link"`
	LearnMoreText string `json:"learn_more_text" yaml:"learn_more_text" toml:"learn_more_text"`
}

type Status struct {
	StatusList      []types.StatusItem `json:"status_list" yaml:"status_list" toml:"status_list"`
	NotUsing        string             `json:"not_using" yaml:"not_using" toml:"not_using"`
	RefreshInterval int                `json:"refresh_interval" yaml:"refresh_interval" toml:"refresh_interval"`
	DeviceSlice     int                `json:"device_slice" yaml:"device_slice" toml:"device_slice"`
	Sorted          bool               `json:"sorted" yaml:"sorted" toml:"sorted"`
	UsingFirst      bool               `json:"using_first" yaml:"using_first" toml:"using_first"`
}

type Metrics struct {
	Enabled bool `json:"enabled" yaml:"enabled" toml:"enabled"`
}

type CORS struct {
	Enabled        bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`
	AllowedMethods []string `json:"allowed_methods" yaml:"allowed_methods" toml:"allowed_methods"`
	AllowedHeaders []string `json:"allowed_headers" yaml:"allowed_headers" toml:"allowed_headers"`
}

type Plugins struct {
	Enabled []string `json:"enabled" yaml:"enabled" toml:"enabled"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// ApplyDefaults fills unspecified fields and returns the config.
func ApplyDefaults(cfg Config) Config {
	if cfg.Main.Addr == "" {
		cfg.Main.Addr = ":9010"
	}
	if cfg.Main.Timezone == "" {
		cfg.Main.Timezone = "Asia/Shanghai"
	}
	if cfg.Main.DataFile == "" {
		cfg.Main.DataFile = "data.json"
	}
	if cfg.Page.Name == "" {
		cfg.Page.Name = "User"
	}
	if cfg.Page.Title == "" {
		cfg.Page.Title = "Sleepy"
	}
	if cfg.Status.RefreshInterval <= 0 {
		cfg.Status.RefreshInterval = 5000
	}
	if cfg.Status.NotUsing == "" {
		cfg.Status.NotUsing = "not using"
	}
	if len(cfg.Status.StatusList) == 0 {
		cfg.Status.StatusList = []types.StatusItem{
			{ID: 0, Name: "awake", Desc: "up and reachable", Color: "awake"},
			{ID: 1, Name: "sleeping", Desc: "do not disturb", Color: "sleeping"},
		}
	}
	return cfg
}

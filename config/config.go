// Package config loads reconciliation jobs from YAML files and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/TFMV/reconcile/pkg/core"
	"github.com/TFMV/reconcile/pkg/reconcile"
)

// EnvPrefix prefixes environment overrides, e.g. RECONCILE_LEGACY_PATH.
const EnvPrefix = "RECONCILE"

// --- Configuration Structs ---

type CompareConfig struct {
	Tolerance float64 `mapstructure:"tolerance" json:"tolerance"`
	Workers   int     `mapstructure:"workers" json:"workers"`
}

type OutputConfig struct {
	// Format is the report format: text, json or html.
	Format string `mapstructure:"format" json:"format"`
	// Path is the report file. Empty writes to stdout.
	Path string `mapstructure:"path" json:"path,omitempty"`
	// ExportFormat and ExportDir control the row exports: parquet, arrow or json.
	ExportFormat string `mapstructure:"export_format" json:"export_format,omitempty"`
	ExportDir    string `mapstructure:"export_dir" json:"export_dir,omitempty"`
}

type ServerConfig struct {
	Port    string `mapstructure:"port" json:"port"`
	Prefork bool   `mapstructure:"prefork" json:"prefork"`
	// AllowedRoots are the directories API requests may read files from.
	AllowedRoots   []string `mapstructure:"allowed_roots" json:"allowed_roots"`
	AllowDatabases bool     `mapstructure:"allow_databases" json:"allow_databases"`
}

type LogConfig struct {
	Level string `mapstructure:"level" json:"level"`
	File  string `mapstructure:"file" json:"file"`
}

// Config is one reconciliation job.
type Config struct {
	Legacy  core.ReaderConfig  `mapstructure:"legacy" json:"legacy"`
	Cloud   core.ReaderConfig  `mapstructure:"cloud" json:"cloud"`
	Keys    reconcile.KeyInput `mapstructure:"keys" json:"keys"`
	Compare CompareConfig      `mapstructure:"compare" json:"compare"`
	Output  OutputConfig       `mapstructure:"output" json:"output"`
	Server  ServerConfig       `mapstructure:"server" json:"server"`
	Log     LogConfig          `mapstructure:"log" json:"log"`
}

var defaults = map[string]any{
	"compare.tolerance":      0.0,
	"compare.workers":        4,
	"output.format":          "text",
	"output.path":            "",
	"output.export_format":   "parquet",
	"output.export_dir":      "",
	"server.port":            "5555",
	"server.prefork":         false,
	"server.allowed_roots":   []string{},
	"server.allow_databases": false,
	"log.level":              "info",
	"log.file":               "reconcile.log",
}

var sourceDefaults = map[string]any{
	"type":              "",
	"path":              "",
	"connection_string": "",
	"table":             "",
	"query":             "",
	"batch_size":        0,
}

// Default returns a job with every default applied and no sources.
func Default() *Config {
	cfg, _ := decode(newViper())
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	// Registered so AutomaticEnv can override them.
	for _, side := range []string{"legacy", "cloud"} {
		for key, value := range sourceDefaults {
			v.SetDefault(side+"."+key, value)
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// --- Load Configuration ---

// LoadConfig reads the YAML job at configPath. A .env file next to it is loaded
// into the environment first; variables already set win.
func LoadConfig(configPath string) (*Config, error) {
	envFile := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := newViper()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", configPath, err)
	}
	return decode(v)
}

// KeySpec resolves the configured keys.
func (c *Config) KeySpec() (reconcile.KeySpec, error) {
	return reconcile.ResolveKeys(c.Keys)
}

// --- Validation Functions ---

// validate is a helper function to reduce repetition.
func validate(condition bool, format string, a ...any) error {
	if !condition {
		return fmt.Errorf(format, a...)
	}
	return nil
}

var (
	fileSources     = map[string]bool{"csv": true, "parquet": true, "arrow": true}
	databaseSources = map[string]bool{"duckdb": true, "postgres": true, "mysql": true}
	reportFormats   = map[string]bool{"text": true, "json": true, "html": true}
	exportFormats   = map[string]bool{"parquet": true, "arrow": true, "json": true}
)

func (c *Config) Validate() error {
	if err := ValidateSource(&c.Legacy); err != nil {
		return fmt.Errorf("legacy source validation failed: %w", err)
	}
	if err := ValidateSource(&c.Cloud); err != nil {
		return fmt.Errorf("cloud source validation failed: %w", err)
	}
	if _, err := c.KeySpec(); err != nil {
		return fmt.Errorf("keys validation failed: %w", err)
	}
	if err := c.Compare.Validate(); err != nil {
		return fmt.Errorf("compare configuration error: %w", err)
	}
	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output configuration error: %w", err)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log configuration error: %w", err)
	}
	return nil
}

// ValidateSource checks that rc names a supported source and how to reach it.
func ValidateSource(rc *core.ReaderConfig) error {
	if err := validate(rc.Type != "", "source type is required"); err != nil {
		return err
	}
	switch {
	case fileSources[rc.Type]:
		return validate(rc.Path != "", "%s source requires a path", rc.Type)
	case databaseSources[rc.Type]:
		if rc.Type == "duckdb" {
			if err := validate(rc.Path != "" || rc.ConnectionString != "", "duckdb source requires a path or connection string"); err != nil {
				return err
			}
		} else if err := validate(rc.ConnectionString != "", "%s source requires a connection string", rc.Type); err != nil {
			return err
		}
		return validate(rc.Table != "" || rc.Query != "", "%s source requires a table or query", rc.Type)
	default:
		return fmt.Errorf("unsupported source type: %s", rc.Type)
	}
}

func (cc *CompareConfig) Validate() error {
	if err := validate(cc.Tolerance >= 0, "tolerance must not be negative"); err != nil {
		return err
	}
	return validate(cc.Workers >= 0, "workers must not be negative")
}

func (oc *OutputConfig) Validate() error {
	if err := validate(reportFormats[oc.Format], "unsupported report format: %s", oc.Format); err != nil {
		return err
	}
	if oc.ExportDir != "" {
		return validate(exportFormats[oc.ExportFormat], "unsupported export format: %s", oc.ExportFormat)
	}
	return nil
}

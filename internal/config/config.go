package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const DefaultGlamourStyle = "dark"

const (
	DefaultBaseURL        = "http://localhost:8000/api"
	DefaultRequestTimeout = 90 * time.Second
)

// AppConfig is the resolved runtime configuration: built-in defaults,
// overlaid by an optional TOML file, overlaid by command-line flags.
type AppConfig struct {
	BaseURL        string
	Models         []string
	RequestTimeout time.Duration
	LogPath        string
	ExportDir      string

	// Ingestion pipeline display delays, measured from upload completion.
	HeaderDelay time.Duration
	EmbedDelay  time.Duration
	ResetDelay  time.Duration
}

type fileConfig struct {
	BaseURL        string   `toml:"base_url"`
	Models         []string `toml:"models"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	LogPath        string   `toml:"log_path"`
	ExportDir      string   `toml:"export_dir"`

	HeaderDelayMS int `toml:"header_delay_ms"`
	EmbedDelayMS  int `toml:"embed_delay_ms"`
	ResetDelayMS  int `toml:"reset_delay_ms"`
}

func Default() AppConfig {
	return AppConfig{
		BaseURL:        DefaultBaseURL,
		Models:         []string{"qwen2.5:3b", "llama3.1:8b"},
		RequestTimeout: DefaultRequestTimeout,
		HeaderDelay:    1500 * time.Millisecond,
		EmbedDelay:     3500 * time.Millisecond,
		ResetDelay:     2 * time.Second,
	}
}

func Parse() (AppConfig, error) {
	cfg := Default()

	defaultLog, err := defaultLogPath()
	if err != nil {
		return cfg, err
	}
	cfg.LogPath = defaultLog

	var configFile string
	flag.StringVar(&configFile, "config", "", "path to TOML config file")
	baseURL := flag.String("base-url", "", "backend API base URL")
	logPath := flag.String("log-path", "", "path to the log file")
	exportDir := flag.String("export-dir", "", "override conversation export directory")
	flag.Parse()

	if configFile == "" {
		configFile = detectConfigFile()
	}
	if configFile != "" {
		if err := cfg.mergeFile(configFile); err != nil {
			return cfg, err
		}
	}

	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *logPath != "" {
		cfg.LogPath = *logPath
	}
	if *exportDir != "" {
		cfg.ExportDir = *exportDir
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0o755); err != nil {
		return cfg, fmt.Errorf("create log dir: %w", err)
	}
	return cfg, nil
}

func (c *AppConfig) mergeFile(path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	if fc.BaseURL != "" {
		c.BaseURL = fc.BaseURL
	}
	if len(fc.Models) > 0 {
		c.Models = fc.Models
	}
	if fc.TimeoutSeconds > 0 {
		c.RequestTimeout = time.Duration(fc.TimeoutSeconds) * time.Second
	}
	if fc.LogPath != "" {
		c.LogPath = fc.LogPath
	}
	if fc.ExportDir != "" {
		c.ExportDir = fc.ExportDir
	}
	if fc.HeaderDelayMS > 0 {
		c.HeaderDelay = time.Duration(fc.HeaderDelayMS) * time.Millisecond
	}
	if fc.EmbedDelayMS > 0 {
		c.EmbedDelay = time.Duration(fc.EmbedDelayMS) * time.Millisecond
	}
	if fc.ResetDelayMS > 0 {
		c.ResetDelay = time.Duration(fc.ResetDelayMS) * time.Millisecond
	}
	return nil
}

func detectConfigFile() string {
	if fromEnv := os.Getenv("DOCDECK_CONFIG"); fromEnv != "" {
		return filepath.Clean(fromEnv)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, ".config", "docdeck", "config.toml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func defaultLogPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "docdeck", "docdeck.log"), nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

var (
	// configDir is the configuration directory path
	// Can be set via SetConfigDir before loading config
	configDir     string
	configDirInit bool
)

const envPrefix = "GLUCOBOT"

// SetConfigDir sets a custom configuration directory
// Must be called before any config loading functions
func SetConfigDir(dir string) {
	configDir = dir
	configDirInit = true
}

// GetConfigDir returns the configuration directory
// Priority: 1. Manually set via SetConfigDir, 2. ./config in current directory
func GetConfigDir() string {
	if !configDirInit {
		cwd, err := os.Getwd()
		if err == nil {
			configDir = filepath.Join(cwd, "config")
		}
		configDirInit = true
	}
	return configDir
}

// Config application configuration structure
type Config struct {
	Model  ModelConfig  `yaml:"model"`
	Data   DataConfig   `yaml:"data"`
	Memory MemoryConfig `yaml:"memory"`
	Output OutputConfig `yaml:"output"`
	Log    LogConfig    `yaml:"log"`
}

// ModelConfig language model configuration
type ModelConfig struct {
	Provider       string  `yaml:"provider" split_words:"true"`
	APIKey         string  `yaml:"api_key" split_words:"true"`
	BaseURL        string  `yaml:"base_url" split_words:"true"`
	Model          string  `yaml:"model" split_words:"true"`
	Temperature    float64 `yaml:"temperature" split_words:"true"`
	MaxTokens      int     `yaml:"max_tokens" split_words:"true"`
	TimeoutSeconds int     `yaml:"timeout_seconds" split_words:"true"`
}

// DataConfig patient storage layout
type DataConfig struct {
	Root            string `yaml:"root" split_words:"true"`
	FolderPrefix    string `yaml:"folder_prefix" split_words:"true"`
	GlucoseColumn   string `yaml:"glucose_column" split_words:"true"`
	TimestampColumn string `yaml:"timestamp_column" split_words:"true"`
}

// MemoryConfig conversation memory and export journal configuration
type MemoryConfig struct {
	MaxTurns    int    `yaml:"max_turns" split_words:"true"`
	JournalPath string `yaml:"journal_path" split_words:"true"`
}

// OutputConfig artifact output configuration
type OutputConfig struct {
	Dir        string `yaml:"dir" split_words:"true"`
	OpenViewer bool   `yaml:"open_viewer" split_words:"true"`
	Bucket     string `yaml:"bucket" split_words:"true"`
}

// LogConfig log configuration
type LogConfig struct {
	Level   string `yaml:"level" split_words:"true"`
	MaxDays int    `yaml:"max_days" split_words:"true"`
	Console bool   `yaml:"console" split_words:"true"`
}

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Provider:       ProviderOpenAI,
			APIKey:         "",
			BaseURL:        "https://api.openai.com",
			Model:          "gpt-4o",
			Temperature:    0,
			MaxTokens:      2000,
			TimeoutSeconds: 120,
		},
		Data: DataConfig{
			Root:            "CGMacros",
			FolderPrefix:    "CGMacros-",
			GlucoseColumn:   "Dexcom GL",
			TimestampColumn: "Timestamp",
		},
		Memory: MemoryConfig{
			MaxTurns:    6,
			JournalPath: filepath.Join(GetConfigDir(), "glucobot.db"),
		},
		Output: OutputConfig{
			Dir:        ".",
			OpenViewer: true,
		},
		Log: LogConfig{
			Level:   "info",
			MaxDays: 7,
		},
	}
}

// ConfigDir returns the configuration directory path
func ConfigDir() (string, error) {
	dir := GetConfigDir()
	if dir == "" {
		return "", fmt.Errorf("failed to determine config directory")
	}
	return dir, nil
}

// LogDir returns the log directory path
func LogDir() string {
	dir := GetConfigDir()
	if dir == "" {
		return "logs"
	}
	return filepath.Join(dir, "logs")
}

// ConfigPath returns the configuration file path
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load loads configuration from file, then merges secrets and environment overrides
func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// First run: persist defaults without any secret values
		if err := Save(cfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	secrets, _ := LoadSecrets()
	if cfg.Model.APIKey == "" {
		cfg.Model.APIKey = secrets.APIKeyFor(cfg.Model.Provider)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv overrides each section from GLUCOBOT_* environment variables.
// Unset variables leave the loaded value untouched.
func applyEnv(cfg *Config) error {
	sections := []struct {
		prefix string
		spec   any
	}{
		{envPrefix, &cfg.Model},
		{envPrefix + "_DATA", &cfg.Data},
		{envPrefix + "_MEMORY", &cfg.Memory},
		{envPrefix + "_OUTPUT", &cfg.Output},
		{envPrefix + "_LOG", &cfg.Log},
	}
	for _, s := range sections {
		if err := envconfig.Process(s.prefix, s.spec); err != nil {
			return fmt.Errorf("failed to process environment overrides: %w", err)
		}
	}
	return nil
}

// Save saves configuration to file
func Save(cfg *Config) error {
	configPath, err := ConfigPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	content := "# Glucose Data Assistant configuration\n# API keys belong in .secrets next to this file\n\n" + string(data)

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch strings.ToLower(c.Model.Provider) {
	case ProviderOpenAI:
		if c.Model.BaseURL == "" {
			return fmt.Errorf("config error: model.base_url cannot be empty for openai provider")
		}
	case ProviderGemini:
	default:
		return fmt.Errorf("config error: unknown model.provider %q", c.Model.Provider)
	}
	if c.Model.Model == "" {
		return fmt.Errorf("config error: model.model cannot be empty")
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("config error: model.temperature must be between 0 and 2")
	}
	if c.Model.MaxTokens <= 0 {
		return fmt.Errorf("config error: model.max_tokens must be greater than 0")
	}
	if c.Model.TimeoutSeconds <= 0 {
		return fmt.Errorf("config error: model.timeout_seconds must be greater than 0")
	}

	if c.Data.Root == "" {
		return fmt.Errorf("config error: data.root cannot be empty")
	}
	if c.Data.GlucoseColumn == "" || c.Data.TimestampColumn == "" {
		return fmt.Errorf("config error: data.glucose_column and data.timestamp_column are required")
	}

	if c.Memory.MaxTurns <= 0 {
		return fmt.Errorf("config error: memory.max_turns must be greater than 0")
	}
	if c.Memory.JournalPath == "" {
		return fmt.Errorf("config error: memory.journal_path cannot be empty")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("config error: unknown log.level %q", c.Log.Level)
	}

	return nil
}

// IsAPIKeyConfigured checks if API key is configured
func (c *Config) IsAPIKeyConfigured() bool {
	return c.Model.APIKey != ""
}

// String returns string representation of config (hides sensitive info)
func (c *Config) String() string {
	return fmt.Sprintf(`Glucose Data Assistant Configuration:
  Model:
    Provider: %s
    API Key: %s
    Base URL: %s
    Model: %s
    Temperature: %.1f
    Max Tokens: %d
    Timeout Seconds: %d
  Data:
    Root: %s
    Folder Prefix: %s
    Glucose Column: %s
    Timestamp Column: %s
  Memory:
    Max Turns: %d
    Journal Path: %s
  Output:
    Dir: %s
    Open Viewer: %v
    Bucket: %s
  Log:
    Level: %s
    Max Days: %d
    Console: %v`,
		c.Model.Provider,
		redactAPIKey(c.Model.APIKey),
		c.Model.BaseURL,
		c.Model.Model,
		c.Model.Temperature,
		c.Model.MaxTokens,
		c.Model.TimeoutSeconds,
		c.Data.Root,
		c.Data.FolderPrefix,
		c.Data.GlucoseColumn,
		c.Data.TimestampColumn,
		c.Memory.MaxTurns,
		c.Memory.JournalPath,
		c.Output.Dir,
		c.Output.OpenViewer,
		orNone(c.Output.Bucket),
		c.Log.Level,
		c.Log.MaxDays,
		c.Log.Console,
	)
}

func redactAPIKey(value string) string {
	if value == "" {
		return "(not configured)"
	}
	if len(value) > 8 {
		return value[:8] + "..."
	}
	return "***"
}

func orNone(value string) string {
	if value == "" {
		return "(none)"
	}
	return value
}

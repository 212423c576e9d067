// Package config loads the hubbub configuration with viper.
//
// Values come from a config file, defaults and HUBBUB_* environment variables
// (github.token is HUBBUB_GITHUB_TOKEN). The color rule table is parsed once here
// into a colors.Table; YAML files keep the rule order written by the user.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/rewired-gh/hubbub/internal/colors"
)

const envPrefix = "HUBBUB"

// Config represents the complete application configuration
type Config struct {
	GitHub   GitHubConfig   `mapstructure:"github"`
	Poll     PollConfig     `mapstructure:"poll"`
	Display  DisplayConfig  `mapstructure:"display"`
	Render   RenderConfig   `mapstructure:"render"`
	Window   WindowConfig   `mapstructure:"window"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`

	// Colors is parsed from the colors section; never nil after Load
	Colors *colors.Table `mapstructure:"-"`
}

// GitHubConfig holds the event feed configuration
type GitHubConfig struct {
	APIBaseURL     string        `mapstructure:"api_base_url"`
	Token          string        `mapstructure:"token"`
	Org            string        `mapstructure:"org"`
	// User overrides the highlighted actor; the feed always uses the logged-in user
	User           string        `mapstructure:"user"`
	PublicOnly     bool          `mapstructure:"public_only"`
	PerPage        int           `mapstructure:"per_page"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// PollConfig holds the poll loop cadence
type PollConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	BatchLimit int           `mapstructure:"batch_limit"`
}

// DisplayConfig selects and tunes the pixel matrix driver
type DisplayConfig struct {
	Driver     string  `mapstructure:"driver"`
	Brightness float64 `mapstructure:"brightness"`
	Rotation   int     `mapstructure:"rotation"`
}

// RenderConfig selects the view
type RenderConfig struct {
	View       string        `mapstructure:"view"`
	// TodayOnly overrides the view default when set
	TodayOnly  *bool         `mapstructure:"today_only"`
	FrameDelay time.Duration `mapstructure:"frame_delay"`
}

// WindowConfig bounds the seen id set; zero values keep every id forever
type WindowConfig struct {
	SeenMax int           `mapstructure:"seen_max"`
	SeenTTL time.Duration `mapstructure:"seen_ttl"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// MetricsConfig holds the Prometheus endpoint configuration
type MetricsConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	ListenAddress string `mapstructure:"listen_address"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set config file
	v.SetConfigFile(path)

	// Set defaults
	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	table, err := loadColors(v, path)
	if err != nil {
		return nil, err
	}
	cfg.Colors = table

	return &cfg, nil
}

// loadColors parses the colors section. YAML files are walked as nodes to keep
// rule order; other formats fall back to viper's decoded map.
func loadColors(v *viper.Viper, path string) (*colors.Table, error) {
	if !v.IsSet("colors") {
		return colors.DefaultTable(), nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		node := mappingValue(&doc, "colors")
		if node == nil {
			return colors.DefaultTable(), nil
		}
		table, err := colors.ParseNode(node)
		if err != nil {
			return nil, fmt.Errorf("invalid colors section: %w", err)
		}
		return table, nil
	default:
		m := v.GetStringMap("colors")
		if len(m) == 0 {
			return nil, fmt.Errorf("invalid colors section: must be a mapping")
		}
		return colors.ParseMap(m), nil
	}
}

// mappingValue returns the value node for key in a top-level YAML mapping
func mappingValue(doc *yaml.Node, key string) *yaml.Node {
	node := doc
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// GitHub defaults
	v.SetDefault("github.api_base_url", "https://api.github.com")
	v.SetDefault("github.token", "")
	v.SetDefault("github.org", "")
	v.SetDefault("github.user", "")
	v.SetDefault("github.public_only", false)
	v.SetDefault("github.per_page", 30)
	v.SetDefault("github.timeout", "10s")
	v.SetDefault("github.max_retries", 3)
	v.SetDefault("github.retry_delay_base", "500ms")

	// Poll defaults
	v.SetDefault("poll.interval", "60s")
	v.SetDefault("poll.batch_limit", 100)

	// Display defaults
	v.SetDefault("display.driver", "terminal")
	v.SetDefault("display.brightness", 0.5)
	v.SetDefault("display.rotation", 0)

	// Render defaults; today_only stays unset so each view keeps its own default
	v.SetDefault("render.view", "stream")
	v.SetDefault("render.frame_delay", "15ms")

	// Window defaults
	v.SetDefault("window.seen_max", 0)
	v.SetDefault("window.seen_ttl", "0s")

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen_address", ":9109")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate GitHub config
	if c.GitHub.APIBaseURL == "" {
		return fmt.Errorf("github.api_base_url is required")
	}
	if c.GitHub.Org == "" {
		return fmt.Errorf("github.org is required")
	}
	if !c.GitHub.PublicOnly && c.GitHub.Token == "" {
		return fmt.Errorf("github.token is required unless github.public_only is set")
	}
	if c.GitHub.PerPage < 1 || c.GitHub.PerPage > 100 {
		return fmt.Errorf("github.per_page must be between 1 and 100")
	}
	if c.GitHub.Timeout <= 0 {
		return fmt.Errorf("github.timeout must be positive")
	}
	if c.GitHub.MaxRetries < 0 {
		return fmt.Errorf("github.max_retries must not be negative")
	}

	// Validate Poll config
	if c.Poll.Interval < time.Second {
		return fmt.Errorf("poll.interval must be at least 1 second")
	}
	if c.Poll.BatchLimit < 1 {
		return fmt.Errorf("poll.batch_limit must be at least 1")
	}

	// Validate Display config
	validDrivers := map[string]bool{"terminal": true, "memory": true, "unicornhat": true}
	if !validDrivers[c.Display.Driver] {
		return fmt.Errorf("display.driver must be one of: terminal, memory, unicornhat")
	}
	if c.Display.Brightness < 0 || c.Display.Brightness > 1 {
		return fmt.Errorf("display.brightness must be between 0.0 and 1.0")
	}
	if c.Display.Rotation%90 != 0 || c.Display.Rotation < 0 || c.Display.Rotation >= 360 {
		return fmt.Errorf("display.rotation must be one of: 0, 90, 180, 270")
	}

	// Validate Render config
	validViews := map[string]bool{"stream": true, "punchcard": true}
	if !validViews[c.Render.View] {
		return fmt.Errorf("render.view must be one of: stream, punchcard")
	}
	if c.Render.FrameDelay < 0 {
		return fmt.Errorf("render.frame_delay must not be negative")
	}

	// Validate Window config
	if c.Window.SeenMax < 0 || c.Window.SeenTTL < 0 {
		return fmt.Errorf("window.seen_max and window.seen_ttl must not be negative")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Metrics config
	if c.Metrics.Enabled && c.Metrics.ListenAddress == "" {
		return fmt.Errorf("metrics.listen_address is required when metrics are enabled")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// SeenBounded reports whether the seen id set is capped
func (c *Config) SeenBounded() bool {
	return c.Window.SeenMax > 0 || c.Window.SeenTTL > 0
}

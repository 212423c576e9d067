package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rewired-gh/hubbub/internal/colors"
	"github.com/rewired-gh/hubbub/internal/models"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAndValidate(t *testing.T) {
	content := `
github:
  token: "ghp_test"
  org: "acme"
  per_page: 50

poll:
  interval: 30s

display:
  driver: memory
  brightness: 0.3
  rotation: 180

render:
  view: punchcard
  today_only: false

colors:
  Watch: yellow
  Push: "#00ff00"
  Issues:
    action:
      opened: orange
      closed: red
  Broken:
    - not
    - valid

logging:
  level: "debug"
  format: "text"
`
	cfg, err := Load(writeConfig(t, "config.yaml", content))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if cfg.GitHub.Org != "acme" || cfg.GitHub.PerPage != 50 {
		t.Errorf("github section not loaded: %+v", cfg.GitHub)
	}
	if cfg.Poll.Interval != 30*time.Second {
		t.Errorf("poll.interval = %v", cfg.Poll.Interval)
	}
	if cfg.Display.Driver != "memory" || cfg.Display.Brightness != 0.3 || cfg.Display.Rotation != 180 {
		t.Errorf("display section not loaded: %+v", cfg.Display)
	}
	if cfg.Render.View != "punchcard" || cfg.Render.TodayOnly == nil || *cfg.Render.TodayOnly {
		t.Errorf("render section not loaded: %+v", cfg.Render)
	}

	// defaults
	if cfg.GitHub.APIBaseURL != "https://api.github.com" || cfg.GitHub.Timeout != 10*time.Second {
		t.Errorf("github defaults not applied: %+v", cfg.GitHub)
	}
	if cfg.Poll.BatchLimit != 100 || cfg.Render.FrameDelay != 15*time.Millisecond {
		t.Errorf("defaults not applied: poll=%+v render=%+v", cfg.Poll, cfg.Render)
	}
	if cfg.SeenBounded() {
		t.Error("seen set should be unbounded by default")
	}

	// colors keep file order and mark bad entries
	if got := strings.Join(cfg.Colors.Kinds(), ","); got != "Watch,Push,Issues,Broken" {
		t.Errorf("rule order = %s", got)
	}
	if rule, _ := cfg.Colors.Lookup("Push"); rule != (colors.Literal{Color: models.RGB{G: 255}}) {
		t.Errorf("Push rule = %#v", rule)
	}
	if rule, _ := cfg.Colors.Lookup("Broken"); rule == nil {
		t.Error("malformed entry should still be present")
	} else if _, ok := rule.(colors.Malformed); !ok {
		t.Errorf("Broken rule = %#v, want Malformed", rule)
	}
	if len(cfg.Colors.Problems()) == 0 {
		t.Error("expected malformed entries to be reported")
	}
}

func TestDefaultsWithoutColors(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yml", "github:\n  org: acme\n  public_only: true\n"))
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("minimal config should validate: %v", err)
	}
	if cfg.Render.TodayOnly != nil {
		t.Error("today_only should be unset so the view default applies")
	}
	if cfg.Colors.Len() != colors.DefaultTable().Len() {
		t.Errorf("expected the default color table, got %d rules", cfg.Colors.Len())
	}
	if cfg.Display.Driver != "terminal" || cfg.Render.View != "stream" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected defaults: %+v %+v %+v", cfg.Display, cfg.Render, cfg.Logging)
	}
}

func TestJSONColors(t *testing.T) {
	content := `{
  "github": {"org": "acme", "public_only": true},
  "colors": {"Watch": "yellow", "Issues": {"action": {"closed": "red"}}}
}`
	cfg, err := Load(writeConfig(t, "config.json", content))
	if err != nil {
		t.Fatal(err)
	}
	rule, ok := cfg.Colors.Lookup("Issues")
	if !ok {
		t.Fatal("Issues rule missing")
	}
	cond, ok := rule.(colors.Conditional)
	if !ok {
		t.Fatalf("Issues rule = %#v", rule)
	}
	if c, ok := cond.Lookup("action", "closed"); !ok || c != (models.RGB{R: 255}) {
		t.Errorf("closed = %+v %v", c, ok)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("HUBBUB_GITHUB_TOKEN", "from-env")
	t.Setenv("HUBBUB_POLL_INTERVAL", "2m")

	cfg, err := Load(writeConfig(t, "config.yaml", "github:\n  org: acme\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GitHub.Token != "from-env" {
		t.Errorf("token = %q, want from-env", cfg.GitHub.Token)
	}
	if cfg.Poll.Interval != 2*time.Minute {
		t.Errorf("interval = %v, want 2m", cfg.Poll.Interval)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			GitHub:  GitHubConfig{APIBaseURL: "https://api.github.com", Org: "acme", Token: "t", PerPage: 30, Timeout: time.Second, MaxRetries: 3},
			Poll:    PollConfig{Interval: time.Minute, BatchLimit: 100},
			Display: DisplayConfig{Driver: "terminal", Brightness: 0.5},
			Render:  RenderConfig{View: "stream"},
			Metrics: MetricsConfig{ListenAddress: ":9109"},
			Logging: LoggingConfig{Level: "info", Format: "json"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing org", func(c *Config) { c.GitHub.Org = "" }, "github.org"},
		{"no token", func(c *Config) { c.GitHub.Token = "" }, "github.token"},
		{"user without token", func(c *Config) { c.GitHub.Token = ""; c.GitHub.User = "octocat" }, "github.token"},
		{"public without token", func(c *Config) { c.GitHub.Token = ""; c.GitHub.PublicOnly = true }, ""},
		{"per page too large", func(c *Config) { c.GitHub.PerPage = 101 }, "github.per_page"},
		{"interval too short", func(c *Config) { c.Poll.Interval = 500 * time.Millisecond }, "poll.interval"},
		{"bad driver", func(c *Config) { c.Display.Driver = "lcd" }, "display.driver"},
		{"brightness out of range", func(c *Config) { c.Display.Brightness = 1.5 }, "display.brightness"},
		{"bad rotation", func(c *Config) { c.Display.Rotation = 45 }, "display.rotation"},
		{"bad view", func(c *Config) { c.Render.View = "matrix" }, "render.view"},
		{"negative seen cap", func(c *Config) { c.Window.SeenMax = -1 }, "window.seen_max"},
		{"telegram without token", func(c *Config) { c.Telegram.Enabled = true; c.Telegram.ChatID = "1" }, "telegram.bot_token"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error = %v, want mention of %q", err, tt.errMsg)
			}
		})
	}
}

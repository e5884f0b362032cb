// Package config loads and saves the dictate TOML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Provider kinds.
const (
	KindMock       = "mock"
	KindOpenAI     = "openai"
	KindGemini     = "gemini"
	KindOpenRouter = "openrouter"
	KindCustom     = "custom"
)

// DefaultTimeout applies to providers without timeout_seconds.
const DefaultTimeout = 30 * time.Second

// Config is the root of config.toml.
type Config struct {
	DataDir                string `toml:"data_dir"`
	SocketPath             string `toml:"socket_path,omitempty"`
	ActiveProvider         string `toml:"active_provider"`
	SessionOnlyCredentials bool   `toml:"session_only_credentials"`
	Notifications          bool   `toml:"notifications"`

	Log       LogConfig     `toml:"log"`
	Capture   CaptureConfig `toml:"capture"`
	Insert    InsertConfig  `toml:"insert"`
	Mock      MockConfig    `toml:"mock"`
	Providers []Provider    `toml:"provider"`
}

// LogConfig configures pkg/logger.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file,omitempty"` // defaults to <data_dir>/Logs/dictate.log
}

// CaptureConfig configures microphone capture.
type CaptureConfig struct {
	TempDir         string `toml:"temp_dir,omitempty"`
	SettingsCommand string `toml:"settings_command"` // run to open the OS privacy settings
}

// InsertConfig is the text delivery policy.
type InsertConfig struct {
	AlwaysCopy        bool     `toml:"always_copy"`
	AutoInsert        bool     `toml:"auto_insert"`
	PasteWhenEditable bool     `toml:"paste_when_editable"`
	EditableRoles     []string `toml:"editable_roles"`
}

// MockConfig tunes the mock provider and the simulated network delay.
type MockConfig struct {
	DelayMS              int  `toml:"delay_ms"`
	SimulateNetworkDelay bool `toml:"simulate_network_delay"`
}

// Provider describes one configured transcription backend.
type Provider struct {
	ID             string         `toml:"id"`
	Kind           string         `toml:"kind"`
	Name           string         `toml:"name"`
	Endpoint       string         `toml:"endpoint,omitempty"`
	Model          string         `toml:"model,omitempty"`
	Prompt         string         `toml:"prompt,omitempty"`
	Language       string         `toml:"language,omitempty"`
	SpeakerCount   int            `toml:"speaker_count,omitempty"`
	TextPath       string         `toml:"text_path,omitempty"`
	TimeoutSeconds int            `toml:"timeout_seconds,omitempty"`
	Extra          map[string]any `toml:"extra,omitempty"`
}

// Timeout returns the request timeout for the provider.
func (p Provider) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return DefaultTimeout
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// DisplayName returns Name, falling back to the id.
func (p Provider) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

// DefaultDir returns <user config dir>/Dictate.
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "Dictate")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.toml")
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DataDir:        DefaultDir(),
		ActiveProvider: "mock",
		Notifications:  true,
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Capture: CaptureConfig{
			SettingsCommand: "gnome-control-center sound",
		},
		Insert: InsertConfig{
			AlwaysCopy:        true,
			AutoInsert:        true,
			PasteWhenEditable: true,
			EditableRoles: []string{
				"text-field", "text-area", "combo-box", "web-area", "document", "text-group",
				"gedit", "org.gnome.texteditor", "kate", "mousepad", "code",
				"firefox", "google-chrome", "chromium", "libreoffice",
			},
		},
		Mock: MockConfig{
			DelayMS: 5000,
		},
		Providers: []Provider{
			{ID: "mock", Kind: KindMock, Name: "Mock"},
		},
	}
}

// Load reads the config at path. A missing file yields Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	defaults := cfg.Providers
	cfg.Providers = nil
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if len(cfg.Providers) == 0 {
		cfg.Providers = defaults
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// Validate checks provider ids and kinds.
func (c *Config) Validate() error {
	seen := make(map[string]bool)
	for i, p := range c.Providers {
		if p.ID == "" {
			return fmt.Errorf("provider %d: missing id", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("provider %q: duplicate id", p.ID)
		}
		seen[p.ID] = true

		switch p.Kind {
		case KindMock, KindOpenAI, KindGemini, KindOpenRouter:
		case KindCustom:
			if p.Endpoint == "" {
				return fmt.Errorf("provider %q: custom providers need an endpoint", p.ID)
			}
		default:
			return fmt.Errorf("provider %q: unknown kind %q", p.ID, p.Kind)
		}
	}
	if c.ActiveProvider != "" && !seen[c.ActiveProvider] {
		return fmt.Errorf("active_provider %q is not configured", c.ActiveProvider)
	}
	return nil
}

// Active returns the active provider, if one is configured.
func (c *Config) Active() (Provider, bool) {
	return c.Provider(c.ActiveProvider)
}

// Provider looks up a provider by id.
func (c *Config) Provider(id string) (Provider, bool) {
	if id == "" {
		return Provider{}, false
	}
	for _, p := range c.Providers {
		if p.ID == id {
			return p, true
		}
	}
	return Provider{}, false
}

// LogPath returns where the log file is written.
func (c *Config) LogPath() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(c.DataDir, "Logs", "dictate.log")
}

// DBPath returns the SQLite database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "dictate.sqlite")
}

// Socket returns the trigger socket path.
func (c *Config) Socket() string {
	if c.SocketPath != "" {
		return c.SocketPath
	}
	return filepath.Join(c.DataDir, "dictate.sock")
}

// TempDir returns the directory for recording artifacts.
func (c *Config) TempDir() string {
	if c.Capture.TempDir != "" {
		return c.Capture.TempDir
	}
	return os.TempDir()
}

// MockDelay returns the mock provider delay.
func (c *Config) MockDelay() time.Duration {
	if c.Mock.DelayMS < 0 {
		return 0
	}
	return time.Duration(c.Mock.DelayMS) * time.Millisecond
}

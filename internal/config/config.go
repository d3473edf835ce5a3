// Package config provides configuration management for the touchpad server.
package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/getlantern/golog"
	"gopkg.in/yaml.v3"
)

var log = golog.LoggerFor("vtouchpad.config")

// DefaultPort is the port the server listens on unless configured.
const DefaultPort = 16080

// Config represents the application configuration
type Config struct {
	// Server contains the listener settings
	Server ServerConfig `json:"server" toml:"server" yaml:"server"`

	// Input contains the driver and translator settings
	Input InputConfig `json:"input" toml:"input" yaml:"input"`

	// General contains general application settings
	General GeneralConfig `json:"general" toml:"general" yaml:"general"`
}

// ServerConfig contains the HTTP listener settings
type ServerConfig struct {
	// Address is the interface to bind; empty means all interfaces
	Address string `json:"address" toml:"address" yaml:"address"`

	// Port is the TCP port (default: 16080)
	Port int `json:"port" toml:"port" yaml:"port"`
}

// InputConfig contains input driver settings
type InputConfig struct {
	// Drivers restricts and orders the drivers tried at startup, e.g.
	// ["xorg", "robotgo"]. Empty means the platform default order.
	Drivers []string `json:"drivers,omitempty" toml:"drivers,omitempty" yaml:"drivers,omitempty"`

	// ScrollThreshold is the scroll distance of one wheel click
	ScrollThreshold float64 `json:"scroll_threshold" toml:"scroll_threshold" yaml:"scroll_threshold"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	// LogLevel is "error" or "debug"
	LogLevel string `json:"log_level" toml:"log_level" yaml:"log_level"`

	// Tray shows the system tray icon
	Tray bool `json:"tray" toml:"tray" yaml:"tray"`

	// StartOnBoot starts the server when the user logs in
	StartOnBoot bool `json:"start_on_boot" toml:"start_on_boot" yaml:"start_on_boot"`

	// FirewallRule opens the server port in the Windows firewall
	FirewallRule bool `json:"firewall_rule" toml:"firewall_rule" yaml:"firewall_rule"`
}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: DefaultPort,
		},
		Input: InputConfig{
			ScrollThreshold: 10,
		},
		General: GeneralConfig{
			LogLevel:     "error",
			Tray:         true,
			FirewallRule: true,
		},
	}
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	if c.Input.Drivers != nil {
		out.Input.Drivers = append([]string(nil), c.Input.Drivers...)
	}
	return &out
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if !(c.Input.ScrollThreshold > 0) {
		return fmt.Errorf("input.scroll_threshold must be positive, got %v", c.Input.ScrollThreshold)
	}
	switch strings.ToLower(c.General.LogLevel) {
	case "", "error", "debug":
	default:
		return fmt.Errorf("general.log_level %q is not one of error, debug", c.General.LogLevel)
	}
	return nil
}

// Manager handles loading and saving configuration
type Manager struct {
	mu         sync.Mutex
	configPath string
	config     *Config
	onChanged  []func(*Config)
	override   func(*Config)

	watcher *fsnotify.Watcher
}

// NewManager creates a new configuration manager. An empty path selects
// the per-user default location.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	return &Manager{
		configPath: path,
		config:     DefaultConfig(),
	}, nil
}

// DefaultPath returns the per-user path of the configuration file
func DefaultPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "vtouchpad")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, "vtouchpad")
	default:
		base := os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			base = filepath.Join(home, ".config")
		}
		configDir = filepath.Join(base, "vtouchpad")
	}

	return filepath.Join(configDir, "config.json"), nil
}

// Path returns the configuration file path
func (m *Manager) Path() string {
	return m.configPath
}

// SetOverride installs fn to adjust every configuration read from disk,
// and applies it to the current one. Command line flags use it to win over
// the file across reloads.
func (m *Manager) SetOverride(fn func(*Config)) {
	m.mu.Lock()
	m.override = fn
	cfg := m.config.Clone()
	m.mu.Unlock()

	if fn != nil {
		fn(cfg)
	}
	m.Set(cfg)
}

func (m *Manager) applyOverride(cfg *Config) *Config {
	m.mu.Lock()
	fn := m.override
	m.mu.Unlock()

	if fn != nil {
		fn(cfg)
	}
	return cfg
}

// Load reads the configuration from disk. A missing file leaves the
// defaults in place.
func (m *Manager) Load() error {
	cfg, err := readFile(m.configPath)
	if errors.Is(err, os.ErrNotExist) {
		log.Debugf("No configuration at %s, using defaults", m.configPath)
		return nil
	}
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%s: %w", m.configPath, err)
	}

	m.Set(m.applyOverride(cfg))
	return nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	cfg := m.config
	m.mu.Unlock()

	data, err := encode(cfg, filepath.Ext(m.configPath))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0755); err != nil {
		return err
	}

	log.Debugf("Saving configuration to %s (%d bytes)", m.configPath, len(data))
	return os.WriteFile(m.configPath, data, 0644)
}

// Get returns the current configuration. The returned value must not be
// modified; use Set with a Clone instead.
func (m *Manager) Get() *Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Set updates the configuration
func (m *Manager) Set(config *Config) {
	m.mu.Lock()
	m.config = config
	callbacks := append(([]func(*Config))(nil), m.onChanged...)
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn(config)
	}
}

// RegisterChangeCallback registers a function to be called when config changes
func (m *Manager) RegisterChangeCallback(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = append(m.onChanged, fn)
}

// Watch reloads the configuration whenever the file is written, until ctx
// is done or Close is called. Invalid files are logged and ignored.
func (m *Manager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		watcher.Close()
		return err
	}
	// Editors replace files, so watch the directory.
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	m.mu.Lock()
	m.watcher = watcher
	m.mu.Unlock()

	go m.watchLoop(ctx, watcher)
	return nil
}

func (m *Manager) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	const debounce = 100 * time.Millisecond
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			watcher.Close()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(m.configPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, m.reload)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Errorf("Watching %s: %v", m.configPath, err)
		}
	}
}

func (m *Manager) reload() {
	cfg, err := readFile(m.configPath)
	if err != nil {
		log.Errorf("Reloading configuration: %v", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		log.Errorf("Ignoring invalid configuration %s: %v", m.configPath, err)
		return
	}
	log.Debugf("Reloaded configuration from %s", m.configPath)
	m.Set(m.applyOverride(cfg))
}

// Close stops watching the configuration file
func (m *Manager) Close() error {
	m.mu.Lock()
	watcher := m.watcher
	m.watcher = nil
	m.mu.Unlock()

	if watcher != nil {
		return watcher.Close()
	}
	return nil
}

func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := decode(data, filepath.Ext(path), cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func decode(data []byte, ext string, cfg *Config) error {
	switch strings.ToLower(ext) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("decode TOML: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode JSON: %w", err)
		}
	default:
		if json.Unmarshal(data, cfg) == nil {
			return nil
		}
		*cfg = *DefaultConfig()
		if _, err := toml.Decode(string(data), cfg); err == nil {
			return nil
		}
		*cfg = *DefaultConfig()
		if yaml.Unmarshal(data, cfg) == nil {
			return nil
		}
		return errors.New("unable to parse config file (tried JSON, TOML, YAML)")
	}
	return nil
}

func encode(cfg *Config, ext string) ([]byte, error) {
	switch strings.ToLower(ext) {
	case ".toml":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case ".yaml", ".yml":
		return yaml.Marshal(cfg)
	}
	return json.MarshalIndent(cfg, "", "  ")
}

package shared

import (
	_ "embed"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Device   DeviceConfig   `toml:"device"`
	Enroll   EnrollConfig   `toml:"enroll"`
	Database DatabaseConfig `toml:"database"`
	Log      LogConfig      `toml:"log"`
	UI       UIConfig       `toml:"ui"`
}

// DeviceConfig locates the playback device.
type DeviceConfig struct {
	Host               string `toml:"host"`
	Port               int    `toml:"port"`
	WSPath             string `toml:"ws_path"`
	StatePath          string `toml:"state_path"`
	DialTimeoutSeconds int    `toml:"dial_timeout_seconds"`
}

// EnrollConfig contains tag enrollment settings.
type EnrollConfig struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// UIConfig contains terminal view settings.
type UIConfig struct {
	FetchGlyphs bool `toml:"fetch_glyphs"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Device.Host == "" {
		return fmt.Errorf("%w: device.host is empty", ErrInvalidConfig)
	}
	if c.Device.Port <= 0 || c.Device.Port > 65535 {
		return fmt.Errorf("%w: device.port %d out of range", ErrInvalidConfig, c.Device.Port)
	}
	if c.Enroll.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: enroll.timeout_seconds must be positive", ErrInvalidConfig)
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// DeviceAddr returns host:port of the device.
func (c *Config) DeviceAddr() string {
	return net.JoinHostPort(c.Device.Host, strconv.Itoa(c.Device.Port))
}

// WebSocketURL returns the socket endpoint, ws://host:port/ws by default.
func (c *Config) WebSocketURL() string {
	u := url.URL{Scheme: "ws", Host: c.DeviceAddr(), Path: orDefault(c.Device.WSPath, "/ws")}
	return u.String()
}

// BaseURL returns the device's plain HTTP root.
func (c *Config) BaseURL() string {
	u := url.URL{Scheme: "http", Host: c.DeviceAddr()}
	return u.String()
}

// StatePath returns the legacy state polling path.
func (c *Config) StatePath() string {
	return orDefault(c.Device.StatePath, "/state")
}

// DialTimeout returns the websocket handshake timeout.
func (c *Config) DialTimeout() time.Duration {
	if c.Device.DialTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Device.DialTimeoutSeconds) * time.Second
}

// EnrollTimeout returns how long a learn request stays pending.
func (c *Config) EnrollTimeout() time.Duration {
	return time.Duration(c.Enroll.TimeoutSeconds) * time.Second
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

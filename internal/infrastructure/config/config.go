package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Chat backends understood by the bridge.
const (
	BackendMatrix   = "matrix"
	BackendTelegram = "telegram"
	BackendDiscord  = "discord"
)

// Light address encodings.
const (
	AddressDecimal = "decimal"
	AddressHex     = "hex"
)

// Frame overflow policies applied when the upload backlog is full.
const (
	OverflowAbort = "abort"
	OverflowDrop  = "drop"
	OverflowBlock = "block"
)

// DefaultCameraPath is used when no camera device is configured.
const DefaultCameraPath = "/dev/video0"

// Config is the root configuration structure for colorbridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Chat    ChatConfig    `yaml:"chat"`
	Gateway GatewayConfig `yaml:"gateway"`
	Light   LightConfig   `yaml:"light"`
	Camera  CameraConfig  `yaml:"camera"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	API     APIConfig     `yaml:"api"`
	Logging LoggingConfig `yaml:"logging"`
}

// ChatConfig selects and authenticates the chat service.
type ChatConfig struct {
	// Backend is one of "matrix", "telegram" or "discord".
	Backend string `yaml:"backend"`

	// Host is the homeserver URL for matrix, or an optional Bot API
	// endpoint template for telegram. Discord ignores it.
	Host string `yaml:"host"`

	// Token is the access token handed to the chat client as-is.
	Token string `yaml:"token"`

	// CommandPrefix is the literal that marks a colour command.
	// Default: "%color"
	CommandPrefix string `yaml:"command_prefix"`

	// EventBuffer sizes the channel between the chat listener and the consumer.
	EventBuffer int `yaml:"event_buffer"`
}

// GatewayConfig contains the light gateway connection settings.
type GatewayConfig struct {
	// Host is "host" or "host:port". Port 4000 is assumed when absent.
	Host string `yaml:"host"`

	// ConnectTimeout in seconds.
	ConnectTimeout int `yaml:"connect_timeout"`

	// RequestTimeout bounds one write plus acknowledgement, in seconds.
	RequestTimeout int `yaml:"request_timeout"`

	// ReconnectInterval is the first wait, in seconds, after a failed
	// redial. It doubles on each further failure.
	ReconnectInterval int `yaml:"reconnect_interval"`

	// RateLimit caps gateway writes per second. 0 disables pacing.
	RateLimit float64 `yaml:"rate_limit"`

	// RateBurst is the limiter burst size. Default: 1
	RateBurst int `yaml:"rate_burst"`

	// TransitionTime is the fade time sent with each colour, in tenths of a second.
	TransitionTime int `yaml:"transition_time"`
}

// LightConfig identifies the single light driven by the bridge.
type LightConfig struct {
	// Address is eight colon-separated byte values.
	Address string `yaml:"address"`

	// AddressFormat is "decimal" or "hex". When empty it follows the
	// camera switch: hex with a camera, decimal without.
	AddressFormat string `yaml:"address_format"`
}

// CameraConfig contains the capture device settings.
type CameraConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	FPS     int    `yaml:"fps"`

	// JPEGQuality is used when re-encoding a frame as a photo (1-100).
	JPEGQuality int `yaml:"jpeg_quality"`

	// FrameBacklog is the capacity of the frame handoff channel.
	FrameBacklog int `yaml:"frame_backlog"`

	// OverflowPolicy is "abort", "drop" or "block".
	OverflowPolicy string `yaml:"overflow_policy"`

	// CaptureTimeout bounds the wait for a frame, in seconds.
	CaptureTimeout int `yaml:"capture_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains the status HTTP server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values, when path is not empty
//  3. Environment variables (override file values)
//
// An empty path runs from defaults and the environment alone.
//
// Parameters:
//   - path: Path to the YAML configuration file, or ""
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	cfg.applyDerivedDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Chat: ChatConfig{
			Backend:       BackendMatrix,
			CommandPrefix: "%color",
			EventBuffer:   64,
		},
		Gateway: GatewayConfig{
			ConnectTimeout:    10,
			RequestTimeout:    5,
			ReconnectInterval: 2,
			RateBurst:         1,
		},
		Camera: CameraConfig{
			Path:           DefaultCameraPath,
			Width:          1280,
			Height:         720,
			FPS:            30,
			JPEGQuality:    90,
			FrameBacklog:   2,
			OverflowPolicy: OverflowAbort,
			CaptureTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "colorbridge",
			},
			QoS:         1,
			TopicPrefix: "colorbridge",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    8090,
			Timeouts: APITimeoutConfig{
				Read:  10,
				Write: 10,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// The bare names (MATRIX_HOST, GATEWAY_HOST, ...) are read first, then the
// COLORBRIDGE_SECTION_KEY names, so the prefixed form wins when both are set.
//
// Setting a camera path in the environment enables the camera unless
// COLORBRIDGE_CAMERA_ENABLED says otherwise.
func applyEnvOverrides(cfg *Config) error {
	setFromEnv(&cfg.Chat.Host, "MATRIX_HOST", "COLORBRIDGE_CHAT_HOST")
	setFromEnv(&cfg.Chat.Token, "MATRIX_TOKEN", "COLORBRIDGE_CHAT_TOKEN")
	setFromEnv(&cfg.Chat.Backend, "COLORBRIDGE_CHAT_BACKEND")

	setFromEnv(&cfg.Gateway.Host, "GATEWAY_HOST", "COLORBRIDGE_GATEWAY_HOST")
	setFromEnv(&cfg.Light.Address, "LIGHT_ADDRESS", "COLORBRIDGE_LIGHT_ADDRESS")
	setFromEnv(&cfg.Light.AddressFormat, "COLORBRIDGE_LIGHT_ADDRESS_FORMAT")
	if setFromEnv(&cfg.Camera.Path, "CAMERA_PATH", "COLORBRIDGE_CAMERA_PATH") {
		cfg.Camera.Enabled = true
	}
	if v := os.Getenv("COLORBRIDGE_CAMERA_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("COLORBRIDGE_CAMERA_ENABLED: %w", err)
		}
		cfg.Camera.Enabled = enabled
	}

	// MQTT
	setFromEnv(&cfg.MQTT.Broker.Host, "COLORBRIDGE_MQTT_HOST")
	setFromEnv(&cfg.MQTT.Auth.Username, "COLORBRIDGE_MQTT_USERNAME")
	setFromEnv(&cfg.MQTT.Auth.Password, "COLORBRIDGE_MQTT_PASSWORD")

	// API
	setFromEnv(&cfg.API.Host, "COLORBRIDGE_API_HOST")

	return nil
}

// setFromEnv copies the last non-empty variable of names into dst and
// reports whether any was set.
func setFromEnv(dst *string, names ...string) bool {
	found := false
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			*dst = v
			found = true
		}
	}
	return found
}

// applyDerivedDefaults fills values that depend on other settings.
func (c *Config) applyDerivedDefaults() {
	if c.Light.AddressFormat == "" {
		if c.Camera.Enabled {
			c.Light.AddressFormat = AddressHex
		} else {
			c.Light.AddressFormat = AddressDecimal
		}
	}
	if c.Camera.Path == "" {
		c.Camera.Path = DefaultCameraPath
	}
}

// Validate checks the configuration for missing or inconsistent values.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Chat
	switch c.Chat.Backend {
	case BackendMatrix:
		if c.Chat.Host == "" {
			errs = append(errs, "chat.host is required for matrix (set MATRIX_HOST)")
		}
	case BackendTelegram, BackendDiscord:
	default:
		errs = append(errs, fmt.Sprintf("chat.backend %q is not one of matrix, telegram, discord", c.Chat.Backend))
	}
	if c.Chat.Token == "" {
		errs = append(errs, "chat.token is required (set MATRIX_TOKEN)")
	}
	if strings.TrimSpace(c.Chat.CommandPrefix) == "" {
		errs = append(errs, "chat.command_prefix must not be empty")
	}

	// Gateway
	if c.Gateway.Host == "" {
		errs = append(errs, "gateway.host is required (set GATEWAY_HOST)")
	}
	if c.Gateway.ReconnectInterval < 0 {
		errs = append(errs, "gateway.reconnect_interval must not be negative")
	}
	if c.Gateway.RateLimit < 0 {
		errs = append(errs, "gateway.rate_limit must not be negative")
	}
	if c.Gateway.RateLimit > 0 && c.Gateway.RateBurst < 1 {
		errs = append(errs, "gateway.rate_burst must be at least 1 when rate_limit is set")
	}
	if c.Gateway.TransitionTime < 0 || c.Gateway.TransitionTime > 0xFFFF {
		errs = append(errs, "gateway.transition_time must be between 0 and 65535")
	}

	// Light
	if c.Light.Address == "" {
		errs = append(errs, "light.address is required (set LIGHT_ADDRESS)")
	}
	if c.Light.AddressFormat != "" && c.Light.AddressFormat != AddressDecimal && c.Light.AddressFormat != AddressHex {
		errs = append(errs, "light.address_format must be decimal or hex")
	}

	// Camera
	if c.Camera.Enabled {
		if c.Camera.Width < 1 || c.Camera.Height < 1 {
			errs = append(errs, "camera.width and camera.height must be positive")
		}
		if c.Camera.FrameBacklog < 1 {
			errs = append(errs, "camera.frame_backlog must be at least 1")
		}
		if c.Camera.JPEGQuality < 1 || c.Camera.JPEGQuality > 100 {
			errs = append(errs, "camera.jpeg_quality must be between 1 and 100")
		}
		switch c.Camera.OverflowPolicy {
		case OverflowAbort, OverflowDrop, OverflowBlock:
		default:
			errs = append(errs, "camera.overflow_policy must be abort, drop or block")
		}
	}

	// MQTT
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ConnectTimeoutDuration returns the gateway dial timeout as a Duration.
func (g GatewayConfig) ConnectTimeoutDuration() time.Duration {
	return time.Duration(g.ConnectTimeout) * time.Second
}

// ReconnectIntervalDuration returns the first redial backoff as a Duration.
func (g GatewayConfig) ReconnectIntervalDuration() time.Duration {
	return time.Duration(g.ReconnectInterval) * time.Second
}

// RequestTimeoutDuration returns the gateway per-request deadline as a Duration.
func (g GatewayConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(g.RequestTimeout) * time.Second
}

// CaptureTimeoutDuration returns the camera frame wait as a Duration.
func (c CameraConfig) CaptureTimeoutDuration() time.Duration {
	return time.Duration(c.CaptureTimeout) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

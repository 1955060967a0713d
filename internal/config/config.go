package config

import (
	"errors"
	"fmt"
	"time"
)

// heartbeatMargin is the minimum gap between the heartbeat interval and the
// inactivity threshold.
const heartbeatMargin = 2 * time.Second

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`
	MaxMessageBytes   int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	FramesPerMinute   int           `mapstructure:"frames_per_minute" yaml:"frames_per_minute"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`

	Room       string `mapstructure:"room" yaml:"room"`
	SeatCount  int    `mapstructure:"seat_count" yaml:"seat_count"`
	HostPrefix string `mapstructure:"host_prefix" yaml:"host_prefix"`
	// HostSecretHash is a bcrypt hash; when set, host identities must present the secret.
	HostSecretHash string `mapstructure:"host_secret_hash" yaml:"host_secret_hash"`

	GraceWindow         time.Duration `mapstructure:"grace_window" yaml:"grace_window"`
	HeartbeatInterval   time.Duration `mapstructure:"heartbeat_interval" yaml:"heartbeat_interval"`
	InactivityThreshold time.Duration `mapstructure:"inactivity_threshold" yaml:"inactivity_threshold"`
	CameraDebounce      time.Duration `mapstructure:"camera_debounce" yaml:"camera_debounce"`
	CameraRemoveDelay   time.Duration `mapstructure:"camera_remove_delay" yaml:"camera_remove_delay"`
	IntegrityInterval   time.Duration `mapstructure:"integrity_interval" yaml:"integrity_interval"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	ReconnectSecret string        `mapstructure:"reconnect_secret" yaml:"reconnect_secret"`
	ReconnectTTL    time.Duration `mapstructure:"reconnect_ttl" yaml:"reconnect_ttl"`

	LiveKitURL       string        `mapstructure:"livekit_url" yaml:"livekit_url"`
	LiveKitAPIKey    string        `mapstructure:"livekit_api_key" yaml:"livekit_api_key"`
	LiveKitAPISecret string        `mapstructure:"livekit_api_secret" yaml:"livekit_api_secret"`
	MediaTokenTTL    time.Duration `mapstructure:"media_token_ttl" yaml:"media_token_ttl"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		LogFormat:         "console",
		MaxMessageBytes:   64 << 10,
		FramesPerMinute:   600,

		Room:       "main",
		SeatCount:  12,
		HostPrefix: "Host-",

		GraceWindow:         60 * time.Second,
		HeartbeatInterval:   10 * time.Second,
		InactivityThreshold: 30 * time.Second,
		CameraDebounce:      500 * time.Millisecond,
		CameraRemoveDelay:   250 * time.Millisecond,
		IntegrityInterval:   30 * time.Second,

		DatabasePath: "huddle.db",

		ReconnectSecret: "change-me",
		ReconnectTTL:    2 * time.Hour,

		MediaTokenTTL: time.Hour,
	}
}

// LiveKitEnabled reports whether media token issuance is configured.
func (c *Config) LiveKitEnabled() bool {
	return c.LiveKitAPIKey != "" && c.LiveKitAPISecret != ""
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.SeatCount < 2 {
		return fmt.Errorf("seat_count must be at least 2, got %d", c.SeatCount)
	}
	if c.HostPrefix == "" {
		return errors.New("host_prefix must not be empty")
	}
	if c.Room == "" {
		return errors.New("room must not be empty")
	}
	if c.HeartbeatInterval <= 0 || c.GraceWindow <= 0 {
		return errors.New("heartbeat_interval and grace_window must be positive")
	}
	if c.InactivityThreshold < c.HeartbeatInterval+heartbeatMargin {
		return fmt.Errorf("inactivity_threshold (%s) must exceed heartbeat_interval (%s) by at least %s",
			c.InactivityThreshold, c.HeartbeatInterval, heartbeatMargin)
	}
	return nil
}

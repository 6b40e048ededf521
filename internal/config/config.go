package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	Mode              string        `mapstructure:"mode" yaml:"mode"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	MaxMessageBytes    int64 `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	RateLimitPerMinute int   `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	ClientBuffer       int   `mapstructure:"client_buffer" yaml:"client_buffer"`

	// RoomIdleTTL is how long an empty room keeps its admin before release.
	RoomIdleTTL time.Duration `mapstructure:"room_idle_ttl" yaml:"room_idle_ttl"`

	SessionSecret string        `mapstructure:"session_secret" yaml:"session_secret"`
	ClaimSecret   string        `mapstructure:"claim_secret" yaml:"claim_secret"`
	ClaimIssuer   string        `mapstructure:"claim_issuer" yaml:"claim_issuer"`
	ClaimAudience string        `mapstructure:"claim_audience" yaml:"claim_audience"`
	ClaimTTL      time.Duration `mapstructure:"claim_ttl" yaml:"claim_ttl"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:               ":8080",
		Mode:               "release",
		LogLevel:           "info",
		ReadHeaderTimeout:  5 * time.Second,
		ShutdownTimeout:    5 * time.Second,
		MaxMessageBytes:    1 << 16,
		RateLimitPerMinute: 120,
		ClientBuffer:       32,
		RoomIdleTTL:        time.Minute,
		SessionSecret:      "change-me-session-secret",
		ClaimSecret:        "change-me-claim-secret",
		ClaimIssuer:        "lumoshub",
		ClaimAudience:      "lumoshub-rooms",
		ClaimTTL:           7 * 24 * time.Hour,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.Mode != "" {
		c.Mode = other.Mode
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.RateLimitPerMinute != 0 {
		c.RateLimitPerMinute = other.RateLimitPerMinute
	}
	if other.ClientBuffer != 0 {
		c.ClientBuffer = other.ClientBuffer
	}
	if other.RoomIdleTTL != 0 {
		c.RoomIdleTTL = other.RoomIdleTTL
	}
	if other.SessionSecret != "" {
		c.SessionSecret = other.SessionSecret
	}
	if other.ClaimSecret != "" {
		c.ClaimSecret = other.ClaimSecret
	}
	if other.ClaimIssuer != "" {
		c.ClaimIssuer = other.ClaimIssuer
	}
	if other.ClaimAudience != "" {
		c.ClaimAudience = other.ClaimAudience
	}
	if other.ClaimTTL != 0 {
		c.ClaimTTL = other.ClaimTTL
	}
}

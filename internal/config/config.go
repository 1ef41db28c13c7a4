package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	JWTSecret   string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string `mapstructure:"jwt_audience" yaml:"jwt_audience"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	LogFile  string `mapstructure:"log_file" yaml:"log_file"`

	HistoryLimit         int           `mapstructure:"history_limit" yaml:"history_limit"`
	MaxChatLength        int           `mapstructure:"max_chat_length" yaml:"max_chat_length"`
	SendBuffer           int           `mapstructure:"send_buffer" yaml:"send_buffer"`
	MaxMessageBytes      int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	MaxMessagesPerMinute int           `mapstructure:"max_messages_per_minute" yaml:"max_messages_per_minute"`
	MapSpawnX            int           `mapstructure:"map_spawn_x" yaml:"map_spawn_x"`
	MapSpawnY            int           `mapstructure:"map_spawn_y" yaml:"map_spawn_y"`
	GeometryCacheTTL     time.Duration `mapstructure:"geometry_cache_ttl" yaml:"geometry_cache_ttl"`

	// AdminToken guards the admin endpoints. Empty disables them.
	AdminToken string `mapstructure:"admin_token" yaml:"admin_token"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:                 ":8080",
		ReadHeaderTimeout:    5 * time.Second,
		ShutdownTimeout:      5 * time.Second,
		DatabasePath:         "gridverse.db",
		LogLevel:             "info",
		HistoryLimit:         50,
		MaxChatLength:        2000,
		SendBuffer:           64,
		MaxMessageBytes:      64 << 10,
		MaxMessagesPerMinute: 600,
		MapSpawnX:            10,
		MapSpawnY:            10,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.JWTSecret != "" {
		c.JWTSecret = other.JWTSecret
	}
	if other.JWTIssuer != "" {
		c.JWTIssuer = other.JWTIssuer
	}
	if other.JWTAudience != "" {
		c.JWTAudience = other.JWTAudience
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFile != "" {
		c.LogFile = other.LogFile
	}
	if other.HistoryLimit != 0 {
		c.HistoryLimit = other.HistoryLimit
	}
	if other.MaxChatLength != 0 {
		c.MaxChatLength = other.MaxChatLength
	}
	if other.SendBuffer != 0 {
		c.SendBuffer = other.SendBuffer
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.MaxMessagesPerMinute != 0 {
		c.MaxMessagesPerMinute = other.MaxMessagesPerMinute
	}
	if other.MapSpawnX != 0 {
		c.MapSpawnX = other.MapSpawnX
	}
	if other.MapSpawnY != 0 {
		c.MapSpawnY = other.MapSpawnY
	}
	if other.GeometryCacheTTL != 0 {
		c.GeometryCacheTTL = other.GeometryCacheTTL
	}
	if other.AdminToken != "" {
		c.AdminToken = other.AdminToken
	}
}

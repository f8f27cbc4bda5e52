package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	JWTSecret         string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer         string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience       string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	SessionTTL        time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`
	CookieName        string        `mapstructure:"cookie_name" yaml:"cookie_name"`
	CookieSecure      bool          `mapstructure:"cookie_secure" yaml:"cookie_secure"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	// LoginRateLimit caps login and register submissions per client IP per minute. 0 disables it.
	LoginRateLimit int      `mapstructure:"login_rate_limit" yaml:"login_rate_limit"`
	// TrustedProxies lists proxy IPs or CIDRs whose X-Forwarded-For is believed.
	// Empty means client addresses always come from the socket.
	TrustedProxies []string `mapstructure:"trusted_proxies" yaml:"trusted_proxies"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		DatabasePath:      "studybud.db",
		JWTSecret:         "change-me",
		JWTIssuer:         "studybud",
		JWTAudience:       "studybud-web",
		SessionTTL:        14 * 24 * time.Hour,
		CookieName:        "studybud_session",
		CookieSecure:      false,
		LogLevel:          "info",
		LoginRateLimit:    10,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
// CookieSecure can only be switched on this way.
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
	if other.SessionTTL != 0 {
		c.SessionTTL = other.SessionTTL
	}
	if other.CookieName != "" {
		c.CookieName = other.CookieName
	}
	if other.CookieSecure {
		c.CookieSecure = true
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LoginRateLimit != 0 {
		c.LoginRateLimit = other.LoginRateLimit
	}
	if len(other.TrustedProxies) > 0 {
		c.TrustedProxies = append([]string(nil), other.TrustedProxies...)
	}
}

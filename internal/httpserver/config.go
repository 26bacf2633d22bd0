// Package httpserver provides the Gin-based HTTP server shared by the
// coordinator, fetcher, and indexer binaries: standard middleware, health endpoint,
// metrics endpoint, and graceful shutdown.
package httpserver

import "time"

const (
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
)

// Config holds the HTTP server configuration.
type Config struct {
	Addr            string
	Debug           bool
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	ServiceName     string
	ServiceVersion  string
}

// SetDefaults fills in zero-valued fields with sane defaults.
func (c *Config) SetDefaults() {
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "dev"
	}
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

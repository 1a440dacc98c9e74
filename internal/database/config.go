package database

import (
	"time"

	"github.com/rs/zerolog"
)

// Config holds everything needed to open one PostgreSQL session.
// The same Config backs both the long-lived session connection and the
// short-lived per-request connections.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string // secret: never logged, never rendered into errors
	Database string
	SSLMode  string

	// AppName is reported to the server as application_name.
	AppName string

	// ConnectTimeout bounds establishing a new connection (0 = driver default).
	ConnectTimeout time.Duration
}

// DefaultConfig returns local-development settings for the given database.
func DefaultConfig(database string) *Config {
	return &Config{
		Host:           "localhost",
		Port:           5432,
		User:           "postgres",
		Database:       database,
		SSLMode:        "disable",
		AppName:        "pgmeta",
		ConnectTimeout: 10 * time.Second,
	}
}

// MarshalZerologObject logs the connection target. The password is omitted.
func (c *Config) MarshalZerologObject(e *zerolog.Event) {
	e.Str("host", c.Host).
		Int("port", c.Port).
		Str("user", c.User).
		Str("database", c.Database).
		Str("sslmode", c.SSLMode).
		Str("app", c.AppName)
}

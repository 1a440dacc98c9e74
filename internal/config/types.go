// Package config loads pgmeta settings.
//
// Precedence, highest first: command-line flags, PGMETA_* environment
// variables, the YAML config file, built-in defaults. The database password
// is never read from a flag; it comes from the file, PGMETA_DB_PASSWORD, or
// the OS keyring.
package config

import (
	"fmt"
	"time"

	"github.com/koustreak/pgmeta/internal/database"
	"github.com/koustreak/pgmeta/internal/errs"
	"github.com/koustreak/pgmeta/internal/filestore"
	"github.com/koustreak/pgmeta/internal/logger"
	"github.com/koustreak/pgmeta/internal/server"
)

// Config holds all pgmeta configuration.
type Config struct {
	DB      DBConfig      `koanf:"db"`
	Log     LogConfig     `koanf:"log"`
	Server  ServerConfig  `koanf:"server"`
	Archive ArchiveConfig `koanf:"archive"`

	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

// DBConfig selects and authenticates the PostgreSQL database.
type DBConfig struct {
	Host           string        `koanf:"host"`
	Port           int           `koanf:"port"`
	User           string        `koanf:"user"`
	Password       string        `koanf:"password"`
	Name           string        `koanf:"name"`
	SSLMode        string        `koanf:"sslmode"`
	AppName        string        `koanf:"app_name"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	QueryTimeout   time.Duration `koanf:"query_timeout"`

	// Keyring reads the password from the OS keyring when none is set.
	Keyring bool `koanf:"keyring"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// ArchiveConfig points at the object store snapshots go to.
type ArchiveConfig struct {
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Bucket    string `koanf:"bucket"`
	UseSSL    bool   `koanf:"use_ssl"`
	Region    string `koanf:"region"`
	Prefix    string `koanf:"prefix"`
}

// Validate rejects settings no connection could be opened with.
func (c *Config) Validate() error {
	switch {
	case c.DB.Host == "":
		return errs.New(errs.ErrKindInvalidInput, "db.host is required")
	case c.DB.User == "":
		return errs.New(errs.ErrKindInvalidInput, "db.user is required")
	case c.DB.Name == "":
		return errs.New(errs.ErrKindInvalidInput, "db.name is required")
	case c.DB.Port < 1 || c.DB.Port > 65535:
		return errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("db.port %d is out of range", c.DB.Port))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("log.format %q must be json or console", c.Log.Format))
	}
	return nil
}

// Database returns the connection settings.
func (c *Config) Database() *database.Config {
	return &database.Config{
		Host:           c.DB.Host,
		Port:           c.DB.Port,
		User:           c.DB.User,
		Password:       c.DB.Password,
		Database:       c.DB.Name,
		SSLMode:        c.DB.SSLMode,
		AppName:        c.DB.AppName,
		ConnectTimeout: c.DB.ConnectTimeout,
	}
}

// Logger returns the logger settings.
func (c *Config) Logger() *logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = c.Log.Level
	cfg.Format = c.Log.Format
	return cfg
}

// Filestore returns the snapshot archive settings.
func (c *Config) Filestore() *filestore.Config {
	return &filestore.Config{
		Endpoint:  c.Archive.Endpoint,
		AccessKey: c.Archive.AccessKey,
		SecretKey: c.Archive.SecretKey,
		UseSSL:    c.Archive.UseSSL,
		Region:    c.Archive.Region,
		Bucket:    c.Archive.Bucket,
	}
}

// HTTP returns the listener settings.
func (c *Config) HTTP() server.Config {
	return server.Config{
		Addr:            c.Server.Addr,
		ShutdownTimeout: c.Server.ShutdownTimeout,
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"github.com/zalando/go-keyring"

	"github.com/koustreak/pgmeta/internal/errs"
)

const (
	envPrefix = "PGMETA_"

	// KeyringService is the OS keyring service holding database passwords,
	// one entry per database user.
	KeyringService = "pgmeta"
)

// sections are the top-level keys flags may address, as in --db-host.
var sections = []string{"db", "log", "server", "archive"}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"db.host":                 "localhost",
		"db.port":                 5432,
		"db.sslmode":              "disable",
		"db.app_name":             "pgmeta",
		"db.connect_timeout":      10 * time.Second,
		"db.query_timeout":        time.Duration(0),
		"db.keyring":              false,
		"log.level":               "info",
		"log.format":              "console",
		"server.addr":             ":8080",
		"server.shutdown_timeout": 10 * time.Second,
		"archive.bucket":          "pgmeta",
		"archive.prefix":          "snapshots",
	}
}

// findConfigFile returns explicit, or the first of pgmeta.yaml / pgmeta.yml
// in the working directory.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"pgmeta.yaml", "pgmeta.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load reads configuration from defaults, cfgFile, the environment and flags.
// flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "error reading config file "+used, err)
		}
	}

	// 3. Environment: PGMETA_DB_CONNECT_TIMEOUT -> db.connect_timeout
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags that were explicitly set: --db-connect-timeout -> db.connect_timeout
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := flagKey(f.Name)
			if key == "" {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "unable to decode config", err)
	}
	cfg.File = used

	if cfg.DB.Password == "" && cfg.DB.Keyring {
		pw, err := keyringPassword(cfg.DB.User)
		if err != nil {
			return nil, err
		}
		cfg.DB.Password = pw
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// flagKey maps a section flag to its config key, or "" for flags that are
// not configuration.
func flagKey(name string) string {
	section, rest, ok := strings.Cut(name, "-")
	if !ok {
		return ""
	}
	for _, s := range sections {
		if s == section {
			return section + "." + strings.ReplaceAll(rest, "-", "_")
		}
	}
	return ""
}

func keyringPassword(user string) (string, error) {
	pw, err := keyring.Get(KeyringService, user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", errs.New(errs.ErrKindInvalidInput,
				fmt.Sprintf("no keyring password for user %q (service %q)", user, KeyringService))
		}
		return "", errs.Wrap(errs.ErrKindInvalidInput, "failed to read keyring", err)
	}
	return pw, nil
}

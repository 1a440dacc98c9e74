package postgres

import (
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/koustreak/pgmeta/internal/database"
)

const (
	defaultPort    = 5432
	defaultSSLMode = "disable"
)

// buildConnConfig turns cfg into a pgx connection config. The password is set
// on the parsed config directly and never appears in the DSN string.
func buildConnConfig(cfg *database.Config) (*pgx.ConnConfig, error) {
	connCfg, err := pgx.ParseConfig(buildDSN(cfg))
	if err != nil {
		return nil, err
	}

	connCfg.Password = cfg.Password
	if cfg.ConnectTimeout > 0 {
		connCfg.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.AppName != "" {
		connCfg.RuntimeParams["application_name"] = cfg.AppName
	}
	return connCfg, nil
}

// buildDSN constructs the keyword/value postgres connection string
func buildDSN(cfg *database.Config) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = defaultSSLMode
	}
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}

	parts := make([]string, 0, 5)
	add := func(key, val string) {
		if val != "" {
			parts = append(parts, key+"="+quoteValue(val))
		}
	}
	add("host", cfg.Host)
	add("port", strconv.Itoa(port))
	add("user", cfg.User)
	add("dbname", cfg.Database)
	add("sslmode", sslMode)
	return strings.Join(parts, " ")
}

var dsnEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// quoteValue single-quotes v when it holds characters the keyword/value
// syntax treats specially.
func quoteValue(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	return "'" + dsnEscaper.Replace(v) + "'"
}

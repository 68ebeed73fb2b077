// Package database opens the SQL connection shared by every persistence
// provider. SQLite is served by modernc.org/sqlite and PostgreSQL by the pgx
// database/sql driver.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/kilianp07/datagrid/core/persistence"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"

	// DefaultEnvPrefix names the variables read by URLFromEnv.
	DefaultEnvPrefix = "DATAGRID_DB"
)

// ErrNotConfigured is returned when no data source can be derived.
var ErrNotConfigured = errors.New("database connection configuration is unavailable")

// Config selects the driver and data source.
type Config struct {
	Driver string `json:"driver"`
	// DSN is passed to the driver as is. For SQLite, Path is used when DSN
	// is empty; for PostgreSQL the URL is built from the environment.
	DSN          string `json:"dsn"`
	Path         string `json:"path"`
	EnvPrefix    string `json:"env_prefix"`
	MaxOpenConns int    `json:"max_open_conns"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Driver == "" {
		c.Driver = DriverSQLite
	}
	if c.Driver == DriverSQLite && c.DSN == "" && c.Path == "" {
		c.Path = "datagrid.db"
	}
	if c.EnvPrefix == "" {
		c.EnvPrefix = DefaultEnvPrefix
	}
}

// Validate checks the driver name.
func (c Config) Validate() error {
	if _, err := persistence.DialectFor(c.Driver); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if c.MaxOpenConns < 0 {
		return fmt.Errorf("database: max_open_conns must be >= 0")
	}
	return nil
}

// DataSource returns the DSN handed to sql.Open.
func (c Config) DataSource() (string, error) {
	if c.DSN != "" {
		return c.DSN, nil
	}
	d, err := persistence.DialectFor(c.Driver)
	if err != nil {
		return "", err
	}
	if d == persistence.DialectSQLite {
		if c.Path == "" {
			return "", ErrNotConfigured
		}
		return c.Path, nil
	}
	return URLFromEnv(c.EnvPrefix)
}

// Open opens and pings the database and wraps it as a persistence
// connection.
func Open(ctx context.Context, cfg Config) (*persistence.Connection, error) {
	dsn, err := cfg.DataSource()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, err
	}
	conn, err := persistence.NewConnection(db, cfg.Driver)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	switch {
	case cfg.MaxOpenConns > 0:
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	case conn.Dialect() == persistence.DialectSQLite:
		// One writer at a time; also keeps ":memory:" databases alive.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", conn.Dialect(), err)
	}
	return conn, nil
}

// URLFromEnv builds a PostgreSQL URL from PREFIX_URL, or from PREFIX_HOST,
// PREFIX_PORT, PREFIX_USER, PREFIX_PASSWORD, PREFIX_DBNAME and
// PREFIX_SSLMODE. HOST and DBNAME are required; PORT defaults to 5432.
func URLFromEnv(prefix string) (string, error) {
	if !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}
	if u := os.Getenv(prefix + "URL"); u != "" {
		return u, nil
	}
	host := os.Getenv(prefix + "HOST")
	dbname := os.Getenv(prefix + "DBNAME")
	var missing []string
	if host == "" {
		missing = append(missing, prefix+"HOST")
	}
	if dbname == "" {
		missing = append(missing, prefix+"DBNAME")
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: missing %s", ErrNotConfigured, strings.Join(missing, ", "))
	}
	port := os.Getenv(prefix + "PORT")
	if port == "" {
		port = "5432"
	}
	u := &url.URL{Scheme: "postgresql", Host: host + ":" + port, Path: dbname}
	if user := os.Getenv(prefix + "USER"); user != "" {
		if pass := os.Getenv(prefix + "PASSWORD"); pass != "" {
			u.User = url.UserPassword(user, pass)
		} else {
			u.User = url.User(user)
		}
	}
	q := u.Query()
	if ssl := os.Getenv(prefix + "SSLMODE"); ssl != "" {
		q.Set("sslmode", ssl)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

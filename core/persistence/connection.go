package persistence

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Dialect captures the SQL differences between supported databases.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// DialectFor maps a database/sql driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "pgx", "postgres":
		return DialectPostgres, nil
	default:
		return 0, fmt.Errorf("unsupported driver %q", driver)
	}
}

func (d Dialect) String() string {
	if d == DialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

// IdentityColumn returns the declaration of an auto-assigned primary key.
func (d Dialect) IdentityColumn() string {
	if d == DialectPostgres {
		return "BIGSERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

// BlobType returns the binary column type.
func (d Dialect) BlobType() string {
	if d == DialectPostgres {
		return "BYTEA"
	}
	return "BLOB"
}

// Quote quotes an identifier that has already been validated.
func (d Dialect) Quote(ident string) string {
	return `"` + ident + `"`
}

// Rebind rewrites '?' placeholders for the dialect.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Connection is the database handle shared by successive providers. It
// outlives any provider built on it.
type Connection struct {
	db      *sql.DB
	driver  string
	dialect Dialect
}

// NewConnection wraps an open database handle.
func NewConnection(db *sql.DB, driver string) (*Connection, error) {
	if db == nil {
		return nil, fmt.Errorf("nil database handle")
	}
	d, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	return &Connection{db: db, driver: driver, dialect: d}, nil
}

func (c *Connection) DB() *sql.DB      { return c.db }
func (c *Connection) Driver() string   { return c.driver }
func (c *Connection) Dialect() Dialect { return c.dialect }
func (c *Connection) Close() error     { return c.db.Close() }

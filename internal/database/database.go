// Package database opens sqlx connections to the xTuple Postgres server.  The
// driver is lib/pq, registered as "postgres", so sqlx rebinds `?` to `$n`.
//
// Public entry points:
//
//	DSN(creds)                    – libpq key/value connection string.
//	Open(ctx, creds)              – small pool, pinged before return.
//	Connector                     – interface the registry depends on.
//
// Every registry query runs against exactly one database, so pools are kept
// tiny and closed by the caller when the query batch is done.
package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/yanizio/xtbuild/internal/config"
)

// DriverName is the database/sql driver used for every connection.
const DriverName = "postgres"

// Connector opens a connection for a set of credentials.
type Connector interface {
	Open(ctx context.Context, creds config.Credentials) (*sqlx.DB, error)
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context, creds config.Credentials) (*sqlx.DB, error)

// Open calls f.
func (f ConnectorFunc) Open(ctx context.Context, creds config.Credentials) (*sqlx.DB, error) {
	return f(ctx, creds)
}

// Postgres is the production Connector.
var Postgres Connector = ConnectorFunc(Open)

// Open returns a *sqlx.DB for creds with 2 max open, 1 idle, and a
// 5-minute connection lifetime.  The pool is pinged so callers fail fast.
func Open(ctx context.Context, creds config.Credentials) (*sqlx.DB, error) {
	db, err := sqlx.Open(DriverName, DSN(creds))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", creds.Database, err)
	}

	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", creds.Database, err)
	}
	return db, nil
}

// DSN renders creds as a libpq key/value string.  Values are single-quoted
// with backslash escapes, so passwords may contain spaces or quotes.
func DSN(creds config.Credentials) string {
	host := creds.Host
	if host == "" {
		host = creds.Hostname
	}
	user := creds.Username
	if user == "" {
		user = creds.User
	}
	port := creds.Port
	if port == 0 {
		port = 5432
	}
	sslmode := creds.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	parts := []string{
		"host=" + quote(host),
		fmt.Sprintf("port=%d", port),
		"user=" + quote(user),
	}
	if creds.Password != "" {
		parts = append(parts, "password="+quote(creds.Password))
	}
	if creds.Database != "" {
		parts = append(parts, "dbname="+quote(creds.Database))
	}
	parts = append(parts, "sslmode="+sslmode)
	return strings.Join(parts, " ")
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

package database

import (
	"testing"

	"github.com/yanizio/xtbuild/internal/config"
)

func TestDSN(t *testing.T) {
	creds := config.Credentials{
		Hostname: "db.local",
		Host:     "db.local",
		User:     "admin",
		Username: "admin",
		Password: `it's a \secret`,
		Database: "demo",
	}
	want := `host='db.local' port=5432 user='admin' password='it\'s a \\secret' dbname='demo' sslmode=disable`
	if got := DSN(creds); got != want {
		t.Errorf("DSN =\n  %s\nwant\n  %s", got, want)
	}
}

func TestDSN_AliasFallback(t *testing.T) {
	creds := config.Credentials{Hostname: "h", User: "u", Port: 5433, SSLMode: "require"}
	want := `host='h' port=5433 user='u' sslmode=require`
	if got := DSN(creds); got != want {
		t.Errorf("DSN = %s, want %s", got, want)
	}
}

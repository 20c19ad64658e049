// internal/config/credentials.go
//
// Database credentials derived from the loaded configuration.
//
// Context
// -------
// The database builder and the registry queries expect slightly different
// field names for the same values, so `Credentials` carries both spellings:
// `Hostname`/`Host` and `User`/`Username`.  `Resolve` fills the aliases once,
// copies the encryption key file reference from the datasource block, and
// swaps any `vault:` password reference for the secret value.
//
// Credentials is a plain value.  `WithDatabase` returns a copy, so per-database
// work never mutates the shared instance.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// VaultPrefix marks a password that must be read from Vault.
const VaultPrefix = "vault:"

// secretTTL bounds how long a resolved secret stays in the vault cache.
const secretTTL = 5 * time.Minute

// SecretSource reads one key from a KV secret.  *vault.Client satisfies it.
type SecretSource interface {
	GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error)
}

// Credentials identify one database on the configured server.
type Credentials struct {
	Hostname          string `json:"hostname"`
	Host              string `json:"host"`
	Port              int    `json:"port"`
	User              string `json:"user"`
	Username          string `json:"username"`
	Password          string `json:"password"`
	Database          string `json:"database"`
	SSLMode           string `json:"sslmode,omitempty"`
	EncryptionKeyFile string `json:"encryptionKeyFile"`
}

// WithDatabase returns a copy of c that targets database.
func (c Credentials) WithDatabase(database string) Credentials {
	c.Database = database
	return c
}

// Resolve builds Credentials from cfg.  secrets may be nil when no password
// uses a vault reference.
func Resolve(ctx context.Context, cfg *Config, secrets SecretSource) (Credentials, error) {
	srv := cfg.DatabaseServer
	creds := Credentials{
		Hostname:          srv.Hostname,
		Host:              srv.Hostname,
		Port:              srv.Port,
		User:              srv.User,
		Username:          srv.User,
		Password:          srv.Password,
		SSLMode:           srv.SSLMode,
		EncryptionKeyFile: cfg.Datasource.EncryptionKeyFile,
	}

	if ref, ok := strings.CutPrefix(srv.Password, VaultPrefix); ok {
		if secrets == nil {
			return Credentials{}, fmt.Errorf("password %q needs vault but no vault client is configured", srv.Password)
		}
		path, key, found := strings.Cut(ref, "#")
		if !found {
			key = "password"
		}
		pw, err := secrets.GetKV(ctx, path, key, secretTTL)
		if err != nil {
			return Credentials{}, fmt.Errorf("resolve database password: %w", err)
		}
		creds.Password = pw
	}
	return creds, nil
}

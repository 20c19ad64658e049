// internal/config/config_test.go
//
// Unit-tests for the loader and credential resolver.
//
// Run: go test ./internal/config -v

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
database_server:
  hostname: db.local
  port: 5432
  user: admin
  password: secret
datasource:
  databases: [dev, demo]
  encryption_key_file: ./lib/private/encryption_key.txt
builders:
  client: [node, scripts/build_client.js]
`

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	p := filepath.Join(dir, defaultFile)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestPath(t *testing.T) {
	if got := Path("/etc/xtbuild.yaml", "/work"); got != "/etc/xtbuild.yaml" {
		t.Errorf("absolute option = %q", got)
	}
	if got := Path("conf/dev.yaml", "/work"); got != "/work/conf/dev.yaml" {
		t.Errorf("relative option = %q", got)
	}

	root := t.TempDir()
	writeConfig(t, filepath.Join(root, "conf"), sampleYAML)
	sub := filepath.Join(root, "lib", "orm")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	t.Setenv("XTBUILD_ROOT", "")
	if got, want := Path("", sub), filepath.Join(root, "conf", defaultFile); got != want {
		t.Errorf("default path = %q, want %q", got, want)
	}
}

func TestLoad(t *testing.T) {
	root := t.TempDir()
	p := writeConfig(t, filepath.Join(root, "conf"), sampleYAML)
	t.Setenv("XTBUILD_DATABASE_SERVER__HOSTNAME", "override.local")

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseServer.Hostname != "override.local" {
		t.Errorf("env overlay ignored: hostname = %q", cfg.DatabaseServer.Hostname)
	}
	if cfg.Paths.Root != root {
		t.Errorf("root = %q, want %q", cfg.Paths.Root, root)
	}
	if len(cfg.Datasource.Databases) != 2 || cfg.Datasource.Databases[1] != "demo" {
		t.Errorf("databases = %v", cfg.Datasource.Databases)
	}
	if cfg.NPM.Bin != "npm" {
		t.Errorf("npm bin default = %q", cfg.NPM.Bin)
	}
	if len(cfg.Builders.Client) != 2 {
		t.Errorf("client builder argv = %v", cfg.Builders.Client)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_Invalid(t *testing.T) {
	p := writeConfig(t, t.TempDir(), "database_server:\n  port: 5432\n")
	if _, err := Load(p); err == nil {
		t.Fatal("expected validation error without hostname and user")
	}
}

type fakeSecrets struct {
	path, key string
	val       string
	err       error
}

func (f *fakeSecrets) GetKV(_ context.Context, p, k string, _ time.Duration) (string, error) {
	f.path, f.key = p, k
	return f.val, f.err
}

func TestResolve(t *testing.T) {
	cfg := &Config{
		DatabaseServer: DatabaseServer{Hostname: "db", Port: 5432, User: "admin", Password: "pw"},
		Datasource:     Datasource{EncryptionKeyFile: "/keys/enc.txt"},
	}
	creds, err := Resolve(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if creds.Host != "db" || creds.Hostname != "db" {
		t.Errorf("host alias: %+v", creds)
	}
	if creds.Username != "admin" || creds.User != "admin" {
		t.Errorf("user alias: %+v", creds)
	}
	if creds.EncryptionKeyFile != "/keys/enc.txt" {
		t.Errorf("encryption key file = %q", creds.EncryptionKeyFile)
	}

	clone := creds.WithDatabase("demo")
	if creds.Database != "" || clone.Database != "demo" {
		t.Errorf("WithDatabase mutated original: %q / %q", creds.Database, clone.Database)
	}
}

func TestResolve_Vault(t *testing.T) {
	cfg := &Config{DatabaseServer: DatabaseServer{
		Hostname: "db", User: "admin", Password: "vault:secret/xtuple#db_password",
	}}

	sec := &fakeSecrets{val: "s3cret"}
	creds, err := Resolve(context.Background(), cfg, sec)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if creds.Password != "s3cret" {
		t.Errorf("password = %q", creds.Password)
	}
	if sec.path != "secret/xtuple" || sec.key != "db_password" {
		t.Errorf("vault lookup %q#%q", sec.path, sec.key)
	}

	if _, err := Resolve(context.Background(), cfg, nil); err == nil {
		t.Error("expected error without a vault client")
	}

	boom := errors.New("sealed")
	if _, err := Resolve(context.Background(), cfg, &fakeSecrets{err: boom}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped %v", err, boom)
	}
}

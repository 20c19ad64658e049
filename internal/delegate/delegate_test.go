package delegate

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yanizio/xtbuild/internal/buildspec"
	"github.com/yanizio/xtbuild/internal/config"
)

var specs = []buildspec.Spec{{
	Database:   "demo",
	Extensions: []string{"/r/lib/orm", "/r/enyo-client"},
	Flags:      buildspec.Flags{KeepSQL: true},
}}

// teeCommand copies the payload into a file so the test can inspect it.
func teeCommand(t *testing.T, name string) (Command, string) {
	t.Helper()
	if _, err := exec.LookPath("tee"); err != nil {
		t.Skip("tee not on PATH")
	}
	out := filepath.Join(t.TempDir(), "payload.json")
	return Command{Name: name, Argv: []string{"tee", out}, Log: zap.NewNop().Sugar()}, out
}

func TestBuildClient_Payload(t *testing.T) {
	cmd, out := teeCommand(t, "client")
	c := &Client{cmd}
	require.NoError(t, c.BuildClient(context.Background(), specs))

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	var got struct {
		Specs []map[string]any `json:"specs"`
		Creds map[string]any   `json:"creds"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Len(t, got.Specs, 1)
	assert.Equal(t, "demo", got.Specs[0]["database"])
	assert.Equal(t, true, got.Specs[0]["keepSql"])
	assert.Nil(t, got.Creds)
}

func TestBuildDatabase_Payload(t *testing.T) {
	cmd, out := teeCommand(t, "database")
	d := &Database{cmd}
	creds := config.Credentials{Host: "db", Username: "admin", Database: "demo"}
	require.NoError(t, d.BuildDatabase(context.Background(), specs, creds))

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	var got struct {
		Creds config.Credentials `json:"creds"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, creds, got.Creds)
}

func TestBuild_NotConfigured(t *testing.T) {
	c := &Client{Command{Name: "client"}}
	err := c.BuildClient(context.Background(), specs)
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

func TestBuild_Failure(t *testing.T) {
	if _, err := exec.LookPath("false"); err != nil {
		t.Skip("false not on PATH")
	}
	d := &Database{Command{Name: "database", Argv: []string{"false"}, Log: zap.NewNop().Sugar()}}
	assert.Error(t, d.BuildDatabase(context.Background(), specs, config.Credentials{}))
}

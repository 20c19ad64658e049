// internal/delegate/delegate.go
//
// Client and database builders backed by external commands.
//
// Context
// -------
// Bundling the client and running the ORM/SQL installers are the jobs of
// the existing build tools in the source tree.  xtbuild only decides what
// they build.  Each builder is an argv from the `builders` config block;
// the planned batch is written to its stdin as JSON:
//
//	{"specs": [ {database, extensions, keepSql, …}, … ],
//	 "creds": {host, username, password, database, …}}   // database only
//
// Output lines go to the logger at info level.  A non-zero exit fails the
// step.
package delegate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/yanizio/xtbuild/internal/buildspec"
	"github.com/yanizio/xtbuild/internal/config"
	"github.com/yanizio/xtbuild/internal/logger"
	"github.com/yanizio/xtbuild/internal/proc"
)

// ErrNotConfigured is returned when a builder has no command.
var ErrNotConfigured = errors.New("builder command not configured")

type payload struct {
	Specs []buildspec.Spec    `json:"specs"`
	Creds *config.Credentials `json:"creds,omitempty"`
}

// Command runs one external builder.
type Command struct {
	Name string
	Argv []string
	Dir  string
	Log  *zap.SugaredLogger
}

func (c *Command) run(ctx context.Context, p payload) error {
	if len(c.Argv) == 0 {
		return fmt.Errorf("%s: %w", c.Name, ErrNotConfigured)
	}
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}

	log := logger.Or(c.Log).With("builder", c.Name)
	return proc.Run(ctx, proc.Cmd{
		Argv:  c.Argv,
		Dir:   c.Dir,
		Stdin: bytes.NewReader(body),
		Emit:  func(l string) { log.Infow(l) },
	})
}

// Client builds the client bundle.
type Client struct{ Command }

// BuildClient sends specs to the client builder.
func (c *Client) BuildClient(ctx context.Context, specs []buildspec.Spec) error {
	return c.run(ctx, payload{Specs: specs})
}

// Database installs specs into their databases.
type Database struct{ Command }

// BuildDatabase sends specs and credentials to the database builder.
func (d *Database) BuildDatabase(ctx context.Context, specs []buildspec.Spec, creds config.Credentials) error {
	return d.run(ctx, payload{Specs: specs, Creds: &creds})
}

// internal/build/build.go
//
// Caller-facing build entry point.
//
/*
Context
--------
`Builder.Build(ctx, opts)` is the one operation the CLI, the daemon, and
tests call.  Request life-cycle:

  1. Load the configuration selected by opts.Config.
  2. Classify the request; usage errors return before any collaborator
     (Vault, database, npm, builders) is touched.
  3. Resolve database credentials.
  4. Plan the build specs.  Only the registered-extension branch queries
     the target databases.
  5. Route: extension + unregister goes to the Unregisterer, everything
     else to the pipeline Executor.

The result is the success message, or the first error.  Collaborator errors
come back unwrapped.

Notes
-----
  • Nil collaborators are filled from the configuration: npm from
    `npm.bin`, builders from `builders.*`, Postgres for the connector.
  • Oxford commas, two spaces after periods.
*/
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/yanizio/xtbuild/internal/buildspec"
	"github.com/yanizio/xtbuild/internal/config"
	"github.com/yanizio/xtbuild/internal/database"
	"github.com/yanizio/xtbuild/internal/delegate"
	"github.com/yanizio/xtbuild/internal/layout"
	"github.com/yanizio/xtbuild/internal/logger"
	"github.com/yanizio/xtbuild/internal/metrics"
	"github.com/yanizio/xtbuild/internal/npm"
	"github.com/yanizio/xtbuild/internal/pipeline"
	"github.com/yanizio/xtbuild/internal/planner"
	"github.com/yanizio/xtbuild/internal/registry"
)

// ErrConfig marks failures to load the configuration or resolve
// credentials from it.
var ErrConfig = errors.New("configuration error")

// Unregisterer removes extension registrations.  *registry.Unregisterer
// satisfies it.
type Unregisterer interface {
	Unregister(ctx context.Context, specs []buildspec.Spec, creds config.Credentials) (string, error)
}

// Builder holds the collaborators of a build.  The zero value builds with
// production defaults from the working directory.
type Builder struct {
	Cwd        string // default: os.Getwd
	Secrets    config.SecretSource
	Connector  database.Connector
	Packages   pipeline.PackageManager
	Client     pipeline.ClientBuilder
	Database   pipeline.DatabaseBuilder
	Unregister Unregisterer
	Out        io.Writer
	Log        *zap.SugaredLogger
}

// Build runs one build request to completion.
func (b *Builder) Build(ctx context.Context, opts buildspec.Options) (msg string, err error) {
	log := logger.Or(b.Log)
	kind := planner.KindInvalid
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.BuildsTotal.WithLabelValues(string(kind), outcome).Inc()
	}()

	cwd := b.Cwd
	if cwd == "" {
		if cwd, err = os.Getwd(); err != nil {
			return "", err
		}
	}

	//
	// 1.  Configuration
	//
	cfg, err := config.Load(config.Path(opts.Config, cwd))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrConfig, err)
	}

	//
	// 2.  Classification
	//
	req, err := planner.Classify(opts, cwd, cfg.Datasource.Databases)
	if err != nil {
		log.Warnw("build request rejected", "err", err)
		return "", err
	}
	kind = req.Kind()
	log.Infow("build request classified", "kind", kind)

	//
	// 3.  Credentials
	//
	creds, err := config.Resolve(ctx, cfg, b.Secrets)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrConfig, err)
	}

	//
	// 4.  Plan
	//
	lay := layout.Layout{Root: cfg.Paths.Root}
	conn := b.Connector
	if conn == nil {
		conn = database.Postgres
	}
	p := &planner.Planner{
		Layout:     lay,
		Discoverer: &registry.Discoverer{Connector: conn, Layout: lay, Log: log},
	}
	specs, err := p.Plan(ctx, req, creds)
	if err != nil {
		return "", err
	}

	//
	// 5.  Route
	//
	if r, ok := req.(planner.ExtensionRequest); ok && r.Unregister {
		u := b.Unregister
		if u == nil {
			u = &registry.Unregisterer{Connector: conn, Log: log}
		}
		return u.Unregister(ctx, specs, creds)
	}

	msg, err = b.executor(cfg, log).Run(ctx, specs, creds)
	if err != nil {
		return "", err
	}
	log.Infow("build succeeded", "kind", kind, "databases", buildspec.Databases(specs))
	return msg, nil
}

// executor fills unset collaborators from cfg.
func (b *Builder) executor(cfg *config.Config, log *zap.SugaredLogger) *pipeline.Executor {
	root := cfg.Paths.Root
	e := &pipeline.Executor{
		Packages: b.Packages,
		Client:   b.Client,
		Database: b.Database,
		Out:      b.Out,
		Log:      log,
	}
	if e.Packages == nil {
		e.Packages = &npm.Manager{Bin: cfg.NPM.Bin, Dir: root, Log: log}
	}
	if e.Client == nil {
		e.Client = &delegate.Client{Command: delegate.Command{
			Name: "client", Argv: cfg.Builders.Client, Dir: root, Log: log,
		}}
	}
	if e.Database == nil {
		e.Database = &delegate.Database{Command: delegate.Command{
			Name: "database", Argv: cfg.Builders.Database, Dir: root, Log: log,
		}}
	}
	return e
}

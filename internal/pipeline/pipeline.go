// internal/pipeline/pipeline.go
//
// Sequential build pipeline.
//
// Context
// -------
// `Executor.Run` takes the planned specs through three steps, strictly in
// order:
//
//  1. install   – npm-sourced extensions are installed concurrently.  A
//                 no-op when no spec references node_modules.
//  2. client    – the whole batch goes to the client builder.
//  3. database  – the whole batch goes to the database builder, then a
//                 summary of every database and directory is returned.
//
// The first failing step ends the run and its error is returned verbatim,
// so callers can match collaborator errors with errors.Is.
//
// Notes
// -----
//   • Step timings land in metrics.StepDuration.
//   • Package-manager log lines go to Out and to the logger.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/xtbuild/internal/buildspec"
	"github.com/yanizio/xtbuild/internal/config"
	"github.com/yanizio/xtbuild/internal/layout"
	"github.com/yanizio/xtbuild/internal/logger"
	"github.com/yanizio/xtbuild/internal/metrics"
)

//
// Collaborators
//

// PackageManager installs extension packages from the package registry.
type PackageManager interface {
	Load(ctx context.Context) error
	// OnLog subscribes fn to install output until the returned func is
	// called.
	OnLog(fn func(line string)) (unsubscribe func())
	Install(ctx context.Context, names ...string) error
}

// ClientBuilder bundles the client for a batch of specs.
type ClientBuilder interface {
	BuildClient(ctx context.Context, specs []buildspec.Spec) error
}

// DatabaseBuilder installs a batch of specs into their databases.
type DatabaseBuilder interface {
	BuildDatabase(ctx context.Context, specs []buildspec.Spec, creds config.Credentials) error
}

//
// Executor
//

// Executor runs the build pipeline.  Out receives package-manager progress
// and may be nil.
type Executor struct {
	Packages PackageManager
	Client   ClientBuilder
	Database DatabaseBuilder
	Out      io.Writer
	Log      *zap.SugaredLogger
}

type step struct {
	name string
	run  func(ctx context.Context) error
}

// Run executes install, client, and database in order and returns the
// success summary, or the first step's error.
func (e *Executor) Run(ctx context.Context, specs []buildspec.Spec, creds config.Credentials) (string, error) {
	log := logger.Or(e.Log)

	steps := []step{
		{"install", func(ctx context.Context) error { return e.install(ctx, specs) }},
		{"client", func(ctx context.Context) error { return e.Client.BuildClient(ctx, specs) }},
		{"database", func(ctx context.Context) error { return e.Database.BuildDatabase(ctx, specs, creds) }},
	}

	for _, s := range steps {
		start := time.Now()
		log.Infow("step started", "step", s.name, "specs", len(specs))

		err := s.run(ctx)
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		took := time.Since(start)
		metrics.StepDuration.WithLabelValues(s.name, outcome).Observe(took.Seconds())

		if err != nil {
			log.Errorw("step failed", "step", s.name, "took", took, "err", err)
			return "", err
		}
		log.Infow("step finished", "step", s.name, "took", took)
	}
	return Summary(specs), nil
}

// install installs every npm-sourced extension across specs, once per
// name.  The first failure cancels the remaining installs.
func (e *Executor) install(ctx context.Context, specs []buildspec.Spec) error {
	names := npmNames(specs)
	if len(names) == 0 {
		return nil
	}

	if err := e.Packages.Load(ctx); err != nil {
		return err
	}
	log := logger.Or(e.Log)
	unsubscribe := e.Packages.OnLog(func(line string) {
		if e.Out != nil {
			fmt.Fprintln(e.Out, line)
		}
		log.Infow("npm", "line", line)
	})
	defer unsubscribe()

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		name := name
		g.Go(func() error {
			if err := e.Packages.Install(gctx, name); err != nil {
				return err
			}
			metrics.PackagesInstalledTotal.Inc()
			return nil
		})
	}
	return g.Wait()
}

// npmNames returns the package names of npm-sourced extensions in
// first-seen order, without duplicates.
func npmNames(specs []buildspec.Spec) []string {
	var names []string
	seen := make(map[string]bool)
	for _, p := range buildspec.AllExtensions(specs) {
		if !layout.IsNPM(p) {
			continue
		}
		name := filepath.Base(p)
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// Summary is the human-readable success message for specs.
func Summary(specs []buildspec.Spec) string {
	var b strings.Builder
	b.WriteString("Build succeeded.\n")
	for _, s := range specs {
		fmt.Fprintf(&b, "Database: %s\nDirectories:\n", s.Database)
		for _, ext := range s.Extensions {
			fmt.Fprintf(&b, "  %s\n", ext)
		}
	}
	return b.String()
}

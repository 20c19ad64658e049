// internal/registry/discover.go
//
// Registered-extension discovery.
//
// Context
// -------
// A default build installs whatever the target database says it has.  The
// record lives in `xt.ext`:
//
//	ext (ext_id PK, ext_name, ext_location, ext_load_order, …)
//
// Workflow
// --------
//  1. Connect with a copy of the credentials pointed at the database.
//  2. Check `pg_class` for the `ext` relation.  No relation means a fresh
//     database, which gets the six default core extensions.
//  3. Otherwise, in one transaction: initialise the JS runtime, move
//     oauth2 from its legacy location, and select every row by load order.
//  4. Map each row through the layout table, dropping unknown locations,
//     and put the ORM and client paths in front.
//
// Notes
// -----
//   - The oauth2 fix is idempotent and runs on every discovery.
//   - Any query error aborts discovery for that database; no partial
//     result is returned.
//   - Oxford commas, two spaces after periods.
package registry

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/xtbuild/internal/buildspec"
	"github.com/yanizio/xtbuild/internal/config"
	"github.com/yanizio/xtbuild/internal/database"
	"github.com/yanizio/xtbuild/internal/layout"
	"github.com/yanizio/xtbuild/internal/logger"
	"github.com/yanizio/xtbuild/internal/metrics"
)

const (
	existsSQL = `SELECT relname FROM pg_class WHERE relname = 'ext'`

	initSQL = `SELECT xt.js_init()`

	relocateSQL = `UPDATE xt.ext SET ext_location = '/core-extensions'
	    WHERE ext_name = 'oauth2' AND ext_location = '/xtuple-extensions'`

	listSQL = `SELECT ext_location, ext_name, ext_load_order
	    FROM xt.ext
	    ORDER BY ext_load_order`
)

// Row mirrors the columns of `xt.ext` the planner needs.
type Row struct {
	Location  string `db:"ext_location"`
	Name      string `db:"ext_name"`
	LoadOrder int    `db:"ext_load_order"`
}

// Discoverer reads registered extensions from target databases.
type Discoverer struct {
	Connector database.Connector
	Layout    layout.Layout
	Log       *zap.SugaredLogger
}

// Discover returns the build spec for one database.  flags are copied from
// the request, not read from the database.
func (d *Discoverer) Discover(ctx context.Context, creds config.Credentials, db string, flags buildspec.Flags) (buildspec.Spec, error) {
	log := logger.Or(d.Log).With("database", db)

	rows, err := d.rows(ctx, creds.WithDatabase(db))
	if err != nil {
		metrics.DiscoveryErrorsTotal.Inc()
		log.Errorw("extension discovery failed", "err", err)
		return buildspec.Spec{}, err
	}

	exts := d.Layout.Infrastructure()
	for _, r := range rows {
		p, ok := d.Layout.ExtensionPath(r.Location, r.Name)
		if !ok {
			log.Debugw("skipping extension with unknown location", "ext", r.Name, "location", r.Location)
			continue
		}
		exts = append(exts, p)
	}
	log.Infow("extensions discovered", "count", len(exts))

	return buildspec.Spec{
		Database:   db,
		Extensions: exts,
		Flags:      flags,
	}, nil
}

// DiscoverAll runs Discover for every database concurrently.  Results keep
// the order of dbs.  The first failure cancels the remaining lookups.
func (d *Discoverer) DiscoverAll(ctx context.Context, creds config.Credentials, dbs []string, flags buildspec.Flags) ([]buildspec.Spec, error) {
	specs := make([]buildspec.Spec, len(dbs))
	g, gctx := errgroup.WithContext(ctx)
	for i, db := range dbs {
		i, db := i, db
		g.Go(func() error {
			s, err := d.Discover(gctx, creds, db, flags)
			if err != nil {
				return err
			}
			specs[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return specs, nil
}

// rows returns the registry rows for the database in creds, or the default
// set when the registry does not exist yet.
func (d *Discoverer) rows(ctx context.Context, creds config.Credentials) ([]Row, error) {
	db, err := d.Connector.Open(ctx, creds)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var rel []string
	if err := db.SelectContext(ctx, &rel, existsSQL); err != nil {
		return nil, fmt.Errorf("check registry in %s: %w", creds.Database, err)
	}
	if len(rel) == 0 {
		return defaultRows(), nil
	}
	return registeredRows(ctx, db)
}

func registeredRows(ctx context.Context, db *sqlx.DB) ([]Row, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	if _, err := tx.ExecContext(ctx, initSQL); err != nil {
		return nil, fmt.Errorf("init registry: %w", err)
	}
	if _, err := tx.ExecContext(ctx, relocateSQL); err != nil {
		return nil, fmt.Errorf("relocate oauth2: %w", err)
	}

	var rows []Row
	if err := tx.SelectContext(ctx, &rows, listSQL); err != nil {
		return nil, fmt.Errorf("list registry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return rows, nil
}

func defaultRows() []Row {
	rows := make([]Row, len(layout.DefaultExtensions))
	for i, name := range layout.DefaultExtensions {
		rows[i] = Row{Location: layout.CoreExtensions, Name: name, LoadOrder: i}
	}
	return rows
}

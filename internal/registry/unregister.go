// internal/registry/unregister.go
//
// Extension unregistration.
//
// Context
// -------
// `xtbuild build -e <path> --unregister` removes an extension's registry
// entry and everything that hangs off it, so the next default build no
// longer loads it.  Dependent rows go first:
//
//	xt.usrext      per-user grants
//	xt.clientcode  client bundles
//	xt.dict        dictionary strings
//	xt.extdep      dependencies, either direction
//	xt.ext         the registry row itself
//
// Each target database is cleaned in its own transaction, one after the
// other.  The first failure stops the run.
package registry

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/yanizio/xtbuild/internal/buildspec"
	"github.com/yanizio/xtbuild/internal/config"
	"github.com/yanizio/xtbuild/internal/database"
	"github.com/yanizio/xtbuild/internal/logger"
)

var unregisterSQL = []string{
	`DELETE FROM xt.usrext WHERE usrext_ext_id IN
	    (SELECT ext_id FROM xt.ext WHERE ext_name = $1)`,
	`DELETE FROM xt.clientcode WHERE clientcode_ext_id IN
	    (SELECT ext_id FROM xt.ext WHERE ext_name = $1)`,
	`DELETE FROM xt.dict WHERE dict_ext_id IN
	    (SELECT ext_id FROM xt.ext WHERE ext_name = $1)`,
	`DELETE FROM xt.extdep WHERE extdep_from_ext_id IN
	    (SELECT ext_id FROM xt.ext WHERE ext_name = $1)
	    OR extdep_to_ext_id IN (SELECT ext_id FROM xt.ext WHERE ext_name = $1)`,
	`DELETE FROM xt.ext WHERE ext_name = $1`,
}

// Unregisterer removes extension registrations from target databases.
type Unregisterer struct {
	Connector database.Connector
	Log       *zap.SugaredLogger
}

// Unregister drops every extension named in specs from its spec's database.
// Extension names are the final path component.
func (u *Unregisterer) Unregister(ctx context.Context, specs []buildspec.Spec, creds config.Credentials) (string, error) {
	log := logger.Or(u.Log)

	var names []string
	for _, s := range specs {
		exts := make([]string, len(s.Extensions))
		for i, p := range s.Extensions {
			exts[i] = filepath.Base(p)
		}
		if err := u.unregister(ctx, creds.WithDatabase(s.Database), exts); err != nil {
			log.Errorw("unregister failed", "database", s.Database, "err", err)
			return "", err
		}
		log.Infow("extensions unregistered", "database", s.Database, "extensions", exts)
		if len(names) == 0 {
			names = exts
		}
	}

	return fmt.Sprintf("Unregistered %s from %s.",
		strings.Join(names, ", "),
		strings.Join(buildspec.Databases(specs), ", ")), nil
}

func (u *Unregisterer) unregister(ctx context.Context, creds config.Credentials, exts []string) error {
	db, err := u.Connector.Open(ctx, creds)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	for _, name := range exts {
		for _, q := range unregisterSQL {
			if _, err := tx.ExecContext(ctx, q, name); err != nil {
				return fmt.Errorf("unregister %s from %s: %w", name, creds.Database, err)
			}
		}
	}
	return tx.Commit()
}

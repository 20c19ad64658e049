// internal/planner/planner.go
//
// Build-specification planner.
//
// Context
// -------
// `Plan` expands a classified Request into the ordered list of build specs
// the pipeline runs:
//
//   • InitializeRequest  – one spec, initialize set, foundation-first
//                          nine-entry extension list (or the named
//                          extension alone, as given).
//   • ExtensionRequest   – one spec per target database, each holding the
//                          single requested extension.
//   • RegisteredRequest  – one spec per target database, discovered from
//                          its extension registry.
//
// Notes
// -----
//   • Only the registered branch touches a database.
//   • Credentials are passed by value and copied per database by the
//     discoverer.
package planner

import (
	"context"
	"fmt"

	"github.com/yanizio/xtbuild/internal/buildspec"
	"github.com/yanizio/xtbuild/internal/config"
	"github.com/yanizio/xtbuild/internal/layout"
)

// Discoverer resolves the registered extensions of many databases.
// *registry.Discoverer satisfies it.
type Discoverer interface {
	DiscoverAll(ctx context.Context, creds config.Credentials, dbs []string, flags buildspec.Flags) ([]buildspec.Spec, error)
}

// Planner turns requests into build specs.
type Planner struct {
	Layout     layout.Layout
	Discoverer Discoverer
}

// Plan returns the specs for req.  Only RegisteredRequest can fail, and
// then only with the discoverer's error.
func (p *Planner) Plan(ctx context.Context, req Request, creds config.Credentials) ([]buildspec.Spec, error) {
	switch r := req.(type) {
	case InitializeRequest:
		return []buildspec.Spec{p.initialize(r)}, nil
	case ExtensionRequest:
		return extension(r), nil
	case RegisteredRequest:
		return p.Discoverer.DiscoverAll(ctx, creds, r.Databases, r.Flags)
	}
	return nil, fmt.Errorf("planner: unhandled request %T", req)
}

func (p *Planner) initialize(r InitializeRequest) buildspec.Spec {
	exts := p.Layout.InitializeExtensions()
	if r.Extension != "" {
		exts = []string{r.Extension}
	}
	return buildspec.Spec{
		Database:   r.Database,
		Extensions: exts,
		Flags:      r.Flags,
		Initialize: true,
		Backup:     r.Backup,
		Source:     r.Source,
	}
}

func extension(r ExtensionRequest) []buildspec.Spec {
	specs := make([]buildspec.Spec, 0, len(r.Databases))
	for _, db := range r.Databases {
		specs = append(specs, buildspec.Spec{
			Database:   db,
			Extensions: []string{r.Extension},
			Flags:      r.Flags,
			Frozen:     r.Frozen,
		})
	}
	return specs
}

// internal/planner/request.go
//
// Request classification.
//
// Context
// -------
// A build request is sparse and easy to get wrong.  `Classify` inspects the
// options exactly once, in a fixed priority order, and returns one of three
// request kinds, or a `*UsageError` naming the rule that was broken:
//
//  1. clientOnly + databaseOnly               → usage error
//  2. backup + source                         → usage error
//  3. initialize + (backup|source) + database,
//     and no extension other than foundation  → InitializeRequest
//  4. any other initialize/backup/source use  → usage error
//  5. extension                               → ExtensionRequest
//  6. otherwise                               → RegisteredRequest
//
// Each request type carries only what its branch needs.  Paths are already
// resolved against the working directory.
package planner

import (
	"github.com/yanizio/xtbuild/internal/buildspec"
	"github.com/yanizio/xtbuild/internal/layout"
)

// Kind names a request variant for logs and metrics.
type Kind string

const (
	KindInitialize Kind = "initialize"
	KindExtension  Kind = "extension"
	KindRegistered Kind = "registered"
	KindInvalid    Kind = "invalid"
)

// Usage error messages, one per rule.
const (
	msgClientAndDatabaseOnly = "cannot build client only and database only at the same time"
	msgBackupAndSource       = "cannot build from both a backup and a source tree"
	msgInitialize            = "initialize requires a single database, no extension other than " +
		layout.FoundationName + ", the initialize flag, and either a backup or a source"
)

// Request is one of InitializeRequest, ExtensionRequest, or
// RegisteredRequest.
type Request interface {
	Kind() Kind
	sealed()
}

// InitializeRequest rebuilds one database from a backup or a source tree.
// Exactly one of Backup and Source is set.  Extension is empty or the
// foundation name.
type InitializeRequest struct {
	Database  string
	Backup    string
	Source    string
	Extension string
	Flags     buildspec.Flags
}

// ExtensionRequest builds, or unregisters, a single extension on every
// target database.
type ExtensionRequest struct {
	Extension  string
	Databases  []string
	Unregister bool
	Frozen     bool
	Flags      buildspec.Flags
}

// RegisteredRequest builds the registered extensions of every target
// database.
type RegisteredRequest struct {
	Databases []string
	Flags     buildspec.Flags
}

func (InitializeRequest) Kind() Kind { return KindInitialize }
func (ExtensionRequest) Kind() Kind  { return KindExtension }
func (RegisteredRequest) Kind() Kind { return KindRegistered }

func (InitializeRequest) sealed() {}
func (ExtensionRequest) sealed()  {}
func (RegisteredRequest) sealed() {}

// Classify turns opts into a Request.  cwd anchors relative paths and
// databases is the target list used when opts.Database is empty.
func Classify(opts buildspec.Options, cwd string, databases []string) (Request, error) {
	switch {
	case opts.ClientOnly && opts.DatabaseOnly:
		return nil, usage(msgClientAndDatabaseOnly)

	case opts.Backup != "" && opts.Source != "":
		return nil, usage(msgBackupAndSource)

	case opts.Initialize &&
		(opts.Backup != "" || opts.Source != "") &&
		opts.Database != "" &&
		(opts.Extension == "" || opts.Extension == layout.FoundationName):
		req := InitializeRequest{
			Database:  opts.Database,
			Extension: opts.Extension,
			Flags:     opts.Flags(),
		}
		if opts.Backup != "" {
			req.Backup = layout.Abs(cwd, opts.Backup)
		}
		if opts.Source != "" {
			req.Source = layout.Abs(cwd, opts.Source)
		}
		return req, nil

	case opts.Initialize || opts.Backup != "" || opts.Source != "":
		return nil, usage(msgInitialize)

	case opts.Extension != "":
		return ExtensionRequest{
			Extension:  layout.Abs(cwd, opts.Extension),
			Databases:  targets(opts.Database, databases),
			Unregister: opts.Unregister,
			Frozen:     opts.Frozen,
			Flags:      opts.Flags(),
		}, nil

	default:
		return RegisteredRequest{
			Databases: targets(opts.Database, databases),
			Flags:     opts.Flags(),
		}, nil
	}
}

func targets(explicit string, configured []string) []string {
	if explicit != "" {
		return []string{explicit}
	}
	return configured
}

// Package layout knows where the build inputs live on disk.  Every path the
// planner hands to a builder is derived here from a single repository root:
//
//	<root>/foundation-database                      foundation schema
//	<root>/lib/orm                                  ORM library
//	<root>/enyo-client                              core client
//	<root>/enyo-client/extensions/source/<name>     /core-extensions
//	<root>/../xtuple-extensions/source/<name>       /xtuple-extensions
//	<root>/../private-extensions/source/<name>      /private-extensions
//	<root>/node_modules/<name>                      npm
package layout

import (
	"path/filepath"
	"strings"
)

// Registry location values as stored in xt.ext.ext_location.
const (
	CoreExtensions    = "/core-extensions"
	XTupleExtensions  = "/xtuple-extensions"
	PrivateExtensions = "/private-extensions"
	NPM               = "npm"
)

// NPMMarker is the path fragment that identifies an extension sourced from
// the package registry.
const NPMMarker = "node_modules"

// FoundationName is the literal extension value that selects the foundation
// database for an initialize build.
const FoundationName = "foundation-database"

// DefaultExtensions is the extension set of a database that has no registry
// yet, in load order.  All of them live under /core-extensions.
var DefaultExtensions = []string{"crm", "project", "sales", "billing", "purchasing", "oauth2"}

// Layout resolves build paths relative to Root.
type Layout struct {
	Root string
}

// Foundation is the foundation database directory.
func (l Layout) Foundation() string { return filepath.Join(l.Root, FoundationName) }

// ORM is the ORM library directory.
func (l Layout) ORM() string { return filepath.Join(l.Root, "lib", "orm") }

// Client is the core client directory.
func (l Layout) Client() string { return filepath.Join(l.Root, "enyo-client") }

// Infrastructure returns the paths that precede every registered extension
// list: ORM library, then core client.
func (l Layout) Infrastructure() []string {
	return []string{l.ORM(), l.Client()}
}

// CoreExtension is the path of a core extension by name.
func (l Layout) CoreExtension(name string) string {
	return filepath.Join(l.Client(), "extensions", "source", name)
}

// ExtensionPath maps a registry (location, name) pair to a directory.  ok is
// false for locations the table does not know.  The registry stores the
// leading slash; values without it are accepted too.
func (l Layout) ExtensionPath(location, name string) (path string, ok bool) {
	switch "/" + strings.TrimPrefix(location, "/") {
	case CoreExtensions:
		return l.CoreExtension(name), true
	case XTupleExtensions:
		return filepath.Join(l.Root, "..", "xtuple-extensions", "source", name), true
	case PrivateExtensions:
		return filepath.Join(l.Root, "..", "private-extensions", "source", name), true
	case "/" + NPM:
		return filepath.Join(l.Root, NPMMarker, name), true
	}
	return "", false
}

// InitializeExtensions is the full extension list of a fresh initialize
// build: foundation, ORM, client, then the default core extensions.
func (l Layout) InitializeExtensions() []string {
	out := []string{l.Foundation(), l.ORM(), l.Client()}
	for _, name := range DefaultExtensions {
		out = append(out, l.CoreExtension(name))
	}
	return out
}

// IsNPM reports whether an extension path points into node_modules.
func IsNPM(path string) bool { return strings.Contains(path, NPMMarker) }

// Abs resolves p against cwd unless it already starts with a separator.
func Abs(cwd, p string) string {
	if strings.HasPrefix(p, "/") || strings.HasPrefix(p, string(filepath.Separator)) {
		return p
	}
	return filepath.Join(cwd, p)
}

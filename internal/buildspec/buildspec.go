// internal/buildspec/buildspec.go
//
// Build request and build specification models.
//
// Context
// -------
// `Options` is the sparse record a caller (CLI, daemon, or test) hands to
// `build.Build`.  The planner resolves it into one or more `Spec` values,
// each describing a single job: target database, ordered extension paths,
// and the mode flags the delegated builders honour.
//
// Notes
// -----
//   - JSON tags use the camelCase names the client and database builders
//     read from their stdin payload.
//   - `Extensions` order is load order.  Infrastructure paths come first,
//     extensions follow, and later entries override earlier ones.
//   - Oxford commas, two spaces after periods.
package buildspec

//
// Options
//

// Options is the caller-supplied build request.  Every field is optional.
type Options struct {
	Database     string `json:"database,omitempty"`
	Extension    string `json:"extension,omitempty"`
	Backup       string `json:"backup,omitempty"`
	Source       string `json:"source,omitempty"`
	Initialize   bool   `json:"initialize,omitempty"`
	Config       string `json:"config,omitempty"`
	KeepSQL      bool   `json:"keepSql,omitempty"`
	PopulateData bool   `json:"populateData,omitempty"`
	WipeViews    bool   `json:"wipeViews,omitempty"`
	ClientOnly   bool   `json:"clientOnly,omitempty"`
	DatabaseOnly bool   `json:"databaseOnly,omitempty"`
	Frozen       bool   `json:"frozen,omitempty"`
	Unregister   bool   `json:"unregister,omitempty"`
}

// Flags returns the five build-mode flags shared by every spec.
func (o Options) Flags() Flags {
	return Flags{
		KeepSQL:      o.KeepSQL,
		PopulateData: o.PopulateData,
		WipeViews:    o.WipeViews,
		ClientOnly:   o.ClientOnly,
		DatabaseOnly: o.DatabaseOnly,
	}
}

//
// Flags
//

// Flags are the build-mode switches copied verbatim from Options.
type Flags struct {
	KeepSQL      bool `json:"keepSql"`
	PopulateData bool `json:"populateData"`
	WipeViews    bool `json:"wipeViews"`
	ClientOnly   bool `json:"clientOnly"`
	DatabaseOnly bool `json:"databaseOnly"`
}

//
// Spec
//

// Spec is one fully resolved build job.  Backup and Source are only ever set
// together with Initialize, and never both.
type Spec struct {
	Database   string   `json:"database"`
	Extensions []string `json:"extensions"`
	Flags
	Frozen     bool   `json:"frozen,omitempty"`
	Initialize bool   `json:"initialize,omitempty"`
	Backup     string `json:"backup,omitempty"`
	Source     string `json:"source,omitempty"`
}

// AllExtensions flattens the extension paths of every spec, keeping order and
// duplicates.
func AllExtensions(specs []Spec) []string {
	var out []string
	for _, s := range specs {
		out = append(out, s.Extensions...)
	}
	return out
}

// Databases lists the target database of each spec in order.
func Databases(specs []Spec) []string {
	out := make([]string, 0, len(specs))
	for _, s := range specs {
		out = append(out, s.Database)
	}
	return out
}

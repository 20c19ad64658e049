// internal/config/model.go
//
// Typed configuration model for xtbuild.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                            – dotenv values,
//   • the YAML config file                       – primary static file,
//   • `XTBUILD_`-prefixed environment overrides  – highest precedence.
//
// Validation happens immediately after unmarshal; a build never starts with
// a half-read configuration.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • `Paths.Root` may be relative; the loader anchors it to the config
//     file's directory.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

//
// Database server section
//

// DatabaseServer is the connection block shared by every target database.
// The password may be a `vault:<mount>/<path>#<key>` reference.
type DatabaseServer struct {
	Hostname string `koanf:"hostname" validate:"required"`
	Port     int    `koanf:"port"     validate:"omitempty,min=1,max=65535"`
	User     string `koanf:"user"     validate:"required"`
	Password string `koanf:"password"`
	SSLMode  string `koanf:"sslmode"  validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
}

//
// Datasource section
//

// Datasource lists the databases a default build targets, in order.
type Datasource struct {
	Databases         []string `koanf:"databases"           validate:"dive,required"`
	EncryptionKeyFile string   `koanf:"encryption_key_file"`
}

//
// Paths section
//

// Paths locates the source tree the planner resolves extensions against.
type Paths struct {
	Root string `koanf:"root"`
}

//
// Builders section
//

// Builders holds the argv of the external client and database builders.
type Builders struct {
	Client   []string `koanf:"client"`
	Database []string `koanf:"database"`
}

// NPM configures the package-manager client.
type NPM struct {
	Bin string `koanf:"bin"`
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load.
type Config struct {
	DatabaseServer DatabaseServer `koanf:"database_server"`
	Datasource     Datasource     `koanf:"datasource"`
	Paths          Paths          `koanf:"paths"`
	Builders       Builders       `koanf:"builders"`
	NPM            NPM            `koanf:"npm"`

	// File is the path the config was read from; set by the loader.
	File string `koanf:"-"`
}

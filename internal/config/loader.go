// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load(path)` builds one immutable `Config` from three layers (highest
precedence last):

  1. Optional `.env` file next to the config file.
  2. The YAML config file itself.
  3. Environment variables prefixed `XTBUILD_`, where `__` maps to “.”
     (e.g., `XTBUILD_DATABASE_SERVER__PASSWORD → database_server.password`).

`Path(option, cwd)` picks the file: an absolute `--config` is used as is, a
relative one is joined to the working directory, and no option at all falls
back to `<root>/conf/xtbuild.yaml`.

Instrumentation
---------------
  • DEBUG spans - root discovery, YAML read.
  • ERROR spans - YAML parse, env overlay, unmarshal, validation failures.
  • INFO  span  - final “config loaded” with key highlights.

Notes
-----
  • `rootDir()` climbs the cwd tree until it finds `conf/xtbuild.yaml`, so
    the binary works from any sub-directory of the source tree.
  • Oxford commas, two spaces after periods.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/yanizio/xtbuild/internal/layout"
)

const (
	envPrefix   = "XTBUILD_"
	defaultFile = "xtbuild.yaml"
)

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves XTBUILD_ROOT or climbs directories until
// conf/xtbuild.yaml is found.  Falls back to the working directory.
func rootDir(cwd string) string {
	if r := os.Getenv("XTBUILD_ROOT"); r != "" {
		return r
	}

	dir := cwd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", defaultFile)); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}
	return cwd
}

// Path returns the config file selected by the --config option.
func Path(option, cwd string) string {
	if option != "" {
		return layout.Abs(cwd, option)
	}
	root := rootDir(cwd)
	zap.S().Debugw("config root resolved", "root", root)
	return filepath.Join(root, "conf", defaultFile)
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, and env overrides from path, then validates.
func Load(path string) (*Config, error) {
	dir := filepath.Dir(path)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", path, "err", err)
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	zap.S().Debugw("config yaml loaded", "file", path)

	// Env overrides: XTBUILD_DATABASE_SERVER__HOSTNAME → database_server.hostname
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, fmt.Errorf("config env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	cfg.File = path

	// A config under conf/ sits one level below the source root.
	switch {
	case cfg.Paths.Root == "" && filepath.Base(dir) == "conf":
		cfg.Paths.Root = filepath.Dir(dir)
	case cfg.Paths.Root == "":
		cfg.Paths.Root = dir
	default:
		cfg.Paths.Root = layout.Abs(dir, cfg.Paths.Root)
	}
	if cfg.NPM.Bin == "" {
		cfg.NPM.Bin = "npm"
	}

	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "file", path, "err", err)
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	zap.S().Infow("config loaded",
		"file", path,
		"root", cfg.Paths.Root,
		"databases", len(cfg.Datasource.Databases),
	)
	return &cfg, nil
}

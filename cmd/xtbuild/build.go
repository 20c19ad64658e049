package main

import (
	"fmt"
	"os"

	"github.com/yanizio/xtbuild/internal/buildspec"
	"github.com/yanizio/xtbuild/internal/metrics"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Database     string `short:"d" help:"Target database name"`
	Extension    string `short:"e" help:"Extension directory to build, relative to the working directory"`
	Backup       string `short:"b" help:"Backup file to restore before building"`
	Source       string `short:"s" help:"Source database tree to initialize from"`
	Initialize   bool   `short:"i" help:"Initialize a new database"`
	Config       string `short:"c" help:"Configuration file (default: <root>/conf/xtbuild.yaml)"`
	KeepSQL      bool   `name:"keep-sql" short:"k" help:"Keep generated SQL files"`
	PopulateData bool   `name:"populate-data" short:"p" help:"Populate sample data"`
	WipeViews    bool   `name:"wipe-views" short:"w" help:"Drop views before building"`
	ClientOnly   bool   `name:"client-only" help:"Build the client only"`
	DatabaseOnly bool   `name:"database-only" help:"Build the databases only"`
	Frozen       bool   `short:"f" help:"Install the extension as frozen"`
	Unregister   bool   `short:"u" help:"Unregister the extension instead of building it"`
	MetricsFile  string `name:"metrics-file" help:"Write Prometheus metrics to this textfile after the build"`
}

// Options converts the flags into a build request.
func (c *BuildCmd) Options() buildspec.Options {
	return buildspec.Options{
		Database:     c.Database,
		Extension:    c.Extension,
		Backup:       c.Backup,
		Source:       c.Source,
		Initialize:   c.Initialize,
		Config:       c.Config,
		KeepSQL:      c.KeepSQL,
		PopulateData: c.PopulateData,
		WipeViews:    c.WipeViews,
		ClientOnly:   c.ClientOnly,
		DatabaseOnly: c.DatabaseOnly,
		Frozen:       c.Frozen,
		Unregister:   c.Unregister,
	}
}

func (c *BuildCmd) Run(g *Global) error {
	msg, err := g.Builder.Build(g.Ctx, c.Options())

	if c.MetricsFile != "" {
		if werr := metrics.WriteTextfile(c.MetricsFile); werr != nil {
			g.Log.Warnw("metrics textfile write failed", "file", c.MetricsFile, "err", werr)
		}
	}
	if err != nil {
		return err
	}
	fmt.Fprint(os.Stdout, msg)
	return nil
}

package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/yanizio/xtbuild/internal/layout"
	"github.com/yanizio/xtbuild/internal/server"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Listen string `short:"l" help:"Listen address" default:":8080"`
	Config string `short:"c" help:"Configuration file for every build (default: <root>/conf/xtbuild.yaml)"`
}

func (c *ServeCmd) Run(g *Global) error {
	cfgPath := ""
	if c.Config != "" {
		cfgPath = layout.Abs(g.Builder.Cwd, c.Config)
	}
	srv := server.New(c.Listen, server.Router(g.Builder, cfgPath, g.Log))

	errCh := make(chan error, 1)
	go func() {
		g.Log.Infow("listening", "addr", c.Listen, "config", cfgPath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-g.Ctx.Done():
		g.Log.Infow("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

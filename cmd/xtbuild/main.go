// cmd/xtbuild/main.go
//
// xtbuild – command-line entry point.
//
// Command life-cycle
// ------------------
//
//  1. Load env vars (host-wide file → .env fallback).
//
//  2. Parse flags with kong and start the daily rotating logger (tees to
//     the console when running in a TTY).
//
//  3. Connect to Vault when VAULT_ADDR is set, so `vault:` passwords in the
//     config resolve.
//
//  4. Run the selected command:
//
//     • build    – one build, message on stdout
//     • serve    – HTTP build daemon (POST /build, /metrics, /healthz)
//     • version  – print the version
//
// Exit codes
// ----------
//
//	0  success
//	1  collaborator or internal failure
//	2  usage error
//	7  configuration error
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/yanizio/xtbuild/internal/build"
	"github.com/yanizio/xtbuild/internal/config"
	"github.com/yanizio/xtbuild/internal/logger"
	"github.com/yanizio/xtbuild/internal/planner"
	"github.com/yanizio/xtbuild/internal/vault"
)

const serverEnvPath = "/usr/local/etc/xtbuild/xtbuild.env"

var version = "dev"

// Exit codes.
const (
	exitFailure = 1
	exitUsage   = 2
	exitConfig  = 7
)

// CLI holds the global flags and commands.
type CLI struct {
	Verbose bool             `short:"v" help:"Enable debug logging"`
	LogDir  string           `name:"log-dir" help:"Directory for JSON logs (default: <config dir>/../logs)"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build BuildCmd `cmd:"" default:"withargs" help:"Build the client and databases"`
	Serve ServeCmd `cmd:"" help:"Run the HTTP build daemon"`
}

// Global carries state shared by every command.
type Global struct {
	Ctx     context.Context
	Log     *zap.SugaredLogger
	Builder *build.Builder
}

// loadEnv prefers the host-wide env file; on dev it falls back to .env.
func loadEnv() {
	if _, err := os.Stat(serverEnvPath); err == nil {
		_ = godotenv.Load(serverEnvPath)
		return
	}
	_ = godotenv.Load()
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// logDir picks the log directory: the flag, else logs/ next to conf/.
func logDir(flag, configOpt, cwd string) string {
	if flag != "" {
		return flag
	}
	cfgPath := config.Path(configOpt, cwd)
	return filepath.Join(filepath.Dir(filepath.Dir(cfgPath)), "logs")
}

func init() { loadEnv() }

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("xtbuild"),
		kong.Description("Build an xTuple client and its databases."),
		kong.Vars{"version": version},
		kong.UsageOnError(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "working directory: %v\n", err)
		os.Exit(exitFailure)
	}

	cfgOpt := cli.Build.Config
	if strings.HasPrefix(kctx.Command(), "serve") {
		cfgOpt = cli.Serve.Config
	}
	log, err := logger.New(logDir(cli.LogDir, cfgOpt, cwd), runningInTTY(), cli.Verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start logger: %v\n", err)
		os.Exit(exitFailure)
	}
	defer func() { _ = log.Sync() }()

	b := &build.Builder{Cwd: cwd, Out: os.Stdout, Log: log}

	//
	// ── Vault (optional) ───────────────────────────────────────────────
	//
	if vault.Enabled() {
		vc, err := vault.New(ctx, log)
		if err != nil {
			log.Errorw("vault connect failed", "err", err)
			fmt.Fprintf(os.Stderr, "vault: %v\n", err)
			os.Exit(exitConfig)
		}
		b.Secrets = vc
	}

	err = kctx.Run(&Global{Ctx: ctx, Log: log, Builder: b})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		_ = log.Sync()
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case planner.IsUsage(err):
		return exitUsage
	case errors.Is(err, build.ErrConfig):
		return exitConfig
	default:
		return exitFailure
	}
}

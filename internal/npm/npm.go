// internal/npm/npm.go
//
// Package-manager client for npm-sourced extensions.
//
// Context
// -------
// Extensions registered with location `npm` live under
// `<root>/node_modules/<name>`.  Before the client build reads them the
// pipeline asks this client to install each one:
//
//	m := &npm.Manager{Bin: "npm", Dir: root}
//	m.Load(ctx)                // npm on PATH, version logged
//	m.OnLog(func(l string) {}) // progress lines
//	m.Install(ctx, "foo")      // npm install foo
//
// Notes
// -----
//   • Install is safe for concurrent use.  Log subscribers are called one
//     line at a time, never concurrently.
//   • Oxford commas, two spaces after periods.
package npm

import (
	"context"
	"fmt"
	"os/exec"
	"sync"

	"go.uber.org/zap"

	"github.com/yanizio/xtbuild/internal/logger"
	"github.com/yanizio/xtbuild/internal/proc"
)

// Manager shells out to the npm binary.
type Manager struct {
	Bin string // default "npm"
	Dir string // project directory holding node_modules
	Log *zap.SugaredLogger

	mu   sync.Mutex
	subs []subscriber
	next int
	path string
}

// Load resolves the npm binary and records its version.
func (m *Manager) Load(ctx context.Context) error {
	bin := m.Bin
	if bin == "" {
		bin = "npm"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return fmt.Errorf("npm load: %w", err)
	}

	var version string
	err = proc.Run(ctx, proc.Cmd{
		Argv: []string{path, "--version"},
		Dir:  m.Dir,
		Emit: func(l string) { version = l },
	})
	if err != nil {
		return fmt.Errorf("npm load: %w", err)
	}

	m.mu.Lock()
	m.path = path
	m.mu.Unlock()
	logger.Or(m.Log).Infow("npm loaded", "bin", path, "version", version)
	return nil
}

type subscriber struct {
	id int
	fn func(string)
}

// OnLog subscribes fn to install progress lines until the returned func is
// called.
func (m *Manager) OnLog(fn func(line string)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	id := m.next
	m.subs = append(m.subs, subscriber{id: id, fn: fn})

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, s := range m.subs {
			if s.id == id {
				m.subs = append(m.subs[:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

// Install runs `npm install <names…>` in Dir.
func (m *Manager) Install(ctx context.Context, names ...string) error {
	m.mu.Lock()
	path := m.path
	m.mu.Unlock()
	if path == "" {
		return fmt.Errorf("npm install %v: manager not loaded", names)
	}

	argv := append([]string{path, "install"}, names...)
	return proc.Run(ctx, proc.Cmd{Argv: argv, Dir: m.Dir, Emit: m.emit})
}

func (m *Manager) emit(line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		s.fn(line)
	}
}

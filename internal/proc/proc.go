// Package proc runs external build tools and streams their output line by
// line.  Stdout and stderr are merged in arrival order.
package proc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// ErrNoCommand is returned for an empty argv.
var ErrNoCommand = errors.New("proc: empty command")

// Cmd describes one invocation.
type Cmd struct {
	Argv  []string
	Dir   string
	Stdin io.Reader
	// Emit receives each output line without its newline.  May be nil.
	Emit func(line string)
}

// Run starts c and waits for it.  A non-zero exit yields an error naming the
// command and its exit status.  Killing on ctx cancellation is handled by
// exec.CommandContext.
func Run(ctx context.Context, c Cmd) error {
	if len(c.Argv) == 0 {
		return ErrNoCommand
	}

	cmd := exec.CommandContext(ctx, c.Argv[0], c.Argv[1:]...)
	cmd.Dir = c.Dir
	cmd.Stdin = c.Stdin

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	done := make(chan struct{})
	go func() {
		defer close(done)
		sc := bufio.NewScanner(pr)
		sc.Buffer(make([]byte, 64*1024), 1024*1024)
		for sc.Scan() {
			if c.Emit != nil {
				c.Emit(sc.Text())
			}
		}
		// Drain so the child never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, pr)
	}()

	err := cmd.Run()
	pw.Close()
	<-done

	if err != nil {
		return fmt.Errorf("%s: %w", strings.Join(c.Argv, " "), err)
	}
	return nil
}

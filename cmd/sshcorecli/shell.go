package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"golang.org/x/term"

	"github.com/riglite/sshcore/session"
)

// runShell opens an interactive pty-backed shell, putting the local
// terminal into raw mode for the duration and forwarding SIGWINCH-driven
// resizes via WindowChange.
func runShell(ctx context.Context, sess *session.Session) int {
	fd := int(os.Stdin.Fd())
	cols, rows, err := term.GetSize(fd)
	if err != nil {
		cols, rows = 80, 24
	}

	ch, err := sess.OpenShell(ctx, session.WithWindowSize(uint32(cols), uint32(rows), 0, 0))
	if err != nil {
		fmt.Fprintln(os.Stderr, "sshcorecli:", err)
		return classifyError(err)
	}
	defer ch.Close()

	if term.IsTerminal(fd) {
		prev, err := term.MakeRaw(fd)
		if err != nil {
			fmt.Fprintln(os.Stderr, "sshcorecli: raw mode:", err)
			return exitGeneric
		}
		defer func() { _ = term.Restore(fd, prev) }()
	}

	resize := make(chan os.Signal, 1)
	notifyResize(resize)
	defer signal.Stop(resize)
	go func() {
		for range resize {
			if cols, rows, err := term.GetSize(fd); err == nil {
				_ = ch.WindowChange(uint32(cols), uint32(rows), 0, 0)
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = io.Copy(os.Stdout, ch)
	}()
	_, _ = io.Copy(ch, os.Stdin)
	<-done

	return exitOK
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/acarl005/stripansi"

	"github.com/riglite/sshcore/session"
	"github.com/riglite/sshcore/sh"
)

// runExec runs a single non-interactive remote command, echoing stdout
// and stderr line by line with ANSI escapes stripped before they hit the
// local terminal, mirroring the teacher's own bufio.Scanner plus
// stripansi.Strip scanning pattern for captured command output.
func runExec(ctx context.Context, sess *session.Session, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "sshcorecli exec: missing command")
		return exitGeneric
	}
	// args[1:] are shell-escaped via sh.Command so a value like a path
	// with spaces survives as one argument on the remote end instead of
	// being split by the remote shell.
	cmd := sh.Command(args[0], args[1:]...)

	ch, err := sess.OpenExec(ctx, cmd)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sshcorecli:", err)
		return classifyError(err)
	}
	defer ch.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		scanLines(os.Stderr, execStderr{ch})
	}()
	scanLines(os.Stdout, ch)
	<-done

	if code, ok := ch.ExitStatus(); ok && code != 0 {
		return exitGeneric
	}
	return exitOK
}

// execStderr adapts ExecChannel's StderrRead method to io.Reader so it
// can be handed to scanLines like stdout.
type execStderr struct{ ch *session.ExecChannel }

func (r execStderr) Read(p []byte) (int, error) { return r.ch.StderrRead(p) }

func scanLines(w io.Writer, r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fmt.Fprintln(w, stripansi.Strip(sc.Text()))
	}
}

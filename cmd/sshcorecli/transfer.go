package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/riglite/sshcore/scp"
	"github.com/riglite/sshcore/session"
)

func runUpload(ctx context.Context, sess *session.Session, fs *flag.FlagSet, rest []string) int {
	if len(rest) != 2 {
		fmt.Fprintln(os.Stderr, "sshcorecli upload: expected <local-path> <remote-path>")
		return exitGeneric
	}
	return runTransfer(ctx, sess, func(drv *scp.Driver, ctx context.Context, opts ...scp.Option) error {
		return drv.Upload(ctx, rest[0], rest[1], opts...)
	})
}

func runDownload(ctx context.Context, sess *session.Session, fs *flag.FlagSet, rest []string) int {
	if len(rest) != 2 {
		fmt.Fprintln(os.Stderr, "sshcorecli download: expected <remote-path> <local-path>")
		return exitGeneric
	}
	return runTransfer(ctx, sess, func(drv *scp.Driver, ctx context.Context, opts ...scp.Option) error {
		return drv.Download(ctx, rest[0], rest[1], opts...)
	})
}

// runTransfer opens an SCP driver and runs fn against it, driving a
// progressbar.v3 bar off scp.WithProgress per-file callbacks.
func runTransfer(ctx context.Context, sess *session.Session, fn func(*scp.Driver, context.Context, ...scp.Option) error) int {
	drv, err := sess.OpenSCP(ctx, session.WithScpRecursive(), session.WithScpPreserveTimes())
	if err != nil {
		fmt.Fprintln(os.Stderr, "sshcorecli:", err)
		return classifyError(err)
	}

	var bar *progressbar.ProgressBar
	progress := scp.WithProgress(func(name string, transferred, total int64) {
		if bar == nil || bar.GetMax64() != total {
			bar = progressbar.DefaultBytes(total, name)
		}
		bar.Set64(transferred)
	})

	if err := fn(drv, ctx, progress); err != nil {
		fmt.Fprintln(os.Stderr, "sshcorecli:", err)
		return classifyError(err)
	}
	return exitOK
}

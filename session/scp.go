package session

import (
	"context"
	"fmt"

	"github.com/riglite/sshcore/scp"
)

// ScpOption configures a transfer driven through OpenSCP.
type ScpOption = scp.Option

// ScpChannel drives SCP transfers over exec channels it opens on demand
// (spec.md §4.7): one exec channel per Download or Upload call, and a
// recursive call carries all of its files over that one channel.
type ScpChannel = scp.Driver

// WithScpRecursive requests `-r`: descend into directories.
func WithScpRecursive() ScpOption { return scp.WithRecursive() }

// WithScpPreserveTimes requests `-p`: preserve mtime/atime.
func WithScpPreserveTimes() ScpOption { return scp.WithPreserveTimes() }

type scpOpener struct {
	s *Session
}

func (o scpOpener) OpenExec(ctx context.Context, cmd string) (scp.Channel, error) {
	return o.s.OpenExec(ctx, cmd)
}

// OpenSCP returns a driver for running Download/Upload transfers against
// this session, each over its own exec channel (spec.md §4.7).
func (s *Session) OpenSCP(ctx context.Context, opts ...ScpOption) (*ScpChannel, error) {
	if err := s.t.Broken(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBroken, err)
	}
	return scp.NewDriver(scpOpener{s: s}, opts...), nil
}

// Package scp implements the classic textual SCP file-copy sub-protocol
// layered on an exec channel (spec.md §4.7): the client runs the remote
// `scp -f`/`scp -t` command and drives the C/D/E/T control-line grammar
// against it.
package scp

import (
	"context"
	"io"

	"github.com/riglite/sshcore/log"
)

// Channel is the minimal capability Download/Upload need from the exec
// channel they run over.
type Channel interface {
	io.Reader
	io.Writer
	Close() error
}

// Opener abstracts opening a new exec channel so this package does not
// need to import session (which would create an import cycle, since
// session.ScpChannel is an alias for Driver).
type Opener interface {
	OpenExec(ctx context.Context, cmd string) (Channel, error)
}

// ProgressFunc is called as a file's bytes are transferred: name is the
// path relative to the transfer root, transferred/total describe a single
// file's progress (not the overall transfer).
type ProgressFunc func(name string, transferred, total int64)

// Options controls recursion and timestamp preservation, set via the
// Option functional-option type (the same shape as the teacher's
// exec.Option).
type Options struct {
	Recursive     bool
	PreserveTimes bool
	Progress      ProgressFunc
}

// Option is a functional option for Download/Upload.
type Option func(*Options)

// WithRecursive enables `-r`: descend into directories instead of
// rejecting them.
func WithRecursive() Option {
	return func(o *Options) { o.Recursive = true }
}

// WithPreserveTimes enables `-p`: apply the peer's recorded mtime/atime
// to each transferred file.
func WithPreserveTimes() Option {
	return func(o *Options) { o.PreserveTimes = true }
}

// WithProgress reports per-file transfer progress through fn, driven by
// the actual bytes read or written over the channel.
func WithProgress(fn ProgressFunc) Option {
	return func(o *Options) { o.Progress = fn }
}

func resolveOptions(opts []Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Driver runs SCP transfers over exec channels opened on demand from
// opener, one per Download/Upload call. defaults are applied to every
// transfer before that call's own options, so a caller that always wants
// -p doesn't have to repeat it at every Download/Upload call site.
type Driver struct {
	log.LoggerInjectable

	opener   Opener
	defaults []Option
}

// NewDriver returns a Driver that opens its exec channels through opener,
// applying defaults to every subsequent Download/Upload call.
func NewDriver(opener Opener, defaults ...Option) *Driver {
	return &Driver{opener: opener, defaults: defaults}
}

func (d *Driver) resolve(opts []Option) Options {
	return resolveOptions(append(append([]Option{}, d.defaults...), opts...))
}

func scpFlags(base string, o Options) string {
	flags := base
	if o.Recursive {
		flags += "r"
	}
	if o.PreserveTimes {
		flags += "p"
	}
	return flags
}

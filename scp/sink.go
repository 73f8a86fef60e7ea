package scp

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/alessio/shellescape"

	"github.com/riglite/sshcore/log"
	"github.com/riglite/sshcore/softtime"
)

// Download runs `scp -f remotePath` on the peer and receives into
// localPath, acting as the sink side of the sub-protocol (spec.md §4.7).
func (d *Driver) Download(ctx context.Context, remotePath, localPath string, opts ...Option) error {
	o := d.resolve(opts)
	cmd := fmt.Sprintf("scp -%s %s", scpFlags("f", o), shellescape.Quote(remotePath))

	ch, err := d.opener.OpenExec(ctx, cmd)
	if err != nil {
		return err
	}
	defer ch.Close()

	sink := &sinkSession{
		session:  newSCPSession(ch),
		stack:    []string{localPath},
		root:     localPath,
		logger:   d.Log(),
		progress: o.Progress,
	}
	if err := os.MkdirAll(localPath, 0o755); err != nil {
		return fmt.Errorf("scp: preparing local root %s: %w", localPath, err)
	}
	return sink.run()
}

// sinkSession drives the download-side state machine: send ACK, read a
// control line, branch on its first byte. stack tracks the explicit
// directory nesting so E (ascend) always pops exactly one level
// regardless of how the teacher's original implementation compared
// paths (SPEC_FULL.md §4 ADD).
type sinkSession struct {
	*session
	stack    []string
	root     string
	logger   log.Logger
	progress ProgressFunc
}

func (s *sinkSession) currentDir() string {
	return s.stack[len(s.stack)-1]
}

func (s *sinkSession) run() error {
	var pending *fileDescriptor

	for {
		if err := s.ack(); err != nil {
			return err
		}
		line, err := s.readLine()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if line == "" {
			return nil
		}

		switch line[0] {
		case ctlTime:
			mtime, atime, err := parseTimeLine(line)
			if err != nil {
				return err
			}
			pending = &fileDescriptor{ModTime: mtime, AccessTime: atime, HasTimes: true}
		case ctlFile:
			if err := s.receiveFile(line, pending); err != nil {
				return err
			}
			pending = nil
		case ctlDir:
			if err := s.enterDir(line, pending); err != nil {
				return err
			}
			pending = nil
		case ctlEnd:
			if err := s.ascend(); err != nil {
				return err
			}
		case ctlWarn, ctlFatal:
			return fmt.Errorf("%w: peer reported: %s", ErrScpProtocol, line[1:])
		default:
			return fmt.Errorf("%w: unexpected control byte %q", ErrScpProtocol, line[0])
		}
	}
}

func (s *sinkSession) receiveFile(line string, times *fileDescriptor) error {
	desc, err := parseFileOrDirLine(line)
	if err != nil {
		return err
	}
	if times != nil {
		desc.ModTime, desc.AccessTime, desc.HasTimes = times.ModTime, times.AccessTime, true
	}

	path := filepath.Join(s.currentDir(), desc.Name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, desc.Mode|0o200)
	if err != nil {
		return fmt.Errorf("scp: creating %s: %w", path, err)
	}

	// Ack the header so the peer starts streaming the payload.
	if err := s.ack(); err != nil {
		_ = f.Close()
		return err
	}

	if err := s.copyExactly(f, desc.Name, desc.Size); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("scp: closing %s: %w", path, err)
	}

	if err := os.Chmod(path, desc.Mode); err != nil && !os.IsPermission(err) {
		return fmt.Errorf("scp: chmod %s: %w", path, err)
	}
	if desc.HasTimes {
		if err := os.Chtimes(path, desc.AccessTime, desc.ModTime); err != nil {
			return fmt.Errorf("scp: setting times on %s: %w", path, err)
		}
		s.verifyTimesApplied(path, desc.ModTime)
	}
	return nil
}

// verifyTimesApplied re-stats the file and compares its modtime against
// what was requested using softtime, since some filesystems truncate
// mtime precision below what Chtimes was given; a softtime mismatch here
// means the filesystem actually dropped the write, which is worth a log
// line but not a failed transfer.
func (s *sinkSession) verifyTimesApplied(path string, want time.Time) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if !softtime.Equal(info.ModTime(), want) {
		s.logger.Warn("file mtime did not round-trip through filesystem", "path", path)
	}
}

// copyExactly reads exactly size bytes of payload plus the trailing
// terminator byte, writing only the payload to dst (spec.md §4.7).
func (s *sinkSession) copyExactly(dst io.Writer, name string, size int64) error {
	if s.progress != nil {
		dst = &progressWriter{Writer: dst, name: name, total: size, fn: s.progress}
	}
	if _, err := io.CopyN(dst, s.r, size); err != nil {
		return fmt.Errorf("%w: short file payload: %w", ErrScpProtocol, err)
	}
	term, err := s.r.ReadByte()
	if err != nil {
		return fmt.Errorf("%w: missing payload terminator: %w", ErrScpProtocol, err)
	}
	if term != 0 {
		return fmt.Errorf("%w: bad payload terminator %d", ErrScpProtocol, term)
	}
	return nil
}

func (s *sinkSession) enterDir(line string, times *fileDescriptor) error {
	desc, err := parseFileOrDirLine(line)
	if err != nil {
		return err
	}
	_ = times

	path := filepath.Join(s.currentDir(), desc.Name)
	if err := os.MkdirAll(path, desc.Mode|0o700); err != nil {
		return fmt.Errorf("scp: creating directory %s: %w", path, err)
	}
	s.stack = append(s.stack, path)
	return nil
}

func (s *sinkSession) ascend() error {
	if len(s.stack) <= 1 {
		return fmt.Errorf("%w: ascend past root directory", ErrScpProtocol)
	}
	s.stack = s.stack[:len(s.stack)-1]
	return nil
}

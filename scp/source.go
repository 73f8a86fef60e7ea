package scp

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/alessio/shellescape"
)

// Upload runs `scp -t remotePath` on the peer and sends localPath,
// acting as the source side of the sub-protocol (spec.md §4.7), the
// symmetric counterpart to Download.
func (d *Driver) Upload(ctx context.Context, localPath, remotePath string, opts ...Option) error {
	o := d.resolve(opts)
	cmd := fmt.Sprintf("scp -%s %s", scpFlags("t", o), shellescape.Quote(remotePath))

	ch, err := d.opener.OpenExec(ctx, cmd)
	if err != nil {
		return err
	}
	defer ch.Close()

	src := &sourceSession{session: newSCPSession(ch), preserveTimes: o.PreserveTimes, progress: o.Progress}
	if err := src.readAck(); err != nil {
		return err
	}

	info, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("scp: stat %s: %w", localPath, err)
	}
	if info.IsDir() {
		if !o.Recursive {
			return fmt.Errorf("%w: %s is a directory, use WithRecursive", ErrScpProtocol, localPath)
		}
		return src.sendDir(localPath, info)
	}
	return src.sendFile(localPath, info)
}

type sourceSession struct {
	*session
	preserveTimes bool
	progress      ProgressFunc
}

func (s *sourceSession) sendTimes(info os.FileInfo) error {
	if !s.preserveTimes {
		return nil
	}
	mtime := info.ModTime()
	atime := mtime
	if stat, ok := accessTime(info); ok {
		atime = stat
	}
	if err := s.writeLine(formatTimeLine(mtime, atime)); err != nil {
		return err
	}
	return s.readAck()
}

func (s *sourceSession) sendFile(path string, info os.FileInfo) error {
	if err := s.sendTimes(info); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("scp: opening %s: %w", path, err)
	}
	defer f.Close()

	desc := fileDescriptor{Name: filepath.Base(path), Size: info.Size(), Mode: info.Mode()}
	if err := s.writeLine(formatFileLine(desc)); err != nil {
		return err
	}
	if err := s.readAck(); err != nil {
		return err
	}

	var src io.Reader = f
	if s.progress != nil {
		src = &progressReader{Reader: f, name: desc.Name, total: desc.Size, fn: s.progress}
	}
	if _, err := io.CopyN(s.w, src, desc.Size); err != nil {
		return fmt.Errorf("scp: sending %s: %w", path, err)
	}
	if _, err := s.w.Write([]byte{0}); err != nil {
		return err
	}
	return s.readAck()
}

func (s *sourceSession) sendDir(path string, info os.FileInfo) error {
	if err := s.sendTimes(info); err != nil {
		return err
	}
	if err := s.writeLine(formatDirLine(filepath.Base(path), info.Mode())); err != nil {
		return err
	}
	if err := s.readAck(); err != nil {
		return err
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("scp: reading directory %s: %w", path, err)
	}
	for _, entry := range entries {
		childPath := filepath.Join(path, entry.Name())
		childInfo, err := entry.Info()
		if err != nil {
			return fmt.Errorf("scp: stat %s: %w", childPath, err)
		}
		if childInfo.IsDir() {
			if err := s.sendDir(childPath, childInfo); err != nil {
				return err
			}
			continue
		}
		if err := s.sendFile(childPath, childInfo); err != nil {
			return err
		}
	}

	if err := s.writeLine(endLine); err != nil {
		return err
	}
	return s.readAck()
}

package scp

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Control-message and ACK bytes (spec.md §4.7).
const (
	ctlTime  = 'T'
	ctlFile  = 'C'
	ctlDir   = 'D'
	ctlEnd   = 'E'
	ctlWarn  = 1
	ctlFatal = 2

	ackOK = 0
)

// parseFileOrDirLine parses a "Cmmmm size name\n" or "Dmmmm 0 name\n"
// header, with line still carrying its leading control byte and trailing
// newline stripped.
func parseFileOrDirLine(line string) (fileDescriptor, error) {
	fields := strings.Fields(line[1:])
	if len(fields) != 3 {
		return fileDescriptor{}, fmt.Errorf("%w: malformed header %q", ErrScpProtocol, line)
	}
	modeBits, err := strconv.ParseUint(fields[0], 8, 32)
	if err != nil {
		return fileDescriptor{}, fmt.Errorf("%w: bad mode %q: %w", ErrScpProtocol, fields[0], err)
	}
	size, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return fileDescriptor{}, fmt.Errorf("%w: bad size %q: %w", ErrScpProtocol, fields[1], err)
	}
	return fileDescriptor{
		Name: fields[2],
		Size: size,
		Mode: os.FileMode(modeBits) & os.ModePerm,
	}, nil
}

// parseTimeLine parses "T<mtime_sec> <mtime_usec> <atime_sec> <atime_usec>\n",
// with the trailing newline already stripped by the caller; the leading 'T'
// is still present and is skipped here.
func parseTimeLine(line string) (mtime, atime time.Time, err error) {
	fields := strings.Fields(line[1:])
	if len(fields) != 4 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: malformed time line %q", ErrScpProtocol, line)
	}
	mSec, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: bad mtime %q: %w", ErrScpProtocol, fields[0], err)
	}
	aSec, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: bad atime %q: %w", ErrScpProtocol, fields[2], err)
	}
	return time.Unix(mSec, 0), time.Unix(aSec, 0), nil
}

func formatFileLine(d fileDescriptor) string {
	return fmt.Sprintf("C%04o %d %s\n", d.Mode.Perm(), d.Size, d.Name)
}

func formatDirLine(name string, mode os.FileMode) string {
	return fmt.Sprintf("D%04o 0 %s\n", mode.Perm(), name)
}

func formatTimeLine(mtime, atime time.Time) string {
	return fmt.Sprintf("T%d 0 %d 0\n", mtime.Unix(), atime.Unix())
}

const endLine = "E\n"

package scp

import (
	"os"
	"time"
)

// fileDescriptor is the transient record spec.md §3 describes: it lives
// only for the duration of one control-message exchange, carrying just
// enough to create or open the local file and apply its permissions and
// times once the payload is in hand.
type fileDescriptor struct {
	Name       string
	Size       int64
	Mode       os.FileMode
	ModTime    time.Time
	AccessTime time.Time
	HasTimes   bool
	IsDir      bool
}

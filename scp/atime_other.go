//go:build !unix

package scp

import (
	"os"
	"time"
)

func accessTime(_ os.FileInfo) (time.Time, bool) {
	return time.Time{}, false
}

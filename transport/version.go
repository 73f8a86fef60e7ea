package transport

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const maxBannerLines = 50

// ExchangeVersions sends the client identification string and reads the
// server's, logging and dropping any pre-banner lines the server sends
// first (RFC 4253 §4.2). The "SSH-2.0-..." line must be among the first
// maxBannerLines lines read; otherwise it fails with ErrBannerInvalid. It
// must be called exactly once, before any packet framing.
func (t *Transport) ExchangeVersions(ctx context.Context, timeout time.Duration) error {
	if err := withDeadline(ctx, t.conn, timeout); err != nil {
		return t.fail(err)
	}

	clientID := t.clientID
	if clientID == "" {
		clientID = "SSH-2.0-sshcore_1.0"
	}
	t.ClientVersion = []byte(clientID)
	if _, err := t.conn.Write(append([]byte(clientID), '\r', '\n')); err != nil {
		return t.fail(fmt.Errorf("%w: %w", ErrIoBroken, err))
	}

	for i := 0; i < maxBannerLines; i++ {
		line, err := t.reader.ReadString('\n')
		if err != nil {
			return t.fail(fmt.Errorf("%w: %w", ErrIoBroken, err))
		}
		line = strings.TrimRight(line, "\r\n")
		if strings.HasPrefix(line, "SSH-2.0-") || strings.HasPrefix(line, "SSH-1.99-") {
			t.ServerVersion = []byte(line)
			t.Log().Debug("version exchange complete", "server", line, "client", clientID)
			return nil
		}
		t.Log().Debug("discarding pre-banner line", "line", line)
	}
	return t.fail(ErrBannerInvalid)
}

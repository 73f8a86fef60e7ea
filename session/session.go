package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/creasty/defaults"

	"github.com/riglite/sshcore/abort"
	"github.com/riglite/sshcore/channel"
	"github.com/riglite/sshcore/errstring"
	"github.com/riglite/sshcore/kex"
	"github.com/riglite/sshcore/retry"
	"github.com/riglite/sshcore/transport"
	"github.com/riglite/sshcore/userauth"
)

// ErrBroken is returned by OpenExec, OpenShell and OpenSCP once a prior operation
// has put the session into its terminal failed state (spec.md §5
// Cancellation & timeouts).
var ErrBroken = errstring.New("session: broken")

// Session is one authenticated SSH-2 connection: a transport with a live
// cipher, a channel table, and the configuration it was dialed with.
type Session struct {
	t      *transport.Transport
	chans  *channel.Table
	cfg    *Config
	result *kex.Result
}

func defaultClientID(cfg *Config) string {
	if cfg.ClientID != "" {
		return cfg.ClientID
	}
	return "SSH-2.0-sshcore_1.0"
}

// dialTCP retries the initial TCP connect, bounded by cfg.ConnectTimeout,
// so a host that is momentarily unreachable (e.g. still booting) does not
// fail a Dial that would otherwise succeed a moment later. Nothing past
// this point ever retries: a corrupted packet stream must surface as an
// error, not be silently re-read.
func dialTCP(ctx context.Context, addr string, cfg *Config) (net.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	var dialer net.Dialer
	var conn net.Conn
	err := retry.Do(dialCtx, func() error {
		c, dialErr := dialer.DialContext(dialCtx, "tcp", addr)
		if dialErr != nil {
			var dnsErr *net.DNSError
			if errors.As(dialErr, &dnsErr) && !dnsErr.IsTimeout && !dnsErr.IsTemporary {
				return fmt.Errorf("%w: %w", abort.ErrAbort, dialErr)
			}
			return dialErr
		}
		conn = c
		return nil
	}, retry.Delay(200*time.Millisecond), retry.Backoff(1.5))
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Dial connects to addr (host:port), runs the version exchange, the
// initial key exchange, and authentication, and returns a ready Session.
func Dial(ctx context.Context, addr string, cfg *Config) (*Session, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("session: applying defaults: %w", err)
	}
	if cfg.HostKeyVerifier == nil {
		return nil, fmt.Errorf("session: HostKeyVerifier is required")
	}

	conn, err := dialTCP(ctx, addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("session: dial: %w", err)
	}

	t := transport.New(conn, transport.Config{
		ClientID:      defaultClientID(cfg),
		RekeyBytes:    cfg.RekeyBytes,
		RekeyInterval: cfg.RekeyInterval,
	})

	if err := t.ExchangeVersions(ctx, cfg.ConnectTimeout); err != nil {
		_ = t.Close()
		return nil, err
	}

	algos := kex.ResolveAlgorithms(kex.Algorithms{
		Kex:     cfg.KexAlgorithms,
		Ciphers: cfg.CipherAlgorithms,
		MACs:    cfg.MACAlgorithms,
	})
	host, _, _ := net.SplitHostPort(addr)
	if host == "" {
		host = addr
	}

	result, err := kex.Handshake(t, cfg.HostKeyVerifier, host, algos, nil, nil)
	if err != nil {
		_ = t.Close()
		return nil, err
	}

	if err := userauth.Authenticate(t, cfg.User, result.SessionID, cfg.Auth); err != nil {
		_ = t.Close()
		return nil, err
	}

	chans := channel.NewTable(t)
	sess := &Session{t: t, chans: chans, cfg: cfg, result: result}

	go sess.runTransport()

	return sess, nil
}

// runTransport drives Transport.Run in the background for the lifetime
// of the session, dispatching channel traffic and rekeys. When it
// returns, every live channel is force-closed so blocked readers and
// writers observe the failure instead of hanging forever.
func (s *Session) runTransport() {
	_ = s.t.Run()
	s.chans.CloseAll()
}

// Close closes the underlying transport, which also ends every live
// channel's close handshake abruptly (spec.md does not require a clean
// per-channel teardown on session close).
func (s *Session) Close() error {
	return s.t.Close()
}

func (s *Session) openChannel(ctx context.Context, typ string) (*channel.Channel, error) {
	if err := s.t.Broken(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBroken, err)
	}
	return channel.Open(ctx, s.chans, typ)
}

func (s *Session) readTimeout() time.Duration {
	if s.cfg.ReadTimeout > 0 {
		return s.cfg.ReadTimeout
	}
	return 30 * time.Second
}

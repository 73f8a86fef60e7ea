// Package userauth implements the ssh-userauth service (RFC 4252): service
// negotiation, the password and publickey methods, and the fallback
// ordering spec.md §4.5 describes (try each configured method in order,
// stopping at the first success).
package userauth

import (
	"fmt"

	"github.com/riglite/sshcore/errstring"
	"github.com/riglite/sshcore/transport"
	"github.com/riglite/sshcore/wire"
)

const (
	serviceUserAuth   = "ssh-userauth"
	serviceConnection = "ssh-connection"
)

var (
	// ErrAuthDenied is returned when every configured method has been
	// tried and the server has accepted none of them.
	ErrAuthDenied = errstring.New("userauth: authentication denied")
	// ErrPasswordChangeRequired surfaces USERAUTH_PASSWD_CHANGEREQ; this
	// library never performs the change automatically.
	ErrPasswordChangeRequired = errstring.New("userauth: password change required")
	// ErrServiceRejected is returned when the server refuses the
	// ssh-userauth SERVICE_REQUEST outright.
	ErrServiceRejected = errstring.New("userauth: service request rejected")
	// ErrProtocol marks a reply that does not fit the method currently
	// being attempted (e.g. PK_OK received outside a publickey check).
	ErrProtocol = errstring.New("userauth: unexpected message")
)

// FailureInfo is the parsed body of a USERAUTH_FAILURE message: which
// methods the server will still accept, and whether the just-attempted
// method partially succeeded (multi-factor chains; unused by any method
// this library implements, but decoded for completeness).
type FailureInfo struct {
	Methods        []string
	PartialSuccess bool
}

// Method is one configured authentication method. Authenticate sends
// whatever request(s) the method needs and interprets the replies
// specific to it; it returns (nil, nil) on USERAUTH_SUCCESS, a non-nil
// FailureInfo on USERAUTH_FAILURE, or a non-nil error for anything else
// (I/O failure, protocol violation, or a method-specific terminal
// condition like a required password change).
type Method interface {
	Name() string
	Authenticate(c *Context) (*FailureInfo, error)
}

// Context is the shared state every Method needs: the transport to speak
// over, the username being authenticated, and the frozen session_id
// publickey's signed blob is built against.
type Context struct {
	Transport *transport.Transport
	User      string
	SessionID []byte
}

// receiveReply reads the next userauth-phase packet, logging and
// discarding USERAUTH_BANNER messages (RFC 4252 §5.4: may arrive at any
// point before authentication completes).
func (c *Context) receiveReply() (byte, []byte, error) {
	for {
		payload, err := c.Transport.ReceivePacket()
		if err != nil {
			return 0, nil, err
		}
		if len(payload) == 0 {
			continue
		}
		if payload[0] == transport.MsgUserAuthBanner {
			r := wire.NewReader(payload[1:])
			msg, _ := r.GetString()
			c.Transport.Log().Info("userauth banner", "message", msg)
			continue
		}
		return payload[0], payload, nil
	}
}

func (c *Context) send(payload []byte) error {
	return c.Transport.SendPacket(payload)
}

func parseFailure(payload []byte) (*FailureInfo, error) {
	r := wire.NewReader(payload[1:])
	methods, err := r.GetNameList()
	if err != nil {
		return nil, err
	}
	partial, err := r.GetBool()
	if err != nil {
		return nil, err
	}
	return &FailureInfo{Methods: methods, PartialSuccess: partial}, nil
}

func requestHeader(user, method string) *wire.Writer {
	w := wire.NewWriter(64)
	w.PutU8(transport.MsgUserAuthRequest).PutString(user).PutString(serviceConnection).PutString(method)
	return w
}

// requestService performs the SERVICE_REQUEST/SERVICE_ACCEPT exchange for
// ssh-userauth, which must precede every authentication attempt.
func requestService(t *transport.Transport) error {
	w := wire.NewWriter(32)
	w.PutU8(transport.MsgServiceRequest).PutString(serviceUserAuth)
	if err := t.SendPacket(w.Bytes()); err != nil {
		return err
	}

	payload, err := t.ReceivePacket()
	if err != nil {
		return err
	}
	if len(payload) == 0 || payload[0] != transport.MsgServiceAccept {
		return ErrServiceRejected
	}
	r := wire.NewReader(payload[1:])
	name, err := r.GetString()
	if err != nil {
		return err
	}
	if name != serviceUserAuth {
		return ErrServiceRejected
	}
	return nil
}

func methodAllowed(allowed []string, name string) bool {
	for _, a := range allowed {
		if a == name {
			return true
		}
	}
	return false
}

// Authenticate requests the ssh-userauth service and tries methods in
// order, stopping at the first USERAUTH_SUCCESS. A method is skipped if
// the most recent USERAUTH_FAILURE's continue-methods list is known and
// does not name it (the server has already said it won't help).
func Authenticate(t *transport.Transport, user string, sessionID []byte, methods []Method) error {
	if err := requestService(t); err != nil {
		return err
	}
	c := &Context{Transport: t, User: user, SessionID: sessionID}

	var lastFailure *FailureInfo
	for _, m := range methods {
		if lastFailure != nil && !methodAllowed(lastFailure.Methods, m.Name()) {
			continue
		}
		failure, err := m.Authenticate(c)
		if err != nil {
			return err
		}
		if failure == nil {
			return nil
		}
		lastFailure = failure
	}
	return ErrAuthDenied
}

func unexpectedMessage(msgNum byte) error {
	return fmt.Errorf("%w: message number %d", ErrProtocol, msgNum)
}

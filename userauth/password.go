package userauth

import "github.com/riglite/sshcore/transport"

// PasswordMethod implements the RFC 4252 §8 "password" authentication
// method: a single USERAUTH_REQUEST carrying the password in cleartext
// over the already-encrypted transport.
type PasswordMethod struct {
	Password string
}

func (m PasswordMethod) Name() string { return "password" }

// Authenticate sends USERAUTH_REQUEST{user, "ssh-connection", "password",
// FALSE, password} and interprets the single reply it can produce:
// SUCCESS, FAILURE, or PASSWD_CHANGEREQ (surfaced as an error — this
// library never performs the change itself).
func (m PasswordMethod) Authenticate(c *Context) (*FailureInfo, error) {
	c.Transport.RegisterSecret(m.Password)
	c.Transport.Log().Debug("trying password authentication", "user", c.User)

	w := requestHeader(c.User, m.Name())
	w.PutBool(false).PutString(m.Password)
	if err := c.send(w.Bytes()); err != nil {
		return nil, err
	}

	msgNum, payload, err := c.receiveReply()
	if err != nil {
		return nil, err
	}
	switch msgNum {
	case transport.MsgUserAuthSuccess:
		return nil, nil
	case transport.MsgUserAuthPasswdChangeReq:
		return nil, ErrPasswordChangeRequired
	case transport.MsgUserAuthFailure:
		return parseFailure(payload)
	default:
		return nil, unexpectedMessage(msgNum)
	}
}

package userauth

import (
	"github.com/riglite/sshcore/pubkey"
	"github.com/riglite/sshcore/transport"
	"github.com/riglite/sshcore/wire"
)

// PublicKeyMethod implements the RFC 4252 §7 "publickey" method as the
// two-phase exchange spec.md §4.5 describes: an unsigned "check" request
// the server answers with PK_OK before the caller bothers signing
// anything, then the real signed request.
type PublicKeyMethod struct {
	Signer pubkey.Signer
}

func (m PublicKeyMethod) Name() string { return "publickey" }

func (m PublicKeyMethod) Authenticate(c *Context) (*FailureInfo, error) {
	algo := m.Signer.Algorithms()[0]
	blob := m.Signer.PublicKey().Marshal()

	check := requestHeader(c.User, m.Name())
	check.PutBool(false).PutString(algo).PutBytes(blob)
	if err := c.send(check.Bytes()); err != nil {
		return nil, err
	}

	msgNum, payload, err := c.receiveReply()
	if err != nil {
		return nil, err
	}
	switch msgNum {
	case transport.MsgUserAuthFailure:
		return parseFailure(payload)
	case transport.MsgUserAuthPKOK:
		// fall through to the signed request below
	default:
		return nil, unexpectedMessage(msgNum)
	}

	signedBlob := signedData(c.SessionID, c.User, algo, blob)
	sig, err := m.Signer.Sign(algo, signedBlob)
	if err != nil {
		return nil, err
	}

	req := requestHeader(c.User, m.Name())
	req.PutBool(true).PutString(algo).PutBytes(blob).PutBytes(sig)
	if err := c.send(req.Bytes()); err != nil {
		return nil, err
	}

	msgNum, payload, err = c.receiveReply()
	if err != nil {
		return nil, err
	}
	switch msgNum {
	case transport.MsgUserAuthSuccess:
		return nil, nil
	case transport.MsgUserAuthFailure:
		return parseFailure(payload)
	default:
		return nil, unexpectedMessage(msgNum)
	}
}

// signedData builds the RFC 4252 §7 signed blob:
// string(session_id) || byte(SSH_MSG_USERAUTH_REQUEST) || string(user) ||
// string("ssh-connection") || string("publickey") || boolean(TRUE) ||
// string(algo) || string(public_blob).
func signedData(sessionID []byte, user, algo string, pubBlob []byte) []byte {
	w := wire.NewWriter(len(sessionID) + len(user) + len(algo) + len(pubBlob) + 32)
	w.PutBytes(sessionID)
	w.PutU8(transport.MsgUserAuthRequest)
	w.PutString(user)
	w.PutString(serviceConnection)
	w.PutString("publickey")
	w.PutBool(true)
	w.PutString(algo)
	w.PutBytes(pubBlob)
	return w.Bytes()
}

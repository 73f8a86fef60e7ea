package userauth_test

import (
	"crypto/ed25519"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riglite/sshcore/pubkey"
	"github.com/riglite/sshcore/transport"
	"github.com/riglite/sshcore/userauth"
	"github.com/riglite/sshcore/wire"
)

// fakeServer is a deliberately independent reimplementation of the
// server side of ssh-userauth, driving userauth.Authenticate's client
// side over a real net.Pipe without sharing any of its code.
type fakeServer struct {
	t           *transport.Transport
	allowPubkey bool
	goodPubkey  []byte
	password    string
}

func (s *fakeServer) serve() error {
	req, err := s.t.ReceivePacket()
	if err != nil {
		return err
	}
	r := wire.NewReader(req[1:])
	svc, err := r.GetString()
	if err != nil || svc != "ssh-userauth" {
		return err
	}
	accept := wire.NewWriter(32)
	accept.PutU8(transport.MsgServiceAccept).PutString("ssh-userauth")
	if err := s.t.SendPacket(accept.Bytes()); err != nil {
		return err
	}

	for {
		payload, err := s.t.ReceivePacket()
		if err != nil {
			return err
		}
		rr := wire.NewReader(payload[1:])
		user, _ := rr.GetString()
		service, _ := rr.GetString()
		method, _ := rr.GetString()
		_ = user
		_ = service

		switch method {
		case "password":
			_, _ = rr.GetBool()
			pass, err := rr.GetString()
			if err != nil {
				return err
			}
			if pass == s.password {
				return s.t.SendPacket([]byte{transport.MsgUserAuthSuccess})
			}
			if err := s.sendFailure([]string{"password"}); err != nil {
				return err
			}
		case "publickey":
			hasSig, _ := rr.GetBool()
			_, _ = rr.GetString() // algo
			blob, err := rr.GetBytes()
			if err != nil {
				return err
			}
			ok := s.allowPubkey && string(blob) == string(s.goodPubkey)
			if !hasSig {
				if ok {
					w := wire.NewWriter(len(blob) + 8)
					w.PutU8(transport.MsgUserAuthPKOK)
					rr2 := wire.NewReader(payload[1:])
					_, _ = rr2.GetString()
					_, _ = rr2.GetString()
					_, _ = rr2.GetString()
					_, _ = rr2.GetBool()
					algo, _ := rr2.GetString()
					w.PutString(algo).PutBytes(blob)
					if err := s.t.SendPacket(w.Bytes()); err != nil {
						return err
					}
					continue
				}
				if err := s.sendFailure([]string{"password"}); err != nil {
					return err
				}
				continue
			}
			// signed request: this fake never verifies the signature, only gates
			// on whether the checked key was the allowed one.
			if ok {
				return s.t.SendPacket([]byte{transport.MsgUserAuthSuccess})
			}
			if err := s.sendFailure([]string{"password"}); err != nil {
				return err
			}
		default:
			if err := s.sendFailure([]string{"password", "publickey"}); err != nil {
				return err
			}
		}
	}
}

func (s *fakeServer) sendFailure(methods []string) error {
	w := wire.NewWriter(32)
	w.PutU8(transport.MsgUserAuthFailure).PutNameList(methods).PutBool(false)
	return s.t.SendPacket(w.Bytes())
}

func pipeTransports(t *testing.T) (*transport.Transport, *transport.Transport) {
	t.Helper()
	c, s := net.Pipe()
	t.Cleanup(func() { c.Close(); s.Close() })
	ct := transport.New(c, transport.Config{})
	st := transport.New(s, transport.Config{})
	return ct, st
}

func TestAuthenticatePasswordSuccess(t *testing.T) {
	ct, st := pipeTransports(t)
	srv := &fakeServer{t: st, password: "swordfish"}
	errc := make(chan error, 1)
	go func() { errc <- srv.serve() }()

	err := userauth.Authenticate(ct, "alice", []byte("session-id"), []userauth.Method{
		userauth.PasswordMethod{Password: "swordfish"},
	})
	require.NoError(t, err)
	require.NoError(t, <-errc)
}

func TestAuthenticateDeniedWhenNoMethodMatches(t *testing.T) {
	ct, st := pipeTransports(t)
	srv := &fakeServer{t: st, password: "right"}
	go srv.serve() //nolint:errcheck

	err := userauth.Authenticate(ct, "alice", []byte("session-id"), []userauth.Method{
		userauth.PasswordMethod{Password: "wrong"},
	})
	assert.ErrorIs(t, err, userauth.ErrAuthDenied)
}

func TestAuthenticatePublicKeyFallsBackToPassword(t *testing.T) {
	ct, st := pipeTransports(t)
	_, badKey, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	badSigner := pubkey.NewEd25519Signer(badKey)

	srv := &fakeServer{t: st, allowPubkey: true, goodPubkey: []byte("not-the-bad-key"), password: "pw"}
	errc := make(chan error, 1)
	go func() { errc <- srv.serve() }()

	err = userauth.Authenticate(ct, "alice", []byte("session-id"), []userauth.Method{
		userauth.PublicKeyMethod{Signer: badSigner},
		userauth.PasswordMethod{Password: "pw"},
	})
	require.NoError(t, err)
	require.NoError(t, <-errc)
}

func TestAuthenticatePublicKeySuccess(t *testing.T) {
	ct, st := pipeTransports(t)
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	signer := pubkey.NewEd25519Signer(priv)
	blob := signer.PublicKey().Marshal()

	srv := &fakeServer{t: st, allowPubkey: true, goodPubkey: blob}
	errc := make(chan error, 1)
	go func() { errc <- srv.serve() }()

	err = userauth.Authenticate(ct, "alice", []byte("session-id"), []userauth.Method{
		userauth.PublicKeyMethod{Signer: signer},
	})
	require.NoError(t, err)
	require.NoError(t, <-errc)
}

func TestAuthenticatePasswordChangeRequired(t *testing.T) {
	ct, st := pipeTransports(t)
	errc := make(chan error, 1)
	go func() {
		req, err := st.ReceivePacket()
		if err != nil {
			errc <- err
			return
		}
		r := wire.NewReader(req[1:])
		_, _ = r.GetString()
		_, _ = r.GetString()
		_, _ = r.GetString()
		if req[0] != transport.MsgServiceRequest {
			errc <- errors.New("expected SERVICE_REQUEST")
			return
		}
		accept := wire.NewWriter(32)
		accept.PutU8(transport.MsgServiceAccept).PutString("ssh-userauth")
		if err := st.SendPacket(accept.Bytes()); err != nil {
			errc <- err
			return
		}
		if _, err := st.ReceivePacket(); err != nil {
			errc <- err
			return
		}
		w := wire.NewWriter(32)
		w.PutU8(transport.MsgUserAuthPasswdChangeReq).PutString("expired").PutString("")
		errc <- st.SendPacket(w.Bytes())
	}()

	err := userauth.Authenticate(ct, "alice", []byte("session-id"), []userauth.Method{
		userauth.PasswordMethod{Password: "old"},
	})
	assert.ErrorIs(t, err, userauth.ErrPasswordChangeRequired)
	require.NoError(t, <-errc)
}

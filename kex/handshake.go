package kex

import (
	"fmt"

	"github.com/riglite/sshcore/cipher"
	"github.com/riglite/sshcore/hostkey"
	"github.com/riglite/sshcore/pubkey"
	"github.com/riglite/sshcore/transport"
	"github.com/riglite/sshcore/wire"
)

// Result is what a completed handshake (initial or rekey) hands back to
// the caller. SessionID never changes across rekeys (spec.md §4.3): it is
// frozen at the first exchange hash and threaded through every later
// publickey-authentication signature and every later rekey's key
// derivation.
type Result struct {
	SessionID  []byte
	Negotiated *Negotiated
	HostKey    pubkey.PublicKey
}

// Handshake runs one full key-exchange round over t: KEXINIT exchange,
// algorithm negotiation, the negotiated method's exchange, host-key
// verification, NEWKEYS, and cipher installation. Pass prevSessionID as
// nil for the initial handshake; for a rekey, pass the SessionID from the
// previous Result so it carries forward unchanged. peerInitPayload, when
// non-nil, is a KEXINIT payload already read by the caller (the common
// case for a peer-initiated rekey observed inside a transport.Handler,
// where Transport.Run already consumed it before invoking the handler);
// when nil, Handshake reads it itself (the initial, client-initiated
// handshake, run before Transport.Run is ever started).
func Handshake(t *transport.Transport, verifier hostkey.Verifier, host string, algos Algorithms, prevSessionID []byte, peerInitPayload []byte) (*Result, error) {
	local := NewClientInit(algos.Kex, algos.HostKey, algos.Ciphers, algos.MACs, algos.Compression)
	localPayload := local.Marshal()
	if err := t.SendPacket(localPayload); err != nil {
		return nil, err
	}

	if peerInitPayload == nil {
		var err error
		peerInitPayload, err = readControlTolerant(t)
		if err != nil {
			return nil, err
		}
	}
	peer, err := ParseInitMsg(peerInitPayload)
	if err != nil {
		return nil, err
	}

	negotiated, err := Negotiate(local, peer)
	if err != nil {
		return nil, err
	}

	vc := t.ClientVersion
	vs := t.ServerVersion

	send := t.SendPacket
	receive := func() ([]byte, error) { return readControlTolerant(t) }

	var res *result
	switch negotiated.Kex {
	case cipher.KexCurve25519SHA256, cipher.KexCurve25519SHA256LibSSH:
		res, err = runCurve25519(send, receive, vc, vs, localPayload, peerInitPayload)
	case cipher.KexDHGroup14SHA256:
		res, err = runDHGroup14(send, receive, vc, vs, localPayload, peerInitPayload)
	default:
		return nil, cipher.ErrUnknownAlgorithm
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKexFailure, err)
	}

	hostKey, err := pubkey.Parse(res.HostKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKexFailure, err)
	}
	if err := verifier.Verify(host, hostKey); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKexFailure, err)
	}
	if err := hostKey.Verify(res.H, res.Signature); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKexFailure, err)
	}

	sessionID := prevSessionID
	if sessionID == nil {
		sessionID = res.H
	}

	if err := t.SendPacket([]byte{msgNewKeys}); err != nil {
		return nil, err
	}
	writeSpec, err := deriveCipherSpec(negotiated, true, res, sessionID)
	if err != nil {
		return nil, err
	}
	if err := t.SetWriteKeys(writeSpec); err != nil {
		return nil, err
	}

	newKeysPayload, err := receive()
	if err != nil {
		return nil, err
	}
	if len(newKeysPayload) == 0 || newKeysPayload[0] != msgNewKeys {
		return nil, fmt.Errorf("kex: expected NEWKEYS, got message %v", newKeysPayload)
	}
	readSpec, err := deriveCipherSpec(negotiated, false, res, sessionID)
	if err != nil {
		return nil, err
	}
	if err := t.SetReadKeys(readSpec); err != nil {
		return nil, err
	}

	return &Result{SessionID: sessionID, Negotiated: negotiated, HostKey: hostKey}, nil
}

// readControlTolerant reads the next packet, silently absorbing IGNORE,
// DEBUG and UNIMPLEMENTED, and turning a received DISCONNECT into an
// error, since Transport.Run is not yet looping during the handshake that
// calls this (or, for a rekey, is blocked inside the handler that called
// Handshake).
func readControlTolerant(t *transport.Transport) ([]byte, error) {
	for {
		payload, err := t.ReceivePacket()
		if err != nil {
			return nil, err
		}
		if len(payload) == 0 {
			continue
		}
		switch payload[0] {
		case transport.MsgIgnore, transport.MsgUnimplemented:
			continue
		case transport.MsgDebug:
			continue
		case transport.MsgDisconnect:
			r := wire.NewReader(payload[1:])
			reason, _ := r.GetU32()
			desc, _ := r.GetString()
			return nil, fmt.Errorf("kex: peer disconnected (reason %d): %s", reason, desc)
		default:
			return payload, nil
		}
	}
}

// deriveCipherSpec derives one direction's key material from the exchange
// result and negotiated algorithms. forWrite selects the client-to-server
// (our send) letters and algorithm names; otherwise server-to-client.
func deriveCipherSpec(n *Negotiated, forWrite bool, res *result, sessionID []byte) (transport.CipherSpec, error) {
	cipherName := n.CipherServerToClient
	macName := n.MACServerToClient
	ivLetter := byte(cipher.LetterIVServerToClient)
	encLetter := byte(cipher.LetterEncKeyServerToClient)
	intLetter := byte(cipher.LetterIntegrityKeyServerToClient)
	if forWrite {
		cipherName = n.CipherClientToServer
		macName = n.MACClientToServer
		ivLetter = cipher.LetterIVClientToServer
		encLetter = cipher.LetterEncKeyClientToServer
		intLetter = cipher.LetterIntegrityKeyClientToServer
	}

	spec := transport.CipherSpec{CipherName: cipherName, MACName: macName}

	if cipher.IsAEAD(cipherName) {
		spec.Key = cipher.DeriveKey(res.NewHash, res.K, res.H, encLetter, sessionID, cipher.ChaCha20Poly1305KeySize)
		return spec, nil
	}

	info, ok := cipher.LookupCipher(cipherName)
	if !ok {
		return spec, cipher.ErrUnknownAlgorithm
	}
	macInfo, ok := cipher.LookupMAC(macName)
	if !ok {
		return spec, cipher.ErrUnknownAlgorithm
	}

	spec.IV = cipher.DeriveKey(res.NewHash, res.K, res.H, ivLetter, sessionID, info.IVSize)
	spec.Key = cipher.DeriveKey(res.NewHash, res.K, res.H, encLetter, sessionID, info.KeySize)
	spec.MACKey = cipher.DeriveKey(res.NewHash, res.K, res.H, intLetter, sessionID, macInfo.KeySize)
	return spec, nil
}

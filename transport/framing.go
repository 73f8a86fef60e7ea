package transport

import (
	"encoding/binary"
	"fmt"
	"io"
)

const minPadding = 4

// SendPacket frames and writes one SSH packet carrying payload. It is safe
// for concurrent use; callers are serialized on writeMu so no packet is
// ever partially written, satisfying spec.md §5's single-serialization-
// point requirement for the send direction.
func (t *Transport) SendPacket(payload []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := t.Broken(); err != nil {
		return err
	}

	framed, err := t.frameAndEncrypt(payload)
	if err != nil {
		return t.fail(err)
	}
	if _, err := t.conn.Write(framed); err != nil {
		return t.fail(fmt.Errorf("%w: %w", ErrIoBroken, err))
	}

	t.write.seqNum++
	t.write.bytes += uint64(len(framed))
	return nil
}

func (t *Transport) frameAndEncrypt(payload []byte) ([]byte, error) {
	blockSize := t.write.blockSize
	if blockSize < 8 {
		blockSize = 8
	}

	if t.write.aead != nil {
		return t.sealAEAD(payload, blockSize)
	}
	return t.encryptAndMAC(payload, blockSize)
}

// plain, unencrypted framing: packet_length(4) | padding_length(1) |
// payload | padding, where the whole thing (minus the length field itself
// for AEAD, including it for CTR+HMAC) is a multiple of blockSize and
// padding is at least minPadding bytes.
func framedLength(payloadLen, blockSize int, lengthFieldCounts bool) (packetLen, paddingLen int) {
	base := 1 + payloadLen // padding_length byte + payload
	if lengthFieldCounts {
		base += 4
	}
	paddingLen = blockSize - (base % blockSize)
	if paddingLen < minPadding {
		paddingLen += blockSize
	}
	packetLen = 1 + payloadLen + paddingLen
	return
}

func (t *Transport) encryptAndMAC(payload []byte, blockSize int) ([]byte, error) {
	packetLen, paddingLen := framedLength(len(payload), blockSize, true)

	buf := make([]byte, 4+packetLen)
	binary.BigEndian.PutUint32(buf[0:4], uint32(packetLen))
	buf[4] = byte(paddingLen)
	copy(buf[5:], payload)
	randomBytes(buf[5+len(payload):])

	var macTag []byte
	if t.write.mac != nil {
		macTag = computeMAC(t.write.mac, t.write.seqNum, buf)
	}

	if t.write.stream != nil {
		t.write.stream.XORKeyStream(buf, buf)
	}

	if macTag != nil {
		buf = append(buf, macTag...)
	}
	return buf, nil
}

func (t *Transport) sealAEAD(payload []byte, blockSize int) ([]byte, error) {
	packetLen, paddingLen := framedLength(len(payload), blockSize, false)

	var lengthField [4]byte
	binary.BigEndian.PutUint32(lengthField[:], uint32(packetLen))

	body := make([]byte, 1+len(payload)+paddingLen)
	body[0] = byte(paddingLen)
	copy(body[1:], payload)
	randomBytes(body[1+len(payload):])

	encLength, err := t.write.aead.CryptLength(t.write.seqNum, lengthField)
	if err != nil {
		return nil, err
	}
	sealed, err := t.write.aead.Seal(t.write.seqNum, encLength, body)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 4+len(sealed))
	copy(out[:4], encLength[:])
	copy(out[4:], sealed)
	return out, nil
}

func computeMAC(m *macState, seqNum uint32, unencryptedPacket []byte) []byte {
	h := m.info.New(m.key)
	var seq [4]byte
	binary.BigEndian.PutUint32(seq[:], seqNum)
	h.Write(seq[:])
	h.Write(unencryptedPacket)
	return h.Sum(nil)
}

// ReceivePacket blocks until one full packet has been framed off the wire,
// decrypts and authenticates it, and returns its payload (padding and the
// padding-length byte stripped). A MAC or tag mismatch is fatal: per
// spec.md §9 this sends a best-effort DISCONNECT before the error is
// returned to the caller.
func (t *Transport) ReceivePacket() ([]byte, error) {
	t.readMu.Lock()
	defer t.readMu.Unlock()

	if err := t.Broken(); err != nil {
		return nil, err
	}

	var payload []byte
	var err error
	if t.read.aead != nil {
		payload, err = t.receiveAEAD()
	} else {
		payload, err = t.receivePlain()
	}
	if err != nil {
		if err == ErrMacError { //nolint:errorlint // sentinel comparison by design
			t.sendDisconnectBestEffort(DisconnectMACError, "MAC verification failed")
		}
		return nil, t.fail(err)
	}

	t.read.seqNum++
	t.read.bytes += uint64(len(payload))
	return payload, nil
}

func (t *Transport) receivePlain() ([]byte, error) {
	blockSize := t.read.blockSize
	if blockSize < 8 {
		blockSize = 8
	}

	firstBlock := make([]byte, blockSize)
	if _, err := io.ReadFull(t.reader, firstBlock); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIoBroken, err)
	}

	decryptedFirst := make([]byte, blockSize)
	if t.read.stream != nil {
		t.read.stream.XORKeyStream(decryptedFirst, firstBlock)
	} else {
		copy(decryptedFirst, firstBlock)
	}

	packetLen := binary.BigEndian.Uint32(decryptedFirst[:4])
	if packetLen < 1 || packetLen > 256*1024 {
		return nil, ErrMalformedField
	}

	remaining := int(packetLen) - (blockSize - 4)
	macSize := 0
	if t.read.mac != nil {
		macSize = t.read.mac.info.Size
	}
	rest := make([]byte, remaining+macSize)
	if remaining+macSize > 0 {
		if _, err := io.ReadFull(t.reader, rest); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIoBroken, err)
		}
	}

	cipherRest := rest[:remaining]
	macTag := rest[remaining:]

	decryptedRest := make([]byte, len(cipherRest))
	if t.read.stream != nil {
		t.read.stream.XORKeyStream(decryptedRest, cipherRest)
	} else {
		copy(decryptedRest, cipherRest)
	}

	unencrypted := append(append([]byte{}, decryptedFirst...), decryptedRest...)
	unencrypted = unencrypted[:4+packetLen]

	if t.read.mac != nil {
		want := computeMAC(t.read.mac, t.read.seqNum, unencrypted)
		if !constantTimeEqual(want, macTag) {
			return nil, ErrMacError
		}
	}

	paddingLen := int(unencrypted[4])
	payloadLen := int(packetLen) - 1 - paddingLen
	if payloadLen < 0 || 5+payloadLen > len(unencrypted) {
		return nil, ErrMalformedField
	}
	return unencrypted[5 : 5+payloadLen], nil
}

func (t *Transport) receiveAEAD() ([]byte, error) {
	var encLength [4]byte
	if _, err := io.ReadFull(t.reader, encLength[:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIoBroken, err)
	}

	lengthField, err := t.read.aead.CryptLength(t.read.seqNum, encLength)
	if err != nil {
		return nil, err
	}
	packetLen := binary.BigEndian.Uint32(lengthField[:])
	if packetLen < 1 || packetLen > 256*1024 {
		return nil, ErrMalformedField
	}

	sealed := make([]byte, int(packetLen)+t.read.aead.Overhead())
	if _, err := io.ReadFull(t.reader, sealed); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIoBroken, err)
	}

	body, err := t.read.aead.Open(t.read.seqNum, encLength, sealed)
	if err != nil {
		return nil, ErrMacError
	}

	paddingLen := int(body[0])
	payloadLen := len(body) - 1 - paddingLen
	if payloadLen < 0 {
		return nil, ErrMalformedField
	}
	return body[1 : 1+payloadLen], nil
}

func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var v byte
	for i := range a {
		v |= a[i] ^ b[i]
	}
	return v == 0
}

func (t *Transport) sendDisconnectBestEffort(reason uint32, msg string) {
	w := newDisconnectPayload(reason, msg)
	// Deliberately ignores the error: by the time this runs the connection
	// is already considered broken, this is purely a courtesy to the peer.
	_ = t.sendRawBestEffort(w)
}

// sendRawBestEffort frames and writes payload without touching sequence
// counters or the broken state, for use after the transport has already
// decided to terminate.
func (t *Transport) sendRawBestEffort(payload []byte) error {
	framed, err := t.frameAndEncrypt(payload)
	if err != nil {
		return err
	}
	_, err = t.conn.Write(framed)
	return err
}

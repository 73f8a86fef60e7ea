// Package wire implements the SSH-2 primitive wire encoding (RFC 4251 §5):
// byte, boolean, uint32, string, mpint and name-list, plus a cursor-based
// reader that consumes them from a packet payload.
package wire

import (
	"math/big"

	"github.com/riglite/sshcore/errstring"
)

// ErrMalformedField is returned whenever a get operation would read past the
// end of the buffer, or a length prefix claims more bytes than remain.
var ErrMalformedField = errstring.New("wire: malformed field")

// Writer accumulates an SSH payload. The zero value is ready to use.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with buf pre-sized to size bytes of capacity.
func NewWriter(size int) *Writer {
	return &Writer{buf: make([]byte, 0, size)}
}

// Bytes returns the accumulated payload.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

// PutU8 appends a single byte.
func (w *Writer) PutU8(v byte) *Writer {
	w.buf = append(w.buf, v)
	return w
}

// PutBool appends a boolean as a single 0x00/0x01 byte.
func (w *Writer) PutBool(v bool) *Writer {
	if v {
		return w.PutU8(1)
	}
	return w.PutU8(0)
}

// PutU32 appends a big-endian uint32.
func (w *Writer) PutU32(v uint32) *Writer {
	w.buf = append(w.buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	return w
}

// PutU64 appends a big-endian uint64.
func (w *Writer) PutU64(v uint64) *Writer {
	return w.PutU32(uint32(v >> 32)).PutU32(uint32(v))
}

// PutBytes appends a length-prefixed byte string.
func (w *Writer) PutBytes(b []byte) *Writer {
	w.PutU32(uint32(len(b)))
	w.buf = append(w.buf, b...)
	return w
}

// PutString appends a length-prefixed UTF-8 string.
func (w *Writer) PutString(s string) *Writer {
	return w.PutBytes([]byte(s))
}

// PutRaw appends b without any length prefix, for padding and pre-framed
// sections.
func (w *Writer) PutRaw(b []byte) *Writer {
	w.buf = append(w.buf, b...)
	return w
}

// PutNameList appends a comma-joined, length-prefixed list of names.
func (w *Writer) PutNameList(names []string) *Writer {
	joined := joinNames(names)
	return w.PutString(joined)
}

// PutMpint appends n using the SSH signed mpint encoding: two's-complement,
// big-endian, minimal length, with a leading 0x00 byte inserted whenever the
// most significant bit of the first byte would otherwise be set on a
// non-negative value. Zero encodes as an empty string.
func (w *Writer) PutMpint(n *big.Int) *Writer {
	return w.PutBytes(MarshalMpint(n))
}

// MarshalMpint renders n in SSH mpint form without a length prefix.
func MarshalMpint(n *big.Int) []byte {
	if n.Sign() == 0 {
		return nil
	}
	if n.Sign() < 0 {
		// Two's-complement negative mpint: not used by any algorithm this
		// library implements (DH/curve25519 results and RSA components are
		// always non-negative), but encoded correctly for completeness.
		length := (n.BitLen() + 7) / 8
		if n.BitLen()%8 == 0 {
			length++
		}
		twos := new(big.Int).Lsh(big.NewInt(1), uint(length)*8)
		twos.Add(twos, n)
		b := leftPad(twos.Bytes(), length)
		if len(b) > 1 && b[0] == 0xff && b[1]&0x80 != 0 {
			b = b[1:]
		}
		return b
	}
	b := n.Bytes()
	if len(b) > 0 && b[0]&0x80 != 0 {
		out := make([]byte, len(b)+1)
		copy(out[1:], b)
		return out
	}
	return b
}

func leftPad(b []byte, length int) []byte {
	if len(b) >= length {
		return b[len(b)-length:]
	}
	out := make([]byte, length)
	copy(out[length-len(b):], b)
	return out
}

func joinNames(names []string) string {
	if len(names) == 0 {
		return ""
	}
	total := len(names) - 1
	for _, n := range names {
		total += len(n)
	}
	out := make([]byte, 0, total)
	for i, n := range names {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, n...)
	}
	return string(out)
}

// Reader consumes SSH primitive types from a fixed buffer in order,
// advancing an internal cursor. All Get* methods return ErrMalformedField
// when the remaining buffer is too short.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential decoding. buf is not copied; the
// caller must not mutate it while the Reader is in use.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.pos
}

// Rest returns a slice of every byte not yet consumed, without advancing
// the cursor.
func (r *Reader) Rest() []byte {
	return r.buf[r.pos:]
}

func (r *Reader) need(n int) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, ErrMalformedField
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// GetU8 reads a single byte.
func (r *Reader) GetU8() (byte, error) {
	b, err := r.need(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// GetBool reads a boolean: any non-zero byte is true.
func (r *Reader) GetBool() (bool, error) {
	b, err := r.GetU8()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

// GetU32 reads a big-endian uint32.
func (r *Reader) GetU32() (uint32, error) {
	b, err := r.need(4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

// GetU64 reads a big-endian uint64.
func (r *Reader) GetU64() (uint64, error) {
	hi, err := r.GetU32()
	if err != nil {
		return 0, err
	}
	lo, err := r.GetU32()
	if err != nil {
		return 0, err
	}
	return uint64(hi)<<32 | uint64(lo), nil
}

// GetBytesN reads exactly n raw bytes with no length prefix, for
// fixed-size fields such as the KEXINIT cookie. The returned slice aliases
// the Reader's backing buffer.
func (r *Reader) GetBytesN(n int) ([]byte, error) {
	return r.need(n)
}

// GetBytes reads a length-prefixed byte string. The returned slice aliases
// the Reader's backing buffer.
func (r *Reader) GetBytes() ([]byte, error) {
	n, err := r.GetU32()
	if err != nil {
		return nil, err
	}
	return r.need(int(n))
}

// GetString reads a length-prefixed UTF-8 string.
func (r *Reader) GetString() (string, error) {
	b, err := r.GetBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// GetNameList reads a length-prefixed comma-separated name list. An empty
// list encodes as a zero-length string and decodes to a nil slice.
func (r *Reader) GetNameList() ([]string, error) {
	s, err := r.GetString()
	if err != nil {
		return nil, err
	}
	if s == "" {
		return nil, nil
	}
	return splitNames(s), nil
}

func splitNames(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

// GetMpint reads an SSH mpint and returns it as a big.Int. Only
// non-negative values are supported on decode, matching every algorithm
// this library negotiates.
func (r *Reader) GetMpint() (*big.Int, error) {
	b, err := r.GetBytes()
	if err != nil {
		return nil, err
	}
	n := new(big.Int)
	if len(b) == 0 {
		return n, nil
	}
	if b[0]&0x80 != 0 {
		return nil, ErrMalformedField
	}
	n.SetBytes(b)
	return n, nil
}

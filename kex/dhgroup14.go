package kex

import (
	"crypto/rand"
	"math/big"
	"sync"

	"github.com/riglite/sshcore/errstring"
	"github.com/riglite/sshcore/wire"
)

// ErrDHOutOfBounds is returned when the peer's DH public value f falls
// outside (0, p), the RFC 4253 §8 validity check.
var ErrDHOutOfBounds = errstring.New("kex: diffie-hellman public value out of bounds")

// group14Prime is the 2048-bit MODP group (RFC 3526 Group 14) RFC 4253 §8
// names for diffie-hellman-group14-sha256, generator 2.
var (
	group14Once  sync.Once
	group14Prime *big.Int
)

func dhGroup14() *big.Int {
	group14Once.Do(func() {
		group14Prime, _ = new(big.Int).SetString(
			"FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD129024E088A67CC74020BBEA63B139B22514A08798E3404DDEF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7EDEE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3DC2007CB8A163BF0598DA48361C55D39A69163FA8FD24CF5F83655D23DCA3AD961C62F356208552BB9ED529077096966D670C354E4ABC9804F1746C08CA18217C32905E462E36CE3BE39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9DE2BCBF6955817183995497CEA956AE515D2261898FA051015728E5A8AACAA68FFFFFFFFFFFFFFFF",
			16)
	})
	return group14Prime
}

func kexDHInitPayload(e *big.Int) []byte {
	enc := mpintBytes(e)
	w := wire.NewWriter(1 + len(enc))
	w.PutU8(msgKexDHInit)
	w.PutRaw(enc)
	return w.Bytes()
}

func parseDHReply(payload []byte) (hostKey []byte, f *big.Int, sig []byte, err error) {
	r := wire.NewReader(payload[1:])
	if hostKey, err = r.GetBytes(); err != nil {
		return
	}
	if f, err = r.GetMpint(); err != nil {
		return
	}
	sig, err = r.GetBytes()
	return
}

// runDHGroup14 drives the diffie-hellman-group14-sha256 client side.
func runDHGroup14(send func([]byte) error, receive func() ([]byte, error), vc, vs, ic, is []byte) (*result, error) {
	p := dhGroup14()
	g := big.NewInt(2)

	x, err := rand.Int(rand.Reader, new(big.Int).Sub(p, big.NewInt(1)))
	if err != nil {
		return nil, err
	}
	x.Add(x, big.NewInt(1)) // x in [1, p-1]
	e := new(big.Int).Exp(g, x, p)

	if err := send(kexDHInitPayload(e)); err != nil {
		return nil, err
	}
	payload, err := receive()
	if err != nil {
		return nil, err
	}
	hostKey, f, sig, err := parseDHReply(payload)
	if err != nil {
		return nil, err
	}
	if f.Sign() <= 0 || f.Cmp(p) >= 0 {
		return nil, ErrDHOutOfBounds
	}

	k := new(big.Int).Exp(f, x, p)
	kEncoded := mpintBytes(k)

	h := buildExchangeHash(sha256Hash, vc, vs, ic, is, hostKey, mpintBytes(e), mpintBytes(f), kEncoded)

	return &result{H: h, K: kEncoded, HostKey: hostKey, Signature: sig, NewHash: sha256Hash}, nil
}

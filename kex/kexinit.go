package kex

import (
	"crypto/rand"

	"github.com/riglite/sshcore/wire"
)

// InitMsg is the algorithm-negotiation record (spec.md §3): ten ordered
// name-lists plus the first_kex_packet_follows flag and the RFC 4253 §7.1
// cookie.
type InitMsg struct {
	Cookie                  [16]byte
	KexAlgos                []string
	ServerHostKeyAlgos      []string
	CiphersClientServer     []string
	CiphersServerClient     []string
	MACsClientServer        []string
	MACsServerClient        []string
	CompressionClientServer []string
	CompressionServerClient []string
	LanguagesClientServer   []string
	LanguagesServerClient   []string
	FirstKexPacketFollows   bool
}

// NewClientInit builds a KEXINIT from the given name-lists, using each
// cipher, MAC and compression list for both directions and leaving the
// language lists empty, with a freshly generated cookie.
func NewClientInit(kexAlgos, hostKeyAlgos, ciphers, macs, compression []string) *InitMsg {
	m := &InitMsg{
		KexAlgos:                kexAlgos,
		ServerHostKeyAlgos:      hostKeyAlgos,
		CiphersClientServer:     ciphers,
		CiphersServerClient:     ciphers,
		MACsClientServer:        macs,
		MACsServerClient:        macs,
		CompressionClientServer: compression,
		CompressionServerClient: compression,
	}
	_, _ = rand.Read(m.Cookie[:])
	return m
}

// Marshal renders the full SSH_MSG_KEXINIT payload, including its leading
// message number.
func (m *InitMsg) Marshal() []byte {
	w := wire.NewWriter(256)
	w.PutU8(msgKexInit)
	w.PutRaw(m.Cookie[:])
	w.PutNameList(m.KexAlgos)
	w.PutNameList(m.ServerHostKeyAlgos)
	w.PutNameList(m.CiphersClientServer)
	w.PutNameList(m.CiphersServerClient)
	w.PutNameList(m.MACsClientServer)
	w.PutNameList(m.MACsServerClient)
	w.PutNameList(m.CompressionClientServer)
	w.PutNameList(m.CompressionServerClient)
	w.PutNameList(m.LanguagesClientServer)
	w.PutNameList(m.LanguagesServerClient)
	w.PutBool(m.FirstKexPacketFollows)
	w.PutU32(0) // reserved
	return w.Bytes()
}

// ParseInitMsg decodes a KEXINIT payload (with its leading message number
// already present at payload[0]).
func ParseInitMsg(payload []byte) (*InitMsg, error) {
	r := wire.NewReader(payload[1:])
	m := &InitMsg{}

	cookie, err := r.GetBytesN(16)
	if err != nil {
		return nil, err
	}
	copy(m.Cookie[:], cookie)

	fields := []*[]string{
		&m.KexAlgos, &m.ServerHostKeyAlgos,
		&m.CiphersClientServer, &m.CiphersServerClient,
		&m.MACsClientServer, &m.MACsServerClient,
		&m.CompressionClientServer, &m.CompressionServerClient,
		&m.LanguagesClientServer, &m.LanguagesServerClient,
	}
	for _, f := range fields {
		list, err := r.GetNameList()
		if err != nil {
			return nil, err
		}
		*f = list
	}

	follows, err := r.GetBool()
	if err != nil {
		return nil, err
	}
	m.FirstKexPacketFollows = follows
	return m, nil
}

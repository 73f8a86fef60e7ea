package kex

import "github.com/riglite/sshcore/cipher"

// Algorithms is the set of algorithm name-lists a client offers in its
// KEXINIT. A Session built from session.Config may narrow any of these
// lists; empty fields fall back to this library's full catalog via
// ResolveAlgorithms.
type Algorithms struct {
	Kex         []string
	HostKey     []string
	Ciphers     []string
	MACs        []string
	Compression []string
}

// DefaultAlgorithms returns the library's full supported catalog, in
// preference order, for every name-list.
func DefaultAlgorithms() Algorithms {
	return Algorithms{
		Kex:         cipher.SupportedKex,
		HostKey:     cipher.SupportedHostKey,
		Ciphers:     cipher.SupportedCiphers,
		MACs:        cipher.SupportedMACs,
		Compression: cipher.SupportedCompression,
	}
}

// ResolveAlgorithms fills any empty list in want with the library default,
// letting a caller override only the lists it cares about (spec.md §6's
// Config.KexAlgorithms/CipherAlgorithms/MACAlgorithms fields).
func ResolveAlgorithms(want Algorithms) Algorithms {
	def := DefaultAlgorithms()
	if len(want.Kex) == 0 {
		want.Kex = def.Kex
	}
	if len(want.HostKey) == 0 {
		want.HostKey = def.HostKey
	}
	if len(want.Ciphers) == 0 {
		want.Ciphers = def.Ciphers
	}
	if len(want.MACs) == 0 {
		want.MACs = def.MACs
	}
	if len(want.Compression) == 0 {
		want.Compression = def.Compression
	}
	return want
}

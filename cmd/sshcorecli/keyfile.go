package main

import (
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/riglite/sshcore/pubkey"
)

// loadSigner reads a PEM-encoded PKCS8 or PKCS1 private key from path and
// wraps it in the matching pubkey.Signer. Nothing in the pubkey package
// parses key files (it only parses the wire-format blobs already
// negotiated on the connection), so this is hand-rolled against the
// standard library: no library in the example pack decodes an SSH-native
// private key file without pulling in golang.org/x/crypto/ssh, which this
// project deliberately does not depend on (DESIGN.md).
func loadSigner(path string) (pubkey.Signer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("keyfile: %s: no PEM block found", path)
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		return signerFor(key)
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return pubkey.NewRSASigner(key), nil
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		_ = key
		return nil, fmt.Errorf("keyfile: %s: EC keys are not supported", path)
	}
	return nil, fmt.Errorf("keyfile: %s: unrecognized private key format", path)
}

func signerFor(key any) (pubkey.Signer, error) {
	switch k := key.(type) {
	case ed25519.PrivateKey:
		return pubkey.NewEd25519Signer(k), nil
	case *rsa.PrivateKey:
		return pubkey.NewRSASigner(k), nil
	default:
		return nil, fmt.Errorf("keyfile: unsupported key type %T", key)
	}
}

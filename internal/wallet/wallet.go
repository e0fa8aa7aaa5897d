// Package wallet owns the node operator's private key: a single
// hex-encoded secp256k1 scalar persisted as one line in a file,
// generated on first run and read once at startup thereafter — spec
// §4.A/§6's "out-of-core collaborator", adapted from the teacher's
// internal/wallet key-generation idiom onto the decred secp256k1/DER
// stack internal/cryptoutil already wraps.
package wallet

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/duskline/duskchain/internal/cryptoutil"
)

// Wallet holds one operator's private key and its derived address for
// the lifetime of a node process.
type Wallet struct {
	privKey string
	address string
}

// Load reads the private key at path, generating and persisting a new
// one if the file does not yet exist. The file holds exactly one line:
// the hex-encoded private key.
func Load(path string) (*Wallet, error) {
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		return fromPrivKey(strings.TrimSpace(string(b)))
	case os.IsNotExist(err):
		return generate(path)
	default:
		return nil, fmt.Errorf("read private key file %s: %w", path, err)
	}
}

func generate(path string) (*Wallet, error) {
	priv, err := cryptoutil.GenPrivKey()
	if err != nil {
		return nil, fmt.Errorf("generate private key: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create wallet directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(priv+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("write private key file %s: %w", path, err)
	}
	return fromPrivKey(priv)
}

func fromPrivKey(priv string) (*Wallet, error) {
	addr, err := cryptoutil.PubFromPriv(priv)
	if err != nil {
		return nil, fmt.Errorf("derive address from private key: %w", err)
	}
	return &Wallet{privKey: priv, address: addr}, nil
}

// PrivateKey returns the hex-encoded private key, for signing.
func (w *Wallet) PrivateKey() string { return w.privKey }

// Address returns the wallet's public address.
func (w *Wallet) Address() string { return w.address }

// Package cryptoutil wraps the secp256k1 curve operations the ledger
// needs: keypair generation, DER ECDSA signing/verification, and the
// hashing/encoding helpers every other layer builds on.
package cryptoutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// AddressLen is the hex-encoded length of an uncompressed secp256k1
// public key: 1 prefix byte + 64 coordinate bytes, hex-doubled.
const AddressLen = 130

// GenPrivKey returns a new random private key, hex-encoded (32 bytes).
func GenPrivKey() (string, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return "", fmt.Errorf("generate private key: %w", err)
	}
	defer key.Zero()
	return hex.EncodeToString(key.Serialize()), nil
}

// PubFromPriv derives the hex-encoded, uncompressed-public-key address
// for a hex-encoded private key.
func PubFromPriv(privHex string) (string, error) {
	priv, err := parsePriv(privHex)
	if err != nil {
		return "", err
	}
	defer priv.Zero()
	return addressFromPub(priv.PubKey()), nil
}

func addressFromPub(pub *secp256k1.PublicKey) string {
	return hex.EncodeToString(pub.SerializeUncompressed())
}

func parsePriv(privHex string) (*secp256k1.PrivateKey, error) {
	b, err := hex.DecodeString(privHex)
	if err != nil || len(b) != 32 {
		return nil, fmt.Errorf("malformed private key")
	}
	return secp256k1.PrivKeyFromBytes(b), nil
}

// IsValidAddress checks the `04`-prefixed, 130-hex-char, uncompressed
// secp256k1 public key address predicate from spec §3.
func IsValidAddress(addr string) bool {
	if len(addr) != AddressLen {
		return false
	}
	if !strings.HasPrefix(addr, "04") {
		return false
	}
	if _, err := hex.DecodeString(addr); err != nil {
		return false
	}
	return true
}

// Sign signs msg (typically a transaction id) with privHex, returning a
// hex-encoded DER signature. Empty msg is signed as-is (coinbase inputs
// never call this — they carry an empty signature directly).
func Sign(privHex string, msg string) (string, error) {
	priv, err := parsePriv(privHex)
	if err != nil {
		return "", err
	}
	defer priv.Zero()
	h := sha256.Sum256([]byte(msg))
	sig := ecdsa.Sign(priv, h[:])
	return hex.EncodeToString(sig.Serialize()), nil
}

// Verify checks that sigHex is a valid DER signature over msg by the
// key behind address addr.
func Verify(addr string, msg string, sigHex string) bool {
	if !IsValidAddress(addr) {
		return false
	}
	pubBytes, err := hex.DecodeString(addr)
	if err != nil {
		return false
	}
	pub, err := secp256k1.ParsePubKey(pubBytes)
	if err != nil {
		return false
	}
	sigBytes, err := hex.DecodeString(sigHex)
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return false
	}
	h := sha256.Sum256([]byte(msg))
	return sig.Verify(h[:], pub)
}

// Sha256Hex returns the hex-encoded SHA-256 digest of data.
func Sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Sha256HexString is a convenience wrapper for string inputs.
func Sha256HexString(s string) string {
	return Sha256Hex([]byte(s))
}

// HexToBinary expands a hex string into its binary-digit representation,
// one '0'/'1' nibble run per hex character, most significant bit first.
func HexToBinary(hexStr string) (string, error) {
	var b strings.Builder
	for _, r := range hexStr {
		v, ok := new(big.Int).SetString(string(r), 16)
		if !ok {
			return "", fmt.Errorf("invalid hex digit %q", r)
		}
		nibble := v.Uint64()
		for i := 3; i >= 0; i-- {
			if nibble&(1<<uint(i)) != 0 {
				b.WriteByte('1')
			} else {
				b.WriteByte('0')
			}
		}
	}
	return b.String(), nil
}

// LeadingZeroBits returns the number of leading zero bits in the binary
// expansion of a hex-encoded hash.
func LeadingZeroBits(hexStr string) int {
	bin, err := HexToBinary(hexStr)
	if err != nil {
		return 0
	}
	n := 0
	for _, r := range bin {
		if r != '0' {
			break
		}
		n++
	}
	return n
}

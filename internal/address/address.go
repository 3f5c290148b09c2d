// Package address turns raw custody public key material into the
// chain's textual address form. Encoding is deterministic: one key, one
// address.
package address

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"

	"github.com/keyward/keyward/internal/custody"
)

// Normalize strips the gateway's one-byte format prefix and length
// checks the result. The prefix convention is a documented contract of
// the custody boundary; anything else is an upstream contract violation.
func Normalize(raw []byte) ([]byte, error) {
	if len(raw) != custody.RawPublicKeySize {
		return nil, fmt.Errorf("raw public key must be %d bytes, got %d", custody.RawPublicKeySize, len(raw))
	}
	if raw[0] != custody.FormatByte {
		return nil, fmt.Errorf("unexpected public key format byte 0x%02x", raw[0])
	}
	return raw[1:], nil
}

// Encode normalizes raw public key material and bech32-encodes it under
// the given human-readable prefix.
func Encode(hrp string, raw []byte) (string, error) {
	key, err := Normalize(raw)
	if err != nil {
		return "", err
	}

	converted, err := bech32.ConvertBits(key, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("failed to regroup key bits: %w", err)
	}

	addr, err := bech32.Encode(hrp, converted)
	if err != nil {
		return "", fmt.Errorf("failed to encode address: %w", err)
	}

	return addr, nil
}

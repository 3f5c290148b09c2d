// Package keypath builds hierarchical derivation paths for custodied
// sub-accounts. Paths are recomputed per request and never persisted.
package keypath

import (
	"fmt"
	"strings"
)

// Hardened is the BIP-32 hardened-index flag. Every segment of an
// account path is hardened: ed25519 derivation only supports hardened
// children.
const Hardened uint32 = 0x80000000

// Fixed account prefix: purpose 44' / coin type 1551'.
const (
	purposeIndex  = 44
	coinTypeIndex = 1551
)

// MaxKeyIndex is the largest key identifier that fits a hardened path
// segment.
const MaxKeyIndex = Hardened - 1

// DerivationPath is an ordered sequence of child indices identifying
// one key within the custody gateway's deterministic key tree.
type DerivationPath []uint32

// ForKey returns the derivation path for a key identifier: the fixed
// account prefix followed by the hardened key index. Deterministic; the
// validator guarantees keyID <= MaxKeyIndex before this is called.
func ForKey(keyID uint32) DerivationPath {
	return DerivationPath{
		purposeIndex | Hardened,
		coinTypeIndex | Hardened,
		keyID | Hardened,
	}
}

// String renders the path in the conventional m/44'/1551'/n' notation.
func (p DerivationPath) String() string {
	var b strings.Builder
	b.WriteString("m")
	for _, idx := range p {
		if idx&Hardened != 0 {
			fmt.Fprintf(&b, "/%d'", idx&^Hardened)
		} else {
			fmt.Fprintf(&b, "/%d", idx)
		}
	}
	return b.String()
}

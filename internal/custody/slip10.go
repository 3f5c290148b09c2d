package custody

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"fmt"

	"github.com/keyward/keyward/internal/keypath"
)

// SLIP-0010 ed25519 key derivation. Only hardened children exist for
// this curve, which is why keypath hardens every segment.

var masterKeyDomain = []byte("ed25519 seed")

// deriveSeed walks the path from the root seed and returns the 32-byte
// leaf seed. The returned slice is freshly allocated; callers zero it
// after use.
func deriveSeed(rootSeed []byte, path keypath.DerivationPath) ([]byte, error) {
	key, chainCode := masterKey(rootSeed)

	for i, index := range path {
		if index < keypath.Hardened {
			return nil, fmt.Errorf("segment %d (%d) is not hardened", i, index)
		}
		key, chainCode = childKey(key, chainCode, index)
	}

	return key, nil
}

// masterKey computes the SLIP-0010 master key and chain code.
func masterKey(seed []byte) (key, chainCode []byte) {
	mac := hmac.New(sha512.New, masterKeyDomain)
	mac.Write(seed)
	sum := mac.Sum(nil)
	return sum[:32], sum[32:]
}

// childKey computes one hardened derivation step:
// I = HMAC-SHA512(chainCode, 0x00 || key || ser32(index)).
func childKey(key, chainCode []byte, index uint32) (childKeyBytes, childChainCode []byte) {
	var indexBytes [4]byte
	binary.BigEndian.PutUint32(indexBytes[:], index)

	mac := hmac.New(sha512.New, chainCode)
	mac.Write([]byte{0x00})
	mac.Write(key)
	mac.Write(indexBytes[:])
	sum := mac.Sum(nil)

	return sum[:32], sum[32:]
}

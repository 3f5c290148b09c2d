// Package custody is the trusted key-custody boundary. It owns all
// long-lived key material: callers hand it a derivation path and get
// back either public key material or a single-use key pair. Raw private
// keys never leave this package except inside a KeyPair scoped to one
// signing operation.
package custody

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"sync"

	"github.com/keyward/keyward/internal/keypath"
)

const (
	// FormatByte is the prefix the gateway puts in front of every raw
	// public key it returns. Documented contract of this boundary:
	// consumers strip exactly one byte before use.
	FormatByte byte = 0x00

	// RawPublicKeySize is the length of gateway public key material,
	// format byte included.
	RawPublicKeySize = 1 + ed25519.PublicKeySize
)

// Gateway is the capability interface to the custody boundary. Both
// calls are suspension points: implementations may reach out to a
// remote key store.
type Gateway interface {
	// DerivePublicKey returns the raw public key material for a path,
	// format byte included.
	DerivePublicKey(ctx context.Context, path keypath.DerivationPath) ([]byte, error)

	// DeriveKeyPair returns the full key pair for a path. The caller
	// must call Destroy on the result as soon as the signing operation
	// completes, on every outcome.
	DeriveKeyPair(ctx context.Context, path keypath.DerivationPath) (*KeyPair, error)
}

// KeyPair holds key material for exactly one signing operation.
type KeyPair struct {
	// PublicKey is raw gateway material: format byte plus 32 key bytes.
	PublicKey []byte

	// PrivateKey is the expanded ed25519 private key. Transient; zeroed
	// by Destroy.
	PrivateKey ed25519.PrivateKey
}

// Destroy zeroes the private key material. Safe to call more than once.
func (kp *KeyPair) Destroy() {
	for i := range kp.PrivateKey {
		kp.PrivateKey[i] = 0
	}
	kp.PrivateKey = nil
}

// SeedGateway implements Gateway on top of a root seed obtained from a
// SeedProvider. The seed is fetched once, on first use; the provider
// decides where it actually lives (env, AWS KMS, Vault).
type SeedGateway struct {
	provider SeedProvider

	once sync.Once
	seed []byte
	err  error
}

// NewSeedGateway creates a gateway backed by the given seed provider.
func NewSeedGateway(provider SeedProvider) *SeedGateway {
	return &SeedGateway{provider: provider}
}

func (g *SeedGateway) rootSeed(ctx context.Context) ([]byte, error) {
	g.once.Do(func() {
		g.seed, g.err = g.provider.Seed(ctx)
		if g.err == nil && len(g.seed) == 0 {
			g.err = fmt.Errorf("seed provider %s returned an empty seed", g.provider.Provider())
		}
	})
	return g.seed, g.err
}

// DerivePublicKey derives the key pair for the path and returns only
// the public half, format byte included. The private half is destroyed
// before returning.
func (g *SeedGateway) DerivePublicKey(ctx context.Context, path keypath.DerivationPath) ([]byte, error) {
	kp, err := g.DeriveKeyPair(ctx, path)
	if err != nil {
		return nil, err
	}
	defer kp.Destroy()

	pub := make([]byte, len(kp.PublicKey))
	copy(pub, kp.PublicKey)
	return pub, nil
}

// DeriveKeyPair walks the hardened derivation path from the root seed
// and expands the leaf into an ed25519 key pair.
func (g *SeedGateway) DeriveKeyPair(ctx context.Context, path keypath.DerivationPath) (*KeyPair, error) {
	seed, err := g.rootSeed(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain root seed: %w", err)
	}

	leafSeed, err := deriveSeed(seed, path)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key at %s: %w", path, err)
	}

	priv := ed25519.NewKeyFromSeed(leafSeed)
	for i := range leafSeed {
		leafSeed[i] = 0
	}

	pub := make([]byte, 0, RawPublicKeySize)
	pub = append(pub, FormatByte)
	pub = append(pub, priv.Public().(ed25519.PublicKey)...)

	return &KeyPair{
		PublicKey:  pub,
		PrivateKey: priv,
	}, nil
}

var _ Gateway = (*SeedGateway)(nil)

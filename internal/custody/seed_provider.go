package custody

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	vault "github.com/hashicorp/vault/api"
)

// SeedProvider supplies the custody root seed. Different backends
// (local env, AWS KMS, HashiCorp Vault) implement this interface so the
// gateway does not care where the seed is kept.
type SeedProvider interface {
	// Seed returns the 32-byte root seed
	Seed(ctx context.Context) ([]byte, error)

	// Provider returns the provider name (e.g., "local", "aws-kms", "vault")
	Provider() string
}

// SeedProviderType represents supported seed providers
type SeedProviderType string

const (
	// SeedProviderLocal reads a hex seed from configuration
	// (development/simple deployments)
	SeedProviderLocal SeedProviderType = "local"

	// SeedProviderAWSKMS decrypts a KMS-encrypted seed ciphertext
	SeedProviderAWSKMS SeedProviderType = "aws-kms"

	// SeedProviderVault reads the seed from a Vault KV path
	SeedProviderVault SeedProviderType = "vault"
)

// seedSize is the required root seed length in bytes
const seedSize = 32

// SeedConfig contains configuration for seed providers
type SeedConfig struct {
	// Provider specifies which seed provider to use
	Provider string

	// Local provider config
	SeedHex string

	// AWS KMS config
	SeedCiphertextB64 string
	AWSKMSKeyID       string
	AWSKMSRegion      string

	// Vault config
	VaultAddress  string
	VaultToken    string
	VaultSeedPath string
}

// LocalSeedProvider reads the seed from a hex-encoded configuration
// value. Suitable for development only.
type LocalSeedProvider struct {
	seed []byte
}

// NewLocalSeedProvider creates a new local seed provider
func NewLocalSeedProvider(seedHex string) (*LocalSeedProvider, error) {
	if seedHex == "" {
		return nil, fmt.Errorf("seed is required for local seed provider")
	}

	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("seed must be hex-encoded: %w", err)
	}
	if len(seed) != seedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", seedSize, len(seed))
	}

	return &LocalSeedProvider{seed: seed}, nil
}

// Seed returns the configured seed
func (p *LocalSeedProvider) Seed(ctx context.Context) ([]byte, error) {
	return p.seed, nil
}

// Provider returns the provider name
func (p *LocalSeedProvider) Provider() string {
	return string(SeedProviderLocal)
}

// AWSKMSSeedProvider decrypts a KMS-encrypted seed ciphertext using AWS
// KMS. The plaintext seed only ever exists in this process's memory.
type AWSKMSSeedProvider struct {
	keyID      string
	ciphertext []byte
	client     *kms.Client
}

// NewAWSKMSSeedProvider creates a new AWS KMS seed provider
func NewAWSKMSSeedProvider(keyID, region, ciphertextB64 string) (*AWSKMSSeedProvider, error) {
	if keyID == "" {
		return nil, fmt.Errorf("AWS KMS key ID is required")
	}
	if region == "" {
		return nil, fmt.Errorf("AWS region is required")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return nil, fmt.Errorf("seed ciphertext must be base64-encoded: %w", err)
	}

	// Uses default credential chain: env vars, shared config, IAM role, etc.
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSKMSSeedProvider{
		keyID:      keyID,
		ciphertext: ciphertext,
		client:     kms.NewFromConfig(cfg),
	}, nil
}

// Seed decrypts and returns the root seed
func (p *AWSKMSSeedProvider) Seed(ctx context.Context) ([]byte, error) {
	output, err := p.client.Decrypt(ctx, &kms.DecryptInput{
		KeyId:          aws.String(p.keyID),
		CiphertextBlob: p.ciphertext,
	})
	if err != nil {
		return nil, fmt.Errorf("AWS KMS decrypt failed: %w", err)
	}

	if len(output.Plaintext) != seedSize {
		return nil, fmt.Errorf("decrypted seed must be %d bytes, got %d", seedSize, len(output.Plaintext))
	}

	return output.Plaintext, nil
}

// Provider returns the provider name
func (p *AWSKMSSeedProvider) Provider() string {
	return string(SeedProviderAWSKMS)
}

// VaultSeedProvider reads the seed from a HashiCorp Vault KV v2 path.
type VaultSeedProvider struct {
	seedPath string
	client   *vault.Client
}

// NewVaultSeedProvider creates a new Vault seed provider
func NewVaultSeedProvider(address, token, seedPath string) (*VaultSeedProvider, error) {
	if address == "" {
		return nil, fmt.Errorf("Vault address is required")
	}
	if token == "" {
		return nil, fmt.Errorf("Vault token is required")
	}
	if seedPath == "" {
		return nil, fmt.Errorf("Vault seed path is required")
	}

	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = address

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}

	client.SetToken(token)

	return &VaultSeedProvider{
		seedPath: seedPath,
		client:   client,
	}, nil
}

// Seed reads and returns the root seed from Vault
func (p *VaultSeedProvider) Seed(ctx context.Context) ([]byte, error) {
	secret, err := p.client.Logical().ReadWithContext(ctx, p.seedPath)
	if err != nil {
		return nil, fmt.Errorf("Vault read failed: %w", err)
	}

	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("Vault returned no data at %s", p.seedPath)
	}

	// KV v2 nests the payload under "data"
	data := secret.Data
	if nested, ok := data["data"].(map[string]interface{}); ok {
		data = nested
	}

	seedHex, ok := data["seed"].(string)
	if !ok {
		return nil, fmt.Errorf("Vault secret at %s has no 'seed' field", p.seedPath)
	}

	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("Vault seed is not hex-encoded: %w", err)
	}
	if len(seed) != seedSize {
		return nil, fmt.Errorf("Vault seed must be %d bytes, got %d", seedSize, len(seed))
	}

	return seed, nil
}

// Provider returns the provider name
func (p *VaultSeedProvider) Provider() string {
	return string(SeedProviderVault)
}

// NewSeedProvider creates a SeedProvider based on the configuration
func NewSeedProvider(cfg *SeedConfig) (SeedProvider, error) {
	provider := SeedProviderType(cfg.Provider)

	switch provider {
	case SeedProviderLocal, "": // Default to local
		return NewLocalSeedProvider(cfg.SeedHex)

	case SeedProviderAWSKMS:
		return NewAWSKMSSeedProvider(cfg.AWSKMSKeyID, cfg.AWSKMSRegion, cfg.SeedCiphertextB64)

	case SeedProviderVault:
		return NewVaultSeedProvider(cfg.VaultAddress, cfg.VaultToken, cfg.VaultSeedPath)

	default:
		return nil, fmt.Errorf("unsupported seed provider: %s (supported: %s, %s, %s)",
			provider, SeedProviderLocal, SeedProviderAWSKMS, SeedProviderVault)
	}
}

// Ensure providers implement SeedProvider
var (
	_ SeedProvider = (*LocalSeedProvider)(nil)
	_ SeedProvider = (*AWSKMSSeedProvider)(nil)
	_ SeedProvider = (*VaultSeedProvider)(nil)
)

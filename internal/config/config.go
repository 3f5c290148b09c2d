package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds infrastructure-level configuration for the signer
type Config struct {
	// Server
	Port int

	// Chain
	AddressHRP      string   // bech32 human-readable prefix for addresses
	AllowedChainIDs []uint64 // empty = all chains accepted

	// Custody backend
	CustodyBackend    string // local, aws-kms or vault
	SeedHex           string // local: hex-encoded 32-byte root seed
	SeedCiphertextB64 string // aws-kms: KMS-encrypted root seed, base64
	AWSKMSKeyID       string
	AWSKMSRegion      string
	VaultAddress      string
	VaultToken        string
	VaultSeedPath     string // vault: KV path holding the root seed

	// Confirmation gate
	GateMode string // terminal, approve or deny

	// Audit store (optional; empty DSN disables the audit trail)
	PostgresDSN string

	// Rate limiting
	RateLimitRPS     int
	RateLimitBurst   int
	RateLimitEnabled bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnvInt("PORT", 8080),
		AddressHRP:        getEnv("ADDRESS_HRP", "sov"),
		CustodyBackend:    getEnv("CUSTODY_BACKEND", "local"),
		SeedHex:           getEnv("CUSTODY_SEED_HEX", ""),
		SeedCiphertextB64: getEnv("CUSTODY_SEED_CIPHERTEXT", ""),
		AWSKMSKeyID:       getEnv("AWS_KMS_KEY_ID", ""),
		AWSKMSRegion:      getEnv("AWS_KMS_REGION", ""),
		VaultAddress:      getEnv("VAULT_ADDR", ""),
		VaultToken:        getEnv("VAULT_TOKEN", ""),
		VaultSeedPath:     getEnv("VAULT_SEED_PATH", "secret/data/keyward/seed"),
		GateMode:          getEnv("GATE_MODE", "terminal"),
		PostgresDSN:       getEnv("POSTGRES_DSN", ""),
		RateLimitRPS:      getEnvInt("RATE_LIMIT_RPS", 10),
		RateLimitBurst:    getEnvInt("RATE_LIMIT_BURST", 20),
		RateLimitEnabled:  getEnvBool("RATE_LIMIT_ENABLED", true),
	}

	chainIDs, err := parseChainIDs(getEnv("ALLOWED_CHAIN_IDS", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.AllowedChainIDs = chainIDs

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.AddressHRP == "" {
		return fmt.Errorf("ADDRESS_HRP cannot be empty")
	}

	switch c.CustodyBackend {
	case "local":
		if c.SeedHex == "" {
			return fmt.Errorf("CUSTODY_SEED_HEX is required when CUSTODY_BACKEND is 'local'")
		}
	case "aws-kms":
		if c.SeedCiphertextB64 == "" {
			return fmt.Errorf("CUSTODY_SEED_CIPHERTEXT is required when CUSTODY_BACKEND is 'aws-kms'")
		}
		if c.AWSKMSKeyID == "" {
			return fmt.Errorf("AWS_KMS_KEY_ID is required when CUSTODY_BACKEND is 'aws-kms'")
		}
		if c.AWSKMSRegion == "" {
			return fmt.Errorf("AWS_KMS_REGION is required when CUSTODY_BACKEND is 'aws-kms'")
		}
	case "vault":
		if c.VaultAddress == "" {
			return fmt.Errorf("VAULT_ADDR is required when CUSTODY_BACKEND is 'vault'")
		}
		if c.VaultToken == "" {
			return fmt.Errorf("VAULT_TOKEN is required when CUSTODY_BACKEND is 'vault'")
		}
	default:
		return fmt.Errorf("CUSTODY_BACKEND must be 'local', 'aws-kms' or 'vault', got: %s", c.CustodyBackend)
	}

	switch c.GateMode {
	case "terminal", "approve", "deny":
	default:
		return fmt.Errorf("GATE_MODE must be 'terminal', 'approve' or 'deny', got: %s", c.GateMode)
	}

	return nil
}

// parseChainIDs parses a comma-separated list of chain IDs
func parseChainIDs(s string) ([]uint64, error) {
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	ids := make([]uint64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ALLOWED_CHAIN_IDS contains invalid chain ID %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	valueStr = strings.ToLower(valueStr)
	return valueStr == "true" || valueStr == "1" || valueStr == "yes"
}

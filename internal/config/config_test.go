package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSeedHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CUSTODY_BACKEND", "local")
	t.Setenv("CUSTODY_SEED_HEX", testSeedHex)
	t.Setenv("GATE_MODE", "approve")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "sov", cfg.AddressHRP)
	assert.Equal(t, "local", cfg.CustodyBackend)
	assert.Empty(t, cfg.AllowedChainIDs)
	assert.Empty(t, cfg.PostgresDSN)
	assert.Equal(t, 10, cfg.RateLimitRPS)
	assert.Equal(t, 20, cfg.RateLimitBurst)
	assert.True(t, cfg.RateLimitEnabled)
}

func TestLoad_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("ADDRESS_HRP", "celestia")
	t.Setenv("ALLOWED_CHAIN_IDS", "1, 4321")
	t.Setenv("RATE_LIMIT_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "celestia", cfg.AddressHRP)
	assert.Equal(t, []uint64{1, 4321}, cfg.AllowedChainIDs)
	assert.False(t, cfg.RateLimitEnabled)
}

func TestLoad_InvalidChainIDs(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ALLOWED_CHAIN_IDS", "1,abc")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ALLOWED_CHAIN_IDS")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:           8080,
			AddressHRP:     "sov",
			CustodyBackend: "local",
			SeedHex:        testSeedHex,
			GateMode:       "terminal",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid local",
			mutate: func(c *Config) {},
		},
		{
			name: "valid aws-kms",
			mutate: func(c *Config) {
				c.CustodyBackend = "aws-kms"
				c.SeedCiphertextB64 = "Zm9v"
				c.AWSKMSKeyID = "alias/signer"
				c.AWSKMSRegion = "us-east-1"
			},
		},
		{
			name: "valid vault",
			mutate: func(c *Config) {
				c.CustodyBackend = "vault"
				c.VaultAddress = "http://127.0.0.1:8200"
				c.VaultToken = "root"
			},
		},
		{
			name:    "empty hrp",
			mutate:  func(c *Config) { c.AddressHRP = "" },
			wantErr: true,
			errMsg:  "ADDRESS_HRP",
		},
		{
			name:    "local without seed",
			mutate:  func(c *Config) { c.SeedHex = "" },
			wantErr: true,
			errMsg:  "CUSTODY_SEED_HEX",
		},
		{
			name: "aws-kms without ciphertext",
			mutate: func(c *Config) {
				c.CustodyBackend = "aws-kms"
				c.AWSKMSKeyID = "alias/signer"
				c.AWSKMSRegion = "us-east-1"
			},
			wantErr: true,
			errMsg:  "CUSTODY_SEED_CIPHERTEXT",
		},
		{
			name: "aws-kms without region",
			mutate: func(c *Config) {
				c.CustodyBackend = "aws-kms"
				c.SeedCiphertextB64 = "Zm9v"
				c.AWSKMSKeyID = "alias/signer"
			},
			wantErr: true,
			errMsg:  "AWS_KMS_REGION",
		},
		{
			name: "vault without token",
			mutate: func(c *Config) {
				c.CustodyBackend = "vault"
				c.VaultAddress = "http://127.0.0.1:8200"
			},
			wantErr: true,
			errMsg:  "VAULT_TOKEN",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.CustodyBackend = "hsm" },
			wantErr: true,
			errMsg:  "CUSTODY_BACKEND",
		},
		{
			name:    "unknown gate mode",
			mutate:  func(c *Config) { c.GateMode = "auto" },
			wantErr: true,
			errMsg:  "GATE_MODE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

package keypath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForKey(t *testing.T) {
	tests := []struct {
		name     string
		keyID    uint32
		expected DerivationPath
	}{
		{
			name:     "key zero",
			keyID:    0,
			expected: DerivationPath{44 | Hardened, 1551 | Hardened, 0 | Hardened},
		},
		{
			name:     "key one",
			keyID:    1,
			expected: DerivationPath{44 | Hardened, 1551 | Hardened, 1 | Hardened},
		},
		{
			name:     "max key index",
			keyID:    MaxKeyIndex,
			expected: DerivationPath{44 | Hardened, 1551 | Hardened, MaxKeyIndex | Hardened},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := ForKey(tt.keyID)
			assert.Equal(t, tt.expected, path)
		})
	}
}

func TestForKey_Deterministic(t *testing.T) {
	assert.Equal(t, ForKey(7), ForKey(7))
	assert.NotEqual(t, ForKey(7), ForKey(8))
}

func TestForKey_AllSegmentsHardened(t *testing.T) {
	path := ForKey(42)
	require.Len(t, path, 3)
	for i, idx := range path {
		assert.NotZero(t, idx&Hardened, "segment %d not hardened", i)
	}
}

func TestDerivationPath_String(t *testing.T) {
	tests := []struct {
		name     string
		path     DerivationPath
		expected string
	}{
		{
			name:     "account path",
			path:     ForKey(0),
			expected: "m/44'/1551'/0'",
		},
		{
			name:     "larger key index",
			path:     ForKey(12345),
			expected: "m/44'/1551'/12345'",
		},
		{
			name:     "empty path",
			path:     DerivationPath{},
			expected: "m",
		},
		{
			name:     "unhardened segment renders without apostrophe",
			path:     DerivationPath{44 | Hardened, 5},
			expected: "m/44'/5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.path.String())
		})
	}
}

package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "vestry/pkg/domain-errors"
)

const (
	validAccount  = "GA7QYNF7SOWQ3GLR2BGMZEHXAVIRZA4KVWLTJJFC7MGXUA74P7UJVSGZ"
	validContract = "CA7QYNF7SOWQ3GLR2BGMZEHXAVIRZA4KVWLTJJFC7MGXUA74P7UJUWDA"
)

// TestParsePrincipal_Invariants validates the parsing invariant:
// "principals must be strkey-shaped account or contract addresses".
func TestParsePrincipal_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParsePrincipal("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := ParsePrincipal("GABC")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects unsupported prefix", func(t *testing.T) {
		_, err := ParsePrincipal("S" + validAccount[1:])
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects lowercase", func(t *testing.T) {
		_, err := ParsePrincipal(strings.ToLower(validAccount))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts account address", func(t *testing.T) {
		p, err := ParsePrincipal(validAccount)
		require.NoError(t, err)
		assert.Equal(t, Principal(validAccount), p)
	})

	t.Run("accepts contract address", func(t *testing.T) {
		p, err := ParsePrincipal(validContract)
		require.NoError(t, err)
		assert.Equal(t, Principal(validContract), p)
	})
}

func TestParseAsset_Invariants(t *testing.T) {
	t.Run("accepts contract address", func(t *testing.T) {
		a, err := ParseAsset(validContract)
		require.NoError(t, err)
		assert.Equal(t, Asset(validContract), a)
	})

	t.Run("rejects account address", func(t *testing.T) {
		_, err := ParseAsset(validAccount)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

// TestTypeDistinction verifies the compiler enforces type safety.
// This is a compile-time check - if this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	principal := Principal(validAccount)
	asset := Asset(validContract)

	// These would fail to compile if types were interchangeable:
	// var _ Principal = asset   // compile error
	// var _ Asset = principal   // compile error

	assert.NotEqual(t, string(principal), string(asset))
}

// TestParsePrincipal_SecurityInvariants validates security-critical parsing
// rules: parsing must reject attack vectors at API entry points.
func TestParsePrincipal_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"SQL injection attempt", "'; DROP TABLE contributors;--"},
		{"Path traversal", "../../../etc/passwd"},
		{"Null byte injection", validAccount[:20] + "\x00" + validAccount[21:]},
		{"Oversized input", strings.Repeat("G", 1000)},
		{"Unicode zero-width space", validAccount[:20] + "​" + validAccount[21:]},
		{"Embedded newline", validAccount[:20] + "\n" + validAccount[21:]},
		{"Base32-invalid digits", strings.Replace(validAccount, "7", "1", -1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePrincipal(tt.input)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

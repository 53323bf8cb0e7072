package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservationUsernames(t *testing.T) {
	got := ReservationUsernames("101", 3)
	assert.Equal(t, []string{"R101-1", "R101-2", "R101-3"}, got)

	// Derivation is deterministic: revocation recomputes the same names
	// without consulting any store.
	assert.Equal(t, got, ReservationUsernames("101", 3))

	assert.Equal(t, []string{"R12A-1"}, ReservationUsernames("12A", 1))
}

func TestCustomerUsername(t *testing.T) {
	assert.Equal(t, "C550e8400", CustomerUsername("550e8400-e29b-41d4-a716-446655440000"))
	// Short IDs are used whole rather than padded.
	assert.Equal(t, "Cabc", CustomerUsername("abc"))
}

func TestNewSecret(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		s, err := NewSecret()
		require.NoError(t, err)
		assert.Len(t, s, SecretLength)
		for _, r := range s {
			assert.True(t, strings.ContainsRune(secretAlphabet, r), "unexpected rune %q", r)
		}
		seen[s] = true
	}
	// 50 draws from a 56^6 space colliding into one value would mean the
	// generator is broken.
	assert.Greater(t, len(seen), 1)
}

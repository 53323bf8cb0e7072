package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// secretAlphabet is the character set used for guest secrets.  Visually
// ambiguous characters (0/O, 1/I/l) are excluded because secrets are read
// to guests over the phone or printed on key-card sleeves.
const secretAlphabet = "abcdefghjkmnpqrstuvwxyzABCDEFGHJKMNPQRSTUVWXYZ23456789"

// SecretLength is the fixed length of generated guest secrets.  It is a
// policy constant, not derived from input.
const SecretLength = 6

// ReservationUsernames returns the deterministic usernames owned by a
// reservation: R{roomNumber}-{index} with index starting at 1.  The format
// is wire-compatible with the RADIUS accounts already deployed in the
// field and must not change.  The result depends only on the inputs, so
// the sweep can recompute the same set without consulting the mirror.
func ReservationUsernames(roomNumber string, guestCount int) []string {
	if guestCount < 1 {
		return []string{}
	}
	names := make([]string, 0, guestCount)
	for i := 1; i <= guestCount; i++ {
		names = append(names, fmt.Sprintf("R%s-%d", roomNumber, i))
	}
	return names
}

// CustomerUsername returns the username for a standalone customer account:
// the letter C followed by the first 8 characters of the customer's UUID.
// Customer IDs shorter than 8 characters are used whole.
func CustomerUsername(customerID string) string {
	if len(customerID) > 8 {
		customerID = customerID[:8]
	}
	return "C" + customerID
}

// NewSecret generates a random secret of SecretLength characters drawn
// uniformly from secretAlphabet using a cryptographically strong source.
// All guests of one reservation share a single secret, so the value must
// not be guessable from the usernames.
func NewSecret() (string, error) {
	max := big.NewInt(int64(len(secretAlphabet)))
	buf := make([]byte, SecretLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = secretAlphabet[n.Int64()]
	}
	return string(buf), nil
}

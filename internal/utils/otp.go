package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

// otpSpan is the size of the six-digit code space 100000..999999.
var otpSpan = big.NewInt(900000)

// GenerateOTP returns a uniformly random six-digit code drawn from a
// cryptographically secure source.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpan)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// NewResetTicket returns a random 32-byte ticket, hex encoded.  The raw value
// goes to the client; only HashTicket(raw) is persisted.
func NewResetTicket() (string, error) {
	return randomHex(32)
}

// HashTicket returns the SHA-256 of raw as a hex string.
func HashTicket(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// randomHex returns n bytes of secure random data, hex encoded.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// OTPDigits is the length of emailed verification codes.
const OTPDigits = 6

// GenerateOTP returns a zero-padded random numeric code.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", OTPDigits, n.Int64()), nil
}

// GenerateResetToken returns a 64-char hex token for password reset links.
func GenerateResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", b), nil
}

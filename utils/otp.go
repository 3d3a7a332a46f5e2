package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

// GenerateOTP returns a random four digit code, zero padded
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}

// OTPToken binds an OTP to the server secret so the client can echo it back
// without the server storing anything extra
func OTPToken(otp, secret string) string {
	sum := sha256.Sum256([]byte(otp + ":" + secret))
	return hex.EncodeToString(sum[:])
}

// EqualConstantTime compares two secrets without leaking timing
func EqualConstantTime(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

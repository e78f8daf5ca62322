package helpers

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// GenOTPCode generates a secure random 6-digit code as a zero-padded string
func GenOTPCode() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	// 6 digits: map random bytes to 000000-999999
	n := int(b[0])<<24 | int(b[1])<<16 | int(b[2])<<8 | int(b[3])
	if n < 0 {
		n = -n
	}
	code := n % 1000000
	return fmt.Sprintf("%06d", code), nil
}

// GenTokenString generates n random bytes encoded as a URL-safe string,
// used for verification and password-reset tokens.
func GenTokenString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenRecoveryCode generates a short one-time recovery code in the form
// XXXXX-XXXXX over an unambiguous alphabet.
func GenRecoveryCode() (string, error) {
	const alphabet = "abcdefghjkmnpqrstuvwxyz23456789"
	b := make([]byte, 10)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	out := make([]byte, 11)
	for i, c := range b {
		j := i
		if i >= 5 {
			j++
		}
		out[j] = alphabet[int(c)%len(alphabet)]
	}
	out[5] = '-'
	return string(out), nil
}

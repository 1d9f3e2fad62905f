package idgen

import (
	"crypto/rand"
	"fmt"
)

// GenerateSecureID generates a cryptographically secure ID with the given
// prefix and length. Uses only alphanumeric characters (0-9, a-z).
func GenerateSecureID(prefix string, length int) (string, error) {
	bytes := make([]byte, length*2)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	const charset = "0123456789abcdefghijklmnopqrstuvwxyz"
	encoded := make([]byte, length)
	for i := 0; i < length; i++ {
		encoded[i] = charset[bytes[i]%36]
	}

	return fmt.Sprintf("%s_%s", prefix, string(encoded)), nil
}

// GeneratePIN generates a numeric PIN of the given length.
func GeneratePIN(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	digits := make([]byte, length)
	for i := 0; i < length; i++ {
		digits[i] = '0' + bytes[i]%10
	}

	return string(digits), nil
}

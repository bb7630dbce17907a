package usecase

import (
	"crypto/rand"
	"io"
)

// generateAccessCode creates a secure, random, and human-readable code value.
// The character set avoids ambiguous characters like O/0, I/1, l. Uniqueness
// is NOT guaranteed here; callers verify against the store and retry.
func generateAccessCode() (string, error) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	const codeLength = 10

	buffer := make([]byte, codeLength)
	if _, err := io.ReadFull(rand.Reader, buffer); err != nil {
		return "", err
	}
	for i := 0; i < codeLength; i++ {
		buffer[i] = chars[int(buffer[i])%len(chars)]
	}
	return string(buffer), nil
}

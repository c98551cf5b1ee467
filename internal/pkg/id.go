package pkg

import (
	"crypto/rand"
	"fmt"
)

const (
	roomIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	roomIDLength   = 6
)

// GenerateRoomID - generates a short public room identifier.
func GenerateRoomID() (string, error) {
	b := make([]byte, roomIDLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	for i := range b {
		b[i] = roomIDAlphabet[int(b[i])%len(roomIDAlphabet)]
	}

	return string(b), nil
}

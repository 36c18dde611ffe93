package tool

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// GenerateRandomUUID returns the item handle used by the queue.
func GenerateRandomUUID() string {
	return uuid.New().String()
}

// GenerateShortID returns a short alphanumeric ID (8 chars) for log lines
// where a full UUID is just noise.
func GenerateShortID() string {
	b := make([]byte, 4) // 4 bytes = 8 hex chars
	if _, err := rand.Read(b); err != nil {
		return GenerateRandomUUID()[:8] // fallback
	}
	return hex.EncodeToString(b)
}

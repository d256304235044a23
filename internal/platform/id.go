package platform

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// APIKeyPrefix marks raw admin API keys so they are recognisable in logs and config files.
const APIKeyPrefix = "bgt_"

func NewID() string {
	return uuid.New().String()
}

// ParseSubscriptionID normalises an Azure subscription id to its canonical
// lower-case UUID form.
func ParseSubscriptionID(s string) (string, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid subscription id %q: %w", s, err)
	}
	return id.String(), nil
}

// NewAPIKey returns a random raw API key.
func NewAPIKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return APIKeyPrefix + hex.EncodeToString(b), nil
}

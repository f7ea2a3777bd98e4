package tool

import (
	"strings"

	"github.com/google/uuid"
)

func GenerateRandomUUID() string {
	return uuid.New().String()
}

// GenerateFingerprint returns a 32-character random station fingerprint.
func GenerateFingerprint() string {
	return strings.ReplaceAll(GenerateRandomUUID(), "-", "")
}

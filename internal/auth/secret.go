package auth

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MinSecretLength is the shortest accepted JWT secret in bytes
const MinSecretLength = 32

// LoadOrCreateSecret loads the JWT signing secret from path, creating a new
// random one if the file does not exist. The secret is stored base64 encoded
// and returned in that form.
func LoadOrCreateSecret(path string) (string, error) {
	// Attempt to read existing secret
	if data, err := os.ReadFile(path); err == nil {
		secret, err := parseSecretFile(data)
		if err != nil {
			return "", fmt.Errorf("invalid secret file %s: %w", path, err)
		}
		return secret, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read secret file %s: %w", path, err)
	}

	// Create directory in case it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("failed to create secret directory: %w", err)
	}

	key, err := GenerateAPIKey()
	if err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	secret := base64.StdEncoding.EncodeToString([]byte(key))

	if err := os.WriteFile(path, []byte(secret), 0o600); err != nil {
		return "", fmt.Errorf("failed to write secret file %s: %w", path, err)
	}
	return secret, nil
}

// parseSecretFile accepts any secret of at least MinSecretLength bytes.
func parseSecretFile(data []byte) (string, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return "", fmt.Errorf("secret file is empty")
	}
	if len(trimmed) < MinSecretLength {
		return "", fmt.Errorf("secret must be at least %d bytes", MinSecretLength)
	}
	return trimmed, nil
}

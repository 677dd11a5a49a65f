package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// GenerateSecureToken generates a cryptographically secure random token.
// Used for the instance id that owns this process's Redis distributed locks.
func GenerateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// ValidateEnvironment validates that required environment variables are set.
func ValidateEnvironment(requiredVars []string) error {
	if requiredVars == nil {
		requiredVars = []string{"JWT_SECRET", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME"}
	}

	var missing []string
	for _, varName := range requiredVars {
		if os.Getenv(varName) == "" {
			missing = append(missing, varName)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

func IsProductionEnvironment() bool {
	return strings.ToLower(os.Getenv("ENVIRONMENT")) == "production"
}

// ValidateSecretStrength checks that a signing secret is at least 32
// characters long and contains none of a fixed list of weak values.
func ValidateSecretStrength(secret, secretName string) error {
	if len(secret) < 32 {
		return fmt.Errorf("%s must be at least 32 characters long", secretName)
	}

	weakSecrets := []string{
		"your-super-secret-jwt-key-change-in-production",
		"your-secret-key",
		"password",
		"123456",
		"secret",
		"admin",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if strings.Contains(secretLower, weak) {
			return fmt.Errorf("%s contains weak or default value", secretName)
		}
	}
	return nil
}

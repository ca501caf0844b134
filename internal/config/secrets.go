package config

import (
	"os"
	"strings"
)

// GetSecret retrieves a secret with multiple fallback sources.
// Priority:
//  1. Direct environment variable (e.g., DB_PASSWORD)
//  2. File path from _FILE environment variable (e.g., DB_PASSWORD_FILE)
//  3. Default value
//
// Secrets mounted by the orchestrator (e.g. /run/secrets/db_password) are
// picked up through the _FILE form without exposing them in the environment.
func GetSecret(envVar, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}

	if filePath := os.Getenv(envVar + "_FILE"); filePath != "" {
		if data, err := os.ReadFile(filePath); err == nil {
			return strings.TrimSpace(string(data))
		}
	}

	return defaultValue
}

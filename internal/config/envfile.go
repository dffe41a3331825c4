package config

import (
	"fmt"

	"github.com/joho/godotenv"
)

// SaveCredentials persists the CIQ credential fields to the configured
// .env file so they survive a restart. Existing unrelated keys in the
// file are preserved.
func (c *Config) SaveCredentials() error {
	path := c.CIQ.EnvFile
	if path == "" {
		path = ".env"
	}

	env, err := godotenv.Read(path)
	if err != nil {
		// First save: start from an empty map.
		env = map[string]string{}
	}

	env["CIQ_USERNAME"] = c.CIQ.Username
	env["CIQ_PASSWORD"] = c.CIQ.Password
	env["CIQ_API_KEY"] = c.CIQ.APIKey
	env["CIQ_BASE_URL"] = c.CIQ.BaseURL

	if err := godotenv.Write(env, path); err != nil {
		return fmt.Errorf("failed to write credentials to %s: %w", path, err)
	}
	return nil
}

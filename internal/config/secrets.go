package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Secrets sensitive configuration loaded from the .secrets file
type Secrets struct {
	values map[string]string
}

// NewSecrets creates a new Secrets instance
func NewSecrets() *Secrets {
	return &Secrets{
		values: make(map[string]string),
	}
}

// SecretsPath returns the secrets file path
func SecretsPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ".secrets"), nil
}

// LoadSecrets loads KEY=VALUE pairs from the .secrets file.
// A missing or unreadable file yields empty secrets.
func LoadSecrets() (*Secrets, error) {
	secrets := NewSecrets()

	secretsPath, err := SecretsPath()
	if err != nil {
		return secrets, nil
	}

	if _, err := os.Stat(secretsPath); os.IsNotExist(err) {
		return secrets, nil
	}

	values, err := godotenv.Read(secretsPath)
	if err != nil {
		return secrets, err
	}
	for k, v := range values {
		secrets.values[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}

	return secrets, nil
}

// Get returns the value for a key
func (s *Secrets) Get(key string) string {
	if s == nil || s.values == nil {
		return ""
	}
	return s.values[key]
}

// Has checks if a key exists
func (s *Secrets) Has(key string) bool {
	if s == nil || s.values == nil {
		return false
	}
	_, ok := s.values[key]
	return ok
}

// APIKeyFor returns the API key stored for the given model provider
func (s *Secrets) APIKeyFor(provider string) string {
	return s.Get(apiKeyName(provider))
}

// SaveAPIKey stores the API key for provider in the .secrets file.
// Other entries already in the file are kept.
func SaveAPIKey(provider, apiKey string) error {
	secretsPath, err := SecretsPath()
	if err != nil {
		return err
	}

	values := map[string]string{}
	if _, err := os.Stat(secretsPath); err == nil {
		existing, err := godotenv.Read(secretsPath)
		if err != nil {
			return fmt.Errorf("failed to read secrets file: %w", err)
		}
		values = existing
	}
	values[apiKeyName(provider)] = apiKey

	if err := os.MkdirAll(filepath.Dir(secretsPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := godotenv.Write(values, secretsPath); err != nil {
		return fmt.Errorf("failed to write secrets file: %w", err)
	}
	return os.Chmod(secretsPath, 0600)
}

func apiKeyName(provider string) string {
	if strings.ToLower(provider) == ProviderGemini {
		return "GEMINI_API_KEY"
	}
	return "OPENAI_API_KEY"
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// ServiceAccountCredentials represents a Google service account key file
type ServiceAccountCredentials struct {
	Type         string `json:"type" validate:"required,eq=service_account"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id" validate:"required"`
	PrivateKey   string `json:"private_key" validate:"required"`
	ClientEmail  string `json:"client_email" validate:"required,email"`
	TokenURI     string `json:"token_uri" validate:"required,url"`

	raw []byte
}

// JSON returns the key file exactly as it was read
func (c *ServiceAccountCredentials) JSON() []byte {
	return c.raw
}

// LoadServiceAccount finds and loads the credentials file named in the config
func LoadServiceAccount(cfg *Config) (*ServiceAccountCredentials, error) {
	path, err := findFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to find credentials file: %w", err)
	}

	return LoadServiceAccountFromPath(path)
}

// LoadServiceAccountFromPath loads and validates service account credentials from a specific path
func LoadServiceAccountFromPath(path string) (*ServiceAccountCredentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	return ParseServiceAccount(data)
}

// ParseServiceAccount parses and validates a service account key
func ParseServiceAccount(data []byte) (*ServiceAccountCredentials, error) {
	var creds ServiceAccountCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}

	if err := validate.Struct(&creds); err != nil {
		return nil, fmt.Errorf("credentials validation failed: %w", err)
	}

	creds.raw = data
	return &creds, nil
}

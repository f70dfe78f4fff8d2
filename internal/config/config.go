package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"
)

const (
	BackendSheets   = "sheets"
	BackendPostgres = "postgres"
)

// Defaults applied to fields left empty in the config file
const (
	DefaultDirectoryTab          = "users"
	DefaultHTTPPort              = 3000
	DefaultStoreTimeout          = 15 * time.Second
	DefaultLoadConcurrency       = 4
	DefaultRequestsPerMinute     = 60
	DefaultSupportMembershipType = "Fördermitglied"
)

// Config represents the application configuration
type Config struct {
	Backend               string            `yaml:"backend" validate:"required,oneof=sheets postgres"`
	SpreadsheetID         string            `yaml:"spreadsheetID" validate:"required_if=Backend sheets"`
	DirectoryTab          string            `yaml:"directoryTab" validate:"required_if=Backend sheets"`
	CredentialsFile       string            `yaml:"credentialsFile" validate:"required_if=Backend sheets"`
	DatabaseURL           string            `yaml:"databaseURL" validate:"required_if=Backend postgres"`
	HTTPPort              int               `yaml:"httpPort" validate:"min=1,max=65535"`
	StoreTimeout          time.Duration     `yaml:"storeTimeout"`
	LoadConcurrency       int               `yaml:"loadConcurrency" validate:"min=1,max=64"`
	RequestsPerMinute     int               `yaml:"requestsPerMinute" validate:"min=0"`
	SupportMembershipType string            `yaml:"supportMembershipType"`
	ResyncRule            string            `yaml:"resyncRule,omitempty"`
	AllowedOrigins        []string          `yaml:"allowedOrigins,omitempty" validate:"dive,url"`
	Debug                 bool              `yaml:"debug"`
	DirectoryColumns      map[string]string `yaml:"directoryColumns,omitempty" validate:"dive,keys,required,endkeys,required"`
	EntryColumns          map[string]string `yaml:"entryColumns,omitempty" validate:"dive,keys,required,endkeys,required"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// LoadWithEnv loads and validates worklog_config.<env>.yaml (or worklog_config.yaml when env is empty)
// It looks for the config file in the current directory first, then in the user's home directory
func LoadWithEnv(env string) (*Config, error) {
	fileName := "worklog_config.yaml"
	if env != "" {
		fileName = "worklog_config." + env + ".yaml"
	}

	configPath, err := findFile(fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyDefaults fills zero-valued optional fields
func ApplyDefaults(cfg *Config) {
	if cfg.Backend == "" {
		cfg.Backend = BackendSheets
	}
	if cfg.Backend == BackendSheets && cfg.DirectoryTab == "" {
		cfg.DirectoryTab = DefaultDirectoryTab
	}
	if cfg.HTTPPort == 0 {
		cfg.HTTPPort = DefaultHTTPPort
	}
	if cfg.StoreTimeout == 0 {
		cfg.StoreTimeout = DefaultStoreTimeout
	}
	if cfg.LoadConcurrency == 0 {
		cfg.LoadConcurrency = DefaultLoadConcurrency
	}
	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if cfg.SupportMembershipType == "" {
		cfg.SupportMembershipType = DefaultSupportMembershipType
	}
}

// Validate validates the configuration struct and checks rrule syntax
func Validate(cfg *Config) error {
	// Run struct validation
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if cfg.StoreTimeout <= 0 {
		return fmt.Errorf("config validation failed: storeTimeout must be positive, got %s", cfg.StoreTimeout)
	}

	if cfg.ResyncRule != "" {
		if _, err := rrule.StrToRRule(cfg.ResyncRule); err != nil {
			return fmt.Errorf("invalid rrule in resyncRule: %w", err)
		}
	}

	return nil
}

// findFile searches for a file in the current directory and the home directory
func findFile(fileName string) (string, error) {
	// Check current directory
	if _, err := os.Stat(fileName); err == nil {
		return fileName, nil
	}

	if filepath.IsAbs(fileName) {
		return "", fmt.Errorf("%s not found", fileName)
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homePath := filepath.Join(homeDir, fileName)
	if _, err := os.Stat(homePath); err == nil {
		return homePath, nil
	}

	return "", fmt.Errorf("%s not found in current directory or home directory", fileName)
}

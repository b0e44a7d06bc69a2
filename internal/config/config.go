package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"crm-messaging-server/pkg/logger"

	"go.uber.org/zap"
)

// Config holds all configuration settings
type Config struct {
	Server struct {
		Port int    `json:"port"`
		Host string `json:"host"`
	} `json:"server"`
	Database struct {
		DSN string `json:"dsn"`
	} `json:"database"`
	JWT struct {
		Secret      string        `json:"secret"`
		TokenExpiry time.Duration `json:"token_expiry"`
	} `json:"jwt"`
	Logging struct {
		Level string `json:"level"`
		Path  string `json:"path"`
	} `json:"logging"`
	Security struct {
		// EncryptionKey must be 32 bytes; it protects TOTP secrets at rest.
		EncryptionKey string `json:"encryption_key"`
	} `json:"security"`
	Vendor struct {
		BaseURL string        `json:"base_url"`
		APIKey  string        `json:"api_key"`
		Sender  string        `json:"sender"`
		Timeout time.Duration `json:"timeout"`
	} `json:"vendor"`
	Redis struct {
		Enabled bool   `json:"enabled"`
		Addr    string `json:"addr"`
		DB      int    `json:"db"`
	} `json:"redis"`
	Metrics struct {
		Enabled bool `json:"enabled"`
	} `json:"metrics"`
	Seed struct {
		Enable        bool   `json:"enable"`
		AdminPassword string `json:"admin_password"`
	} `json:"seed"`
}

// LoadConfig loads configuration from a JSON file
func LoadConfig(path string) (*Config, error) {
	// Validate path to prevent directory traversal
	cleanPath := filepath.Clean(path)
	if !filepath.IsAbs(cleanPath) {
		return nil, fmt.Errorf("config path must be absolute")
	}

	// Check if file exists and is a regular file
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("config file error: %w", err)
	}
	if !fileInfo.Mode().IsRegular() {
		return nil, fmt.Errorf("config path is not a regular file")
	}

	file, err := os.Open(cleanPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			logger.Warn("Failed to close config file", zap.Error(closeErr))
		}
	}()

	var config Config
	if err := json.NewDecoder(file).Decode(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	config := &Config{}
	config.Server.Port = 8080
	config.Server.Host = "localhost"
	config.Database.DSN = "file:crm.db?cache=shared&mode=rwc"
	config.JWT.Secret = "your-secret-key" // This should be changed in production
	config.JWT.TokenExpiry = 24 * time.Hour
	config.Logging.Level = "info"
	config.Logging.Path = "server.log"
	config.Vendor.BaseURL = "https://gateway.example.com/v1"
	config.Vendor.Sender = "CRM"
	config.Vendor.Timeout = 30 * time.Second
	config.Redis.Addr = "localhost:6379"
	config.Metrics.Enabled = true
	return config
}

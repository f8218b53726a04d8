package config

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/axonops/cqlsync/internal/logger"
)

// Config holds the application configuration
type Config struct {
	Host                string        `json:"host"`
	Port                int           `json:"port"`
	Keyspace            string        `json:"keyspace"`
	Username            string        `json:"username"`
	Password            string        `json:"password"`
	RequireConfirmation bool          `json:"requireConfirmation,omitempty"`
	Consistency         string        `json:"consistency,omitempty"`    // Default consistency level (e.g., "LOCAL_ONE", "QUORUM")
	ConnectTimeout      int           `json:"connectTimeout,omitempty"` // Connection timeout in seconds
	RequestTimeout      int           `json:"requestTimeout,omitempty"` // Request timeout in seconds
	Debug               bool          `json:"debug,omitempty"`          // Enable debug logging
	SSL                 *SSLConfig    `json:"ssl,omitempty"`
	AuthProvider        *AuthProvider `json:"authProvider,omitempty"`
}

// AuthProvider holds authentication provider configuration
type AuthProvider struct {
	Module    string `json:"module,omitempty"`    // e.g., "cassandra.auth"
	ClassName string `json:"className,omitempty"` // e.g., "PlainTextAuthProvider"
}

// SSLConfig holds SSL/TLS configuration options
type SSLConfig struct {
	Enabled            bool   `json:"enabled"`
	CertPath           string `json:"certPath,omitempty"`           // Path to client certificate
	KeyPath            string `json:"keyPath,omitempty"`            // Path to client private key
	CAPath             string `json:"caPath,omitempty"`             // Path to CA certificate
	HostVerification   bool   `json:"hostVerification,omitempty"`   // Enable hostname verification
	InsecureSkipVerify bool   `json:"insecureSkipVerify,omitempty"` // Skip certificate verification (not recommended for production)
	AllowLegacyCN      bool   `json:"allowLegacyCN,omitempty"`      // Allow legacy Common Name field (certificates without SANs)
	ServerName         string `json:"serverName,omitempty"`         // Override TLS ServerName for SNI
}

// LoadConfig loads configuration from file and environment variables
// If customConfigPath is provided and not empty, it will be used instead of default locations
func LoadConfig(customConfigPath ...string) (*Config, error) {
	logger.DebugfToFile("Config", "Starting LoadConfig")

	config := &Config{
		Host:                "localhost",
		Port:                9042,
		RequireConfirmation: true,
	}

	// First, try to load CQLSHRC file
	cqlshrcPaths := []string{
		filepath.Join(os.Getenv("HOME"), ".cassandra", "cqlshrc"),
		filepath.Join(os.Getenv("HOME"), ".cqlshrc"),
	}

	for _, path := range cqlshrcPaths {
		if err := loadCQLSHRC(path, config); err == nil {
			logger.DebugfToFile("Config", "Loaded cqlshrc from: %s", path)
			break
		}
	}

	// Then check JSON config file locations (these will override CQLSHRC settings)
	var configPaths []string

	// If a custom config path is provided, use only that path
	if len(customConfigPath) > 0 && customConfigPath[0] != "" {
		configPaths = []string{customConfigPath[0]}
	} else {
		// Use default locations
		configPaths = []string{
			"cqlsync.json",
			filepath.Join(os.Getenv("HOME"), ".cqlsync.json"),
			filepath.Join(os.Getenv("HOME"), ".config", "cqlsync", "config.json"),
		}
	}

	var configData []byte
	var err error
	var foundPath string

	for _, path := range configPaths {
		configData, err = os.ReadFile(path) // #nosec G304 - Config file path is validated
		if err == nil {
			foundPath = path
			logger.DebugfToFile("Config", "Found JSON config at: %s", path)
			break
		}
	}

	// If custom config path was provided but not found, return an error
	if len(customConfigPath) > 0 && customConfigPath[0] != "" && foundPath == "" {
		return nil, fmt.Errorf("config file not found: %s", customConfigPath[0])
	}

	if foundPath != "" {
		if err := json.Unmarshal(configData, config); err != nil {
			return nil, fmt.Errorf("error parsing config file %s: %w", foundPath, err)
		}
	}

	// Override with environment variables
	OverrideWithEnvVars(config)

	logger.DebugfToFile("Config", "Final config: host=%s, port=%d, username=%s, keyspace=%s, hasPassword=%v",
		config.Host, config.Port, config.Username, config.Keyspace, config.Password != "")

	return config, nil
}

// OverrideWithEnvVars overrides configuration with environment variables
func OverrideWithEnvVars(config *Config) {
	if host := os.Getenv("CASSANDRA_HOST"); host != "" {
		config.Host = host
	}
	if host := os.Getenv("CQLSYNC_HOST"); host != "" {
		config.Host = host
	}

	if port := os.Getenv("CASSANDRA_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Port = p
		}
	}
	if port := os.Getenv("CQLSYNC_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Port = p
		}
	}

	if keyspace := os.Getenv("CASSANDRA_KEYSPACE"); keyspace != "" {
		config.Keyspace = keyspace
	}
	if keyspace := os.Getenv("CQLSYNC_KEYSPACE"); keyspace != "" {
		config.Keyspace = keyspace
	}

	if username := os.Getenv("CASSANDRA_USERNAME"); username != "" {
		config.Username = username
	}
	if username := os.Getenv("CQLSYNC_USERNAME"); username != "" {
		config.Username = username
	}

	if password := os.Getenv("CASSANDRA_PASSWORD"); password != "" {
		config.Password = password
	}
	if password := os.Getenv("CQLSYNC_PASSWORD"); password != "" {
		config.Password = password
	}

	if consistency := os.Getenv("CQLSYNC_CONSISTENCY"); consistency != "" {
		config.Consistency = consistency
	}
}

// loadCQLSHRC loads configuration from a CQLSHRC file
func loadCQLSHRC(path string, config *Config) error {
	file, err := os.Open(path) // #nosec G304 - Config file path is validated
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	currentSection := ""
	var credentialsPath string

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}

		// Check for section headers
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			currentSection = strings.ToLower(strings.Trim(line, "[]"))
			continue
		}

		// Parse key-value pairs
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 && ((value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'')) {
			value = value[1 : len(value)-1]
		}

		// Map CQLSHRC values to config
		switch currentSection {
		case "connection":
			switch key {
			case "hostname":
				config.Host = value
			case "port":
				if port, err := strconv.Atoi(value); err == nil {
					config.Port = port
				}
			case "ssl":
				if value == "true" || value == "1" {
					if config.SSL == nil {
						config.SSL = &SSLConfig{}
					}
					config.SSL.Enabled = true
				}
			}
		case "authentication":
			switch key {
			case "credentials":
				credentialsPath = value
			case "keyspace":
				config.Keyspace = value
			case "username":
				config.Username = value
			case "password":
				config.Password = value
			}
		case "auth_provider":
			if config.AuthProvider == nil {
				config.AuthProvider = &AuthProvider{}
			}
			switch key {
			case "module":
				config.AuthProvider.Module = value
			case "classname":
				config.AuthProvider.ClassName = value
			case "username":
				config.Username = value
			case "password":
				config.Password = value
			}
		case "ssl":
			if config.SSL == nil {
				config.SSL = &SSLConfig{}
			}
			// Any key in [ssl] section means SSL should be enabled
			config.SSL.Enabled = true
			switch key {
			case "factory":
				// Ignore factory setting - we handle SSL ourselves
			case "certfile":
				config.SSL.CAPath = expandHome(value)
			case "userkey":
				config.SSL.KeyPath = expandHome(value)
			case "usercert":
				config.SSL.CertPath = expandHome(value)
			case "validate":
				if value == "false" || value == "0" {
					config.SSL.InsecureSkipVerify = true
					config.SSL.HostVerification = false
				} else {
					config.SSL.HostVerification = true
					config.SSL.AllowLegacyCN = true // cqlshrc compatibility
				}
			}
		}
	}

	// If a credentials file was specified, try to load it
	if credentialsPath != "" {
		if err := loadCredentialsFile(credentialsPath, config); err != nil {
			logger.DebugfToFile("CQLSHRC", "Failed to load credentials file: %v", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	return nil
}

// loadCredentialsFile loads username/password from a credentials file
// The format is typically:
// [auth_provider_classname]
// username = user
// password = pass
func loadCredentialsFile(path string, config *Config) error {
	path = expandHome(path)

	file, err := os.Open(path) // #nosec G304 - Config file path is validated
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	inAuthSection := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}

		// Check for section headers
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section := strings.ToLower(strings.Trim(line, "[]"))
			// Look for PlainTextAuthProvider or similar auth sections
			inAuthSection = strings.Contains(section, "auth")
			continue
		}

		if !inAuthSection {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if len(value) >= 2 && ((value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'')) {
			value = value[1 : len(value)-1]
		}

		switch key {
		case "username":
			config.Username = value
		case "password":
			config.Password = value
		}
	}

	return scanner.Err()
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~") {
		return filepath.Join(os.Getenv("HOME"), path[1:])
	}
	return path
}

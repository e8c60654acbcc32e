package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Load loads and processes the config with immediate env var resolution
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		return Config{}, fmt.Errorf("parsing config JSON: %w", err)
	}

	if err := validateRawConfig(rawConfig); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	// Parse directly into the typed Config struct. The custom UnmarshalJSON
	// methods resolve env vars immediately.
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	if err := ValidateConfig(&config); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// validateRawConfig validates the config structure before environment resolution.
// Secrets must be supplied as env references, never inline.
func validateRawConfig(rawConfig map[string]any) error {
	auth, ok := rawConfig["auth"].(map[string]any)
	if !ok {
		return nil
	}

	for _, name := range []string{"encryptionKey"} {
		value, exists := auth[name]
		if !exists {
			continue
		}
		if _, isString := value.(string); isString {
			return fmt.Errorf("auth.%s must use environment variable reference for security", name)
		}
		if refMap, isMap := value.(map[string]any); isMap {
			if _, hasEnv := refMap["$env"]; !hasEnv {
				return fmt.Errorf("auth.%s must use {\"$env\": \"VAR_NAME\"} format", name)
			}
		}
	}
	return nil
}

// ValidateConfig validates the resolved configuration
func ValidateConfig(config *Config) error {
	if config.Server.BaseURL == "" {
		return fmt.Errorf("server.baseURL is required")
	}
	if config.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if config.Gateway.BaseURL == "" {
		return fmt.Errorf("gateway.baseURL is required")
	}
	if config.Auth.AuthorizeURL == "" {
		return fmt.Errorf("auth.authorizeUrl is required")
	}
	if config.Auth.AdminCallbackURL == "" {
		return fmt.Errorf("auth.adminCallbackUrl is required")
	}
	if config.Auth.EncryptionKey == "" {
		return fmt.Errorf("auth.encryptionKey is required")
	}

	switch config.Storage.Kind {
	case "", StorageKindMemory:
		// memory needs no further configuration
	case StorageKindFirestore:
		if config.Storage.GCPProject == "" {
			return fmt.Errorf("storage.gcpProject is required for firestore storage")
		}
	default:
		return fmt.Errorf("unknown storage.kind: %s", config.Storage.Kind)
	}

	if kiosk := config.Kiosk; kiosk != nil {
		if len(kiosk.Tokens) == 0 && kiosk.Username == "" {
			return fmt.Errorf("kiosk auth requires tokens or username/password")
		}
		if kiosk.Username != "" && kiosk.HashedPassword == "" {
			return fmt.Errorf("kiosk.password is required when kiosk.username is set")
		}
	}

	return nil
}

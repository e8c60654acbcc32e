package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// UnmarshalJSON resolves $env references and parses duration strings
func (c *GatewayConfig) UnmarshalJSON(data []byte) error {
	var raw struct {
		BaseURL string `json:"baseURL"`
		Timeout string `json:"timeout"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	c.BaseURL = raw.BaseURL
	c.Timeout = 30 * time.Second
	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("invalid gateway.timeout: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

// UnmarshalJSON resolves $env references and parses duration strings
func (c *AuthConfig) UnmarshalJSON(data []byte) error {
	var raw struct {
		AuthorizeURL     string          `json:"authorizeUrl"`
		TokenURL         string          `json:"tokenUrl"`
		ClientID         json.RawMessage `json:"clientId"`
		AdminCallbackURL string          `json:"adminCallbackUrl"`
		SessionTTL       string          `json:"sessionTtl"`
		EncryptionKey    json.RawMessage `json:"encryptionKey"`
		AllowedOrigins   []string        `json:"allowedOrigins"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	c.AuthorizeURL = raw.AuthorizeURL
	c.TokenURL = raw.TokenURL
	c.AdminCallbackURL = raw.AdminCallbackURL
	c.AllowedOrigins = raw.AllowedOrigins

	if len(raw.ClientID) > 0 {
		value, err := ParseConfigValue(raw.ClientID)
		if err != nil {
			return fmt.Errorf("auth.clientId: %w", err)
		}
		c.ClientID = Secret(value)
	}

	if len(raw.EncryptionKey) > 0 {
		value, err := ParseConfigValue(raw.EncryptionKey)
		if err != nil {
			return fmt.Errorf("auth.encryptionKey: %w", err)
		}
		c.EncryptionKey = Secret(value)
	}

	c.SessionTTL = 24 * time.Hour
	if raw.SessionTTL != "" {
		d, err := time.ParseDuration(raw.SessionTTL)
		if err != nil {
			return fmt.Errorf("invalid auth.sessionTtl: %w", err)
		}
		c.SessionTTL = d
	}
	return nil
}

// UnmarshalJSON resolves the kiosk password reference to its bcrypt hash
func (c *KioskConfig) UnmarshalJSON(data []byte) error {
	type plain KioskConfig
	var raw plain
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = KioskConfig(raw)

	if len(c.PasswordRaw) > 0 {
		value, err := ParseConfigValue(c.PasswordRaw)
		if err != nil {
			return fmt.Errorf("kiosk.password: %w", err)
		}
		c.HashedPassword = Secret(value)
	}
	return nil
}

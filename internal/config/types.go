package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Secret is a string type that redacts itself when printed
type Secret string

// String implements fmt.Stringer to redact the secret
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "***"
}

// MarshalJSON implements json.Marshaler to prevent secrets in JSON logs
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("***")
}

// StorageKind selects the session store backend
type StorageKind string

const (
	StorageKindMemory    StorageKind = "memory"
	StorageKindFirestore StorageKind = "firestore"
)

// ServerConfig describes the dept-front HTTP server itself
type ServerConfig struct {
	BaseURL string `json:"baseURL"`
	Addr    string `json:"addr"`
	Name    string `json:"name"`
}

// GatewayConfig describes the upstream identity and dues REST API
type GatewayConfig struct {
	BaseURL string        `json:"baseURL"`
	Timeout time.Duration `json:"timeout"`
}

// AuthConfig describes the OAuth login flow against the department's
// identity provider. AdminCallbackURL must match the URL registered with
// the provider byte-for-byte or the code exchange fails upstream.
type AuthConfig struct {
	AuthorizeURL     string        `json:"authorizeUrl"`
	TokenURL         string        `json:"tokenUrl"`
	ClientID         Secret        `json:"clientId"`
	AdminCallbackURL string        `json:"adminCallbackUrl"`
	SessionTTL       time.Duration `json:"sessionTtl"`
	EncryptionKey    Secret        `json:"encryptionKey"`
	AllowedOrigins   []string      `json:"allowedOrigins"`
}

// StorageConfig selects and configures the session store backend
type StorageConfig struct {
	Kind       StorageKind `json:"kind"`
	GCPProject string      `json:"gcpProject,omitempty"`
	Database   string      `json:"database,omitempty"`
	Collection string      `json:"collection,omitempty"`
}

// KioskConfig configures service auth for the QR scan endpoint, used by
// the entrance kiosk rather than a logged-in browser.
type KioskConfig struct {
	Tokens      []string        `json:"tokens,omitempty"`
	Username    string          `json:"username,omitempty"`
	PasswordRaw json.RawMessage `json:"password,omitempty"`

	// bcrypt hash resolved at load time
	HashedPassword Secret `json:"-"`
}

// Config represents the config structure with resolved values
type Config struct {
	Server  ServerConfig  `json:"server"`
	Gateway GatewayConfig `json:"gateway"`
	Auth    AuthConfig    `json:"auth"`
	Storage StorageConfig `json:"storage"`
	Kiosk   *KioskConfig  `json:"kiosk,omitempty"`
}

// ParseConfigValue parses a JSON value that is either a plain string or an
// {"$env": "VAR_NAME"} reference. The explicit JSON syntax avoids accidental
// shell expansion of $VAR in startup scripts and CI pipelines.
func ParseConfigValue(raw json.RawMessage) (string, error) {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str, nil
	}

	var ref map[string]string
	if err := json.Unmarshal(raw, &ref); err != nil {
		return "", fmt.Errorf("config value must be string or reference object")
	}

	envVar, ok := ref["$env"]
	if !ok {
		return "", fmt.Errorf("unknown reference type in config value")
	}

	value := os.Getenv(envVar)
	if value == "" {
		return "", fmt.Errorf("environment variable %s not set", envVar)
	}
	// Strip surrounding quotes if present (only matching pairs)
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'') {
			value = value[1 : len(value)-1]
		}
	}
	return value, nil
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// ValidationResult holds validation errors and warnings
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// ValidationError represents a validation issue
type ValidationError struct {
	Path    string
	Message string
}

// IsValid returns true if there are no errors
func (v *ValidationResult) IsValid() bool {
	return len(v.Errors) == 0
}

// ValidateFile validates a config file structure without requiring env vars.
// Used by the -validate flag so CI can lint configs before deployment.
func ValidateFile(path string) (*ValidationResult, error) {
	result := &ValidationResult{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Message: fmt.Sprintf("invalid JSON: %v", err),
		})
		return result, nil
	}

	checkBashStyleSyntax(rawConfig, "", result)

	for _, section := range []string{"server", "gateway", "auth"} {
		if _, ok := rawConfig[section].(map[string]any); !ok {
			result.Errors = append(result.Errors, ValidationError{
				Path:    section,
				Message: fmt.Sprintf("%s field is required and must be an object", section),
			})
		}
	}

	if auth, ok := rawConfig["auth"].(map[string]any); ok {
		if callback, ok := auth["adminCallbackUrl"].(string); ok {
			if !strings.HasPrefix(callback, "https://") && !strings.HasPrefix(callback, "http://localhost") {
				result.Warnings = append(result.Warnings, ValidationError{
					Path:    "auth.adminCallbackUrl",
					Message: "callback URL should use https outside local development",
				})
			}
		}
	}

	if storage, ok := rawConfig["storage"].(map[string]any); ok {
		if kind, ok := storage["kind"].(string); ok && kind == "firestore" {
			if _, ok := storage["gcpProject"].(string); !ok {
				result.Errors = append(result.Errors, ValidationError{
					Path:    "storage.gcpProject",
					Message: "gcpProject is required for firestore storage",
				})
			}
		}
	}

	return result, nil
}

// checkBashStyleSyntax warns about $VAR strings that were probably meant to
// be {"$env": "VAR"} references
func checkBashStyleSyntax(value any, path string, result *ValidationResult) {
	switch v := value.(type) {
	case string:
		if strings.HasPrefix(v, "$") && !strings.HasPrefix(v, "$env") {
			result.Warnings = append(result.Warnings, ValidationError{
				Path:    path,
				Message: fmt.Sprintf("'%s' looks like bash-style substitution - use {\"$env\": \"%s\"} instead", v, strings.TrimPrefix(v, "$")),
			})
		}
	case map[string]any:
		for key, child := range v {
			childPath := key
			if path != "" {
				childPath = path + "." + key
			}
			if key == "$env" {
				continue
			}
			checkBashStyleSyntax(child, childPath, result)
		}
	case []any:
		for i, child := range v {
			checkBashStyleSyntax(child, fmt.Sprintf("%s[%d]", path, i), result)
		}
	}
}

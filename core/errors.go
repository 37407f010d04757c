package core

import (
	"fmt"
)

// ConfigError represents a configuration-related error with actionable instructions.
type ConfigError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
	Action  string // Actionable instruction for resolution
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Error codes for configuration errors
const (
	ErrCodeEnvFileMissing     = "ENV_FILE_MISSING"
	ErrCodeMissingAuth        = "MISSING_AUTH"
	ErrCodeInvalidEndpoint    = "INVALID_ENDPOINT"
	ErrCodeLibraryUnreadable  = "MATERIAL_LIBRARY_UNREADABLE"
	ErrCodeRendersDirInvalid  = "RENDERS_DIR_INVALID"
	ErrCodeDatabaseUnwritable = "DATABASE_UNWRITABLE"
	ErrCodeMissingConfig      = "MISSING_CONFIG"
)

// ErrEnvFileMissing returns an error for a missing .env file
func ErrEnvFileMissing(path string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeEnvFileMissing,
		Message: fmt.Sprintf("Configuration file not found: %s", path),
		Action:  "Copy example.env to .env and configure the required values",
	}
}

// ErrMissingAuth returns an error for missing provider credentials.
// Unlike most startup failures this is advisory: the pipeline runs in
// degraded (synthetic fallback) mode without any provider key.
func ErrMissingAuth(provider string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingAuth,
		Message: fmt.Sprintf("No API key configured for provider %s", provider),
		Action:  "Set OPENAI_API_KEY in your .env file to enable AI-backed analysis",
	}
}

// ErrInvalidEndpoint returns an error for a malformed provider endpoint URL
func ErrInvalidEndpoint(url string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidEndpoint,
		Message: fmt.Sprintf("Invalid provider endpoint '%s': %s", url, reason),
		Action:  "Set VISION_LLM_URL / TEXT_LLM_URL to a valid URL (e.g., https://api.openai.com/v1)",
	}
}

// ErrLibraryUnreadable returns an error when the material library file cannot be loaded
func ErrLibraryUnreadable(path string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeLibraryUnreadable,
		Message: fmt.Sprintf("Cannot load material library %s: %s", path, reason),
		Action:  "Check MATERIAL_LIBRARY_PATH points to a readable YAML file, or unset it to use the built-in library",
	}
}

// ErrRendersDirInvalid returns an error when the renders directory cannot be created
func ErrRendersDirInvalid(path string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeRendersDirInvalid,
		Message: fmt.Sprintf("Cannot create renders directory %s: %s", path, reason),
		Action:  "Check RENDERS_DIR points to a writable location",
	}
}

// ErrDatabaseUnwritable returns an error when the database path cannot be used
func ErrDatabaseUnwritable(path string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeDatabaseUnwritable,
		Message: fmt.Sprintf("Cannot open database at %s: %s", path, reason),
		Action:  "Check DATABASE_PATH points to a writable location",
	}
}

// ErrMissingConfig returns an error for missing required configuration
func ErrMissingConfig(varName string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingConfig,
		Message: fmt.Sprintf("Missing required configuration: %s", varName),
		Action:  fmt.Sprintf("Set %s in your .env file", varName),
	}
}

// IsConfigError checks if an error is a ConfigError and returns it if so
func IsConfigError(err error) (*ConfigError, bool) {
	if configErr, ok := err.(*ConfigError); ok {
		return configErr, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an error if it's a ConfigError
func GetErrorCode(err error) string {
	if configErr, ok := IsConfigError(err); ok {
		return configErr.Code
	}
	return ""
}

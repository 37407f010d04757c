// Package validation runs the startup validation suite: configuration,
// filesystem and provider-credential checks with colorized progress output
// before the pipeline service starts accepting work.
package validation

import (
	"fmt"
	"os"
	"path/filepath"

	"planforge/core"
	"planforge/materials"
)

// ValidationResult is the outcome of one configuration check.
type ValidationResult struct {
	Valid   bool
	Warning bool
	Message string
	Error   error
}

// ConfigValidator performs environment and filesystem checks. Every check
// reads the environment directly so the suite can run before LoadConfig.
type ConfigValidator struct {
	envPath string
}

// NewConfigValidator creates a validator that looks for ".env" in the
// working directory.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{envPath: ".env"}
}

// WithEnvPath overrides the .env file location.
func (v *ConfigValidator) WithEnvPath(path string) *ConfigValidator {
	v.envPath = path
	return v
}

// CheckEnvFile verifies the .env file exists. A missing file is a warning,
// not a failure; every setting has a default.
func (v *ConfigValidator) CheckEnvFile() ValidationResult {
	info, err := os.Stat(v.envPath)
	if os.IsNotExist(err) {
		return ValidationResult{
			Valid:   true,
			Warning: true,
			Message: fmt.Sprintf("%s not found, using environment and defaults", v.envPath),
		}
	}
	if err != nil {
		return ValidationResult{Valid: false, Message: "cannot read " + v.envPath, Error: err}
	}
	if info.IsDir() {
		return ValidationResult{Valid: false, Message: v.envPath + " is a directory"}
	}
	return ValidationResult{Valid: true, Message: v.envPath + " found"}
}

// CheckUploadLimits verifies MAX_UPLOAD_BYTES parses to a positive size
// when set. Bare byte counts and unit suffixes ("20MB") are both accepted.
func (v *ConfigValidator) CheckUploadLimits() ValidationResult {
	raw := os.Getenv("MAX_UPLOAD_BYTES")
	if raw == "" {
		return ValidationResult{Valid: true, Message: "using default upload limit"}
	}
	n, err := core.ParseBytes(raw)
	if err != nil {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("MAX_UPLOAD_BYTES %q is not a byte size", raw),
			Error:   err,
		}
	}
	if n <= 0 {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("MAX_UPLOAD_BYTES must be positive, got %d", n),
		}
	}
	return ValidationResult{Valid: true, Message: "upload limit " + core.FormatBytes(n)}
}

// CheckDataDirectory verifies the database path's parent directory can be
// created and written.
func (v *ConfigValidator) CheckDataDirectory() ValidationResult {
	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "data/planforge.db"
	}
	return checkWritableDir(filepath.Dir(dbPath), "database directory")
}

// CheckRendersDirectory verifies the render output directory can be created
// and written.
func (v *ConfigValidator) CheckRendersDirectory() ValidationResult {
	dir := os.Getenv("RENDERS_DIR")
	if dir == "" {
		dir = "renders"
	}
	return checkWritableDir(dir, "renders directory")
}

// CheckMaterialLibrary loads the material library (configured path or the
// embedded default) and reports the material count.
func (v *ConfigValidator) CheckMaterialLibrary() ValidationResult {
	path := os.Getenv("MATERIAL_LIBRARY_PATH")
	library, err := materials.NewLibrary(path)
	if err != nil {
		return ValidationResult{Valid: false, Message: "material library failed to load", Error: err}
	}
	source := "embedded default library"
	if path != "" {
		source = path
	}
	return ValidationResult{
		Valid:   true,
		Message: fmt.Sprintf("%d materials from %s", library.Len(), source),
	}
}

// CheckProviderCredentials reports whether any AI provider credential is
// configured. None is a warning: the pipeline degrades to the offline
// provider.
func (v *ConfigValidator) CheckProviderCredentials() ValidationResult {
	if os.Getenv("OPENAI_API_KEY") != "" {
		return ValidationResult{Valid: true, Message: "OpenAI credentials configured"}
	}
	if os.Getenv("VISION_LLM_URL") != "" {
		return ValidationResult{Valid: true, Message: "custom vision endpoint configured"}
	}
	return ValidationResult{
		Valid:   true,
		Warning: true,
		Message: "no AI provider configured, analysis will use the offline fallback",
	}
}

func checkWritableDir(dir, label string) ValidationResult {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("cannot create %s %q", label, dir),
			Error:   err,
		}
	}
	probe := filepath.Join(dir, ".write_probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("%s %q is not writable", label, dir),
			Error:   err,
		}
	}
	os.Remove(probe)
	return ValidationResult{Valid: true, Message: fmt.Sprintf("%s %q writable", label, dir)}
}

package validation

import (
	"io"
	"path/filepath"
	"strings"
	"testing"
)

func setCleanEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATABASE_PATH", filepath.Join(dir, "data", "test.db"))
	t.Setenv("RENDERS_DIR", filepath.Join(dir, "renders"))
	t.Setenv("MATERIAL_LIBRARY_PATH", "")
	t.Setenv("MAX_UPLOAD_BYTES", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("VISION_LLM_URL", "")
}

func TestValidateCleanEnvironment(t *testing.T) {
	setCleanEnv(t)

	result := NewValidationSuite().
		WithOutput(io.Discard).
		WithEnvPath(filepath.Join(t.TempDir(), "missing.env")).
		Validate()

	if !result.Success {
		t.Fatalf("suite should pass in a clean environment: %s", result.Summary())
	}
	// Missing .env and missing AI credentials both warn but do not fail.
	if result.Warnings < 2 {
		t.Errorf("expected at least 2 warnings, got %d", result.Warnings)
	}
	if result.FailedSteps != 0 {
		t.Errorf("expected no failed steps, got %d", result.FailedSteps)
	}
}

func TestValidateBadUploadLimit(t *testing.T) {
	setCleanEnv(t)
	t.Setenv("MAX_UPLOAD_BYTES", "not-a-number")

	result := NewValidationSuite().
		WithOutput(io.Discard).
		WithShowProgress(false).
		Validate()

	if result.Success {
		t.Fatal("suite should fail for an unparseable upload limit")
	}
	if result.GetFirstError() == nil {
		t.Error("a failed parse should carry an error")
	}
	if !strings.Contains(result.Summary(), "failed") {
		t.Errorf("summary should mention the failure: %s", result.Summary())
	}
}

func TestValidateFailFast(t *testing.T) {
	setCleanEnv(t)
	t.Setenv("MAX_UPLOAD_BYTES", "-5")

	result := NewValidationSuite().
		WithOutput(io.Discard).
		WithFailFast(true).
		Validate()

	if result.Success {
		t.Fatal("suite should fail")
	}
	// Fail-fast stops after the upload limit check (step 2 of 6).
	if result.TotalSteps != 2 {
		t.Errorf("expected 2 steps with fail-fast, got %d", result.TotalSteps)
	}
}

func TestCheckUploadLimits(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		valid   bool
		warning bool
	}{
		{"unset uses default", "", true, false},
		{"positive value", "1048576", true, false},
		{"unit suffix", "20MB", true, false},
		{"zero", "0", false, false},
		{"negative", "-1", false, false},
		{"garbage", "abc", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("MAX_UPLOAD_BYTES", tt.value)
			result := NewConfigValidator().CheckUploadLimits()
			if result.Valid != tt.valid {
				t.Errorf("CheckUploadLimits(%q).Valid = %v, want %v", tt.value, result.Valid, tt.valid)
			}
		})
	}
}

func TestCheckMaterialLibrary(t *testing.T) {
	t.Setenv("MATERIAL_LIBRARY_PATH", "")
	result := NewConfigValidator().CheckMaterialLibrary()
	if !result.Valid {
		t.Fatalf("embedded library should load: %v", result.Error)
	}

	t.Setenv("MATERIAL_LIBRARY_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	result = NewConfigValidator().CheckMaterialLibrary()
	if result.Valid {
		t.Error("missing library file should fail validation")
	}
}

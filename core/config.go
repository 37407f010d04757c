package core

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Config holds all configuration values for the asset pipeline service.
// Values are loaded from environment variables (typically via a .env file
// loaded in main) with sensible defaults for zero-config operation:
// the pipeline must function even with no AI provider configured.
type Config struct {
	// AI provider configuration (all optional - the pipeline falls back to
	// deterministic synthetic analysis when no provider is reachable)
	OpenAIAPIKey      string
	VisionLLMURL      string // Optional override for vision analysis endpoint
	TextLLMURL        string // Optional override for text generation endpoint
	OpenAIVisionModel string
	OpenAITextModel   string

	// FailoverOrder is the priority list of provider names consulted when
	// selecting the best available backend. Names not in this list are
	// considered in registration order.
	FailoverOrder []string

	// Retry policy for retryable provider errors (network, rate limit)
	MaxRetries int
	RetryDelay time.Duration

	// AITimeout bounds every provider call. Timeouts are classified as
	// retryable network errors.
	AITimeout time.Duration

	// Upload gate - enforced before any AI call is attempted. The env
	// variable accepts bare byte counts and size suffixes ("20MB").
	MaxUploadBytes     int64
	AllowedUploadTypes []string

	// Texture cache
	TextureFetchTimeout time.Duration
	MaxTextureBytes     int64

	// MaterialLibraryPath is the YAML file defining the material library.
	// Empty uses the built-in default library.
	MaterialLibraryPath string

	// Render output
	RendersDir    string
	RenderLatency time.Duration // simulated per-viewpoint render latency

	// Default render plan applied to intake files.
	RenderViewpoints []string
	RenderLighting   string
	RenderQuality    string

	// Intake watcher: plan files dropped into IntakeDir are picked up every
	// PollInterval and run through the pipeline.
	IntakeDir    string
	PollInterval time.Duration

	// Persistence
	DatabasePath string

	// Session retention for the cleanup scheduler. Records older than
	// RetentionDays are purged every CleanupInterval.
	RetentionDays   int
	CleanupInterval time.Duration

	// WorkDir holds transient per-upload files (PDFs written to disk for
	// text extraction). Swept on shutdown.
	WorkDir string

	AllowSelfSignedCerts bool
}

// DefaultAllowedUploadTypes is the MIME allow-list for floor plan uploads.
var DefaultAllowedUploadTypes = []string{
	"image/png",
	"image/jpeg",
	"image/webp",
	"image/gif",
	"application/pdf",
}

// LoadConfig loads configuration from environment variables with defaults
// tuned for local development. Every value is optional; a completely empty
// environment yields a usable offline configuration.
func LoadConfig() (*Config, error) {
	openAIKey := getEnvOrDefault("OPENAI_API_KEY", "")

	failoverOrder := parseListEnv("PROVIDER_FAILOVER_ORDER")

	maxRetries := parseIntEnv("MAX_RETRIES", 3)
	if maxRetries < 0 {
		return nil, fmt.Errorf("MAX_RETRIES must be >= 0, got %d", maxRetries)
	}

	retryDelay := parseDurationEnv("RETRY_DELAY", 2*time.Second)
	aiTimeout := parseDurationEnv("AI_TIMEOUT", 60*time.Second)
	if aiTimeout <= 0 {
		return nil, fmt.Errorf("AI_TIMEOUT must be positive, got %s", aiTimeout)
	}

	maxUploadBytes := parseSizeEnv("MAX_UPLOAD_BYTES", 20*BytesPerMB)
	if maxUploadBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", maxUploadBytes)
	}

	allowedTypes := parseListEnv("ALLOWED_UPLOAD_TYPES")
	if len(allowedTypes) == 0 {
		allowedTypes = DefaultAllowedUploadTypes
	}

	renderViewpoints := parseListEnv("RENDER_VIEWPOINTS")
	if len(renderViewpoints) == 0 {
		renderViewpoints = []string{"front", "perspective", "top"}
	}

	return &Config{
		OpenAIAPIKey:      openAIKey,
		VisionLLMURL:      getEnvOrDefault("VISION_LLM_URL", ""),
		TextLLMURL:        getEnvOrDefault("TEXT_LLM_URL", ""),
		OpenAIVisionModel: getEnvOrDefault("OPENAI_VISION_MODEL", "gpt-4o"),
		OpenAITextModel:   getEnvOrDefault("OPENAI_TEXT_MODEL", "gpt-4o-mini"),

		FailoverOrder: failoverOrder,

		MaxRetries: maxRetries,
		RetryDelay: retryDelay,
		AITimeout:  aiTimeout,

		MaxUploadBytes:     maxUploadBytes,
		AllowedUploadTypes: allowedTypes,

		TextureFetchTimeout: parseDurationEnv("TEXTURE_FETCH_TIMEOUT", 30*time.Second),
		MaxTextureBytes:     parseSizeEnv("MAX_TEXTURE_BYTES", 8*BytesPerMB),

		MaterialLibraryPath: getEnvOrDefault("MATERIAL_LIBRARY_PATH", ""),

		RendersDir:    getEnvOrDefault("RENDERS_DIR", "renders"),
		RenderLatency: parseDurationEnv("RENDER_LATENCY", 150*time.Millisecond),

		RenderViewpoints: renderViewpoints,
		RenderLighting:   getEnvOrDefault("RENDER_LIGHTING", "daylight"),
		RenderQuality:    getEnvOrDefault("RENDER_QUALITY", "standard"),

		IntakeDir:    getEnvOrDefault("INTAKE_DIR", "intake"),
		PollInterval: parseDurationEnv("POLL_INTERVAL", 5*time.Second),

		DatabasePath: getEnvOrDefault("DATABASE_PATH", "data/planforge.db"),

		RetentionDays:   parseIntEnv("RETENTION_DAYS", 30),
		CleanupInterval: parseDurationEnv("CLEANUP_INTERVAL", 24*time.Hour),

		WorkDir: getEnvOrDefault("WORK_DIR", "work"),

		AllowSelfSignedCerts: getEnvOrDefault("ALLOW_SELF_SIGNED_CERTS", "false") == "true",
	}, nil
}

// IsUploadTypeAllowed reports whether the given MIME type is on the upload
// allow-list. Comparison ignores case and any media type parameters.
func (c *Config) IsUploadTypeAllowed(mimeType string) bool {
	normalized := strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.Index(normalized, ";"); idx != -1 {
		normalized = strings.TrimSpace(normalized[:idx])
	}
	for _, allowed := range c.AllowedUploadTypes {
		if normalized == allowed {
			return true
		}
	}
	return false
}

// GetHTTPClient returns an HTTP client configured with TLS settings based on
// AllowSelfSignedCerts. All HTTP requests to external services (providers,
// texture hosts) should go through a client created here so the TLS
// configuration is respected.
func GetHTTPClient(cfg *Config, timeout time.Duration) *http.Client {
	client := &http.Client{
		Timeout: timeout,
	}

	if cfg.AllowSelfSignedCerts {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return client
}

// GetDefaultHTTPClient returns an HTTP client with a 30s timeout.
func GetDefaultHTTPClient(cfg *Config) *http.Client {
	return GetHTTPClient(cfg, 30*time.Second)
}

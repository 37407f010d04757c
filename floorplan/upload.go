package floorplan

import (
	"planforge/core"
)

// ImageUpload is one uploaded floor-plan image awaiting analysis.
type ImageUpload struct {
	// Data is the raw file content.
	Data []byte

	// MimeType is the declared content type, e.g. "image/png".
	MimeType string

	// Filename is the original name, used only for logging.
	Filename string
}

// ValidateUpload enforces the MIME allow-list and size cap. It runs before
// any provider call so a bad upload never wastes an AI request.
func ValidateUpload(cfg *core.Config, upload ImageUpload) error {
	if len(upload.Data) == 0 {
		return core.NewValidationError("data", "uploaded file is empty")
	}
	if upload.MimeType == "" {
		return core.NewValidationError("mimeType", "content type is required")
	}
	if !cfg.IsUploadTypeAllowed(upload.MimeType) {
		return core.NewValidationError("mimeType",
			"content type %q is not allowed (allowed: %v)", upload.MimeType, cfg.AllowedUploadTypes)
	}
	if cfg.MaxUploadBytes > 0 && int64(len(upload.Data)) > cfg.MaxUploadBytes {
		return core.NewValidationError("data",
			"file size %s exceeds the %s limit",
			core.FormatBytes(int64(len(upload.Data))), core.FormatBytes(cfg.MaxUploadBytes))
	}
	return nil
}

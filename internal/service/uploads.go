package service

import (
	"fmt"

	"github.com/uniwatch/uniwatch-api/pkg/config"
	appErrors "github.com/uniwatch/uniwatch-api/pkg/errors"
)

// ImageUpload carries one image received from a multipart request.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// validateUploads rejects empty, oversized or non-image files before any of
// them touch the blob store.
func validateUploads(uploads []ImageUpload, cfg config.UploadsConfig) error {
	if len(uploads) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "at least one image is required")
	}
	for _, upload := range uploads {
		if len(upload.Data) == 0 {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file %s is empty", upload.Filename))
		}
		if cfg.MaxFileSizeBytes > 0 && int64(len(upload.Data)) > cfg.MaxFileSizeBytes {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file %s exceeds the upload size limit", upload.Filename))
		}
		if !mimeAllowed(upload.ContentType, cfg.AllowedMIMEs) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file %s has unsupported type %s", upload.Filename, upload.ContentType))
		}
	}
	return nil
}

func mimeAllowed(contentType string, allowed []string) bool {
	for _, mime := range allowed {
		if contentType == mime {
			return true
		}
	}
	return false
}

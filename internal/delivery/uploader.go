// Package delivery relays cropped region images to the backend and deletes
// them locally once the backend has confirmed receipt.
package delivery

import (
	"context"

	"github.com/raoulx24/camrelay/internal/artifact"
	"github.com/raoulx24/camrelay/internal/config"
	"github.com/raoulx24/camrelay/internal/errs"
)

// Uploader sends one artifact. A nil error means the backend confirmed it.
type Uploader interface {
	Upload(ctx context.Context, d artifact.Descriptor) error
}

// NewUploader builds the uploader selected by delivery.backend.
func NewUploader(ctx context.Context, cfg config.DeliveryConfig) (Uploader, error) {
	switch cfg.Backend {
	case "", "http":
		return NewHTTPUploader(ctx, cfg.HTTP, cfg.OAuth2)
	case "s3":
		return NewS3Uploader(ctx, cfg.S3)
	default:
		return nil, errs.Configf("unknown delivery backend %q", cfg.Backend)
	}
}

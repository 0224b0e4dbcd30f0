package imagehost

import (
	"context"
	"fmt"
	"strings"

	"github.com/craftora/backoffice/pkg/config"
)

// Payload is one binary image ready to be pushed to the external host.
type Payload struct {
	Bytes    []byte
	FileName string
	MimeType string
}

// Outcome is the durable result of a successful upload.
type Outcome struct {
	URL string
}

// Uploader pushes one image to the external host. Implementations do not
// retry; a failed call aborts the caller's whole submission. Uploading the
// same bytes twice creates a second remote object, so callers must not invoke
// Upload twice for the same logical slot within one submission.
type Uploader interface {
	Upload(ctx context.Context, payload Payload) (*Outcome, error)
}

// New selects the configured provider.
func New(cfg config.ImageHostConfig) (Uploader, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "http":
		return NewHTTPUploader(cfg)
	case "cloudinary":
		return NewCloudinaryUploader(cfg)
	default:
		return nil, fmt.Errorf("unknown image host provider %q", cfg.Provider)
	}
}

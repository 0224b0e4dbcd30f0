package imagehost

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/craftora/backoffice/pkg/config"
	pkgerrors "github.com/craftora/backoffice/pkg/errors"
)

// CloudinaryUploader pushes images through the Cloudinary SDK instead of the
// generic multipart endpoint.
type CloudinaryUploader struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinaryUploader(cfg config.ImageHostConfig) (*CloudinaryUploader, error) {
	if cfg.CloudinaryURL == "" {
		return nil, fmt.Errorf("cloudinary url required")
	}
	cld, err := cloudinary.NewFromURL(cfg.CloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	return &CloudinaryUploader{cld: cld}, nil
}

func (u *CloudinaryUploader) Upload(ctx context.Context, payload Payload) (*Outcome, error) {
	if len(payload.Bytes) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "empty image payload")
	}

	result, err := u.cld.Upload.Upload(ctx, bytes.NewReader(payload.Bytes), uploader.UploadParams{})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUploadFailed, err, "cloudinary upload")
	}
	if strings.TrimSpace(result.SecureURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUploadFailed, "cloudinary response missing url")
	}
	return &Outcome{URL: result.SecureURL}, nil
}

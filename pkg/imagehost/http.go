package imagehost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/craftora/backoffice/pkg/config"
	pkgerrors "github.com/craftora/backoffice/pkg/errors"
)

const maxResponseBytes = 1 << 20

// HTTPUploader talks to a generic multipart image host whose responses look
// like {"success":true,"data":{"url":...}} or {"success":false,"error":{...}}.
type HTTPUploader struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewHTTPUploader(cfg config.ImageHostConfig) (*HTTPUploader, error) {
	if cfg.EndpointURL == "" {
		return nil, fmt.Errorf("image host endpoint required")
	}
	return &HTTPUploader{
		endpoint: cfg.EndpointURL,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: cfg.UploadTimeout},
	}, nil
}

type hostResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (u *HTTPUploader) Upload(ctx context.Context, payload Payload) (*Outcome, error) {
	if len(payload.Bytes) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "empty image payload")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, fileName(payload)))
	header.Set("Content-Type", payload.MimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build multipart body")
	}
	if _, err := part.Write(payload.Bytes); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write multipart body")
	}
	if u.apiKey != "" {
		if err := writer.WriteField("key", u.apiKey); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write api key field")
		}
	}
	if err := writer.Close(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "close multipart body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, &body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build upload request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUploadFailed, err, "image host unreachable")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUploadFailed, err, "read image host response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, pkgerrors.New(pkgerrors.CodeUploadFailed, fmt.Sprintf("image host returned status %d", resp.StatusCode))
	}

	var parsed hostResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUploadFailed, err, "malformed image host response")
	}
	if !parsed.Success {
		msg := strings.TrimSpace(parsed.Error.Message)
		if msg == "" {
			msg = "image host rejected the upload"
		}
		return nil, pkgerrors.New(pkgerrors.CodeUploadFailed, msg)
	}
	if strings.TrimSpace(parsed.Data.URL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUploadFailed, "image host response missing url")
	}

	return &Outcome{URL: parsed.Data.URL}, nil
}

func fileName(payload Payload) string {
	if name := strings.TrimSpace(payload.FileName); name != "" {
		return name
	}
	return "upload"
}

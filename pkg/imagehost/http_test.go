package imagehost

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/craftora/backoffice/pkg/config"
	pkgerrors "github.com/craftora/backoffice/pkg/errors"
)

func newTestUploader(t *testing.T, handler http.HandlerFunc) (*HTTPUploader, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	u, err := NewHTTPUploader(config.ImageHostConfig{
		EndpointURL:   server.URL,
		APIKey:        "k",
		UploadTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewHTTPUploader: %v", err)
	}
	return u, server
}

func payloadFixture() Payload {
	return Payload{Bytes: []byte("img-bytes"), FileName: "thumb.jpg", MimeType: "image/jpeg"}
}

func TestHTTPUploaderSuccess(t *testing.T) {
	t.Parallel()

	var gotContentType string
	u, _ := newTestUploader(t, func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if r.FormValue("key") != "k" {
			t.Errorf("api key missing, got %q", r.FormValue("key"))
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			t.Errorf("image part missing: %v", err)
		} else {
			defer file.Close()
			if header.Filename != "thumb.jpg" {
				t.Errorf("unexpected filename %q", header.Filename)
			}
		}
		w.Write([]byte(`{"success":true,"data":{"url":"https://img.example/abc.jpg"}}`))
	})

	out, err := u.Upload(context.Background(), payloadFixture())
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if out.URL != "https://img.example/abc.jpg" {
		t.Fatalf("unexpected url %q", out.URL)
	}
	if gotContentType == "" {
		t.Fatal("multipart content type not set")
	}
}

func TestHTTPUploaderNonSuccessStatus(t *testing.T) {
	t.Parallel()

	u, _ := newTestUploader(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	})

	_, err := u.Upload(context.Background(), payloadFixture())
	if pkgerrors.As(err).Code() != pkgerrors.CodeUploadFailed {
		t.Fatalf("expected upload failed, got %v", err)
	}
}

func TestHTTPUploaderMalformedBody(t *testing.T) {
	t.Parallel()

	u, _ := newTestUploader(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	})

	_, err := u.Upload(context.Background(), payloadFixture())
	if pkgerrors.As(err).Code() != pkgerrors.CodeUploadFailed {
		t.Fatalf("expected upload failed, got %v", err)
	}
}

func TestHTTPUploaderRejectedWithMessage(t *testing.T) {
	t.Parallel()

	u, _ := newTestUploader(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error":{"message":"quota exceeded"}}`))
	})

	_, err := u.Upload(context.Background(), payloadFixture())
	typed := pkgerrors.As(err)
	if typed.Code() != pkgerrors.CodeUploadFailed {
		t.Fatalf("expected upload failed, got %v", err)
	}
	if typed.Message() != "quota exceeded" {
		t.Fatalf("expected host message to surface, got %q", typed.Message())
	}
}

func TestHTTPUploaderMissingURL(t *testing.T) {
	t.Parallel()

	u, _ := newTestUploader(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{}}`))
	})

	_, err := u.Upload(context.Background(), payloadFixture())
	if pkgerrors.As(err).Code() != pkgerrors.CodeUploadFailed {
		t.Fatalf("expected upload failed, got %v", err)
	}
}

func TestHTTPUploaderEmptyPayload(t *testing.T) {
	t.Parallel()

	u, _ := newTestUploader(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty payload")
	})

	_, err := u.Upload(context.Background(), Payload{})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewSelectsProvider(t *testing.T) {
	t.Parallel()

	if _, err := New(config.ImageHostConfig{Provider: "http", EndpointURL: "https://x"}); err != nil {
		t.Fatalf("http provider: %v", err)
	}
	if _, err := New(config.ImageHostConfig{Provider: "ftp"}); err == nil {
		t.Fatal("unknown provider should error")
	}
}

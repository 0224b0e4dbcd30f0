package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"sort"
	"strings"

	_ "image/gif"
	_ "image/png"

	"github.com/craftora/backoffice/pkg/config"
	pkgerrors "github.com/craftora/backoffice/pkg/errors"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/webp"
)

const minJPEGQuality = 40

var allowedImageMimeTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/webp": {},
	"image/gif":  {},
}

// NormalizedImage is the byte payload handed to the upload gateway after
// validation and, when the source blew the size budget, recompression.
type NormalizedImage struct {
	Bytes        []byte
	MimeType     string
	FileName     string
	Recompressed bool
}

// Normalizer validates image payloads and shrinks oversized ones toward the
// configured byte and dimension budgets. It is a pure transform over bytes
// and never touches the network.
type Normalizer struct {
	maxBytes     int64
	maxDimension int
	jpegQuality  int
}

// NewNormalizer constructs a normalizer from the media limits.
func NewNormalizer(cfg config.MediaConfig) (*Normalizer, error) {
	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("max upload bytes must be positive")
	}
	if cfg.MaxDimension <= 0 {
		return nil, fmt.Errorf("max dimension must be positive")
	}
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		return nil, fmt.Errorf("jpeg quality must be in (0, 100]")
	}
	return &Normalizer{
		maxBytes:     cfg.MaxUploadBytes,
		maxDimension: cfg.MaxDimension,
		jpegQuality:  cfg.JPEGQuality,
	}, nil
}

// Normalize sniffs the payload's real MIME type, rejects disallowed kinds
// before any compute is spent, passes small files through untouched, and
// re-encodes oversized ones as JPEG under the configured budgets.
func (n *Normalizer) Normalize(fileName string, data []byte) (*NormalizedImage, error) {
	if len(data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image payload is empty")
	}

	detected := mimetype.Detect(data)
	mimeType := strings.ToLower(detected.String())
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	if _, ok := allowedImageMimeTypes[mimeType]; !ok {
		return nil, pkgerrors.New(
			pkgerrors.CodeValidation,
			fmt.Sprintf("unsupported image type %q, expected one of %s", mimeType, allowedMimeList()),
		)
	}

	if int64(len(data)) <= n.maxBytes {
		return &NormalizedImage{
			Bytes:    data,
			MimeType: mimeType,
			FileName: fileName,
		}, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeCompressionFailed, err, "image could not be decoded for compression")
	}

	compressed, err := n.recompress(img)
	if err != nil {
		return nil, err
	}

	return &NormalizedImage{
		Bytes:        compressed,
		MimeType:     "image/jpeg",
		FileName:     jpegFileName(fileName),
		Recompressed: true,
	}, nil
}

// recompress scales the image down to the dimension cap and walks the JPEG
// quality ladder until the result fits the byte budget. When quality alone
// cannot get there it halves the dimensions and tries again.
func (n *Normalizer) recompress(img image.Image) ([]byte, error) {
	scaled := scaleDown(img, n.maxDimension)

	for {
		for quality := n.jpegQuality; quality >= minJPEGQuality; quality -= 10 {
			var buf bytes.Buffer
			if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: quality}); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeCompressionFailed, err, "image could not be re-encoded")
			}
			if int64(buf.Len()) <= n.maxBytes {
				return buf.Bytes(), nil
			}
		}

		bounds := scaled.Bounds()
		if bounds.Dx() <= 64 || bounds.Dy() <= 64 {
			return nil, pkgerrors.New(pkgerrors.CodeCompressionFailed, "image could not be compressed under the size limit")
		}
		scaled = scaleDown(scaled, maxInt(bounds.Dx(), bounds.Dy())/2)
	}
}

func scaleDown(img image.Image, maxDimension int) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= maxDimension && height <= maxDimension {
		return img
	}

	scale := float64(maxDimension) / float64(maxInt(width, height))
	target := image.Rect(0, 0, maxInt(1, int(float64(width)*scale)), maxInt(1, int(float64(height)*scale)))
	dst := image.NewRGBA(target)
	draw.CatmullRom.Scale(dst, target, img, bounds, draw.Over, nil)
	return dst
}

func jpegFileName(fileName string) string {
	base := strings.TrimSpace(fileName)
	if base == "" {
		return "image.jpg"
	}
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	return base + ".jpg"
}

func allowedMimeList() string {
	list := make([]string, 0, len(allowedImageMimeTypes))
	for value := range allowedImageMimeTypes {
		list = append(list, value)
	}
	sort.Strings(list)
	return strings.Join(list, ", ")
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

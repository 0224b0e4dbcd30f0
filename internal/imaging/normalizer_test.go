package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"

	"github.com/craftora/backoffice/pkg/config"
	pkgerrors "github.com/craftora/backoffice/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMediaConfig() config.MediaConfig {
	return config.MediaConfig{
		MaxUploadBytes: 8 * 1024,
		MaxDimension:   128,
		JPEGQuality:    80,
	}
}

// noisyPNG builds a PNG that resists lossless compression so the encoded
// size reliably exceeds small byte budgets.
func noisyPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(rng.Intn(256)),
				G: uint8(rng.Intn(256)),
				B: uint8(rng.Intn(256)),
				A: 255,
			})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func solidPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNewNormalizerValidatesConfig(t *testing.T) {
	_, err := NewNormalizer(config.MediaConfig{MaxUploadBytes: 0, MaxDimension: 100, JPEGQuality: 80})
	assert.Error(t, err)

	_, err = NewNormalizer(config.MediaConfig{MaxUploadBytes: 1024, MaxDimension: 0, JPEGQuality: 80})
	assert.Error(t, err)

	_, err = NewNormalizer(config.MediaConfig{MaxUploadBytes: 1024, MaxDimension: 100, JPEGQuality: 101})
	assert.Error(t, err)
}

func TestNormalizePassesSmallFileThroughUnchanged(t *testing.T) {
	normalizer, err := NewNormalizer(testMediaConfig())
	require.NoError(t, err)

	data := solidPNG(t, 32, 32)
	require.LessOrEqual(t, int64(len(data)), testMediaConfig().MaxUploadBytes)

	result, err := normalizer.Normalize("logo.png", data)
	require.NoError(t, err)
	assert.Equal(t, data, result.Bytes)
	assert.Equal(t, "image/png", result.MimeType)
	assert.Equal(t, "logo.png", result.FileName)
	assert.False(t, result.Recompressed)
}

func TestNormalizeRejectsDisallowedMimeType(t *testing.T) {
	normalizer, err := NewNormalizer(testMediaConfig())
	require.NoError(t, err)

	_, err = normalizer.Normalize("notes.txt", []byte("plain text, not an image"))
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestNormalizeRejectsEmptyPayload(t *testing.T) {
	normalizer, err := NewNormalizer(testMediaConfig())
	require.NoError(t, err)

	_, err = normalizer.Normalize("empty.png", nil)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestNormalizeRecompressesOversizedImage(t *testing.T) {
	cfg := testMediaConfig()
	normalizer, err := NewNormalizer(cfg)
	require.NoError(t, err)

	data := noisyPNG(t, 300, 200)
	require.Greater(t, int64(len(data)), cfg.MaxUploadBytes)

	result, err := normalizer.Normalize("photo.png", data)
	require.NoError(t, err)
	assert.True(t, result.Recompressed)
	assert.Equal(t, "image/jpeg", result.MimeType)
	assert.Equal(t, "photo.jpg", result.FileName)
	assert.LessOrEqual(t, int64(len(result.Bytes)), cfg.MaxUploadBytes)

	decoded, err := jpeg.Decode(bytes.NewReader(result.Bytes))
	require.NoError(t, err)
	bounds := decoded.Bounds()
	assert.LessOrEqual(t, bounds.Dx(), cfg.MaxDimension)
	assert.LessOrEqual(t, bounds.Dy(), cfg.MaxDimension)
}

func TestNormalizeCorruptImageYieldsCompressionFailed(t *testing.T) {
	cfg := testMediaConfig()
	normalizer, err := NewNormalizer(cfg)
	require.NoError(t, err)

	// A real PNG header followed by garbage sniffs as image/png but
	// cannot be decoded.
	data := noisyPNG(t, 300, 200)
	truncated := data[:len(data)/2]
	require.Greater(t, int64(len(truncated)), cfg.MaxUploadBytes)

	_, err = normalizer.Normalize("broken.png", truncated)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeCompressionFailed, typed.Code())
	assert.True(t, pkgerrors.Recoverable(err))
}

func TestScaleDownKeepsAspectRatio(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 400, 200))
	scaled := scaleDown(img, 100)
	bounds := scaled.Bounds()
	assert.Equal(t, 100, bounds.Dx())
	assert.Equal(t, 50, bounds.Dy())
}

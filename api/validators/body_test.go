package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/craftora/backoffice/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fieldsPayload struct {
	Fields map[string]string `json:"fields" validate:"required"`
}

func decode(t *testing.T, body string, dest any) error {
	t.Helper()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/drafts/x/fields", strings.NewReader(body))
	return DecodeJSONBody(httptest.NewRecorder(), req, dest)
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	var payload fieldsPayload
	require.NoError(t, decode(t, `{"fields":{"name":"Bags"}}`, &payload))
	assert.Equal(t, "Bags", payload.Fields["name"])
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	var payload fieldsPayload
	err := decode(t, `{"fields":{},"extra":true}`, &payload)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestDecodeJSONBodyReportsMissingRequiredField(t *testing.T) {
	var payload fieldsPayload
	err := decode(t, `{}`, &payload)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "is required", details["fields"])
}

func TestDecodeJSONBodyCapsBodySize(t *testing.T) {
	var payload fieldsPayload
	oversized := `{"fields":{"name":"` + strings.Repeat("x", maxJSONBodyBytes) + `"}}`
	err := decode(t, oversized, &payload)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

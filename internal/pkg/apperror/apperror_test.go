package apperror

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code   Code
		status int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeInvalidState, http.StatusBadRequest},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeConflict, http.StatusConflict},
		{CodeRateLimit, http.StatusTooManyRequests},
		{CodeInternal, http.StatusInternalServerError},
		{CodeDependency, http.StatusServiceUnavailable},
		{CodeCanceled, StatusClientClosedRequest},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, MetadataFor(tt.code).HTTPStatus, "code %s", tt.code)
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, MetadataFor("SOMETHING_UNKNOWN").HTTPStatus)
}

func TestAsThroughWrappedChain(t *testing.T) {
	base := Validation("quantity exceeds stock").WithDetails(map[string]any{"available": 3})
	wrapped := fmt.Errorf("failed to add item: %w", base)

	typed := As(wrapped)
	require.NotNil(t, typed)
	assert.Equal(t, CodeValidation, typed.Code())
	assert.Equal(t, map[string]any{"available": 3}, typed.Details())
	assert.True(t, IsCode(wrapped, CodeValidation))
	assert.False(t, IsCode(wrapped, CodeConflict))
}

func TestPublicMessageHidesInternalText(t *testing.T) {
	err := Wrap(CodeInternal, stdErrors.New("pq: connection refused"), "failed to load order")
	assert.Equal(t, "internal server error", err.PublicMessage())
	assert.ErrorContains(t, err, "connection refused")

	notFound := NotFound("order not found")
	assert.Equal(t, "order not found", notFound.PublicMessage())
}

func TestFromUntypedError(t *testing.T) {
	assert.Nil(t, From(nil))

	typed := From(stdErrors.New("boom"))
	assert.Equal(t, CodeInternal, typed.Code())
	assert.Equal(t, http.StatusInternalServerError, typed.HTTPStatus())
}

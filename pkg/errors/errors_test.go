package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeCapacity, status: http.StatusConflict, publicMsg: "capacity exceeded", detailsOK: true},
		{code: CodeIdempotency, status: http.StatusConflict, publicMsg: "idempotency key reused", detailsOK: true},
		{code: CodeRateLimit, status: http.StatusTooManyRequests, publicMsg: "rate limit exceeded"},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		require.Equal(t, tt.status, meta.HTTPStatus, "code %s", tt.code)
		require.Equal(t, tt.publicMsg, meta.PublicMessage, "code %s", tt.code)
		require.Equal(t, tt.retryable, meta.Retryable, "code %s", tt.code)
		require.Equal(t, tt.detailsOK, meta.DetailsAllowed, "code %s", tt.code)
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	require.Equal(t, http.StatusInternalServerError, meta.HTTPStatus)
}

func TestConstructorsCarryCodeMessageDetails(t *testing.T) {
	base := New(CodeCapacity, "shelf A-3 is full")
	require.Equal(t, CodeCapacity, base.Code())
	require.Equal(t, "shelf A-3 is full", base.Message())
	require.Nil(t, base.Details())

	base.WithDetails(map[string]any{"shelfId": "a-3", "holding": 12})
	require.NotNil(t, base.Details())

	cause := stdErrors.New("deadlock detected")
	wrapped := Wrap(CodeDependency, cause, "reserve slots")
	require.ErrorIs(t, wrapped, cause)
	require.Equal(t, CodeDependency, wrapped.Code())
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "admin only")
	typed := As(err)
	require.NotNil(t, typed)
	require.Equal(t, CodeForbidden, typed.Code())
	require.Nil(t, As(nil))
	require.Nil(t, As(stdErrors.New("plain")))
}

package apperrors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"marketplace/internal/apperrors"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("create order: %w", apperrors.NotFound("product %s not found", "p-1"))
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(wrapped))
	assert.True(t, apperrors.Is(wrapped, apperrors.KindNotFound))
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(errors.New("boom")))
	assert.False(t, apperrors.Is(nil, apperrors.KindInternal))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[apperrors.Kind]int{
		apperrors.KindValidation:      http.StatusBadRequest,
		apperrors.KindUnauthenticated: http.StatusUnauthorized,
		apperrors.KindForbidden:       http.StatusForbidden,
		apperrors.KindNotFound:        http.StatusNotFound,
		apperrors.KindConflict:        http.StatusConflict,
		apperrors.KindInternal:        http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, kind.HTTPStatus(), kind.String())
	}
}

func TestInternalUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := apperrors.Internal(cause, "failed to load orders")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
}

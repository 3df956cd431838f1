package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToDomainErrorUnwrapsWrapped(t *testing.T) {
	base := NewConflict("username already taken", nil)
	wrapped := fmt.Errorf("create user: %w", base)

	de := ToDomainError(wrapped)
	assert.Equal(t, CodeConflict, de.Code)
	assert.Equal(t, http.StatusConflict, de.HTTPStatus)
}

func TestToDomainErrorHidesUnknown(t *testing.T) {
	de := ToDomainError(errors.New("pq: connection refused"))
	assert.Equal(t, CodeInternal, de.Code)
	assert.Equal(t, "internal server error", de.Message)
	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
}

func TestUnauthorizedKeepsCause(t *testing.T) {
	cause := errors.New("denied")
	err := NewUnauthorized("authentication required", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "authentication required", ToDomainError(err).Message)
}

func TestCodeForStatus(t *testing.T) {
	assert.Equal(t, CodeNotFound, CodeForStatus(http.StatusNotFound))
	assert.Equal(t, CodeInternal, CodeForStatus(http.StatusBadGateway))
	assert.Equal(t, "Method Not Allowed", CodeForStatus(http.StatusMethodNotAllowed))
}

package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusOK, HTTPStatus(nil))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(InvalidInput("bad day %q", "x")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(Upstream("slack", errors.New("timeout"))))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(Persistence("bulk create", errors.New("down"))))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(fmt.Errorf("tag 1: %w", ErrNotFound)))
}

func TestKind(t *testing.T) {
	assert.Equal(t, "invalid_input", Kind(InvalidInput("x")))
	assert.Equal(t, "upstream_unavailable", Kind(Upstream("op", errors.New("x"))))
	assert.Equal(t, "persistence_error", Kind(Persistence("op", errors.New("x"))))
	assert.Equal(t, "internal_error", Kind(errors.New("x")))
}

func TestPartialDataWarning(t *testing.T) {
	cause := errors.New("rate limited")
	var err error = &PartialDataWarning{Scope: "channel", ID: "C1", Err: cause}

	assert.True(t, IsPartial(err))
	assert.True(t, IsPartial(fmt.Errorf("wrapped: %w", err)))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "channel C1")
	assert.False(t, IsPartial(cause))
}

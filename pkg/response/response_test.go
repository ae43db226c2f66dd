package response

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesCodeAndMessage(t *testing.T) {
	base := NewError(http.StatusBadRequest, "bad request")

	assert.ErrorIs(t, NewError(http.StatusBadRequest, "bad request"), base)
	assert.NotErrorIs(t, NewError(http.StatusConflict, "bad request"), base)
	assert.NotErrorIs(t, NewError(http.StatusBadRequest, "other"), base)
}

func TestStatusCode(t *testing.T) {
	unavailable := NewError(http.StatusServiceUnavailable, "model unavailable")

	assert.Equal(t, http.StatusServiceUnavailable, StatusCode(unavailable))
	assert.Equal(t, http.StatusServiceUnavailable, StatusCode(fmt.Errorf("%w: boom", unavailable)))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(fmt.Errorf("plain")))
}

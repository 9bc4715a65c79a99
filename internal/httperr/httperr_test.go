package httperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campusware/registrar/internal/httperr"
)

func TestStatusOf(t *testing.T) {
	require.Equal(t, 400, httperr.StatusOf(httperr.BadRequest("nope")))
	require.Equal(t, 403, httperr.StatusOf(httperr.Forbidden("nope")))
	require.Equal(t, 404, httperr.StatusOf(httperr.NotFound("nope")))
	require.Equal(t, 500, httperr.StatusOf(errors.New("plain")))

	wrapped := fmt.Errorf("context: %w", httperr.NotFound("student x"))
	require.Equal(t, 404, httperr.StatusOf(wrapped))
}

func TestWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	httperr.Write(rec, httperr.Forbidden("marks are locked"))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "marks are locked")

	// non-httperr errors must not leak internals
	rec = httptest.NewRecorder()
	httperr.Write(rec, errors.New("pq: secret detail"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "secret")
}

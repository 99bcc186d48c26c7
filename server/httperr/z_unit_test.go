package httperr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zintix-labs/cascadelab/errs"
)

func TestStatusCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errs.NewWarn("bad"), http.StatusBadRequest},
		{errs.Wrap(errs.NewWarn("bad"), "ctx"), http.StatusBadRequest},
		{errs.NewFatal("broken"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
		{fmt.Errorf("wrap: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{context.Canceled, http.StatusRequestTimeout},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, StatusCode(c.err), c.err.Error())
	}
}

func TestErrs(t *testing.T) {
	w := httptest.NewRecorder()
	Errs(w, errs.NewWarn("level id not found"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	var b Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	assert.Equal(t, "warn", b.Level)
	assert.Contains(t, b.Error, "level id not found")

	w = httptest.NewRecorder()
	Errs(w, nil)
	assert.Zero(t, w.Body.Len())
}

package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var payload = strings.Repeat(`{"rows":["RGBYPO","OPYBGR"]}`, 64)

func serve(h http.Handler, encoding string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if encoding != "" {
		req.Header.Set("Accept-Encoding", encoding)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestCompressionGzip(t *testing.T) {
	h := Compression(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, payload)
	}))
	w := serve(h, "gzip, deflate")
	require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	got, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, payload, string(got))
}

func TestCompressionZstdPreferred(t *testing.T) {
	h := Compression(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, payload)
	}))
	w := serve(h, "gzip, zstd")
	require.Equal(t, "zstd", w.Header().Get("Content-Encoding"))

	dec, err := zstd.NewReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer dec.Close()
	got, err := io.ReadAll(dec)
	require.NoError(t, err)
	assert.Equal(t, payload, string(got))
}

func TestCompressionSkips(t *testing.T) {
	small := NewCompression(CompressConfig{GzipLevel: gzip.BestSpeed, ZstdLevel: zstd.SpeedFastest, MinSize: 1024})
	h := small(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "2")
		_, _ = io.WriteString(w, "ok")
	}))
	w := serve(h, "gzip")
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, "ok", w.Body.String())

	noBody := Compression(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	w = serve(noBody, "zstd")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Header().Get("Content-Encoding"))

	plain := serve(Compression(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, payload)
	})), "")
	assert.Equal(t, payload, plain.Body.String())
}

func TestRecover(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	h := RequestID(Recover(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))
	w := serve(h, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, buf.String(), "http.panic")
	assert.Contains(t, buf.String(), "boom")
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	h := RequestID(AccessLog(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = io.WriteString(w, "tea")
	})))
	w := serve(h, "")
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Contains(t, buf.String(), "status=418")
	assert.Contains(t, buf.String(), "bytes=3")
}

func TestAccessLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, accessLevel("/health", 200, time.Millisecond))
	assert.Equal(t, slog.LevelInfo, accessLevel("/v1/levels", 200, time.Millisecond))
	assert.Equal(t, slog.LevelWarn, accessLevel("/v1/sim", 200, SlowRequest))
	assert.Equal(t, slog.LevelWarn, accessLevel("/v1/play/move", 400, time.Millisecond))
	assert.Equal(t, slog.LevelError, accessLevel("/v1/play/move", 500, time.Millisecond))
}

func TestAccessLogLevelID(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	h := AccessLog(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(http.MethodGet, "/v1/sim?level_id=3", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Contains(t, buf.String(), "level_id=3")
	assert.Contains(t, buf.String(), "route=/v1/sim")
	assert.Contains(t, buf.String(), "status=200")
}

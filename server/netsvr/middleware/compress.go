package middleware

import (
	"bufio"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade") ||
		r.Header.Get("Upgrade") != ""
}

func isNoBodyStatus(code int) bool {
	// 204 No Content, 304 Not Modified, 1xx Informational
	return (code >= 100 && code < 200) || code == http.StatusNoContent || code == http.StatusNotModified
}

// CompressConfig 壓縮等級；MinSize 以 Content-Length 判斷，小於它的回應不壓縮（0 表示一律壓縮）。
type CompressConfig struct {
	GzipLevel int
	ZstdLevel zstd.EncoderLevel
	MinSize   int
}

var DefaultCompressConfig = CompressConfig{
	GzipLevel: gzip.DefaultCompression,
	ZstdLevel: zstd.SpeedFastest,
}

// writerPools 每組設定各自一份 pool，不同等級的 encoder 不混用。
type writerPools struct {
	cfg  CompressConfig
	gzip sync.Pool
	zstd sync.Pool
}

func (p *writerPools) getZstd(w io.Writer) *zstd.Encoder {
	if v := p.zstd.Get(); v != nil {
		zw := v.(*zstd.Encoder)
		zw.Reset(w)
		return zw
	}
	zw, err := zstd.NewWriter(w,
		zstd.WithEncoderLevel(p.cfg.ZstdLevel),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		panic(err)
	}
	return zw
}

func (p *writerPools) putZstd(zw *zstd.Encoder) {
	_ = zw.Close()
	p.zstd.Put(zw)
}

func (p *writerPools) getGzip(w io.Writer) *gzip.Writer {
	if v := p.gzip.Get(); v != nil {
		gw := v.(*gzip.Writer)
		gw.Reset(w)
		return gw
	}
	gw, err := gzip.NewWriterLevel(w, p.cfg.GzipLevel)
	if err != nil {
		gw = gzip.NewWriter(w)
	}
	return gw
}

func (p *writerPools) putGzip(gw *gzip.Writer) {
	_ = gw.Close()
	p.gzip.Put(gw)
}

// --- ResponseWriter Wrapper ---

type compressResponseWriter struct {
	http.ResponseWriter
	w        io.Writer // gzip.Writer 或 zstd.Encoder
	disabled bool      // 204/304 或太小的回應
	minSize  int
	checked  bool
}

// decide 第一次寫出前依狀態碼與 Content-Length 決定是否壓縮。
func (cw *compressResponseWriter) decide(code int) {
	if cw.checked {
		return
	}
	cw.checked = true
	small := false
	if cw.minSize > 0 {
		if n, err := strconv.Atoi(cw.Header().Get("Content-Length")); err == nil && n < cw.minSize {
			small = true
		}
	}
	if isNoBodyStatus(code) || small {
		cw.disabled = true
		cw.Header().Del("Content-Encoding")
		cw.Header().Del("Vary")
		return
	}
	cw.Header().Del("Content-Length")
}

func (cw *compressResponseWriter) Write(b []byte) (int, error) {
	cw.decide(http.StatusOK)
	if cw.disabled {
		return cw.ResponseWriter.Write(b)
	}
	if cw.Header().Get("Content-Type") == "" {
		cw.Header().Set("Content-Type", http.DetectContentType(b))
	}
	return cw.w.Write(b)
}

func (cw *compressResponseWriter) WriteHeader(code int) {
	cw.decide(code)
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *compressResponseWriter) Flush() {
	if !cw.disabled {
		if f, ok := cw.w.(interface{ Flush() error }); ok {
			_ = f.Flush()
		}
	}
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (cw *compressResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := cw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("underlying response writer does not support Hijacker")
	}
	return hj.Hijack()
}

func (cw *compressResponseWriter) Push(target string, opts *http.PushOptions) error {
	if p, ok := cw.ResponseWriter.(http.Pusher); ok {
		return p.Push(target, opts)
	}
	return errors.New("underlying response writer does not support Pusher")
}

// --- Middleware 入口 ---

// Compression 依 Accept-Encoding 選 zstd 或 gzip（zstd 優先），使用 DefaultCompressConfig。
func Compression(next http.Handler) http.Handler {
	return defaultCompression(next)
}

var defaultCompression = NewCompression(DefaultCompressConfig)

// NewCompression 以指定設定建立壓縮 middleware。
func NewCompression(cfg CompressConfig) func(http.Handler) http.Handler {
	pools := &writerPools{cfg: cfg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead || isWebSocketUpgrade(r) || w.Header().Get("Content-Encoding") != "" {
				next.ServeHTTP(w, r)
				return
			}
			encoding := r.Header.Get("Accept-Encoding")
			switch {
			case strings.Contains(encoding, "zstd"):
				w.Header().Set("Content-Encoding", "zstd")
				w.Header().Add("Vary", "Accept-Encoding")
				zw := pools.getZstd(w)
				cw := &compressResponseWriter{ResponseWriter: w, w: zw, minSize: cfg.MinSize}
				defer func() {
					// 沒有壓縮時 footer 丟到 io.Discard
					if cw.disabled {
						zw.Reset(io.Discard)
					}
					pools.putZstd(zw)
				}()
				next.ServeHTTP(cw, r)
			case strings.Contains(encoding, "gzip"):
				w.Header().Set("Content-Encoding", "gzip")
				w.Header().Add("Vary", "Accept-Encoding")
				gw := pools.getGzip(w)
				cw := &compressResponseWriter{ResponseWriter: w, w: gw, minSize: cfg.MinSize}
				defer func() {
					if cw.disabled {
						gw.Reset(io.Discard)
					}
					pools.putGzip(gw)
				}()
				next.ServeHTTP(cw, r)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

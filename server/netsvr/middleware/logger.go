package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// SlowRequest 超過這個延遲的請求以 Warn 記錄（大批模擬通常落在這裡）。
const SlowRequest = 2 * time.Second

// accessWriter 記下實際送出的狀態碼與 body 大小，第一次 WriteHeader 之後的呼叫忽略。
type accessWriter struct {
	http.ResponseWriter
	status int
	bytes  int
	wrote  bool
}

func (a *accessWriter) WriteHeader(code int) {
	if a.wrote {
		return
	}
	a.wrote = true
	a.status = code
	a.ResponseWriter.WriteHeader(code)
}

func (a *accessWriter) Write(b []byte) (int, error) {
	if !a.wrote {
		a.WriteHeader(http.StatusOK)
	}
	n, err := a.ResponseWriter.Write(b)
	a.bytes += n
	return n, err
}

func (a *accessWriter) Flush() {
	if f, ok := a.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (a *accessWriter) Unwrap() http.ResponseWriter { return a.ResponseWriter }

// AccessLog 每個請求一筆 "http.access"。
//
// route 取 chi 的路由樣板（/v1/play/move），沒有對到路由時退回原始 path；
// 帶 level_id 查詢參數的請求一併記下，方便依關卡聚合。
// /health 只在 Debug 記錄。log 為 nil 時不做任何事。
func AccessLog(log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			aw := &accessWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(aw, r)
			used := time.Since(start)

			attrs := []slog.Attr{
				slog.Int("status", aw.status),
				slog.String("method", r.Method),
				slog.String("route", routeOf(r)),
				slog.Int("bytes", aw.bytes),
				slog.Duration("latency", used),
				reqAttr(r),
			}
			if lid := r.URL.Query().Get("level_id"); lid != "" {
				attrs = append(attrs, slog.String("level_id", lid))
			}
			if enc := w.Header().Get("Content-Encoding"); enc != "" {
				attrs = append(attrs, slog.String("enc", enc))
			}
			log.LogAttrs(r.Context(), accessLevel(r.URL.Path, aw.status, used), "http.access", attrs...)
		})
	}
}

func routeOf(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

func accessLevel(path string, status int, used time.Duration) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400 || used >= SlowRequest:
		return slog.LevelWarn
	case path == "/health":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

package middleware

import (
	"log/slog"
	"net/http"

	chimid "github.com/go-chi/chi/v5/middleware"
)

// RequestID 沿用上游 X-Request-Id，沒有則由 chi 產生，並回寫到 response header，
// 前端回報對局問題時可直接附上這個 id 對照 access log。
func RequestID(next http.Handler) http.Handler {
	return chimid.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := ReqID(r); id != "" {
			w.Header().Set(chimid.RequestIDHeader, id)
		}
		next.ServeHTTP(w, r)
	}))
}

// ReqID 目前請求的 id；沒掛 RequestID 時為空字串。
func ReqID(r *http.Request) string {
	return chimid.GetReqID(r.Context())
}

func reqAttr(r *http.Request) slog.Attr {
	return slog.String("req_id", ReqID(r))
}

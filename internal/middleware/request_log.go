package middleware

import (
	"net/http"
	"time"

	"github.com/abp0107/whatsapp-clone/internal/logger"
)

// RequestLog логирует каждый HTTP-запрос: method, path, статус и время (асинхронно, не блокирует).
// 5xx пишутся как ошибки, остальное — на debug.
func RequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrap := wrapWriter(w)
		next.ServeHTTP(wrap, r)
		ms := time.Since(start).Milliseconds()
		if wrap.status >= 500 {
			logger.Errorf("http %s %s status=%d duration_ms=%d", r.Method, r.URL.Path, wrap.status, ms)
			return
		}
		logger.Debugf("http %s %s status=%d duration_ms=%d user=%s", r.Method, r.URL.Path, wrap.status, ms, GetUserID(r.Context()))
	})
}

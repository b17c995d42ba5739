package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/abp0107/whatsapp-clone/internal/logger"
	"github.com/go-resty/resty/v2"
)

type validateRequest struct {
	SessionID string `json:"session_id"`
	Timestamp string `json:"timestamp"`
	Signature string `json:"signature"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	Body      string `json:"body"`
}

type validateResponse struct {
	UserID string `json:"user_id"`
}

// NewAuthClient — resty-клиент микросервиса авторизации.
func NewAuthClient(authServiceURL string) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimSuffix(authServiceURL, "/")).
		SetTimeout(5 * time.Second).
		SetHeader("Content-Type", "application/json")
}

// sessionParam — заголовок, для WebSocket допускается query-параметр (браузер не шлёт свои заголовки).
func sessionParam(r *http.Request, header, query string) string {
	if v := r.Header.Get(header); v != "" {
		return v
	}
	return r.URL.Query().Get(query)
}

// AuthServiceValidate вызывает микросервис авторизации для проверки сессии (X-Session-Id, X-Timestamp, X-Signature).
func AuthServiceValidate(client *resty.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := validateRequest{
				SessionID: sessionParam(r, "X-Session-Id", "session_id"),
				Timestamp: sessionParam(r, "X-Timestamp", "timestamp"),
				Signature: sessionParam(r, "X-Signature", "signature"),
				Method:    r.Method,
				// Подписывается только pathname, без query.
				Path: r.URL.Path,
			}
			if req.SessionID == "" || req.Timestamp == "" || req.Signature == "" {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if r.Body != nil {
				body, err := io.ReadAll(r.Body)
				if err != nil {
					writeJSONError(w, http.StatusBadRequest, "bad request")
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				// multipart (фото) клиент подписывает с пустым телом.
				if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
					req.Body = string(body)
				}
			}

			var result validateResponse
			resp, err := client.R().
				SetContext(r.Context()).
				SetBody(req).
				SetResult(&result).
				ForceContentType("application/json").
				Post("/internal/validate")
			if err != nil {
				logger.Warnf("auth validate session_id=%s: %v", MaskSessionID(req.SessionID), err)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if resp.StatusCode() != http.StatusOK || result.UserID == "" {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			ctx := context.WithValue(r.Context(), UserIDKey, result.UserID)
			ctx = context.WithValue(ctx, SessionIDKey, req.SessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// HeaderIdentity доверяет X-User-Id (или ?user_id= для WebSocket). Только для разработки без auth-сервиса.
func HeaderIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(sessionParam(r, "X-User-Id", "user_id"))
		if userID == "" {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// MaskSessionID оставляет в логах только первые 4 символа session_id.
func MaskSessionID(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "***"
}

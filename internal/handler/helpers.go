package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/abp0107/whatsapp-clone/internal/apperr"
	"github.com/abp0107/whatsapp-clone/internal/logger"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Notice string            `json:"notice,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// noticeResponse — ответ на команду без данных: только текст уведомления для пользователя.
type noticeResponse struct {
	Notice string `json:"notice"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("writeJSON encode: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusOf сопоставляет вид ошибки приложения HTTP-статусу.
func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindPermissionDenied, apperr.KindBlocked:
		return http.StatusForbidden
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	case apperr.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeAppError пишет ошибку сервиса. Внутренние ошибки логируются, клиенту уходит только общий текст.
func writeAppError(w http.ResponseWriter, op string, err error) {
	kind := apperr.KindOf(err)
	resp := errorResponse{Error: apperr.Message(err)}
	switch kind {
	case apperr.KindInternal:
		logger.Errorf("%s: %v", op, err)
	case apperr.KindUnavailable:
		logger.Warnf("%s: %v", op, err)
		w.Header().Set("Retry-After", "1")
	case apperr.KindBlocked:
		resp.Notice = resp.Error
	case apperr.KindValidation:
		var ve *apperr.ValidationError
		if errors.As(err, &ve) {
			resp.Fields = ve.Fields
		}
	}
	writeJSON(w, statusOf(kind), resp)
}

func decodeJSON(r *http.Request, dst any) bool {
	return json.NewDecoder(r.Body).Decode(dst) == nil
}

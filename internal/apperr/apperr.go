// Package apperr — классификация ошибок приложения: валидация, не найдено, нет прав,
// блокировка, лимит, временная недоступность хранилища.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindPermissionDenied
	KindBlocked
	KindRateLimited
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindPermissionDenied:
		return "permission_denied"
	case KindBlocked:
		return "blocked"
	case KindRateLimited:
		return "rate_limited"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// kindError — sentinel с привязанным видом; сравнивается через errors.Is.
type kindError struct {
	kind Kind
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func newKind(kind Kind, msg string) error { return &kindError{kind: kind, msg: msg} }

var (
	ErrNotFound         = newKind(KindNotFound, "not found")
	ErrBlocked          = newKind(KindBlocked, "You have blocked this user")
	ErrEmptyMessage     = newKind(KindValidation, "message body is empty")
	ErrPermissionDenied = newKind(KindPermissionDenied, "permission denied")
	ErrRateLimited      = newKind(KindRateLimited, "too many messages, slow down")
	// ErrUnavailable — сеть/хранилище временно недоступны, операцию можно повторить.
	ErrUnavailable = newKind(KindUnavailable, "storage temporarily unavailable")
)

// ValidationError перечисляет незаполненные или некорректные поля формы.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add регистрирует ошибку поля; повторная ошибка того же поля не перезаписывает первую.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// OrNil возвращает nil, если ни одно поле не отмечено.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Unavailable оборачивает временную ошибку драйвера так, что errors.Is(err, ErrUnavailable) == true.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// KindOf определяет вид ошибки по цепочке обёрток.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return KindValidation
	}
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return KindInternal
}

// Retryable — true для временных ошибок (сеть, недоступность хранилища).
func Retryable(err error) bool {
	return KindOf(err) == KindUnavailable
}

// Message — текст ошибки, который можно показать клиенту: сообщение sentinel-а,
// перечень полей для валидации, "internal error" для всего остального.
func Message(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.msg
	}
	return "internal error"
}

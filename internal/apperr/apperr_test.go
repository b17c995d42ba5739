package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	ve := &ValidationError{}
	ve.Add("first_name", "Enter First Name")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"not found wrapped", fmt.Errorf("profileRepo.Get: %w", ErrNotFound), KindNotFound},
		{"blocked", ErrBlocked, KindBlocked},
		{"empty message", ErrEmptyMessage, KindValidation},
		{"validation error", fmt.Errorf("save: %w", ve), KindValidation},
		{"unavailable", Unavailable("store.Get", errors.New("dial tcp: refused")), KindUnavailable},
		{"plain", errors.New("boom"), KindInternal},
		{"nil", nil, KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUnavailableKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Unavailable("messageRepo.Send", cause)
	if !errors.Is(err, ErrUnavailable) {
		t.Error("expected ErrUnavailable in chain")
	}
	if !errors.Is(err, cause) {
		t.Error("expected original cause in chain")
	}
	if !Retryable(err) {
		t.Error("expected unavailable error to be retryable")
	}
	if Retryable(ErrBlocked) {
		t.Error("blocked must not be retryable")
	}
}

func TestValidationErrorOrNil(t *testing.T) {
	var ve ValidationError
	if ve.OrNil() != nil {
		t.Fatal("empty validation error must be nil")
	}
	ve.Add("city", "Enter City")
	ve.Add("city", "second message ignored")
	if ve.OrNil() == nil {
		t.Fatal("expected error")
	}
	if ve.Fields["city"] != "Enter City" {
		t.Errorf("got %q", ve.Fields["city"])
	}
}

func TestMessageHidesInternals(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("chat.Send: %w", ErrBlocked), "You have blocked this user"},
		{Unavailable("profileRepo.Get", errors.New("dial tcp 10.0.0.5:5432")), "storage temporarily unavailable"},
		{errors.New("pq: secret detail"), "internal error"},
		{&ValidationError{Fields: map[string]string{"city": "Enter City"}}, "validation failed: Enter City"},
	}
	for _, c := range cases {
		if got := Message(c.err); got != c.want {
			t.Errorf("Message(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}

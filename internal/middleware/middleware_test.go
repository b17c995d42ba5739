package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, GetUserID(r.Context()))
	})
}

func TestHeaderIdentity(t *testing.T) {
	h := HeaderIdentity(echoUser())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chats", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no identity: status %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	req.Header.Set("X-User-Id", "u1")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Body.String() != "u1" {
		t.Errorf("user = %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/chats/u2?user_id=u3", nil))
	if rec.Body.String() != "u3" {
		t.Errorf("query identity = %q", rec.Body.String())
	}
}

func TestAuthServiceValidate(t *testing.T) {
	var got validateRequest
	auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/internal/validate" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		if got.Signature != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(validateResponse{UserID: "u42"})
	}))
	defer auth.Close()

	h := AuthServiceValidate(NewAuthClient(auth.URL))(echoUser())

	req := httptest.NewRequest(http.MethodPost, "/api/chats/u2/messages?x=1", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("X-Session-Id", "sess-123456")
	req.Header.Set("X-Timestamp", "1700000000")
	req.Header.Set("X-Signature", "good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "u42" {
		t.Fatalf("status %d body %q", rec.Code, rec.Body.String())
	}
	if got.Path != "/api/chats/u2/messages" || got.Method != http.MethodPost || got.Body != `{"message":"hi"}` {
		t.Errorf("validate request = %+v", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	req.Header.Set("X-Session-Id", "sess")
	req.Header.Set("X-Timestamp", "1")
	req.Header.Set("X-Signature", "bad")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad signature: status %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chats", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing headers: status %d", rec.Code)
	}
}

func TestRecoverJSON(t *testing.T) {
	h := RecoverJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), "internal server error") {
		t.Errorf("status %d body %q", rec.Code, rec.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(2, 100, time.Minute)(echoUser())
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		want := http.StatusOK
		if i == 2 {
			want = http.StatusTooManyRequests
		}
		if rec.Code != want {
			t.Errorf("request %d: status %d, want %d", i, rec.Code, want)
		}
	}
}

func TestInternalOnly(t *testing.T) {
	h := InternalOnly(echoUser())

	req := httptest.NewRequest(http.MethodPost, "/api/notify", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("private ip: status %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/notify", nil)
	req.RemoteAddr = "198.51.100.1:5555"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("public ip: status %d", rec.Code)
	}
}

func TestMaskSessionID(t *testing.T) {
	if MaskSessionID("abc") != "****" || MaskSessionID("abcdefgh") != "abcd***" {
		t.Error("unexpected mask")
	}
}

package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/abp0107/whatsapp-clone/internal/config"
	"github.com/abp0107/whatsapp-clone/internal/memstore"
	"github.com/abp0107/whatsapp-clone/internal/middleware"
	"github.com/abp0107/whatsapp-clone/internal/model"
	"github.com/abp0107/whatsapp-clone/internal/push"
	"github.com/abp0107/whatsapp-clone/internal/service"
	"github.com/abp0107/whatsapp-clone/internal/storage/memory"
	"github.com/abp0107/whatsapp-clone/internal/ws"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type testAPI struct {
	router http.Handler
	store  *memstore.Store
}

func newTestAPI(t *testing.T, sendLimit int) *testAPI {
	t.Helper()
	store := memstore.New()
	store.PutProfile(model.Profile{ID: "u1", FirstName: "Asha", LastName: "Patel", Phone: "+91 98765 43210"})
	store.PutProfile(model.Profile{ID: "u2", FirstName: "Ben", LastName: "Okafor", Phone: "(555) 010-2000"})
	broker := memory.New(sendLimit, time.Minute)
	t.Cleanup(func() { _ = broker.Close() })

	cfg := &config.Config{MaxPhotoBytes: 1 << 10, SendRateLimit: sendLimit}
	chat := service.NewChatService(store, broker, nil)
	hub := ws.NewHub(chat, service.NewFeed(store, broker), ws.Options{})

	r := chi.NewRouter()
	Mount(r, Handlers{
		Profile: NewProfileHandler(service.NewProfileService(store, cfg.MaxPhotoBytes), cfg.MaxPhotoBytes),
		Chat:    NewChatHandler(chat),
		WS:      NewWSHandler(hub, "*"),
		Config:  NewConfigHandler(cfg),
		Push:    NewPushHandler(push.NewClient("")),
	}, middleware.HeaderIdentity)
	return &testAPI{router: r, store: store}
}

func (a *testAPI) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		rd = bytes.NewReader(b)
	case string:
		rd = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if user != "" {
		req.Header.Set("X-User-Id", user)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func fullUpdate() model.ProfileUpdate {
	return model.ProfileUpdate{
		FirstName: "Asha", LastName: "Rao", CompanyName: "Acme", Phone: "9876543210",
		Address: "1 Main St", City: "Pune", State: "MH", Zipcode: "411001", Status: "Busy",
	}
}

func TestUnauthorized(t *testing.T) {
	api := newTestAPI(t, 0)
	if rec := api.do(t, http.MethodGet, "/api/chats", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("status %d", rec.Code)
	}
	if rec := api.do(t, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Errorf("health status %d", rec.Code)
	}
}

func TestProfileLoadAndSave(t *testing.T) {
	api := newTestAPI(t, 0)

	rec := api.do(t, http.MethodGet, "/api/profiles/u1", "u1", nil)
	form := decode[service.ProfileForm](t, rec)
	if rec.Code != http.StatusOK || form.Status != model.DefaultStatus || !form.Editable {
		t.Fatalf("load: %d %+v", rec.Code, form)
	}
	if other := decode[service.ProfileForm](t, api.do(t, http.MethodGet, "/api/profiles/u1", "u2", nil)); other.Editable {
		t.Error("foreign profile must not be editable")
	}

	rec = api.do(t, http.MethodPut, "/api/profiles/u1", "u1", fullUpdate())
	saved := decode[struct {
		service.ProfileForm
		Notice string `json:"notice"`
	}](t, rec)
	if rec.Code != http.StatusOK || saved.Notice != service.NoticeProfileUpdated || saved.City != "Pune" {
		t.Fatalf("save: %d %s", rec.Code, rec.Body.String())
	}

	bad := fullUpdate()
	bad.City = "  "
	before := api.store.Writes()
	rec = api.do(t, http.MethodPut, "/api/profiles/u1", "u1", bad)
	resp := decode[errorResponse](t, rec)
	if rec.Code != http.StatusUnprocessableEntity || resp.Fields["city"] != "Enter City" {
		t.Errorf("validation: %d %+v", rec.Code, resp)
	}
	if api.store.Writes() != before {
		t.Error("invalid form must not write")
	}

	if rec := api.do(t, http.MethodPut, "/api/profiles/u1", "u2", fullUpdate()); rec.Code != http.StatusForbidden {
		t.Errorf("foreign save: status %d", rec.Code)
	}
	if rec := api.do(t, http.MethodGet, "/api/profiles/nobody", "u1", nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing profile: status %d", rec.Code)
	}
}

func TestProfilePhoto(t *testing.T) {
	api := newTestAPI(t, 0)

	if rec := api.do(t, http.MethodGet, "/api/profiles/u1/photo", "u1", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("no photo yet: status %d", rec.Code)
	}

	rec := api.do(t, http.MethodPut, "/api/profiles/u1/photo", "u1", pngHeader)
	if rec.Code != http.StatusOK || decode[noticeResponse](t, rec).Notice != service.NoticePhotoUpdated {
		t.Fatalf("raw upload: %d %s", rec.Code, rec.Body.String())
	}
	rec = api.do(t, http.MethodGet, "/api/profiles/u1/photo", "u2", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" || !bytes.Equal(rec.Body.Bytes(), pngHeader) {
		t.Errorf("photo: %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("photo", "note.txt")
	_, _ = fw.Write([]byte("just some text"))
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPut, "/api/profiles/u1/photo", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-User-Id", "u1")
	rec = httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("non-image upload: status %d", rec.Code)
	}

	big := append(append([]byte{}, pngHeader...), make([]byte, 2<<10)...)
	if rec := api.do(t, http.MethodPut, "/api/profiles/u1/photo", "u1", big); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("oversized upload: status %d", rec.Code)
	}
}

func uploadMultipartPhoto(t *testing.T, api *testAPI, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("photo", "photo.png")
	_, _ = fw.Write(data)
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPut, "/api/profiles/u1/photo", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-User-Id", "u1")
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	return rec
}

func TestProfilePhotoMultipartBodyBounded(t *testing.T) {
	api := newTestAPI(t, 0)

	if rec := uploadMultipartPhoto(t, api, pngHeader); rec.Code != http.StatusOK {
		t.Fatalf("small multipart upload: %d %s", rec.Code, rec.Body.String())
	}

	huge := append(append([]byte{}, pngHeader...), make([]byte, 1<<20)...)
	rec := uploadMultipartPhoto(t, api, huge)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("huge multipart upload: status %d", rec.Code)
	}
	if fields := decode[errorResponse](t, rec).Fields; fields["photo"] == "" {
		t.Errorf("fields = %v, want photo size error", fields)
	}
}

func TestSendOpenAndInbox(t *testing.T) {
	api := newTestAPI(t, 0)

	rec := api.do(t, http.MethodPost, "/api/chats/u2/messages", "u1", map[string]string{"message": " hello "})
	msg := decode[model.Message](t, rec)
	if rec.Code != http.StatusCreated || msg.Body != "hello" || msg.ConversationID != "u1_u2" {
		t.Fatalf("send: %d %s", rec.Code, rec.Body.String())
	}

	before := api.store.Writes()
	if rec := api.do(t, http.MethodPost, "/api/chats/u2/messages", "u1", map[string]string{"message": "   "}); rec.Code != http.StatusNoContent {
		t.Errorf("empty send: status %d", rec.Code)
	}
	if api.store.Writes() != before {
		t.Error("empty message must not write")
	}

	inbox := decode[inboxResponse](t, api.do(t, http.MethodGet, "/api/chats", "u2", nil))
	if len(inbox.Chats) != 1 || inbox.Chats[0].PeerID != "u1" || inbox.Chats[0].UnreadCount != 1 || inbox.Chats[0].LastMessage != "hello" {
		t.Fatalf("receiver inbox: %+v", inbox.Chats)
	}

	open := map[string]any{
		"contacts_granted": true,
		"contacts":         []map[string]any{{"display_name": "Asha from work", "phones": []string{"098765-43210"}}},
	}
	rec = api.do(t, http.MethodPost, "/api/chats/u1/open", "u2", open)
	view := decode[service.ConversationView](t, rec)
	if rec.Code != http.StatusOK || view.PeerName != "Asha from work" || view.ConversationID != "u1_u2" {
		t.Fatalf("open: %d %s", rec.Code, rec.Body.String())
	}
	inbox = decode[inboxResponse](t, api.do(t, http.MethodGet, "/api/chats", "u2", nil))
	if inbox.Chats[0].UnreadCount != 0 {
		t.Errorf("open must reset unread, got %d", inbox.Chats[0].UnreadCount)
	}

	if rec := api.do(t, http.MethodPost, "/api/chats/u2/open", "u1", nil); rec.Code != http.StatusOK {
		t.Errorf("open without body: status %d", rec.Code)
	}

	hist := decode[messagesResponse](t, api.do(t, http.MethodGet, "/api/chats/u1/messages", "u2", nil))
	if len(hist.Messages) != 1 || hist.Messages[0].SenderID != "u1" {
		t.Errorf("history: %+v", hist)
	}

	if rec := api.do(t, http.MethodPost, "/api/chats/u1/messages", "u1", map[string]string{"message": "me"}); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("self chat: status %d", rec.Code)
	}
}

func TestBlockUnblock(t *testing.T) {
	api := newTestAPI(t, 0)

	rec := api.do(t, http.MethodPost, "/api/chats/u2/block", "u1", nil)
	if rec.Code != http.StatusOK || decode[noticeResponse](t, rec).Notice != service.NoticeUserBlocked {
		t.Fatalf("block: %d %s", rec.Code, rec.Body.String())
	}
	before := api.store.Writes()
	rec = api.do(t, http.MethodPost, "/api/chats/u2/messages", "u1", map[string]string{"message": "hi"})
	resp := decode[errorResponse](t, rec)
	if rec.Code != http.StatusForbidden || resp.Notice != "You have blocked this user" {
		t.Errorf("blocked send: %d %+v", rec.Code, resp)
	}
	if api.store.Writes() != before {
		t.Error("blocked send must not write")
	}
	if view := decode[service.ConversationView](t, api.do(t, http.MethodPost, "/api/chats/u2/open", "u1", nil)); !view.Blocked {
		t.Error("view must show blocked")
	}

	rec = api.do(t, http.MethodDelete, "/api/chats/u2/block", "u1", nil)
	if rec.Code != http.StatusOK || decode[noticeResponse](t, rec).Notice != service.NoticeUserUnblocked {
		t.Fatalf("unblock: %d", rec.Code)
	}
	if rec := api.do(t, http.MethodPost, "/api/chats/u2/messages", "u1", map[string]string{"message": "hi"}); rec.Code != http.StatusCreated {
		t.Errorf("send after unblock: status %d", rec.Code)
	}
}

func TestSendRateLimited(t *testing.T) {
	api := newTestAPI(t, 1)
	if rec := api.do(t, http.MethodPost, "/api/chats/u2/messages", "u1", map[string]string{"message": "one"}); rec.Code != http.StatusCreated {
		t.Fatalf("first send: status %d", rec.Code)
	}
	if rec := api.do(t, http.MethodPost, "/api/chats/u2/messages", "u1", map[string]string{"message": "two"}); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second send: status %d", rec.Code)
	}
}

func TestConfigAndPushDisabled(t *testing.T) {
	api := newTestAPI(t, 5)
	cfg := decode[clientConfig](t, api.do(t, http.MethodGet, "/api/config", "", nil))
	if cfg.MaxPhotoKB != 1 || cfg.SendRateLimit != 5 || cfg.PushEnabled || cfg.DefaultStatus != model.DefaultStatus {
		t.Errorf("config = %+v", cfg)
	}
	if rec := api.do(t, http.MethodPost, "/api/push/subscribe", "u1", `{"subscription":{}}`); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("push without service: status %d", rec.Code)
	}
}

func TestChatSocket(t *testing.T) {
	api := newTestAPI(t, 0)
	srv := httptest.NewServer(api.router)
	defer srv.Close()

	if rec := api.do(t, http.MethodGet, "/ws/chats/u1", "u1", nil); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("self socket: status %d", rec.Code)
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chats/u2?user_id=u1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var first ws.OutgoingMessage
	if err := conn.ReadJSON(&first); err != nil || first.Type != ws.EventSnapshot {
		t.Fatalf("first frame: %+v %v", first, err)
	}
}

func TestPeerIDWithSeparatorRejected(t *testing.T) {
	api := newTestAPI(t, 0)
	for _, path := range []string{"/api/chats/b_c/messages", "/ws/chats/b_c"} {
		if rec := api.do(t, http.MethodGet, path, "u1", nil); rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("%s: status %d", path, rec.Code)
		}
	}
}

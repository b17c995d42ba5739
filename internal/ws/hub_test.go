package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abp0107/whatsapp-clone/internal/memstore"
	"github.com/abp0107/whatsapp-clone/internal/model"
	"github.com/abp0107/whatsapp-clone/internal/service"
	"github.com/abp0107/whatsapp-clone/internal/storage/memory"
)

type frame struct {
	Type      EventType       `json:"type"`
	RequestID string          `json:"request_id"`
	Payload   json.RawMessage `json:"payload"`
}

func newTestHub(t *testing.T, opts Options) (*Hub, *httptest.Server) {
	t.Helper()
	store := memstore.New()
	store.PutProfile(model.Profile{ID: "u1", FirstName: "Asha", LastName: "Patel", Phone: "9876543210"})
	store.PutProfile(model.Profile{ID: "u2", FirstName: "Ben", LastName: "Okafor", Phone: "5550102000"})
	broker := memory.New(0, 0)
	hub := NewHub(service.NewChatService(store, broker, nil), service.NewFeed(store, broker), opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = hub.Serve(conn, r.URL.Query().Get("user_id"), r.URL.Query().Get("peer_id"))
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
		_ = broker.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, viewer, peer string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user_id=" + viewer + "&peer_id=" + peer
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read: %v", err)
	}
	return f
}

func TestInitialSnapshotAndSend(t *testing.T) {
	_, srv := newTestHub(t, Options{})
	conn := dial(t, srv, "u1", "u2")

	first := readFrame(t, conn)
	if first.Type != EventSnapshot {
		t.Fatalf("first frame = %s", first.Type)
	}
	var snap service.Snapshot
	if err := json.Unmarshal(first.Payload, &snap); err != nil {
		t.Fatal(err)
	}
	if snap.ConversationID != "u1_u2" || len(snap.Messages) != 0 {
		t.Errorf("initial snapshot = %+v", snap)
	}

	if err := conn.WriteJSON(IncomingMessage{Type: EventSendMessage, RequestID: "r1", Message: "  hello "}); err != nil {
		t.Fatal(err)
	}
	var gotAck, gotSnap bool
	for !(gotAck && gotSnap) {
		f := readFrame(t, conn)
		switch f.Type {
		case EventMessageSent:
			var p struct {
				Message model.Message `json:"message"`
			}
			_ = json.Unmarshal(f.Payload, &p)
			if f.RequestID != "r1" || p.Message.Body != "hello" {
				t.Errorf("ack = %s %s", f.RequestID, f.Payload)
			}
			gotAck = true
		case EventSnapshot:
			var s service.Snapshot
			_ = json.Unmarshal(f.Payload, &s)
			if len(s.Messages) == 1 && s.Messages[0].Body == "hello" {
				gotSnap = true
			}
		default:
			t.Fatalf("unexpected frame %s: %s", f.Type, f.Payload)
		}
	}
}

func TestPeerSeesMessage(t *testing.T) {
	_, srv := newTestHub(t, Options{})
	sender := dial(t, srv, "u1", "u2")
	receiver := dial(t, srv, "u2", "u1")
	readFrame(t, sender)
	readFrame(t, receiver)

	if err := sender.WriteJSON(IncomingMessage{Type: EventSendMessage, Message: "hi Ben"}); err != nil {
		t.Fatal(err)
	}
	f := readFrame(t, receiver)
	var s service.Snapshot
	_ = json.Unmarshal(f.Payload, &s)
	if f.Type != EventSnapshot || len(s.Messages) != 1 || s.Messages[0].SenderID != "u1" {
		t.Errorf("receiver frame = %s %s", f.Type, f.Payload)
	}
}

func TestErrorFrames(t *testing.T) {
	_, srv := newTestHub(t, Options{})
	conn := dial(t, srv, "u1", "u2")
	readFrame(t, conn)

	_ = conn.WriteJSON(IncomingMessage{Type: "typing", RequestID: "r2"})
	f := readFrame(t, conn)
	var p ErrorPayload
	_ = json.Unmarshal(f.Payload, &p)
	if f.Type != EventError || f.RequestID != "r2" || p.Code != "validation" {
		t.Errorf("unknown type frame = %s %s", f.Type, f.Payload)
	}

	// Пустое сообщение отбрасывается без ответа; следующим приходит ответ на r4.
	_ = conn.WriteJSON(IncomingMessage{Type: EventSendMessage, RequestID: "r3", Message: "   "})
	_ = conn.WriteJSON(IncomingMessage{Type: "noop", RequestID: "r4"})
	f = readFrame(t, conn)
	if f.RequestID != "r4" {
		t.Errorf("empty message must be silently dropped, got %s %s", f.Type, f.RequestID)
	}
}

func TestConnectionLimit(t *testing.T) {
	hub, srv := newTestHub(t, Options{MaxConnections: 1})
	first := dial(t, srv, "u1", "u2")
	readFrame(t, first)

	second := dial(t, srv, "u2", "u1")
	_ = second.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err := second.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseTryAgainLater) {
		t.Fatalf("expected close 1013, got %v", err)
	}
	if hub.Count() != 1 {
		t.Errorf("count = %d", hub.Count())
	}

	first.Close()
	deadline := time.Now().Add(3 * time.Second)
	for hub.Count() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.Count() != 0 {
		t.Fatal("closed connection must be released")
	}
}

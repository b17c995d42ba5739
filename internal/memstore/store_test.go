package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/abp0107/whatsapp-clone/internal/apperr"
	"github.com/abp0107/whatsapp-clone/internal/model"
)

func TestSendMessageUpdatesBothSummaries(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := model.SendParams{SenderID: "u1", SenderName: "Asha", SenderPhone: "111", ReceiverID: "u2", ReceiverName: "Ben", ReceiverPhone: "222", Body: "hello"}

	m, err := s.SendMessage(ctx, p)
	if err != nil {
		t.Fatal(err)
	}
	if m.ConversationID != "u1_u2" || m.IsRead || m.CreatedAt.IsZero() {
		t.Errorf("unexpected message: %+v", m)
	}
	if _, err := s.SendMessage(ctx, p); err != nil {
		t.Fatal(err)
	}

	own, _ := s.GetSummary(ctx, "u1", "u2")
	if own.UnreadCount != 0 || own.LastMessage != "hello" || own.PeerPhone != "222" {
		t.Errorf("sender summary: %+v", own)
	}
	peer, _ := s.GetSummary(ctx, "u2", "u1")
	if peer.UnreadCount != 2 || peer.PeerName != "Asha" || peer.PeerPhone != "111" {
		t.Errorf("receiver summary: %+v", peer)
	}
}

func TestSendMessageBlockedWritesNothing(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.Block(ctx, "u1", "u2")
	before := s.Writes()

	_, err := s.SendMessage(ctx, model.SendParams{SenderID: "u1", ReceiverID: "u2", Body: "hi"})
	if !errors.Is(err, apperr.ErrBlocked) {
		t.Fatalf("err = %v, want ErrBlocked", err)
	}
	if s.Writes() != before {
		t.Error("blocked send must not write")
	}
	// Блокировка направленная: u2 по-прежнему может писать u1.
	if _, err := s.SendMessage(ctx, model.SendParams{SenderID: "u2", ReceiverID: "u1", Body: "hi"}); err != nil {
		t.Fatalf("reverse direction: %v", err)
	}
}

func TestMessagesOrderedWithEqualClock(t *testing.T) {
	s := New()
	fixed := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return fixed })
	ctx := context.Background()
	for _, body := range []string{"one", "two", "three"} {
		if _, err := s.SendMessage(ctx, model.SendParams{SenderID: "u2", ReceiverID: "u1", Body: body}); err != nil {
			t.Fatal(err)
		}
	}
	msgs, _ := s.ListMessages(ctx, model.ConversationID("u1", "u2"))
	if len(msgs) != 3 || msgs[0].Body != "one" || msgs[2].Body != "three" {
		t.Fatalf("unexpected order: %+v", msgs)
	}
}

func TestResetUnreadMissingSummary(t *testing.T) {
	s := New()
	if err := s.ResetUnread(context.Background(), "u1", "u2"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateProfileKeepsPhoto(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.PutProfile(model.Profile{ID: "u1", FirstName: "Old", PhotoBase64: "cGhvdG8="})

	if err := s.UpdateProfile(ctx, "u1", model.ProfileUpdate{FirstName: "New", Status: "hi"}); err != nil {
		t.Fatal(err)
	}
	p, _ := s.GetProfile(ctx, "u1")
	if p.FirstName != "New" || p.PhotoBase64 != "cGhvdG8=" {
		t.Errorf("unexpected profile: %+v", p)
	}
	if err := s.UpdateProfile(ctx, "nope", model.ProfileUpdate{}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing profile: err = %v", err)
	}
}

func TestListSummariesNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, _ = s.SendMessage(ctx, model.SendParams{SenderID: "u1", ReceiverID: "u2", Body: "a"})
	_, _ = s.SendMessage(ctx, model.SendParams{SenderID: "u1", ReceiverID: "u3", Body: "b"})

	list, _ := s.ListSummaries(ctx, "u1")
	if len(list) != 2 || list[0].PeerID != "u3" {
		t.Fatalf("unexpected inbox: %+v", list)
	}
}

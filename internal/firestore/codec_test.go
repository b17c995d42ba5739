package firestore

import (
	"testing"
	"time"

	"github.com/abp0107/whatsapp-clone/internal/model"
)

func TestDecodeProfileAcceptsBothNamings(t *testing.T) {
	p := decodeProfile("u1", map[string]any{
		"firstName": "Asha",
		"last_name": "Patel",
		"phone":     "123",
		"zipcode":   int64(411001), // чужой тип — пустое значение
		"status":    "busy",
	})
	if p.FirstName != "Asha" || p.LastName != "Patel" || p.Zipcode != "" || p.Status != "busy" {
		t.Errorf("decoded = %+v", p)
	}
}

func TestEncodeProfileUsesFormKeys(t *testing.T) {
	data := encodeProfile(model.Profile{ID: "u1", FirstName: "A", Zipcode: "1", PhotoBase64: "eA=="})
	if data["first_name"] != "A" || data["zipcode"] != "1" || data["profile_photo_base64"] != "eA==" {
		t.Errorf("encoded = %v", data)
	}
	if _, ok := data["id"]; ok {
		t.Error("id is the document key, not a field")
	}
}

func TestDecodeMessageAndSummary(t *testing.T) {
	ts := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	p := model.SendParams{SenderID: "u1", ReceiverID: "u2", Body: "hello", SenderName: "A", ReceiverName: "B"}
	m := decodeMessage("m1", "u1_u2", encodeMessage(p, ts))
	if m.ID != "m1" || m.Body != "hello" || !m.CreatedAt.Equal(ts) || m.IsRead || m.SenderName != "A" {
		t.Errorf("message = %+v", m)
	}

	data := encodeSummary("u1", "A", "555", "hello", ts)
	data["unreadCount"] = int64(3)
	s := decodeSummary("u2", "doc-id", data)
	if s.PeerID != "u1" || s.PeerPhone != "555" || s.UnreadCount != 3 || !s.LastMessageAt.Equal(ts) {
		t.Errorf("summary = %+v", s)
	}
	data["unreadCount"] = int64(-2)
	if decodeSummary("u2", "u1", data).UnreadCount != 0 {
		t.Error("negative counter must be clamped")
	}
}

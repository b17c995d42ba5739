package firestore

import (
	"strings"
	"time"

	"github.com/abp0107/whatsapp-clone/internal/model"
)

// Документы хранятся в раскладке мобильного клиента:
//
//	client/{uid}                     профиль
//	client/{uid}/contacts/{peer}     {name}
//	client/{uid}/blocked/{peer}      {blockedAt}
//	messages/{conversationId}/chats  сообщения
//	chatList/{uid}/chats/{peer}      сводка списка чатов
const (
	colClient   = "client"
	colContacts = "contacts"
	colBlocked  = "blocked"
	colMessages = "messages"
	colChats    = "chats"
	colChatList = "chatList"
)

// fields — типизированный доступ к данным документа: чужой тип значения читается как пустое.
type fields map[string]any

func (f fields) str(keys ...string) string {
	for _, k := range keys {
		if v, ok := f[k].(string); ok {
			return v
		}
	}
	return ""
}

func (f fields) time(key string) time.Time {
	if v, ok := f[key].(time.Time); ok {
		return v.UTC()
	}
	return time.Time{}
}

func (f fields) int(key string) int {
	switch v := f[key].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func (f fields) bool(key string) bool {
	v, _ := f[key].(bool)
	return v
}

// decodeProfile понимает и snake_case формы редактирования, и camelCase, которые пишет регистрация.
func decodeProfile(id string, data map[string]any) model.Profile {
	f := fields(data)
	return model.Profile{
		ID:          id,
		FirstName:   f.str("first_name", "firstName"),
		LastName:    f.str("last_name", "lastName"),
		CompanyName: f.str("company_name", "companyName"),
		Phone:       f.str("phone"),
		Address:     f.str("address"),
		City:        f.str("city"),
		State:       f.str("state"),
		Zipcode:     f.str("zipcode"),
		Status:      f.str("status"),
		PhotoBase64: f.str("profile_photo_base64"),
		UpdatedAt:   f.time("updated_at"),
	}
}

// encodeProfile — полный документ профиля (сидинг, регистрация в -dev).
func encodeProfile(p model.Profile) map[string]any {
	out := map[string]any{"profile_photo_base64": p.PhotoBase64}
	for _, fld := range profileUpdateOf(p).Fields() {
		out[fld.Key] = fld.Value
	}
	return out
}

func profileUpdateOf(p model.Profile) model.ProfileUpdate {
	return model.ProfileUpdate{
		FirstName: p.FirstName, LastName: p.LastName, CompanyName: p.CompanyName, Phone: p.Phone,
		Address: p.Address, City: p.City, State: p.State, Zipcode: p.Zipcode, Status: p.Status,
	}
}

func decodeMessage(id, conversationID string, data map[string]any) model.Message {
	f := fields(data)
	return model.Message{
		ID:             id,
		ConversationID: conversationID,
		SenderID:       strings.TrimSpace(f.str("senderId")),
		ReceiverID:     strings.TrimSpace(f.str("receiverId")),
		Body:           f.str("message"),
		CreatedAt:      f.time("timestamp"),
		IsRead:         f.bool("isRead"),
		SenderName:     f.str("senderName"),
		ReceiverName:   f.str("receiverName"),
	}
}

func encodeMessage(p model.SendParams, ts any) map[string]any {
	return map[string]any{
		"senderId":     p.SenderID,
		"receiverId":   p.ReceiverID,
		"message":      p.Body,
		"timestamp":    ts,
		"isRead":       false,
		"senderName":   p.SenderName,
		"receiverName": p.ReceiverName,
	}
}

func decodeSummary(ownerID, peerID string, data map[string]any) model.ChatSummary {
	f := fields(data)
	unread := f.int("unreadCount")
	if unread < 0 {
		unread = 0
	}
	if id := f.str("peerId"); id != "" {
		peerID = id
	}
	return model.ChatSummary{
		OwnerID:       ownerID,
		PeerID:        peerID,
		PeerName:      f.str("peerName"),
		PeerPhone:     f.str("peerMobile"),
		LastMessage:   f.str("lastMessage"),
		LastMessageAt: f.time("timestamp"),
		UnreadCount:   unread,
	}
}

// encodeSummary без unreadCount: счётчик пишется отдельно (0 или Increment).
func encodeSummary(peerID, peerName, peerPhone, lastMessage string, ts any) map[string]any {
	return map[string]any{
		"peerId":      peerID,
		"peerName":    peerName,
		"peerMobile":  peerPhone,
		"lastMessage": lastMessage,
		"timestamp":   ts,
	}
}

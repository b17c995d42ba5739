package model

import "time"

// ConversationSeparator разделяет два id в ключе диалога.
const ConversationSeparator = "_"

// ConversationID возвращает общий ключ истории двух пользователей.
// Порядок аргументов не важен: id сортируются лексикографически.
func ConversationID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ConversationSeparator + b
}

// ChatSummary — запись списка чатов владельца (одна на пару owner/peer).
// У каждого участника своя копия: peer_* описывают собеседника с точки зрения владельца.
type ChatSummary struct {
	OwnerID       string    `json:"owner_id"`
	PeerID        string    `json:"peer_id"`
	PeerName      string    `json:"peer_name"`
	PeerPhone     string    `json:"peer_mobile"`
	LastMessage   string    `json:"last_message"`
	LastMessageAt time.Time `json:"timestamp"`
	UnreadCount   int       `json:"unread_count"`
}

// Block — запись о блокировке. Само наличие записи означает «заблокирован».
type Block struct {
	BlockerID string    `json:"blocker_id"`
	BlockedID string    `json:"blocked_id"`
	BlockedAt time.Time `json:"blocked_at"`
}

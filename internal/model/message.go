package model

import (
	"sort"
	"time"
)

// Message — сообщение диалога. Создаётся только отправкой, не редактируется и не удаляется.
// Имена отправителя и получателя — снимок на момент отправки.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	ReceiverID     string    `json:"receiver_id"`
	Body           string    `json:"message"`
	CreatedAt      time.Time `json:"timestamp"`
	IsRead         bool      `json:"is_read"`
	SenderName     string    `json:"sender_name"`
	ReceiverName   string    `json:"receiver_name"`
}

// SendParams — всё, что нужно хранилищу для атомарной отправки:
// проверка блокировки, запись сообщения и обеих сводок.
type SendParams struct {
	SenderID      string
	SenderName    string
	SenderPhone   string
	ReceiverID    string
	ReceiverName  string
	ReceiverPhone string
	Body          string
}

// ConversationID — ключ диалога отправителя и получателя.
func (p SendParams) ConversationID() string {
	return ConversationID(p.SenderID, p.ReceiverID)
}

// SortMessages упорядочивает по серверному времени, при равенстве — по id.
func SortMessages(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}

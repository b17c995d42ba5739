package ws

import (
	"errors"

	"github.com/abp0107/whatsapp-clone/internal/apperr"
	"github.com/abp0107/whatsapp-clone/internal/model"
	"github.com/abp0107/whatsapp-clone/internal/service"
)

type EventType string

const (
	// От клиента.
	EventSendMessage EventType = "send_message"

	// От сервера.
	EventSnapshot    EventType = "snapshot"
	EventMessageSent EventType = "message_sent"
	EventError       EventType = "error"
)

// IncomingMessage is what the client sends to the server.
type IncomingMessage struct {
	Type EventType `json:"type"`
	// RequestID возвращается в ответе, чтобы клиент сопоставил подтверждение с отправкой.
	RequestID    string `json:"request_id,omitempty"`
	Message      string `json:"message,omitempty"`
	ReceiverName string `json:"receiver_name,omitempty"`
}

// OutgoingMessage is what the server sends to the client.
type OutgoingMessage struct {
	Type      EventType `json:"type"`
	RequestID string    `json:"request_id,omitempty"`
	Payload   any       `json:"payload,omitempty"`
}

// SnapshotPayload — полный список сообщений диалога; клиент заменяет им отображаемый.
type SnapshotPayload = service.Snapshot

type MessageSentPayload struct {
	Message *model.Message `json:"message"`
}

// ErrorPayload: Code — вид ошибки (validation, blocked, rate_limited...), Notice — текст для пользователя.
type ErrorPayload struct {
	Code   string            `json:"code"`
	Error  string            `json:"error"`
	Notice string            `json:"notice,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func errorFrame(requestID string, err error) OutgoingMessage {
	p := ErrorPayload{Code: apperr.KindOf(err).String(), Error: apperr.Message(err)}
	if apperr.KindOf(err) == apperr.KindBlocked {
		p.Notice = p.Error
	}
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		p.Fields = ve.Fields
	}
	return OutgoingMessage{Type: EventError, RequestID: requestID, Payload: p}
}

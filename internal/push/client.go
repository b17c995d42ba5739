package push

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/abp0107/whatsapp-clone/internal/model"
	"github.com/go-resty/resty/v2"
)

// maxBodyRunes — длина превью сообщения в уведомлении.
const maxBodyRunes = 120

// Client вызывает микросервис пуш-уведомлений. Если URL пустой — методы no-op.
type Client struct {
	http *resty.Client
}

// NewClient создаёт клиент. baseURL пустой — пуши отключены.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		return &Client{}
	}
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimSuffix(baseURL, "/")).
			SetTimeout(10 * time.Second).
			SetHeader("Content-Type", "application/json"),
	}
}

// Enabled — задан ли адрес push-сервиса.
func (c *Client) Enabled() bool { return c.http != nil }

// Subscription — подписка из браузера (PushSubscription.toJSON()).
type Subscription struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// Valid — все поля, без которых webpush не зашифрует payload.
func (s Subscription) Valid() bool {
	return s.Endpoint != "" && s.Keys.P256dh != "" && s.Keys.Auth != ""
}

type SubscribeRequest struct {
	UserID       string       `json:"user_id"`
	Subscription Subscription `json:"subscription"`
}

type UnsubscribeRequest struct {
	UserID   string `json:"user_id"`
	Endpoint string `json:"endpoint"`
}

// NotifyRequest — запрос на отправку уведомления.
type NotifyRequest struct {
	UserID string            `json:"user_id"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
}

func (c *Client) post(ctx context.Context, method, path string, body any) error {
	resp, err := c.http.R().SetContext(ctx).SetBody(body).Execute(method, path)
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusNoContent {
		return fmt.Errorf("push %s %s: %d", method, path, resp.StatusCode())
	}
	return nil
}

// Subscribe сохраняет подписку для user_id на push-сервисе.
func (c *Client) Subscribe(ctx context.Context, userID string, sub Subscription) error {
	if !c.Enabled() {
		return nil
	}
	return c.post(ctx, http.MethodPost, "/api/subscribe", SubscribeRequest{UserID: userID, Subscription: sub})
}

// Unsubscribe удаляет подписку по endpoint.
func (c *Client) Unsubscribe(ctx context.Context, userID, endpoint string) error {
	if !c.Enabled() {
		return nil
	}
	return c.post(ctx, http.MethodDelete, "/api/subscribe", UnsubscribeRequest{UserID: userID, Endpoint: endpoint})
}

// NotifyMessage — пуш получателю о новом сообщении: заголовок — имя отправителя, текст — превью.
func (c *Client) NotifyMessage(ctx context.Context, m *model.Message) error {
	if !c.Enabled() {
		return nil
	}
	return c.post(ctx, http.MethodPost, "/api/notify", MessageNotification(m))
}

// MessageNotification строит запрос уведомления по сообщению.
func MessageNotification(m *model.Message) NotifyRequest {
	title := m.SenderName
	if title == "" {
		title = "New message"
	}
	return NotifyRequest{
		UserID: m.ReceiverID,
		Title:  title,
		Body:   truncate(m.Body, maxBodyRunes),
		Data: map[string]string{
			"type":            "message",
			"conversation_id": m.ConversationID,
			"sender_id":       m.SenderID,
			"message_id":      m.ID,
		},
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

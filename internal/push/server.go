package push

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/go-chi/chi/v5"

	"github.com/abp0107/whatsapp-clone/internal/logger"
	"github.com/abp0107/whatsapp-clone/internal/middleware"
)

// SubscriptionStore хранит подписки пользователя как JSON-строки (Redis-список или память).
type SubscriptionStore interface {
	AddPushSubscription(ctx context.Context, userID, raw string) error
	PushSubscriptions(ctx context.Context, userID string) ([]string, error)
	RemovePushSubscription(ctx context.Context, userID, raw string) error
}

// Sender доставляет зашифрованный payload на endpoint подписки. Возвращает HTTP-статус push-сервиса браузера.
type Sender interface {
	Send(ctx context.Context, payload []byte, sub Subscription) (int, error)
}

// WebPushSender отправляет через webpush-go с VAPID.
type WebPushSender struct {
	opts *webpush.Options
}

func NewWebPushSender(keys *VAPIDKeys, subscriber string) *WebPushSender {
	return &WebPushSender{opts: &webpush.Options{
		Subscriber:      subscriber,
		VAPIDPublicKey:  keys.PublicKey,
		VAPIDPrivateKey: keys.PrivateKey,
		TTL:             30,
	}}
}

func (s *WebPushSender) Send(ctx context.Context, payload []byte, sub Subscription) (int, error) {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{P256dh: sub.Keys.P256dh, Auth: sub.Keys.Auth},
	}, s.opts)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

// Server — HTTP-обработчики микросервиса пушей. sender == nil — подписки сохраняются, отправка не выполняется.
type Server struct {
	subs      SubscriptionStore
	sender    Sender
	publicKey string
}

func NewServer(subs SubscriptionStore, sender Sender, publicKey string) *Server {
	return &Server{subs: subs, sender: sender, publicKey: publicKey}
}

// Routes: /api/notify доступен только из внутренней сети (его вызывает API после отправки сообщения).
func (s *Server) Routes(r chi.Router) {
	r.Get("/api/vapid-public", s.handleVAPIDPublic)
	r.Route("/api", func(r chi.Router) {
		r.Post("/subscribe", s.handleSubscribe)
		r.Delete("/subscribe", s.handleUnsubscribe)
		r.With(middleware.InternalOnly).Post("/notify", s.handleNotify)
	})
}

func (s *Server) handleVAPIDPublic(w http.ResponseWriter, r *http.Request) {
	if s.publicKey == "" {
		http.Error(w, "push not configured", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte(s.publicKey))
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" || !req.Subscription.Valid() {
		http.Error(w, "user_id and subscription (endpoint, keys.p256dh, keys.auth) required", http.StatusBadRequest)
		return
	}
	raw, err := json.Marshal(req.Subscription)
	if err != nil {
		http.Error(w, "subscription encode", http.StatusInternalServerError)
		return
	}
	if err := s.subs.AddPushSubscription(r.Context(), req.UserID, string(raw)); err != nil {
		logger.Errorf("push subscribe user_id=%s: %v", req.UserID, err)
		http.Error(w, "failed to save subscription", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	var req UnsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" || req.Endpoint == "" {
		http.Error(w, "user_id and endpoint required", http.StatusBadRequest)
		return
	}
	if err := s.removeEndpoint(r.Context(), req.UserID, req.Endpoint); err != nil {
		logger.Errorf("push unsubscribe user_id=%s: %v", req.UserID, err)
		http.Error(w, "failed to remove subscription", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	var req NotifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	sent, err := s.Notify(ctx, req)
	if err != nil {
		logger.Errorf("push notify user_id=%s: %v", req.UserID, err)
		http.Error(w, "failed to get subscriptions", http.StatusInternalServerError)
		return
	}
	logger.Debugf("push notify user_id=%s delivered=%d", req.UserID, sent)
	w.WriteHeader(http.StatusNoContent)
}

// Notify рассылает уведомление по всем подпискам пользователя. Подписки, на которые браузерный
// push-сервис ответил 404/410, удаляются. Возвращает число успешных доставок.
func (s *Server) Notify(ctx context.Context, req NotifyRequest) (int, error) {
	list, err := s.subs.PushSubscriptions(ctx, req.UserID)
	if err != nil {
		return 0, err
	}
	if s.sender == nil || len(list) == 0 {
		return 0, nil
	}
	payload, err := json.Marshal(map[string]any{"title": req.Title, "body": req.Body, "data": req.Data})
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, raw := range list {
		var sub Subscription
		if json.Unmarshal([]byte(raw), &sub) != nil || sub.Endpoint == "" {
			_ = s.subs.RemovePushSubscription(ctx, req.UserID, raw)
			continue
		}
		status, err := s.sender.Send(ctx, payload, sub)
		if err != nil {
			logger.Warnf("push send %s: %v", shortEndpoint(sub.Endpoint), err)
			continue
		}
		switch {
		case status == http.StatusGone || status == http.StatusNotFound:
			if err := s.subs.RemovePushSubscription(ctx, req.UserID, raw); err != nil {
				logger.Warnf("push remove expired user_id=%s: %v", req.UserID, err)
			}
		case status >= 200 && status < 300:
			sent++
		default:
			logger.Warnf("push send %s: status %d", shortEndpoint(sub.Endpoint), status)
		}
	}
	return sent, nil
}

func (s *Server) removeEndpoint(ctx context.Context, userID, endpoint string) error {
	list, err := s.subs.PushSubscriptions(ctx, userID)
	if err != nil {
		return err
	}
	for _, raw := range list {
		var sub Subscription
		if json.Unmarshal([]byte(raw), &sub) == nil && sub.Endpoint != endpoint {
			continue
		}
		if err := s.subs.RemovePushSubscription(ctx, userID, raw); err != nil {
			return err
		}
	}
	return nil
}

func shortEndpoint(e string) string {
	return e[:min(50, len(e))]
}

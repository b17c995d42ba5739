package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handlers — обработчики API-сервиса. Push может быть nil, если PUSH_SERVICE_URL не задан.
type Handlers struct {
	Profile *ProfileHandler
	Chat    *ChatHandler
	WS      *WSHandler
	Config  *ConfigHandler
	Push    *PushHandler
}

// Mount регистрирует маршруты. auth выставляет user_id в контекст (AuthServiceValidate или HeaderIdentity).
func Mount(r chi.Router, h Handlers, auth func(http.Handler) http.Handler) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/api/config", h.Config.Get)

	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Get("/api/profiles/{id}", h.Profile.Get)
		r.Put("/api/profiles/{id}", h.Profile.Update)
		r.Get("/api/profiles/{id}/photo", h.Profile.GetPhoto)
		r.Put("/api/profiles/{id}/photo", h.Profile.UploadPhoto)

		r.Get("/api/chats", h.Chat.Inbox)
		r.Post("/api/chats/{peerId}/open", h.Chat.Open)
		r.Get("/api/chats/{peerId}/messages", h.Chat.Messages)
		r.Post("/api/chats/{peerId}/messages", h.Chat.Send)
		r.Post("/api/chats/{peerId}/block", h.Chat.Block)
		r.Delete("/api/chats/{peerId}/block", h.Chat.Unblock)

		if h.Push != nil {
			r.Post("/api/push/subscribe", h.Push.Subscribe)
			r.Delete("/api/push/subscribe", h.Push.Unsubscribe)
		}
		r.Get("/ws/chats/{peerId}", h.WS.ServeChat)
	})
}

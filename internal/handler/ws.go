package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/abp0107/whatsapp-clone/internal/logger"
	"github.com/abp0107/whatsapp-clone/internal/middleware"
	"github.com/abp0107/whatsapp-clone/internal/service"
	"github.com/abp0107/whatsapp-clone/internal/ws"
)

type WSHandler struct {
	hub            *ws.Hub
	allowedOrigins string
}

// NewWSHandler создаёт обработчик WebSocket. allowedOrigins — как в CORS (через запятую или "*").
func NewWSHandler(hub *ws.Hub, allowedOrigins string) *WSHandler {
	return &WSHandler{hub: hub, allowedOrigins: strings.TrimSpace(allowedOrigins)}
}

func (h *WSHandler) checkOrigin(r *http.Request) bool {
	if h.allowedOrigins == "*" || h.allowedOrigins == "" {
		return true
	}
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	for _, o := range strings.Split(h.allowedOrigins, ",") {
		if strings.TrimSpace(o) == origin {
			return true
		}
	}
	return false
}

// ServeChat — GET /ws/chats/{peerId}: живой экран диалога. Закрытие сокета освобождает подписку.
func (h *WSHandler) ServeChat(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	peerID := chi.URLParam(r, "peerId")
	if err := service.CheckPeer(userID, peerID); err != nil {
		writeAppError(w, "ws.ServeChat", err)
		return
	}
	if !h.checkOrigin(r) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("ws upgrade: %v", err)
		return
	}
	if err := h.hub.Serve(conn, userID, peerID); err != nil {
		logger.Warnf("ws serve viewer=%s peer=%s: %v", userID, peerID, err)
	}
}

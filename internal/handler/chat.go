package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abp0107/whatsapp-clone/internal/apperr"
	"github.com/abp0107/whatsapp-clone/internal/middleware"
	"github.com/abp0107/whatsapp-clone/internal/model"
	"github.com/abp0107/whatsapp-clone/internal/service"
)

type ChatHandler struct {
	chat *service.ChatService
}

func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type inboxResponse struct {
	Chats []model.ChatSummary `json:"chats"`
}

type messagesResponse struct {
	ConversationID string          `json:"conversation_id"`
	Messages       []model.Message `json:"messages"`
}

func (h *ChatHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	list, err := h.chat.Inbox(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeAppError(w, "chat.Inbox", err)
		return
	}
	if list == nil {
		list = []model.ChatSummary{}
	}
	writeJSON(w, http.StatusOK, inboxResponse{Chats: list})
}

// Open вызывается при входе на экран диалога: обнуляет непрочитанные и возвращает состояние экрана.
// Тело необязательно: {"contacts_granted": true, "contacts": [...]} для сопоставления с адресной книгой.
func (h *ChatHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req service.OpenRequest
	if r.ContentLength != 0 && !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	req.ViewerID = middleware.GetUserID(r.Context())
	req.PeerID = chi.URLParam(r, "peerId")
	view, err := h.chat.Open(r.Context(), req)
	if err != nil {
		writeAppError(w, "chat.Open", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	viewerID := middleware.GetUserID(r.Context())
	peerID := chi.URLParam(r, "peerId")
	msgs, err := h.chat.History(r.Context(), viewerID, peerID)
	if err != nil {
		writeAppError(w, "chat.Messages", err)
		return
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	writeJSON(w, http.StatusOK, messagesResponse{ConversationID: model.ConversationID(viewerID, peerID), Messages: msgs})
}

// Send: 201 с сообщением; пустое сообщение молча отбрасывается (204); блокировка — 403 с notice.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req service.SendRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	req.SenderID = middleware.GetUserID(r.Context())
	req.ReceiverID = chi.URLParam(r, "peerId")
	msg, err := h.chat.Send(r.Context(), req)
	if errors.Is(err, apperr.ErrEmptyMessage) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		writeAppError(w, "chat.Send", err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *ChatHandler) Block(w http.ResponseWriter, r *http.Request) {
	notice, err := h.chat.Block(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "peerId"))
	if err != nil {
		writeAppError(w, "chat.Block", err)
		return
	}
	writeJSON(w, http.StatusOK, noticeResponse{Notice: notice})
}

func (h *ChatHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	notice, err := h.chat.Unblock(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "peerId"))
	if err != nil {
		writeAppError(w, "chat.Unblock", err)
		return
	}
	writeJSON(w, http.StatusOK, noticeResponse{Notice: notice})
}

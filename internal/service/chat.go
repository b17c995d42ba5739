package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abp0107/whatsapp-clone/internal/apperr"
	"github.com/abp0107/whatsapp-clone/internal/contacts"
	"github.com/abp0107/whatsapp-clone/internal/logger"
	"github.com/abp0107/whatsapp-clone/internal/model"
	"github.com/abp0107/whatsapp-clone/internal/storage"
)

// Тексты уведомлений для клиента (показываются как toast/snackbar).
const (
	NoticeUserBlocked   = "User blocked"
	NoticeUserUnblocked = "User unblocked"
)

const notifyTimeout = 10 * time.Second

type ChatService struct {
	store    Store
	broker   storage.Broker
	notifier Notifier
}

// NewChatService: notifier может быть nil — тогда push не отправляется.
func NewChatService(store Store, broker storage.Broker, notifier Notifier) *ChatService {
	return &ChatService{store: store, broker: broker, notifier: notifier}
}

type SendRequest struct {
	SenderID   string `json:"-"`
	ReceiverID string `json:"-"`
	// ReceiverName — имя собеседника, как его видит отправитель. Пусто — берётся из профиля.
	ReceiverName string `json:"receiver_name"`
	Body         string `json:"message"`
}

// Send проверяет сообщение, участников, блокировку и лимит, затем одной транзакцией хранилища пишет сообщение и обе сводки.
// Пустое сообщение — apperr.ErrEmptyMessage без записей; блокировка — apperr.ErrBlocked без записей.
func (s *ChatService) Send(ctx context.Context, req SendRequest) (*model.Message, error) {
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, apperr.ErrEmptyMessage
	}
	if err := CheckPeer(req.SenderID, req.ReceiverID); err != nil {
		return nil, err
	}

	sender, err := s.store.GetProfile(ctx, req.SenderID)
	if err != nil {
		return nil, fmt.Errorf("chat.Send sender: %w", err)
	}
	receiver, err := s.store.GetProfile(ctx, req.ReceiverID)
	if err != nil {
		return nil, fmt.Errorf("chat.Send receiver: %w", err)
	}
	// Предварительная проверка, чтобы отклонённая отправка не тратила лимит; в транзакции она повторяется.
	blocked, err := s.store.IsBlocked(ctx, sender.ID, receiver.ID)
	if err != nil {
		return nil, fmt.Errorf("chat.Send block: %w", err)
	}
	if blocked {
		return nil, apperr.ErrBlocked
	}
	// Лимит списывается последним: только за отправку, прошедшую все проверки.
	allowed, err := s.broker.CheckSendRate(ctx, req.SenderID)
	if err != nil {
		return nil, apperr.Unavailable("chat.Send rate", err)
	}
	if !allowed {
		return nil, apperr.ErrRateLimited
	}
	receiverName := strings.TrimSpace(req.ReceiverName)
	if receiverName == "" {
		receiverName = displayName(receiver)
	}

	msg, err := s.store.SendMessage(ctx, model.SendParams{
		SenderID:      sender.ID,
		SenderName:    displayName(sender),
		SenderPhone:   sender.Phone,
		ReceiverID:    receiver.ID,
		ReceiverName:  receiverName,
		ReceiverPhone: receiver.Phone,
		Body:          body,
	})
	if err != nil {
		return nil, err
	}

	if err := s.broker.PublishConversation(ctx, msg.ConversationID); err != nil {
		logger.Warnf("chat.Send publish %s: %v", msg.ConversationID, err)
	}
	s.notify(ctx, msg)
	return msg, nil
}

// notify — push получателю в отдельной горутине; отмена запроса его не прерывает.
func (s *ChatService) notify(ctx context.Context, msg *model.Message) {
	if s.notifier == nil {
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	go func() {
		defer cancel()
		if err := s.notifier.NotifyMessage(nctx, msg); err != nil {
			logger.Warnf("chat.Send push to %s: %v", msg.ReceiverID, err)
		}
	}()
}

type OpenRequest struct {
	ViewerID string `json:"-"`
	PeerID   string `json:"-"`
	// ContactsGranted=false — доступа к контактам нет, локальное сопоставление пропускается.
	ContactsGranted bool                 `json:"contacts_granted"`
	Contacts        contacts.AddressBook `json:"contacts"`
}

// ConversationView — неизменяемое состояние экрана диалога, пересчитывается целиком при каждом открытии.
type ConversationView struct {
	ConversationID string `json:"conversation_id"`
	ViewerID       string `json:"viewer_id"`
	ViewerName     string `json:"viewer_name"`
	ViewerPhone    string `json:"viewer_phone"`
	PeerID         string `json:"peer_id"`
	PeerName       string `json:"peer_name"`
	PeerPhone      string `json:"peer_phone"`
	// NameSavedByPeer — как собеседник записал зрителя у себя.
	NameSavedByPeer string          `json:"name_saved_by_peer,omitempty"`
	LocalContact    *contacts.Match `json:"local_contact,omitempty"`
	Blocked         bool            `json:"blocked"`
}

// Open обнуляет счётчик непрочитанных зрителя для собеседника и собирает состояние экрана.
// Отсутствие сводки (диалог ещё пуст) не ошибка.
func (s *ChatService) Open(ctx context.Context, req OpenRequest) (*ConversationView, error) {
	if err := CheckPeer(req.ViewerID, req.PeerID); err != nil {
		return nil, err
	}
	if err := s.store.ResetUnread(ctx, req.ViewerID, req.PeerID); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("chat.Open reset: %w", err)
	}

	viewer, err := s.store.GetProfile(ctx, req.ViewerID)
	if err != nil {
		return nil, fmt.Errorf("chat.Open viewer: %w", err)
	}
	peer, err := s.store.GetProfile(ctx, req.PeerID)
	if err != nil {
		return nil, fmt.Errorf("chat.Open peer: %w", err)
	}
	savedByViewer, err := s.store.GetSavedName(ctx, req.ViewerID, req.PeerID)
	if err != nil {
		return nil, fmt.Errorf("chat.Open contact: %w", err)
	}
	savedByPeer, err := s.store.GetSavedName(ctx, req.PeerID, req.ViewerID)
	if err != nil {
		return nil, fmt.Errorf("chat.Open contact: %w", err)
	}
	blocked, err := s.store.IsBlocked(ctx, req.ViewerID, req.PeerID)
	if err != nil {
		return nil, fmt.Errorf("chat.Open block: %w", err)
	}

	view := &ConversationView{
		ConversationID:  model.ConversationID(req.ViewerID, req.PeerID),
		ViewerID:        viewer.ID,
		ViewerName:      displayName(viewer),
		ViewerPhone:     viewer.Phone,
		PeerID:          peer.ID,
		PeerPhone:       peer.Phone,
		NameSavedByPeer: strings.TrimSpace(savedByPeer),
		Blocked:         blocked,
	}
	if req.ContactsGranted {
		if m, ok := req.Contacts.Lookup(peer.Phone); ok {
			view.LocalContact = &m
		}
	}
	view.PeerName = firstNonEmpty(localName(view.LocalContact), savedByViewer, peer.FullName(), peer.Phone)
	return view, nil
}

// Block создаёт запись блокировки; время ставит хранилище (серверное). Повторный вызов безвреден.
func (s *ChatService) Block(ctx context.Context, blockerID, blockedID string) (string, error) {
	if err := CheckPeer(blockerID, blockedID); err != nil {
		return "", err
	}
	if err := s.store.Block(ctx, blockerID, blockedID); err != nil {
		return "", fmt.Errorf("chat.Block: %w", err)
	}
	return NoticeUserBlocked, nil
}

func (s *ChatService) Unblock(ctx context.Context, blockerID, blockedID string) (string, error) {
	if err := CheckPeer(blockerID, blockedID); err != nil {
		return "", err
	}
	if err := s.store.Unblock(ctx, blockerID, blockedID); err != nil {
		return "", fmt.Errorf("chat.Unblock: %w", err)
	}
	return NoticeUserUnblocked, nil
}

// History — разовый снимок диалога зрителя с собеседником.
func (s *ChatService) History(ctx context.Context, viewerID, peerID string) ([]model.Message, error) {
	if err := CheckPeer(viewerID, peerID); err != nil {
		return nil, err
	}
	msgs, err := s.store.ListMessages(ctx, model.ConversationID(viewerID, peerID))
	if err != nil {
		return nil, fmt.Errorf("chat.History: %w", err)
	}
	return msgs, nil
}

// Inbox — список чатов владельца, свежие первыми.
func (s *ChatService) Inbox(ctx context.Context, ownerID string) ([]model.ChatSummary, error) {
	list, err := s.store.ListSummaries(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("chat.Inbox: %w", err)
	}
	return list, nil
}

// CheckPeer: собеседник задан и не совпадает с пользователем.
// id с разделителем ключа запрещены: иначе ("a_b","c") и ("a","b_c") делят одну историю.
func CheckPeer(userID, peerID string) error {
	ve := &apperr.ValidationError{}
	if strings.Contains(userID, model.ConversationSeparator) {
		ve.Add("user_id", "User id must not contain "+strconv.Quote(model.ConversationSeparator))
	}
	switch {
	case strings.TrimSpace(peerID) == "":
		ve.Add("peer_id", "Select a chat")
	case userID == peerID:
		ve.Add("peer_id", "Cannot chat with yourself")
	case strings.Contains(peerID, model.ConversationSeparator):
		ve.Add("peer_id", "Peer id must not contain "+strconv.Quote(model.ConversationSeparator))
	}
	return ve.OrNil()
}

// displayName — полное имя профиля, если пусто — телефон.
func displayName(p *model.Profile) string {
	return firstNonEmpty(p.FullName(), p.Phone, p.ID)
}

func localName(m *contacts.Match) string {
	if m == nil {
		return ""
	}
	return m.Name
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

package service

import (
	"context"

	"github.com/abp0107/whatsapp-clone/internal/model"
)

// ProfileStore — документы профилей. Отсутствующий профиль — apperr.ErrNotFound.
type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	// UpdateProfile пишет только девять редактируемых полей, остальные не трогает.
	UpdateProfile(ctx context.Context, id string, u model.ProfileUpdate) error
	// SetProfilePhoto пишет только поле фото (base64-текст).
	SetProfilePhoto(ctx context.Context, id, photoBase64 string) error
}

// ContactStore — имена, под которыми пользователи сохранили друг друга.
type ContactStore interface {
	// GetSavedName возвращает имя, под которым owner сохранил peer; "" если записи нет.
	GetSavedName(ctx context.Context, ownerID, peerID string) (string, error)
}

// BlockStore — направленные блокировки blocker → blocked.
type BlockStore interface {
	IsBlocked(ctx context.Context, blockerID, blockedID string) (bool, error)
	// Block идемпотентен: повторный вызов обновляет только время. Время — серверное, его ставит хранилище.
	Block(ctx context.Context, blockerID, blockedID string) error
	// Unblock идемпотентен: отсутствие записи не ошибка.
	Unblock(ctx context.Context, blockerID, blockedID string) error
}

// ChatStore — история диалогов и сводки списка чатов.
type ChatStore interface {
	// SendMessage атомарно: проверка блокировки (apperr.ErrBlocked без записей), сообщение,
	// сводка отправителя с unread=0, сводка получателя с unread+1.
	SendMessage(ctx context.Context, p model.SendParams) (*model.Message, error)
	// ListMessages — все сообщения диалога по возрастанию времени.
	ListMessages(ctx context.Context, conversationID string) ([]model.Message, error)
	// ResetUnread обнуляет счётчик; отсутствующая сводка — apperr.ErrNotFound.
	ResetUnread(ctx context.Context, ownerID, peerID string) error
	GetSummary(ctx context.Context, ownerID, peerID string) (*model.ChatSummary, error)
	// ListSummaries — сводки владельца, свежие первыми.
	ListSummaries(ctx context.Context, ownerID string) ([]model.ChatSummary, error)
}

// Store — полный набор, который реализует каждый бэкенд (postgres, firestore, memory).
type Store interface {
	ProfileStore
	ContactStore
	BlockStore
	ChatStore
}

// ConversationWatcher — бэкенд умеет сам присылать снимки диалога (Firestore snapshots).
// Канал закрывается при отмене ctx или обрыве потока.
type ConversationWatcher interface {
	WatchConversation(ctx context.Context, conversationID string) (<-chan []model.Message, error)
}

// Notifier доставляет push о новом сообщении. Ошибки только логируются.
type Notifier interface {
	NotifyMessage(ctx context.Context, m *model.Message) error
}

package storage

import "context"

// Broker — шина событий «диалог изменился» и лимит частоты отправки.
// Реализации: redis.Client (несколько инстансов API), memory.Client (один процесс, -dev, тесты).
type Broker interface {
	// PublishConversation сообщает подписчикам, что в диалоге появилось новое сообщение.
	PublishConversation(ctx context.Context, conversationID string) error
	// SubscribeConversation возвращает канал уведомлений и функцию отписки.
	// Уведомления схлопываются: подписчику важен сам факт изменения, а не их количество.
	SubscribeConversation(ctx context.Context, conversationID string) (<-chan struct{}, func(), error)
	// CheckSendRate учитывает отправку и сообщает, укладывается ли пользователь в лимит.
	CheckSendRate(ctx context.Context, userID string) (allowed bool, err error)
	Close() error
}

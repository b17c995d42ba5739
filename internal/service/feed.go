package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/abp0107/whatsapp-clone/internal/logger"
	"github.com/abp0107/whatsapp-clone/internal/model"
	"github.com/abp0107/whatsapp-clone/internal/storage"
)

// Snapshot — полное упорядоченное состояние диалога. Каждый следующий снимок заменяет предыдущий.
type Snapshot struct {
	ConversationID string          `json:"conversation_id"`
	Messages       []model.Message `json:"messages"`
	Version        int64           `json:"version"`
}

// Feed раздаёт живые снимки диалогов. Если хранилище умеет следить само (ConversationWatcher),
// используются его снимки, иначе — событие брокера и перечитывание истории.
type Feed struct {
	store   ChatStore
	broker  storage.Broker
	watcher ConversationWatcher
}

func NewFeed(store ChatStore, broker storage.Broker) *Feed {
	f := &Feed{store: store, broker: broker}
	if w, ok := store.(ConversationWatcher); ok {
		f.watcher = w
	}
	return f
}

// Subscription держит одну горутину и подписку брокера до Close или отмены ctx.
type Subscription struct {
	ch     chan Snapshot
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	mu  sync.Mutex
	err error
}

// Updates — канал снимков. В нём не больше одного непрочитанного снимка: новый вытесняет старый.
// Закрывается после Close, отмены ctx или ошибки (см. Err).
func (s *Subscription) Updates() <-chan Snapshot { return s.ch }

// Close освобождает подписку и дожидается завершения горутины. Повторный вызов безвреден.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

// Err — причина завершения потока, nil при обычном закрытии.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// deliver кладёт снимок, вытесняя непрочитанный. Писатель один, поэтому цикл конечен.
func (s *Subscription) deliver(snap Snapshot) {
	for {
		select {
		case s.ch <- snap:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

// Subscribe возвращает подписку; первый снимок (полная история) уже лежит в канале.
// С наблюдателем хранилища Subscribe ждёт его первый снимок (или отмену ctx).
func (f *Feed) Subscribe(ctx context.Context, conversationID string) (*Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		ch:     make(chan Snapshot, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	if f.watcher != nil {
		src, err := f.watcher.WatchConversation(ctx, conversationID)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("feed.Subscribe watch: %w", err)
		}
		select {
		case <-ctx.Done():
			cancel()
			return nil, fmt.Errorf("feed.Subscribe initial: %w", ctx.Err())
		case msgs, ok := <-src:
			if !ok {
				cancel()
				return nil, fmt.Errorf("feed.Subscribe initial: watch stream closed")
			}
			sub.deliver(Snapshot{ConversationID: conversationID, Messages: msgs, Version: 1})
		}
		go f.runWatcher(ctx, sub, conversationID, src)
		return sub, nil
	}

	// Сначала подписка, потом чтение: событие между ними не потеряется.
	events, unsubscribe, err := f.broker.SubscribeConversation(ctx, conversationID)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("feed.Subscribe: %w", err)
	}
	msgs, err := f.store.ListMessages(ctx, conversationID)
	if err != nil {
		unsubscribe()
		cancel()
		return nil, fmt.Errorf("feed.Subscribe initial: %w", err)
	}
	sub.deliver(Snapshot{ConversationID: conversationID, Messages: msgs, Version: 1})
	go f.runBroker(ctx, sub, conversationID, events, unsubscribe, msgs)
	return sub, nil
}

func (f *Feed) runBroker(ctx context.Context, sub *Subscription, conversationID string, events <-chan struct{}, unsubscribe func(), last []model.Message) {
	defer close(sub.done)
	defer close(sub.ch)
	defer unsubscribe()
	version := int64(1)
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			msgs, err := f.store.ListMessages(ctx, conversationID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				// Следующее событие перечитает историю заново.
				logger.Warnf("feed %s reload: %v", conversationID, err)
				continue
			}
			if sameTail(last, msgs) {
				continue
			}
			last = msgs
			version++
			sub.deliver(Snapshot{ConversationID: conversationID, Messages: msgs, Version: version})
		}
	}
}

func (f *Feed) runWatcher(ctx context.Context, sub *Subscription, conversationID string, src <-chan []model.Message) {
	defer close(sub.done)
	defer close(sub.ch)
	version := int64(1)
	for {
		select {
		case <-ctx.Done():
			return
		case msgs, ok := <-src:
			if !ok {
				if ctx.Err() == nil {
					sub.fail(fmt.Errorf("feed %s: watch stream closed", conversationID))
				}
				return
			}
			version++
			sub.deliver(Snapshot{ConversationID: conversationID, Messages: msgs, Version: version})
		}
	}
}

// sameTail: сообщения только добавляются, поэтому достаточно сравнить длину и последний id.
func sameTail(a, b []model.Message) bool {
	if len(a) != len(b) {
		return false
	}
	return len(a) == 0 || a[len(a)-1].ID == b[len(b)-1].ID
}

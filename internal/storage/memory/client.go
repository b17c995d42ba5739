package memory

import (
	"context"
	"sync"
	"time"
)

const (
	defaultRateWindow = time.Minute
	defaultRateMax    = 60
)

// Client реализует storage.Broker в памяти процесса: для -dev без Redis и для тестов.
type Client struct {
	mu     sync.Mutex
	subs   map[string]map[chan struct{}]struct{}
	limit  map[string][]time.Time
	push   map[string][]string
	max    int
	window time.Duration
	now    func() time.Time
	closed bool
}

// New создаёт брокер с лимитом max отправок за window (<=0 — значения по умолчанию).
func New(max int, window time.Duration) *Client {
	if max <= 0 {
		max = defaultRateMax
	}
	if window <= 0 {
		window = defaultRateWindow
	}
	return &Client{
		subs:   make(map[string]map[chan struct{}]struct{}),
		limit:  make(map[string][]time.Time),
		push:   make(map[string][]string),
		max:    max,
		window: window,
		now:    time.Now,
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	for id, set := range c.subs {
		for ch := range set {
			close(ch)
		}
		delete(c.subs, id)
	}
	return nil
}

func (c *Client) PublishConversation(ctx context.Context, conversationID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ch := range c.subs[conversationID] {
		select {
		case ch <- struct{}{}:
		default:
			// Уведомление уже ждёт — подписчик всё равно перечитает диалог.
		}
	}
	return nil
}

func (c *Client) SubscribeConversation(ctx context.Context, conversationID string) (<-chan struct{}, func(), error) {
	ch := make(chan struct{}, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}, nil
	}
	set, ok := c.subs[conversationID]
	if !ok {
		set = make(map[chan struct{}]struct{})
		c.subs[conversationID] = set
	}
	set[ch] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			set, ok := c.subs[conversationID]
			if !ok {
				return
			}
			if _, ok := set[ch]; !ok {
				return
			}
			delete(set, ch)
			close(ch)
			if len(set) == 0 {
				delete(c.subs, conversationID)
			}
		})
	}
	return ch, unsubscribe, nil
}

// Subscribers — число активных подписок на диалог (для проверок освобождения ресурсов).
func (c *Client) Subscribers(conversationID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs[conversationID])
}

func (c *Client) CheckSendRate(ctx context.Context, userID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	cut := now.Add(-c.window)
	var kept []time.Time
	for _, t := range c.limit[userID] {
		if t.After(cut) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= c.max {
		c.limit[userID] = kept
		return false, nil
	}
	c.limit[userID] = append(kept, now)
	return true, nil
}

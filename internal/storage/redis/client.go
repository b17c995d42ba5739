package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Лимит отправки сообщений: SendRateMax за SendRateWindow на пользователя.
const (
	SendRateWindow = 60 // секунд
	SendRateMax    = 60

	channelPrefix = "conv:"
	rateKeyPrefix = "send_limit:"
)

type Client struct {
	cli     *redis.Client
	rateMax int64
}

func New(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{cli: cli, rateMax: SendRateMax}, nil
}

// SetSendRateMax меняет лимит (SEND_RATE_LIMIT). n <= 0 игнорируется.
func (c *Client) SetSendRateMax(n int) {
	if n > 0 {
		c.rateMax = int64(n)
	}
}

func (c *Client) Close() error {
	return c.cli.Close()
}

// PublishConversation публикует в канал conv:{conversationId}; payload не нужен — подписчик перечитывает диалог.
func (c *Client) PublishConversation(ctx context.Context, conversationID string) error {
	if err := c.cli.Publish(ctx, channelPrefix+conversationID, "1").Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", conversationID, err)
	}
	return nil
}

// SubscribeConversation подписывается на conv:{conversationId}. Несколько сообщений Pub/Sub
// схлопываются в одно уведомление, если подписчик ещё не забрал предыдущее.
func (c *Client) SubscribeConversation(ctx context.Context, conversationID string) (<-chan struct{}, func(), error) {
	ps := c.cli.Subscribe(ctx, channelPrefix+conversationID)
	// Receive дожидается подтверждения подписки, иначе первое событие может потеряться.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("redis subscribe %s: %w", conversationID, err)
	}
	out := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(out)
		msgs := ps.Channel()
		for {
			select {
			case <-done:
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			close(done)
			_ = ps.Close()
		})
	}
	return out, unsubscribe, nil
}

// CheckSendRate: INCR send_limit:{userId}, TTL окна ставится на первом запросе. При превышении — HTTP 429.
func (c *Client) CheckSendRate(ctx context.Context, userID string) (allowed bool, err error) {
	key := rateKeyPrefix + userID
	n, err := c.cli.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		c.cli.Expire(ctx, key, SendRateWindow*time.Second)
	}
	return n <= c.rateMax, nil
}

// FlushDB очищает текущую БД Redis (для тестов против живого сервера).
func (c *Client) FlushDB(ctx context.Context) error {
	return c.cli.FlushDB(ctx).Err()
}

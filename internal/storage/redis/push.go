package redis

import (
	"context"
	"fmt"
	"time"
)

// Подписки Web Push: список push:subs:{userId}, не больше PushSubsMax, живёт PushSubsTTL.
const (
	pushKeyPrefix = "push:subs:"
	PushSubsMax   = 10
	PushSubsTTL   = 30 * 24 * time.Hour
)

// AddPushSubscription дописывает подписку (JSON) в конец списка и обрезает его до PushSubsMax последних.
func (c *Client) AddPushSubscription(ctx context.Context, userID, raw string) error {
	key := pushKeyPrefix + userID
	// Повторная подписка того же браузера не должна дублироваться.
	pipe := c.cli.TxPipeline()
	pipe.LRem(ctx, key, 0, raw)
	pipe.RPush(ctx, key, raw)
	pipe.LTrim(ctx, key, -PushSubsMax, -1)
	pipe.Expire(ctx, key, PushSubsTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis push subscribe %s: %w", userID, err)
	}
	return nil
}

func (c *Client) PushSubscriptions(ctx context.Context, userID string) ([]string, error) {
	list, err := c.cli.LRange(ctx, pushKeyPrefix+userID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis push list %s: %w", userID, err)
	}
	return list, nil
}

// RemovePushSubscription удаляет все вхождения raw; пустой список Redis удаляет сам.
func (c *Client) RemovePushSubscription(ctx context.Context, userID, raw string) error {
	if err := c.cli.LRem(ctx, pushKeyPrefix+userID, 0, raw).Err(); err != nil {
		return fmt.Errorf("redis push remove %s: %w", userID, err)
	}
	return nil
}

package memory

import (
	"context"
	"slices"
)

const pushSubsMax = 10

func (c *Client) AddPushSubscription(ctx context.Context, userID, raw string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := slices.DeleteFunc(c.push[userID], func(s string) bool { return s == raw })
	list = append(list, raw)
	if len(list) > pushSubsMax {
		list = list[len(list)-pushSubsMax:]
	}
	c.push[userID] = list
	return nil
}

func (c *Client) PushSubscriptions(ctx context.Context, userID string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.push[userID]), nil
}

func (c *Client) RemovePushSubscription(ctx context.Context, userID, raw string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := slices.DeleteFunc(c.push[userID], func(s string) bool { return s == raw })
	if len(list) == 0 {
		delete(c.push, userID)
		return nil
	}
	c.push[userID] = list
	return nil
}

package memory

import (
	"context"
	"sync"
	"time"
)

const (
	staffTokenTTL        = 12 * time.Hour
	chatStartLimitWindow = 600 * time.Second
	chatStartLimitMax    = 5
)

type item struct {
	val string
	exp time.Time
}

type Client struct {
	mu     sync.RWMutex
	tokens map[string]item
	limit  map[string][]time.Time
}

func New() *Client {
	return &Client{
		tokens: make(map[string]item),
		limit:  make(map[string][]time.Time),
	}
}

func (c *Client) Close() error { return nil }

func (c *Client) SetStaffToken(ctx context.Context, token, staffID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[token] = item{val: staffID, exp: time.Now().Add(staffTokenTTL)}
	return nil
}

func (c *Client) GetStaffToken(ctx context.Context, token string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.tokens[token]
	if !ok || time.Now().After(v.exp) {
		return "", nil
	}
	return v.val, nil
}

func (c *Client) DeleteStaffToken(ctx context.Context, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, token)
	return nil
}

func (c *Client) CheckChatStartLimit(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	cut := now.Add(-chatStartLimitWindow)
	slice := c.limit[key]
	var kept []time.Time
	for _, t := range slice {
		if t.After(cut) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= chatStartLimitMax {
		return false, nil
	}
	kept = append(kept, now)
	c.limit[key] = kept
	return true, nil
}

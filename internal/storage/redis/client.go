package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Staff tokens live 12 hours (one shift); chat starts are limited to 5 per
// 10 minutes per client to keep the waiting queue sane.
const (
	StaffTokenTTL        = 12 * 3600
	ChatStartLimitWindow = 600
	ChatStartLimitMax    = 5
)

type Client struct {
	cli *redis.Client
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
	return &Client{cli: cli}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

// SetStaffToken maps staff_token:{token} to the staff id with the session TTL.
func (c *Client) SetStaffToken(ctx context.Context, token, staffID string) error {
	return c.cli.Set(ctx, "staff_token:"+token, staffID, StaffTokenTTL*time.Second).Err()
}

// GetStaffToken returns the staff id for the token, or "" if unknown/expired.
func (c *Client) GetStaffToken(ctx context.Context, token string) (string, error) {
	val, err := c.cli.Get(ctx, "staff_token:"+token).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

// DeleteStaffToken revokes the token on logout.
func (c *Client) DeleteStaffToken(ctx context.Context, token string) error {
	return c.cli.Del(ctx, "staff_token:"+token).Err()
}

// CheckChatStartLimit counts chat_start:{key}: at most ChatStartLimitMax
// starts per window. Callers answer HTTP 429 when not allowed.
func (c *Client) CheckChatStartLimit(ctx context.Context, key string) (allowed bool, err error) {
	k := "chat_start:" + key
	n, err := c.cli.Incr(ctx, k).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		c.cli.Expire(ctx, k, ChatStartLimitWindow*time.Second)
	}
	return n <= int64(ChatStartLimitMax), nil
}

// FlushDB wipes the current Redis DB (tokens and limits) for tests/restarts.
func (c *Client) FlushDB(ctx context.Context) error {
	return c.cli.FlushDB(ctx).Err()
}

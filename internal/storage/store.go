package storage

import "context"

// TokenStore holds staff auth tokens and the chat-start rate limit.
// Implementations: redis.Client, memory.Client (for -dev without Redis).
type TokenStore interface {
	SetStaffToken(ctx context.Context, token, staffID string) error
	GetStaffToken(ctx context.Context, token string) (string, error)
	DeleteStaffToken(ctx context.Context, token string) error
	CheckChatStartLimit(ctx context.Context, key string) (allowed bool, err error)
	Close() error
}

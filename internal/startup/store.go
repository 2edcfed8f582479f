package startup

import (
	"context"
	"time"

	"github.com/helpdesk/internal/logger"
	"github.com/helpdesk/internal/storage"
	"github.com/helpdesk/internal/storage/memory"
	"github.com/helpdesk/internal/storage/redis"
)

// OpenTokenStore connects to Redis, or falls back to the in-memory store
// when dev is set (local runs without Redis lose tokens on restart, which
// is fine for development).
func OpenTokenStore(redisURL string, dev bool) storage.TokenStore {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cli, err := redis.New(ctx, redisURL)
	if err != nil {
		if dev {
			logger.Infof("redis unavailable (%v), using in-memory token store", err)
			return memory.New()
		}
		logger.Errorf("redis connect: %v", err)
		logger.Info("falling back to in-memory token store; staff sessions will not survive restarts")
		return memory.New()
	}
	return cli
}

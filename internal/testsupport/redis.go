package testsupport

import (
	"context"
	"testing"

	"newsimpact/internal/adapters/config"
	redisadapter "newsimpact/internal/adapters/redis"
)

// NewRedisClient connects the service's redis adapter to a flushed test database
func NewRedisClient(t *testing.T, cfg config.RedisConfig) *redisadapter.Client {
	t.Helper()

	client, err := redisadapter.NewClient(cfg)
	if err != nil {
		t.Fatalf("failed to connect to redis: %v", err)
	}

	ctx := context.Background()
	if err := client.Client().FlushDB(ctx).Err(); err != nil {
		_ = client.Close()
		t.Fatalf("failed to flush redis before test: %v", err)
	}

	t.Cleanup(func() {
		_ = client.Client().FlushDB(context.Background()).Err()
		_ = client.Close()
	})
	return client
}

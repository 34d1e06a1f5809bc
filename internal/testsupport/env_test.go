package testsupport

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestProcessIntegrationConfigUsesServiceDefaults(t *testing.T) {
	// an earlier LoadIntegrationConfig may have loaded .env.test into the process
	unsetEnv(t, "POSTGRES_SSL_MODE", "CLICKHOUSE_PORT", "CLICKHOUSE_DB", "REDIS_PORT")
	t.Setenv("POSTGRES_HOST", "pg.test")
	t.Setenv("POSTGRES_PORT", "5543")
	t.Setenv("CLICKHOUSE_HOST", "ch.test")
	t.Setenv("REDIS_HOST", "redis.test")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := processIntegrationConfig()
	require.NoError(t, err)

	assert.Equal(t, "pg.test", cfg.Postgres.Host)
	assert.Equal(t, 5543, cfg.Postgres.Port)
	assert.Equal(t, "disable", cfg.Postgres.SSLMode)
	assert.Equal(t, "ch.test", cfg.ClickHouse.Host)
	assert.Equal(t, 9000, cfg.ClickHouse.Port)
	assert.Equal(t, "market", cfg.ClickHouse.Database)
	assert.Equal(t, "redis.test:6379", cfg.Redis.Addr())
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestProcessIntegrationConfigRejectsBadPort(t *testing.T) {
	t.Setenv("POSTGRES_PORT", "five")

	_, err := processIntegrationConfig()
	assert.Error(t, err)
}

func TestFindEnvFileStopsAtModuleRoot(t *testing.T) {
	root := t.TempDir()
	nested := root + "/internal/pkg"
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(root+"/go.mod", []byte("module x\n"), 0o644))
	t.Chdir(nested)

	_, ok := findEnvFile()
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(root+"/"+envFile, []byte("REDIS_HOST=redis.test\n"), 0o644))
	path, ok := findEnvFile()
	assert.True(t, ok)
	assert.Equal(t, envFile, path[len(path)-len(envFile):])
}

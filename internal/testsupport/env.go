package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"newsimpact/internal/adapters/config"
)

const envFile = ".env.test"

// IntegrationConfig holds the backing-store sections integration tests connect to.
// Values come from the same envconfig tags and defaults as the service.
type IntegrationConfig struct {
	Postgres   config.PostgresConfig
	ClickHouse config.ClickHouseConfig
	Redis      config.RedisConfig
	Kafka      config.KafkaConfig
}

// integrationVars must be set explicitly; defaults point at localhost and would
// silently hit a developer database.
var integrationVars = []string{
	"POSTGRES_HOST", "POSTGRES_PASSWORD",
	"CLICKHOUSE_HOST",
	"REDIS_HOST",
}

// LoadIntegrationConfig loads .env.test from the module root when present and
// skips the test unless the integration variables are set.
func LoadIntegrationConfig(t *testing.T) IntegrationConfig {
	t.Helper()

	if path, ok := findEnvFile(); ok {
		// real environment wins over the file
		_ = godotenv.Load(path)
	}

	var missing []string
	for _, key := range integrationVars {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		t.Skipf("integration environment missing, set %v (or add %s) to run", missing, envFile)
	}

	cfg, err := processIntegrationConfig()
	if err != nil {
		t.Fatalf("invalid integration environment: %v", err)
	}
	return cfg
}

func processIntegrationConfig() (IntegrationConfig, error) {
	var cfg IntegrationConfig
	for _, section := range []interface{}{&cfg.Postgres, &cfg.ClickHouse, &cfg.Redis, &cfg.Kafka} {
		if err := envconfig.Process("", section); err != nil {
			return IntegrationConfig{}, err
		}
	}
	return cfg, nil
}

// findEnvFile walks up from the working directory to the directory holding go.mod
func findEnvFile() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			path := filepath.Join(dir, envFile)
			_, err := os.Stat(path)
			return path, err == nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

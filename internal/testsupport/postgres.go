package testsupport

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"

	"newsimpact/internal/adapters/config"
	"newsimpact/internal/adapters/postgres"
	"newsimpact/migrations"
)

// PostgresTestHelper holds one transaction per test. Repositories built on Tx()
// see their own writes and nothing survives the test.
type PostgresTestHelper struct {
	client     *postgres.Client
	tx         *sqlx.Tx
	rolledBack bool
}

// NewPostgresTestHelper connects, applies the embedded schema and begins the test transaction.
func NewPostgresTestHelper(t *testing.T, cfg config.PostgresConfig) *PostgresTestHelper {
	t.Helper()

	client, err := postgres.NewClient(cfg)
	if err != nil {
		t.Fatalf("failed to create postgres client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	if _, err := migrations.Run(ctx, migrations.DirPostgres, migrations.NewPostgresTarget(client.DB())); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	tx, err := client.DB().BeginTxx(ctx, nil)
	if err != nil {
		t.Fatalf("failed to start transaction: %v", err)
	}

	helper := &PostgresTestHelper{client: client, tx: tx}
	t.Cleanup(helper.Rollback)
	return helper
}

// Tx is the test transaction; pass it wherever a repository takes a DBTX
func (h *PostgresTestHelper) Tx() *sqlx.Tx {
	return h.tx
}

// DB bypasses the test transaction
func (h *PostgresTestHelper) DB() *sqlx.DB {
	return h.client.DB()
}

// Rollback discards everything written through Tx. Safe to call twice.
func (h *PostgresTestHelper) Rollback() {
	if h.rolledBack {
		return
	}
	_ = h.tx.Rollback()
	h.rolledBack = true
}

// NewTestPostgres is NewPostgresTestHelper with the integration environment
func NewTestPostgres(t *testing.T) *PostgresTestHelper {
	t.Helper()
	return NewPostgresTestHelper(t, LoadIntegrationConfig(t).Postgres)
}

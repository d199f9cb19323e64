//go:build integration

// Package testutil holds helpers shared by the integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresDSN returns a DSN. DB_DSN is used as-is when DB_DSN_TEST=1, otherwise a
// throwaway postgres container is started.
func PostgresDSN(t *testing.T) string {
	t.Helper()
	if os.Getenv("DB_DSN_TEST") == "1" && os.Getenv("DB_DSN") != "" {
		return os.Getenv("DB_DSN")
	}
	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "monthly",
			"POSTGRES_PASSWORD": "monthly",
			"POSTGRES_DB":       "monthly",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := pg.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate postgres container: %v", err)
		}
	})
	host, err := pg.Host(ctx)
	require.NoError(t, err)
	port, err := pg.MappedPort(ctx, "5432")
	require.NoError(t, err)
	return fmt.Sprintf("host=%s port=%s user=monthly password=monthly dbname=monthly sslmode=disable", host, port.Port())
}

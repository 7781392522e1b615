//go:build integration

package postgres_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/KarthikHK-01/queuectl/store"
	"github.com/KarthikHK-01/queuectl/store/postgres"
	"github.com/KarthikHK-01/queuectl/store/storetest"
)

var _ store.Store = (*postgres.Store)(nil)

// startPostgres launches a container and returns its connection string.
func startPostgres(t *testing.T) string {
	t.Helper()

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("queuectl_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if termErr := container.Terminate(ctx); termErr != nil {
			t.Logf("terminate container: %v", termErr)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}
	return connStr
}

func TestContract(t *testing.T) {
	connStr := startPostgres(t)
	ctx := context.Background()

	s, err := postgres.New(ctx, connStr, postgres.WithLogger(slog.Default()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	storetest.Run(t, func(t *testing.T) store.Store {
		if err := s.Migrate(ctx); err != nil {
			t.Fatalf("Migrate: %v", err)
		}
		if _, err := s.Pool().Exec(ctx, `TRUNCATE queuectl_jobs`); err != nil {
			t.Fatalf("truncate jobs: %v", err)
		}
		if _, err := s.Pool().Exec(ctx, `DELETE FROM queuectl_config WHERE key <> 'max_retries'`); err != nil {
			t.Fatalf("reset config: %v", err)
		}
		if _, err := s.Pool().Exec(ctx, `UPDATE queuectl_config SET value = '3' WHERE key = 'max_retries'`); err != nil {
			t.Fatalf("reset config: %v", err)
		}
		return s
	})
}

func TestMigrateConcurrent(t *testing.T) {
	connStr := startPostgres(t)
	ctx := context.Background()

	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		go func() {
			s, err := postgres.New(ctx, connStr)
			if err != nil {
				errs <- err
				return
			}
			defer s.Close()
			errs <- s.Migrate(ctx)
		}()
	}
	for i := 0; i < 3; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("Migrate: %v", err)
		}
	}
}

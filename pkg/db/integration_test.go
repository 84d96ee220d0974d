//go:build integration

package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/fred-gateway/pkg/events"
)

const dbIntegrationPrefix = "db:integration_test"

// setupIntegrationPool connects to AUDIT_DATABASE_URL, applies migrations and
// empties dispatch_log. The test is skipped when the variable is unset.
func setupIntegrationPool(t *testing.T) (context.Context, *pgxpool.Pool) {
	t.Helper()
	url := os.Getenv("AUDIT_DATABASE_URL")
	if url == "" {
		t.Skip("db:integration_test - AUDIT_DATABASE_URL not set, skipping")
	}
	ctx := context.Background()

	if err := EnsureDatabase(ctx, url); err != nil {
		t.Fatalf("%s - EnsureDatabase failed: %v", dbIntegrationPrefix, err)
	}
	pool, err := NewPool(ctx, url, PoolOptions{})
	if err != nil {
		t.Fatalf("%s - NewPool failed: %v", dbIntegrationPrefix, err)
	}
	t.Cleanup(pool.Close)

	migrations, err := LoadMigrationFiles(filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatalf("%s - LoadMigrationFiles failed: %v", dbIntegrationPrefix, err)
	}
	if err := RunMigrations(ctx, pool, migrations); err != nil {
		t.Fatalf("%s - RunMigrations failed: %v", dbIntegrationPrefix, err)
	}
	if _, err := ClearAuditLog(ctx, pool, time.Time{}); err != nil {
		t.Fatalf("%s - ClearAuditLog failed: %v", dbIntegrationPrefix, err)
	}
	return ctx, pool
}

func TestIntegration_MigrationsIdempotent(t *testing.T) {
	ctx, pool := setupIntegrationPool(t)
	migrations, _ := LoadMigrationFiles(filepath.Join("..", "..", "migrations"))
	if err := RunMigrations(ctx, pool, migrations); err != nil {
		t.Fatalf("%s - second RunMigrations failed: %v", dbIntegrationPrefix, err)
	}
	status, err := MigrationStatus(ctx, pool, migrations)
	if err != nil || status == "" {
		t.Fatalf("%s - MigrationStatus = %q, %v", dbIntegrationPrefix, status, err)
	}
}

func TestIntegration_AuditRoundTrip(t *testing.T) {
	ctx, pool := setupIntegrationPool(t)
	repo := NewRepository(pool)
	pub := NewAuditPublisher(repo, 0)

	now := time.Now().UTC()
	for i, outcome := range []string{"ok", "ok", "MissingParameter"} {
		err := pub.PublishDispatched(ctx, &events.DispatchEvent{
			RequestID:  "req-" + string(rune('a'+i)),
			Transport:  "rest",
			Operation:  "get_series",
			Outcome:    outcome,
			DurationMs: int64(i),
			Timestamp:  now.Add(time.Duration(i) * time.Millisecond).Format(time.RFC3339Nano),
		})
		if err != nil {
			t.Fatalf("%s - PublishDispatched failed: %v", dbIntegrationPrefix, err)
		}
	}

	recent, err := repo.RecentDispatches(ctx, 2)
	if err != nil {
		t.Fatalf("%s - RecentDispatches failed: %v", dbIntegrationPrefix, err)
	}
	if len(recent) != 2 || recent[0].RequestID != "req-c" || recent[0].Variant != "" {
		t.Errorf("%s - unexpected recent records %+v", dbIntegrationPrefix, recent)
	}

	summary, err := repo.OutcomeSummary(ctx, now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("%s - OutcomeSummary failed: %v", dbIntegrationPrefix, err)
	}
	counts := map[string]int64{}
	for _, c := range summary {
		counts[c.Outcome] = c.Count
	}
	if counts["ok"] != 2 || counts["MissingParameter"] != 1 {
		t.Errorf("%s - unexpected summary %+v", dbIntegrationPrefix, summary)
	}

	removed, err := ClearAuditLog(ctx, pool, now.Add(time.Hour))
	if err != nil || removed != 3 {
		t.Errorf("%s - ClearAuditLog removed %d, err %v", dbIntegrationPrefix, removed, err)
	}
}

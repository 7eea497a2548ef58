// README: PostgreSQL store tests; skipped unless RIDERHUB_TEST_DSN is set.
package earnings

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"riderhub/internal/infra"
)

func setupTestStore(t *testing.T) *PGStore {
	t.Helper()

	dsn := os.Getenv("RIDERHUB_TEST_DSN")
	if dsn == "" {
		t.Skip("RIDERHUB_TEST_DSN not set; skipping DB-backed store tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := infra.Migrate(ctx, db); err != nil {
		t.Fatalf("apply migration: %v", err)
	}
	if _, err := db.Exec(ctx, "TRUNCATE TABLE earnings_records"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	return NewPGStore(db)
}

func TestPGStoreRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	at := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	rating := 5
	r := completed("pg-1", at, 65, 15, 10)
	r.DistanceKm = 3.2
	r.DurationMinutes = 22
	r.CustomerRating = &rating

	if err := store.Append(ctx, r); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Append(ctx, r); err != nil {
		t.Fatalf("duplicate append: %v", err)
	}

	recs, err := store.ListByDriver(ctx, "drv-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	got := recs[0]
	if got.Total.Amount != 90 || got.Total.Currency != "INR" || got.Tip.Amount != 15 {
		t.Fatalf("unexpected money fields: %+v", got)
	}
	if got.CustomerRating == nil || *got.CustomerRating != 5 {
		t.Fatalf("expected rating 5, got %v", got.CustomerRating)
	}
	if !got.At.Equal(at) || got.Status != StatusCompleted {
		t.Fatalf("unexpected record: %+v", got)
	}

	l := NewLedger(store)
	if err := l.Load(ctx, "drv-1"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if s := l.Aggregate(PeriodDay, at.Add(time.Hour)); s.TotalEarnings != 90 {
		t.Fatalf("expected 90 after hydrate, got %d", s.TotalEarnings)
	}
}

package store

import (
	"context"
	"sync"
	"testing"

	"github.com/avelikov/echogate/internal/domain"
	"github.com/avelikov/echogate/internal/logging"
	"github.com/avelikov/echogate/internal/quota"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:", logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// --- DB/Migration tests ---

func TestOpen_InMemory(t *testing.T) {
	db := testDB(t)
	assert.NotNil(t, db)
	assert.NotNil(t, db.SQL())
}

func TestMigrations_Applied(t *testing.T) {
	db := testDB(t)

	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestMigrations_Idempotent(t *testing.T) {
	db := testDB(t)

	// Running migrate again should be a no-op
	err := db.migrate()
	require.NoError(t, err)

	var count int
	err = db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestSchema_TablesExist(t *testing.T) {
	db := testDB(t)

	var name string
	err := db.sql.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?", "usage_records",
	).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "usage_records", name)
}

// --- UsageStore tests ---

func TestUsageStore_GetCreatesRecord(t *testing.T) {
	s := NewUsageStore(testDB(t), 5)
	ctx := context.Background()

	exists, err := s.Exists(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, exists)

	rec, err := s.Get(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.Identity("alice@example.com"), rec.Identity)
	assert.Equal(t, 0, rec.PromptCount)
	assert.Equal(t, 5, rec.Cap)
	assert.False(t, rec.CreatedAt.IsZero())

	exists, err = s.Exists(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUsageStore_Increment(t *testing.T) {
	s := NewUsageStore(testDB(t), 2)
	ctx := context.Background()

	rec, err := s.Increment(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.PromptCount)

	rec, err = s.Increment(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.PromptCount)

	rec, err = s.Increment(ctx, "id-1")
	assert.ErrorIs(t, err, quota.ErrQuotaExceeded)
	assert.Equal(t, 2, rec.PromptCount, "count must not move past the cap")
}

func TestUsageStore_CanSendPrompt(t *testing.T) {
	s := NewUsageStore(testDB(t), 1)
	ctx := context.Background()

	ok, rec, err := s.CanSendPrompt(ctx, "id-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, rec.PromptCount)

	_, err = s.Increment(ctx, "id-1")
	require.NoError(t, err)

	ok, rec, err = s.CanSendPrompt(ctx, "id-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, rec.PromptCount)
}

func TestUsageStore_DefaultCap(t *testing.T) {
	s := NewUsageStore(testDB(t), 0)

	rec, err := s.Get(context.Background(), "id-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultPromptCap, rec.Cap)
}

func TestUsageStore_CapFixedAtCreation(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	s := NewUsageStore(db, 3)
	_, err := s.Get(ctx, "early-bird")
	require.NoError(t, err)

	// A later cap change applies to new records only.
	s2 := NewUsageStore(db, 10)
	rec, err := s2.Get(ctx, "early-bird")
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Cap)

	rec, err = s2.Get(ctx, "latecomer")
	require.NoError(t, err)
	assert.Equal(t, 10, rec.Cap)
}

func TestUsageStore_ConcurrentLastSlot(t *testing.T) {
	s := NewUsageStore(testDB(t), 5)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := s.Increment(ctx, "racer")
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Increment(ctx, "racer")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var successes, rejections int
	for err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, quota.ErrQuotaExceeded)
			rejections++
		}
	}
	assert.Equal(t, 1, successes, "exactly one racer may take the last slot")
	assert.Equal(t, 1, rejections)

	rec, err := s.Get(ctx, "racer")
	require.NoError(t, err)
	assert.Equal(t, 5, rec.PromptCount)
}

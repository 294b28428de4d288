package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/avelikov/echogate/internal/domain"
	"github.com/avelikov/echogate/internal/quota"
)

// UsageStore implements quota.Ledger backed by SQLite. All count movement
// happens inside the database so concurrent gateway requests cannot
// overspend an identity's budget.
type UsageStore struct {
	db  *DB
	cap int
}

// NewUsageStore creates a usage ledger using the given database. cap is
// the prompt budget assigned to newly created records.
func NewUsageStore(db *DB, cap int) *UsageStore {
	if cap <= 0 {
		cap = domain.DefaultPromptCap
	}
	return &UsageStore{db: db, cap: cap}
}

// Get returns the usage record for an identity, creating it if needed.
func (s *UsageStore) Get(ctx context.Context, id domain.Identity) (domain.UsageRecord, error) {
	if err := s.ensure(ctx, id); err != nil {
		return domain.UsageRecord{}, err
	}

	if _, err := s.db.sql.ExecContext(ctx,
		`UPDATE usage_records SET last_seen_at = ? WHERE identity = ?`,
		time.Now().UTC().Format(time.DateTime), string(id),
	); err != nil {
		return domain.UsageRecord{}, fmt.Errorf("touching usage record: %w", err)
	}

	return s.load(ctx, id)
}

// Exists reports whether a record exists without creating one.
func (s *UsageStore) Exists(ctx context.Context, id domain.Identity) (bool, error) {
	var count int
	err := s.db.sql.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM usage_records WHERE identity = ?`, string(id),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking usage record: %w", err)
	}
	return count > 0, nil
}

// CanSendPrompt reports whether the identity has remaining budget.
func (s *UsageStore) CanSendPrompt(ctx context.Context, id domain.Identity) (bool, domain.UsageRecord, error) {
	if err := s.ensure(ctx, id); err != nil {
		return false, domain.UsageRecord{}, err
	}
	rec, err := s.load(ctx, id)
	if err != nil {
		return false, domain.UsageRecord{}, err
	}
	return rec.PromptCount < rec.Cap, rec, nil
}

// Increment consumes one prompt via a conditional UPDATE. The WHERE clause
// carries the cap check, so of two racing increments with one slot left
// exactly one row update wins.
func (s *UsageStore) Increment(ctx context.Context, id domain.Identity) (domain.UsageRecord, error) {
	if err := s.ensure(ctx, id); err != nil {
		return domain.UsageRecord{}, err
	}

	res, err := s.db.sql.ExecContext(ctx,
		`UPDATE usage_records
		 SET prompt_count = prompt_count + 1, last_seen_at = ?
		 WHERE identity = ? AND prompt_count < cap`,
		time.Now().UTC().Format(time.DateTime), string(id),
	)
	if err != nil {
		return domain.UsageRecord{}, fmt.Errorf("incrementing usage: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return domain.UsageRecord{}, fmt.Errorf("incrementing usage: %w", err)
	}

	rec, loadErr := s.load(ctx, id)
	if loadErr != nil {
		return domain.UsageRecord{}, loadErr
	}
	if affected == 0 {
		return rec, quota.ErrQuotaExceeded
	}
	return rec, nil
}

// ensure creates the record if it does not exist yet.
func (s *UsageStore) ensure(ctx context.Context, id domain.Identity) error {
	now := time.Now().UTC().Format(time.DateTime)
	_, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO usage_records (identity, prompt_count, cap, created_at, last_seen_at)
		 VALUES (?, 0, ?, ?, ?)
		 ON CONFLICT (identity) DO NOTHING`,
		string(id), s.cap, now, now,
	)
	if err != nil {
		return fmt.Errorf("ensuring usage record: %w", err)
	}
	return nil
}

func (s *UsageStore) load(ctx context.Context, id domain.Identity) (domain.UsageRecord, error) {
	var rec domain.UsageRecord
	var identity, createdAt, lastSeenAt string

	err := s.db.sql.QueryRowContext(ctx,
		`SELECT identity, prompt_count, cap, created_at, last_seen_at
		 FROM usage_records WHERE identity = ?`, string(id),
	).Scan(&identity, &rec.PromptCount, &rec.Cap, &createdAt, &lastSeenAt)
	if err == sql.ErrNoRows {
		return domain.UsageRecord{}, fmt.Errorf("usage record for %q not found", id)
	}
	if err != nil {
		return domain.UsageRecord{}, fmt.Errorf("loading usage record: %w", err)
	}

	rec.Identity = domain.Identity(identity)
	rec.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	rec.LastSeenAt, _ = time.Parse(time.DateTime, lastSeenAt)
	return rec, nil
}

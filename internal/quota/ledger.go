// Package quota defines the usage ledger that gates prompt sends. The
// ledger is the single source of truth for per-identity prompt counts;
// nothing client-side is trusted.
package quota

import (
	"context"
	"errors"

	"github.com/avelikov/echogate/internal/domain"
)

// ErrQuotaExceeded is returned by Increment when the identity has no
// remaining prompt budget.
var ErrQuotaExceeded = errors.New("prompt quota exceeded")

// Ledger tracks prompt usage per identity.
type Ledger interface {
	// Get returns the usage record for an identity, creating it with a
	// zero count if it does not exist.
	Get(ctx context.Context, id domain.Identity) (domain.UsageRecord, error)

	// Exists reports whether a record already exists for the identity,
	// without creating one.
	Exists(ctx context.Context, id domain.Identity) (bool, error)

	// CanSendPrompt reports whether the identity has remaining budget.
	// Read-only: callers must not treat a true result as a reservation.
	CanSendPrompt(ctx context.Context, id domain.Identity) (bool, domain.UsageRecord, error)

	// Increment atomically consumes one prompt if budget remains, and
	// returns the updated record. When the record is already at its cap
	// it returns ErrQuotaExceeded; of two racing calls with one slot
	// left, exactly one succeeds.
	Increment(ctx context.Context, id domain.Identity) (domain.UsageRecord, error)
}

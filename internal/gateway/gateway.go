// Package gateway hosts the completion gateway: the orchestration that
// gates prompt sends behind the usage ledger, dispatches to a provider
// adapter, and commits quota only for successful completions. It also
// serves the HTTP surface the chat front-end consumes.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avelikov/echogate/internal/domain"
	"github.com/avelikov/echogate/internal/logging"
	"github.com/avelikov/echogate/internal/provider"
	"github.com/avelikov/echogate/internal/quota"
)

// completionTimeout bounds one gateway call end to end, backoff included.
const completionTimeout = 2 * time.Minute

// Gateway coordinates identity, quota, and provider dispatch for one
// completion request.
type Gateway struct {
	registry *provider.Registry
	ledger   quota.Ledger
	log      *logging.Logger
}

// New creates a completion gateway.
func New(registry *provider.Registry, ledger quota.Ledger, log *logging.Logger) *Gateway {
	return &Gateway{
		registry: registry,
		ledger:   ledger,
		log:      log.Sub("gateway"),
	}
}

// Handle runs one completion request through the full pipeline: identity
// check, quota check, provider dispatch, then quota commit. The ledger
// moves only when the provider succeeded; the returned record reflects the
// ledger state after the call.
func (g *Gateway) Handle(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResult, domain.UsageRecord) {
	if req.Identity.IsNone() {
		return domain.Failed(domain.KindUnauthenticated, "no identity"), domain.UsageRecord{}
	}

	if strings.TrimSpace(req.PromptText) == "" {
		return domain.Failed(domain.KindValidationError, "message must not be empty"), domain.UsageRecord{}
	}

	adapter, err := g.registry.Resolve(req.Provider)
	if err != nil {
		return domain.Failed(domain.KindValidationError, "unknown provider: "+req.Provider), domain.UsageRecord{}
	}

	ok, rec, err := g.ledger.CanSendPrompt(ctx, req.Identity)
	if err != nil {
		g.log.Error().Err(err).Str("identity", string(req.Identity)).Msg("quota check failed")
		return domain.Failed(domain.KindStorageError, "quota check failed"), rec
	}
	if !ok {
		return domain.Failed(domain.KindQuotaExceeded, quotaExceededMessage(rec)), rec
	}

	callCtx, cancel := context.WithTimeout(ctx, completionTimeout)
	defer cancel()

	start := time.Now()
	text, err := adapter.Complete(callCtx, req.PromptText, req.ModelID)
	if err != nil {
		kind, msg := classifyAdapterError(err)
		g.log.Warn().
			Str("provider", req.Provider).
			Str("kind", string(kind)).
			Dur("duration", time.Since(start)).
			Msg("completion failed")
		return domain.Failed(kind, msg), rec
	}

	// Commit the spend. The quota check above was only advisory; a racing
	// request may have taken the last slot while the provider ran.
	rec, err = g.ledger.Increment(ctx, req.Identity)
	if err != nil {
		if errors.Is(err, quota.ErrQuotaExceeded) {
			return domain.Failed(domain.KindQuotaExceeded, quotaExceededMessage(rec)), rec
		}
		g.log.Error().Err(err).Str("identity", string(req.Identity)).Msg("quota commit failed")
		return domain.Failed(domain.KindStorageError, "quota commit failed"), rec
	}

	g.log.Info().
		Str("provider", req.Provider).
		Int("promptCount", rec.PromptCount).
		Dur("duration", time.Since(start)).
		Msg("completion served")
	return domain.Success(text), rec
}

func quotaExceededMessage(rec domain.UsageRecord) string {
	return fmt.Sprintf("prompt quota exceeded (%d/%d)", rec.PromptCount, rec.Cap)
}

// classifyAdapterError maps an adapter failure to its stable kind.
func classifyAdapterError(err error) (domain.ErrorKind, string) {
	var perr *provider.ProviderError
	if errors.As(err, &perr) {
		return perr.Kind, perr.Error()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.KindUpstreamError, "provider call timed out"
	}
	return domain.KindUpstreamError, err.Error()
}

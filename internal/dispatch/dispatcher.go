package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/tagforge/internal/credential"
	"github.com/phrazzld/tagforge/internal/domain"
	"github.com/phrazzld/tagforge/internal/generation"
	"github.com/phrazzld/tagforge/internal/ratelimit"
	"github.com/phrazzld/tagforge/internal/redact"
	"github.com/phrazzld/tagforge/internal/retry"
	"github.com/phrazzld/tagforge/internal/scheduler"
)

// defaultRequestTimeout bounds a single live provider call so a stalled
// request cannot occupy a worker slot indefinitely.
const defaultRequestTimeout = 2 * time.Minute

// Config holds configuration options for a Dispatcher.
type Config struct {
	// Provider selects which credential pool and backend the dispatcher
	// drives.
	Provider domain.Provider

	// RequestTimeout bounds each live provider call. If zero, defaults to
	// two minutes.
	RequestTimeout time.Duration

	// Scheduler configures batch fan-out for BatchDescribe.
	Scheduler scheduler.Config

	// Retry configures the outer retry wrapper around each asset's
	// credential rotation. Classification hooks left nil get the generation
	// package defaults.
	Retry retry.Policy
}

// DefaultConfig returns a Config with reasonable defaults for the provider.
func DefaultConfig(provider domain.Provider) Config {
	return Config{
		Provider:       provider,
		RequestTimeout: defaultRequestTimeout,
		Scheduler:      scheduler.DefaultConfig(),
		Retry:          retry.DefaultPolicy(),
	}
}

// Dispatcher coordinates credential selection, rotation, retry, and batch
// scheduling for one provider.
type Dispatcher struct {
	pool      *credential.Pool
	describer generation.Describer
	limiter   *ratelimit.ProviderLimiter
	config    Config
	logger    *slog.Logger
}

// NewDispatcher creates a Dispatcher. The limiter may be nil to disable
// provider-level throttling.
func NewDispatcher(
	pool *credential.Pool,
	describer generation.Describer,
	limiter *ratelimit.ProviderLimiter,
	config Config,
	logger *slog.Logger,
) (*Dispatcher, error) {
	if pool == nil {
		return nil, errors.New("credential pool cannot be nil")
	}
	if describer == nil {
		return nil, errors.New("describer cannot be nil")
	}
	if !domain.IsValidProvider(config.Provider) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, config.Provider)
	}
	if logger == nil {
		logger = slog.Default()
	}

	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaultRequestTimeout
	}
	if config.Retry.Classify == nil {
		config.Retry.Classify = generation.Retryable
	}
	if config.Retry.RateLimitSignal == nil {
		config.Retry.RateLimitSignal = generation.IsRateLimited
	}

	return &Dispatcher{
		pool:      pool,
		describer: describer,
		limiter:   limiter,
		config:    config,
		logger:    logger,
	}, nil
}

// Dispatch produces metadata for one asset. Credential-level failures (401,
// 402, 429) are resolved locally by recording the outcome and rotating to
// the next eligible credential without consuming a retry attempt; transient
// failures and exhaustion of the whole eligible pool consume one attempt of
// the outer retry budget, since a later attempt may see recovered
// credentials.
func (d *Dispatcher) Dispatch(ctx context.Context, asset domain.Asset) (domain.AssetMetadata, error) {
	logger := d.logger.With(
		"asset_id", asset.ID,
		"asset_name", asset.Name,
		"provider", d.config.Provider,
	)

	var meta domain.AssetMetadata
	err := retry.Do(ctx, d.config.Retry, logger, func(ctx context.Context) error {
		m, err := d.describeOnce(ctx, asset, logger)
		if err != nil {
			return err
		}
		meta = m
		return nil
	})
	if err != nil {
		return domain.AssetMetadata{}, err
	}
	return meta, nil
}

// describeOnce is one rotation pass over the currently eligible credentials.
func (d *Dispatcher) describeOnce(ctx context.Context, asset domain.Asset, logger *slog.Logger) (domain.AssetMetadata, error) {
	eligible := d.pool.Eligible(d.config.Provider)
	if len(eligible) == 0 {
		return domain.AssetMetadata{}, fmt.Errorf("%w: no eligible credentials for %s",
			generation.ErrPoolExhausted, d.config.Provider)
	}

	var lastErr error
	for _, cred := range eligible {
		if d.limiter != nil {
			if err := d.limiter.Wait(ctx, d.config.Provider); err != nil {
				return domain.AssetMetadata{}, fmt.Errorf("waiting for provider rate limit: %w", err)
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, d.config.RequestTimeout)
		meta, err := d.describer.Describe(callCtx, asset, cred)
		cancel()

		if err == nil {
			if recErr := d.pool.RecordOutcome(d.config.Provider, cred.ID, domain.OutcomeSuccess); recErr != nil {
				logger.Warn("failed to record credential success", "credential_id", cred.ID, "error", recErr)
			}
			return meta, nil
		}

		if !generation.IsCredentialFailure(err) {
			// Transient, parse, or safety failure: nothing another
			// credential would fix. Hand it to the outer retry loop.
			return domain.AssetMetadata{}, err
		}

		outcome := outcomeForError(err)
		logger.Warn("credential failed, rotating to next",
			"credential_id", cred.ID,
			"outcome", outcome,
			"error", redact.Error(err))
		if recErr := d.pool.RecordOutcome(d.config.Provider, cred.ID, outcome); recErr != nil {
			logger.Warn("failed to record credential failure", "credential_id", cred.ID, "error", recErr)
		}
		lastErr = err
	}

	return domain.AssetMetadata{}, fmt.Errorf("%w: all %d eligible credentials failed for %s: %w",
		generation.ErrPoolExhausted, len(eligible), d.config.Provider, lastErr)
}

// BatchDescribe drives a batch of assets through the scheduler with Dispatch
// as the worker. The returned slice is index-aligned with assets; per-item
// failures land in their result slot and never abort the batch.
func (d *Dispatcher) BatchDescribe(ctx context.Context, assets []domain.Asset) []scheduler.Result[domain.AssetMetadata] {
	return scheduler.Run(ctx, d.config.Scheduler, d.logger, assets,
		func(ctx context.Context, asset domain.Asset) (domain.AssetMetadata, error) {
			return d.Dispatch(ctx, asset)
		})
}

// outcomeForError maps a credential failure onto the pool outcome that
// records it. Callers must have checked generation.IsCredentialFailure.
func outcomeForError(err error) domain.CallOutcome {
	switch {
	case generation.IsAuthError(err):
		return domain.OutcomeAuthFailure
	case generation.IsQuotaExhausted(err):
		return domain.OutcomeQuotaExhausted
	default:
		return domain.OutcomeRateLimited
	}
}

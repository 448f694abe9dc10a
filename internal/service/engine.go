package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/tagforge/internal/config"
	"github.com/phrazzld/tagforge/internal/credential"
	"github.com/phrazzld/tagforge/internal/dispatch"
	"github.com/phrazzld/tagforge/internal/domain"
	"github.com/phrazzld/tagforge/internal/generation"
	"github.com/phrazzld/tagforge/internal/platform/gemini"
	"github.com/phrazzld/tagforge/internal/platform/openaicompat"
	"github.com/phrazzld/tagforge/internal/ratelimit"
	"github.com/phrazzld/tagforge/internal/retry"
	"github.com/phrazzld/tagforge/internal/scheduler"
)

// ErrProviderNotConfigured is returned when an operation names a provider
// the engine was not built with.
var ErrProviderNotConfigured = errors.New("provider not configured")

// Engine wires the credential pool, rate limiter, provider adapters, and
// dispatchers together from one immutable Config snapshot. Changing
// configuration (e.g. toggling safe mode) means building a new Engine; a
// batch already running keeps the settings it started with.
type Engine struct {
	pool        *credential.Pool
	limiter     *ratelimit.ProviderLimiter
	dispatchers map[domain.Provider]*dispatch.Dispatcher
	logger      *slog.Logger
}

// NewEngine builds an Engine from configuration. Each configured provider
// gets its adapter, its prober registration, its rate limit, and its
// credentials loaded into the shared pool.
func NewEngine(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	pool := credential.NewPool(credential.PoolConfig{
		ProbeTimeout: cfg.RequestTimeout(),
	}, logger)
	limiter := ratelimit.New(0)

	engine := &Engine{
		pool:        pool,
		limiter:     limiter,
		dispatchers: make(map[domain.Provider]*dispatch.Dispatcher),
		logger:      logger,
	}

	concurrency, interTaskDelay := cfg.EffectiveScheduling()
	schedulerConfig := scheduler.Config{
		Concurrency:    concurrency,
		InterTaskDelay: interTaskDelay,
		ClaimJitter:    cfg.ClaimJitter(),
	}
	retryPolicy := retry.Policy{
		MaxRetries:      cfg.Retry.MaxRetries,
		BaseDelay:       time.Duration(cfg.Retry.BaseDelayMS) * time.Millisecond,
		Multiplier:      cfg.Retry.Multiplier,
		JitterBound:     time.Duration(cfg.Retry.JitterBoundMS) * time.Millisecond,
		RateLimitFactor: cfg.Retry.RateLimitFactor,
	}

	for _, pc := range cfg.Providers {
		provider := domain.Provider(pc.Name)

		describer, err := newAdapter(provider, pc, logger)
		if err != nil {
			return nil, fmt.Errorf("building %s adapter: %w", pc.Name, err)
		}

		if prober, ok := describer.(generation.Prober); ok {
			pool.RegisterProber(provider, prober)
		}
		if pc.RatePerSecond > 0 {
			limiter.SetLimit(provider, pc.RatePerSecond)
		}

		for _, key := range pc.APIKeys {
			cred, err := domain.NewCredential(provider, key)
			if err != nil {
				return nil, fmt.Errorf("loading %s credential: %w", pc.Name, err)
			}
			if err := pool.Add(cred); err != nil {
				return nil, fmt.Errorf("pooling %s credential: %w", pc.Name, err)
			}
		}

		dispatcher, err := dispatch.NewDispatcher(pool, describer, limiter, dispatch.Config{
			Provider:       provider,
			RequestTimeout: cfg.RequestTimeout(),
			Scheduler:      schedulerConfig,
			Retry:          retryPolicy,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("building %s dispatcher: %w", pc.Name, err)
		}
		engine.dispatchers[provider] = dispatcher

		logger.Info("provider configured",
			"provider", provider,
			"model", pc.Model,
			"credentials", len(pc.APIKeys),
			"rate_per_second", pc.RatePerSecond)
	}

	return engine, nil
}

// newAdapter constructs the provider-specific Describer.
func newAdapter(provider domain.Provider, pc config.ProviderConfig, logger *slog.Logger) (generation.Describer, error) {
	switch provider {
	case domain.ProviderGemini:
		return gemini.New(gemini.Config{Model: pc.Model}, logger)
	case domain.ProviderOpenAICompat:
		return openaicompat.New(openaicompat.Config{
			BaseURL: pc.BaseURL,
			Model:   pc.Model,
		}, logger)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, provider)
	}
}

// DescribeBatch drives a batch of assets through the provider's dispatcher.
// The returned slice is index-aligned with assets; per-item failures stay in
// their result slot.
func (e *Engine) DescribeBatch(ctx context.Context, provider domain.Provider, assets []domain.Asset) ([]scheduler.Result[domain.AssetMetadata], error) {
	dispatcher, ok := e.dispatchers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotConfigured, provider)
	}
	return dispatcher.BatchDescribe(ctx, assets), nil
}

// Describe produces metadata for a single asset.
func (e *Engine) Describe(ctx context.Context, provider domain.Provider, asset domain.Asset) (domain.AssetMetadata, error) {
	dispatcher, ok := e.dispatchers[provider]
	if !ok {
		return domain.AssetMetadata{}, fmt.Errorf("%w: %s", ErrProviderNotConfigured, provider)
	}
	return dispatcher.Dispatch(ctx, asset)
}

// ValidateCredentials probes every credential of a provider and returns the
// resulting status per credential ID.
func (e *Engine) ValidateCredentials(ctx context.Context, provider domain.Provider) (map[uuid.UUID]domain.CredentialStatus, error) {
	if _, ok := e.dispatchers[provider]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotConfigured, provider)
	}
	return e.pool.ValidateAll(ctx, provider)
}

// ValidateCredential probes one credential and returns its new status.
func (e *Engine) ValidateCredential(ctx context.Context, provider domain.Provider, id uuid.UUID) (domain.CredentialStatus, error) {
	if _, ok := e.dispatchers[provider]; !ok {
		return "", fmt.Errorf("%w: %s", ErrProviderNotConfigured, provider)
	}
	return e.pool.Validate(ctx, provider, id)
}

// Credentials returns a snapshot of the provider's pool, in preference
// order.
func (e *Engine) Credentials(provider domain.Provider) []domain.Credential {
	return e.pool.All(provider)
}

// AddCredential places a new secret into the provider's pool as the first
// candidate.
func (e *Engine) AddCredential(provider domain.Provider, secret string) (*domain.Credential, error) {
	if _, ok := e.dispatchers[provider]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotConfigured, provider)
	}
	cred, err := domain.NewCredential(provider, secret)
	if err != nil {
		return nil, err
	}
	if err := e.pool.Add(cred); err != nil {
		return nil, err
	}
	return cred, nil
}

// RemoveCredential deletes a credential from the provider's pool.
func (e *Engine) RemoveCredential(provider domain.Provider, id uuid.UUID) error {
	return e.pool.Remove(provider, id)
}

// PromoteCredential moves a credential to the front of its provider's pool,
// making it the first candidate for new attempts.
func (e *Engine) PromoteCredential(provider domain.Provider, id uuid.UUID) error {
	return e.pool.Promote(provider, id)
}

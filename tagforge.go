// Package tagforge generates stock-catalog metadata (title, description,
// keywords) for batches of media assets by driving rate-limited AI
// provider endpoints through a credential pool with retry and bounded
// concurrency.
//
// Typical use:
//
//	cfg, err := tagforge.LoadConfig()
//	engine, err := tagforge.New(cfg, nil) // nil logger: built from cfg.Log
//	results, err := engine.DescribeBatch(ctx, tagforge.ProviderGemini, assets)
//
// All user I/O and persistence belong to the caller; the engine only
// dispatches.
package tagforge

import (
	"errors"
	"log/slog"

	"github.com/phrazzld/tagforge/internal/config"
	"github.com/phrazzld/tagforge/internal/domain"
	"github.com/phrazzld/tagforge/internal/platform/logger"
	"github.com/phrazzld/tagforge/internal/scheduler"
	"github.com/phrazzld/tagforge/internal/service"
)

// Domain values consumed and produced by the engine.
type (
	Asset            = domain.Asset
	AssetMetadata    = domain.AssetMetadata
	Credential       = domain.Credential
	CredentialStatus = domain.CredentialStatus
	MediaType        = domain.MediaType
	Provider         = domain.Provider
)

// Supported providers.
const (
	ProviderGemini       = domain.ProviderGemini
	ProviderOpenAICompat = domain.ProviderOpenAICompat
)

// Media types.
const (
	MediaTypePhoto = domain.MediaTypePhoto
	MediaTypeVideo = domain.MediaTypeVideo
)

// Credential statuses.
const (
	CredentialStatusTesting     = domain.CredentialStatusTesting
	CredentialStatusValid       = domain.CredentialStatusValid
	CredentialStatusInvalid     = domain.CredentialStatusInvalid
	CredentialStatusRateLimited = domain.CredentialStatusRateLimited
	CredentialStatusExhausted   = domain.CredentialStatusExhausted
)

// Config is the full library configuration; see LoadConfig.
type Config = config.Config

// ProviderConfig configures one provider backend.
type ProviderConfig = config.ProviderConfig

// Engine is the dispatch surface; see New.
type Engine = service.Engine

// Result is one slot of a batch outcome, index-aligned with the input.
type Result = scheduler.Result[domain.AssetMetadata]

// ErrProviderNotConfigured is returned when an operation names a provider
// the engine was not built with.
var ErrProviderNotConfigured = service.ErrProviderNotConfigured

// NewAsset creates a validated Asset with a generated ID.
func NewAsset(name string, mediaType MediaType, payloadRef string) (*Asset, error) {
	return domain.NewAsset(name, mediaType, payloadRef)
}

// LoadConfig reads configuration from TAGFORGE_-prefixed environment
// variables, an optional tagforge.yaml, and a local .env file, applies
// defaults, and validates the result.
func LoadConfig() (*Config, error) {
	return config.Load()
}

// New builds an Engine from configuration. A nil logger gets a structured
// JSON logger built from cfg.Log, installed as the process default.
func New(cfg *Config, log *slog.Logger) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if log == nil {
		log = logger.Setup(cfg.Log)
	}
	return service.NewEngine(cfg, log)
}

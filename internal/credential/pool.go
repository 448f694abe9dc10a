package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tagforge/internal/domain"
	"github.com/phrazzld/tagforge/internal/generation"
	"github.com/phrazzld/tagforge/internal/redact"
)

// defaultProbeTimeout bounds a single validation probe so a stalled endpoint
// cannot hang a validation sweep.
const defaultProbeTimeout = 30 * time.Second

// ErrNoProber is returned when a provider has no registered prober.
var ErrNoProber = errors.New("no prober registered for provider")

// PoolConfig holds configuration options for the credential pool.
type PoolConfig struct {
	// ProbeTimeout bounds each validation probe. If zero, defaults to 30s.
	ProbeTimeout time.Duration
}

// DefaultPoolConfig returns a PoolConfig with reasonable defaults.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		ProbeTimeout: defaultProbeTimeout,
	}
}

// Pool manages the credentials of every provider. Each provider's list is
// ordered by preference: most recently added or validated first. Credentials
// are only ever offered for live calls while their status is valid or
// testing.
type Pool struct {
	mu      sync.Mutex
	pools   map[domain.Provider][]*domain.Credential
	probers map[domain.Provider]generation.Prober

	config PoolConfig
	logger *slog.Logger
}

// NewPool creates an empty credential pool.
func NewPool(config PoolConfig, logger *slog.Logger) *Pool {
	if config.ProbeTimeout <= 0 {
		config.ProbeTimeout = defaultProbeTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Pool{
		pools:   make(map[domain.Provider][]*domain.Credential),
		probers: make(map[domain.Provider]generation.Prober),
		config:  config,
		logger:  logger,
	}
}

// RegisterProber installs the validation prober for a provider. Validate
// calls for a provider without a prober fail with ErrNoProber.
func (p *Pool) RegisterProber(provider domain.Provider, prober generation.Prober) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probers[provider] = prober
}

// Add validates the credential and places it at the front of its provider's
// pool, making it the first candidate for new attempts.
func (p *Pool) Add(cred *domain.Credential) error {
	if cred == nil {
		return fmt.Errorf("%w: credential is nil", domain.ErrValidation)
	}
	if err := cred.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.pools[cred.Provider] = append([]*domain.Credential{cred}, p.pools[cred.Provider]...)
	p.logger.Debug("credential added to pool",
		"provider", cred.Provider,
		"credential_id", cred.ID,
		"secret", redact.Fingerprint(cred.Secret),
		"pool_size", len(p.pools[cred.Provider]))
	return nil
}

// Remove deletes a credential from its provider's pool.
func (p *Pool) Remove(provider domain.Provider, id uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	list := p.pools[provider]
	for i, cred := range list {
		if cred.ID == id {
			p.pools[provider] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return domain.ErrCredentialNotFound
}

// Eligible returns copies of the provider's credentials whose status permits
// new attempts (valid or testing), preserving pool order.
func (p *Pool) Eligible(provider domain.Provider) []domain.Credential {
	p.mu.Lock()
	defer p.mu.Unlock()

	var eligible []domain.Credential
	for _, cred := range p.pools[provider] {
		if cred.Eligible() {
			eligible = append(eligible, *cred)
		}
	}
	return eligible
}

// All returns copies of every credential in the provider's pool, in order.
func (p *Pool) All(provider domain.Provider) []domain.Credential {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]domain.Credential, 0, len(p.pools[provider]))
	for _, cred := range p.pools[provider] {
		out = append(out, *cred)
	}
	return out
}

// RecordOutcome updates a credential's status from a live call's result, so
// future Eligible calls reflect observed failures without a fresh probe.
func (p *Pool) RecordOutcome(provider domain.Provider, id uuid.UUID, outcome domain.CallOutcome) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	cred := p.find(provider, id)
	if cred == nil {
		return domain.ErrCredentialNotFound
	}

	prev := cred.Status
	if err := cred.ApplyOutcome(outcome); err != nil {
		return err
	}

	if cred.Status != prev {
		p.logger.Info("credential status changed by live outcome",
			"provider", provider,
			"credential_id", id,
			"outcome", outcome,
			"previous_status", prev,
			"status", cred.Status)
	}
	return nil
}

// Promote moves a credential to the front of its provider's pool.
func (p *Pool) Promote(provider domain.Provider, id uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	list := p.pools[provider]
	for i, cred := range list {
		if cred.ID == id {
			if i > 0 {
				copy(list[1:i+1], list[:i])
				list[0] = cred
			}
			return nil
		}
	}
	return domain.ErrCredentialNotFound
}

// Validate probes the provider with the credential's secret and applies the
// resulting status. A credential that probes valid is promoted to the front
// of its pool. The probe runs outside the pool lock so a slow endpoint never
// blocks concurrent RecordOutcome calls.
func (p *Pool) Validate(ctx context.Context, provider domain.Provider, id uuid.UUID) (domain.CredentialStatus, error) {
	p.mu.Lock()
	cred := p.find(provider, id)
	if cred == nil {
		p.mu.Unlock()
		return "", domain.ErrCredentialNotFound
	}
	prober, ok := p.probers[provider]
	secret := cred.Secret
	p.mu.Unlock()

	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoProber, provider)
	}

	probeCtx, cancel := context.WithTimeout(ctx, p.config.ProbeTimeout)
	defer cancel()

	probeErr := prober.Probe(probeCtx, secret)
	status := statusFromProbe(probeErr)

	p.mu.Lock()
	// The credential may have been removed while the probe was in flight.
	cred = p.find(provider, id)
	if cred == nil {
		p.mu.Unlock()
		return "", domain.ErrCredentialNotFound
	}
	if err := cred.ApplyValidation(status); err != nil {
		p.mu.Unlock()
		return "", err
	}
	p.mu.Unlock()

	p.logger.Info("credential validated",
		"provider", provider,
		"credential_id", id,
		"status", status,
		"probe_error", probeErr)

	if status == domain.CredentialStatusValid {
		// Most recently validated credential becomes the first candidate.
		if err := p.Promote(provider, id); err != nil {
			return status, err
		}
	}
	return status, nil
}

// ValidateAll probes every credential of a provider and returns the
// resulting status per credential ID.
func (p *Pool) ValidateAll(ctx context.Context, provider domain.Provider) (map[uuid.UUID]domain.CredentialStatus, error) {
	ids := make([]uuid.UUID, 0)
	p.mu.Lock()
	for _, cred := range p.pools[provider] {
		ids = append(ids, cred.ID)
	}
	p.mu.Unlock()

	results := make(map[uuid.UUID]domain.CredentialStatus, len(ids))
	for _, id := range ids {
		status, err := p.Validate(ctx, provider, id)
		if err != nil {
			return results, err
		}
		results[id] = status
	}
	return results, nil
}

// find returns the pooled credential with the given ID, or nil.
// Callers must hold p.mu.
func (p *Pool) find(provider domain.Provider, id uuid.UUID) *domain.Credential {
	for _, cred := range p.pools[provider] {
		if cred.ID == id {
			return cred
		}
	}
	return nil
}

// statusFromProbe maps a probe result onto a credential status:
//
//	nil (200)            -> valid
//	401                  -> invalid
//	402                  -> exhausted
//	429                  -> rate_limited
//	400, 404             -> valid (model mismatch in the probe payload, not an
//	                        auth failure; relaxed to avoid false negatives)
//	any other status     -> invalid
//	no response at all   -> testing (unknown; re-check later)
func statusFromProbe(err error) domain.CredentialStatus {
	if err == nil {
		return domain.CredentialStatusValid
	}

	code, ok := generation.StatusCode(err)
	if !ok {
		return domain.CredentialStatusTesting
	}

	switch code {
	case http.StatusUnauthorized:
		return domain.CredentialStatusInvalid
	case http.StatusPaymentRequired:
		return domain.CredentialStatusExhausted
	case http.StatusTooManyRequests:
		return domain.CredentialStatusRateLimited
	case http.StatusBadRequest, http.StatusNotFound:
		return domain.CredentialStatusValid
	default:
		return domain.CredentialStatusInvalid
	}
}

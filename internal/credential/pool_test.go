package credential

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/tagforge/internal/domain"
	"github.com/phrazzld/tagforge/internal/generation"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockProber returns a fixed error per secret, counting probes.
type mockProber struct {
	mu      sync.Mutex
	results map[string]error
	probes  int
}

func (m *mockProber) Probe(ctx context.Context, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probes++
	return m.results[secret]
}

func mustCredential(t *testing.T, provider domain.Provider, secret string) *domain.Credential {
	t.Helper()
	cred, err := domain.NewCredential(provider, secret)
	require.NoError(t, err)
	return cred
}

func TestPoolAddOrdersMostRecentFirst(t *testing.T) {
	t.Parallel()

	pool := NewPool(DefaultPoolConfig(), testLogger())
	first := mustCredential(t, domain.ProviderGemini, "sk-first")
	second := mustCredential(t, domain.ProviderGemini, "sk-second")

	require.NoError(t, pool.Add(first))
	require.NoError(t, pool.Add(second))

	all := pool.All(domain.ProviderGemini)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)
}

func TestPoolAddRejectsInvalidCredential(t *testing.T) {
	t.Parallel()

	pool := NewPool(DefaultPoolConfig(), testLogger())

	err := pool.Add(nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = pool.Add(&domain.Credential{ID: uuid.New(), Provider: domain.ProviderGemini})
	assert.ErrorIs(t, err, domain.ErrEmptySecret)
}

func TestPoolEligibleFiltersByStatus(t *testing.T) {
	t.Parallel()

	pool := NewPool(DefaultPoolConfig(), testLogger())

	statuses := []domain.CredentialStatus{
		domain.CredentialStatusValid,
		domain.CredentialStatusInvalid,
		domain.CredentialStatusTesting,
		domain.CredentialStatusRateLimited,
		domain.CredentialStatusExhausted,
	}

	var ids []uuid.UUID
	for i, status := range statuses {
		cred := mustCredential(t, domain.ProviderGemini, "sk-"+string(rune('a'+i)))
		cred.Status = status
		require.NoError(t, pool.Add(cred))
		ids = append(ids, cred.ID)
	}

	eligible := pool.Eligible(domain.ProviderGemini)
	require.Len(t, eligible, 2)
	// Pool order is most-recently-added first; testing (index 2) was added
	// after valid (index 0).
	assert.Equal(t, ids[2], eligible[0].ID)
	assert.Equal(t, ids[0], eligible[1].ID)
}

func TestPoolEligibleIsolatesProviders(t *testing.T) {
	t.Parallel()

	pool := NewPool(DefaultPoolConfig(), testLogger())
	require.NoError(t, pool.Add(mustCredential(t, domain.ProviderGemini, "sk-gem")))
	require.NoError(t, pool.Add(mustCredential(t, domain.ProviderOpenAICompat, "sk-oai")))

	assert.Len(t, pool.Eligible(domain.ProviderGemini), 1)
	assert.Len(t, pool.Eligible(domain.ProviderOpenAICompat), 1)
}

func TestPoolRemove(t *testing.T) {
	t.Parallel()

	pool := NewPool(DefaultPoolConfig(), testLogger())
	cred := mustCredential(t, domain.ProviderGemini, "sk-x")
	require.NoError(t, pool.Add(cred))

	require.NoError(t, pool.Remove(domain.ProviderGemini, cred.ID))
	assert.Empty(t, pool.All(domain.ProviderGemini))

	err := pool.Remove(domain.ProviderGemini, cred.ID)
	assert.ErrorIs(t, err, domain.ErrCredentialNotFound)
}

func TestPoolRecordOutcome(t *testing.T) {
	t.Parallel()

	pool := NewPool(DefaultPoolConfig(), testLogger())
	cred := mustCredential(t, domain.ProviderGemini, "sk-x")
	cred.Status = domain.CredentialStatusValid
	require.NoError(t, pool.Add(cred))

	require.NoError(t, pool.RecordOutcome(domain.ProviderGemini, cred.ID, domain.OutcomeRateLimited))
	assert.Equal(t, domain.CredentialStatusRateLimited, pool.All(domain.ProviderGemini)[0].Status)

	// Rate-limited credentials are no longer eligible and reject further outcomes.
	assert.Empty(t, pool.Eligible(domain.ProviderGemini))
	err := pool.RecordOutcome(domain.ProviderGemini, cred.ID, domain.OutcomeSuccess)
	assert.ErrorIs(t, err, domain.ErrInvalidStatusTransition)

	err = pool.RecordOutcome(domain.ProviderGemini, uuid.New(), domain.OutcomeSuccess)
	assert.ErrorIs(t, err, domain.ErrCredentialNotFound)
}

func TestPoolRecordOutcomeConcurrent(t *testing.T) {
	t.Parallel()

	pool := NewPool(DefaultPoolConfig(), testLogger())
	var ids []uuid.UUID
	for i := 0; i < 8; i++ {
		cred := mustCredential(t, domain.ProviderGemini, "sk-"+string(rune('a'+i)))
		cred.Status = domain.CredentialStatusValid
		require.NoError(t, pool.Add(cred))
		ids = append(ids, cred.ID)
	}

	// Concurrent demotions must not be lost.
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			assert.NoError(t, pool.RecordOutcome(domain.ProviderGemini, id, domain.OutcomeRateLimited))
		}(id)
	}
	wg.Wait()

	assert.Empty(t, pool.Eligible(domain.ProviderGemini))
	for _, cred := range pool.All(domain.ProviderGemini) {
		assert.Equal(t, domain.CredentialStatusRateLimited, cred.Status)
	}
}

func TestPoolPromote(t *testing.T) {
	t.Parallel()

	pool := NewPool(DefaultPoolConfig(), testLogger())
	a := mustCredential(t, domain.ProviderGemini, "sk-a")
	b := mustCredential(t, domain.ProviderGemini, "sk-b")
	c := mustCredential(t, domain.ProviderGemini, "sk-c")
	for _, cred := range []*domain.Credential{a, b, c} {
		require.NoError(t, pool.Add(cred))
	}
	// Order is now [c, b, a].

	require.NoError(t, pool.Promote(domain.ProviderGemini, a.ID))

	all := pool.All(domain.ProviderGemini)
	require.Len(t, all, 3)
	assert.Equal(t, a.ID, all[0].ID)
	assert.Equal(t, c.ID, all[1].ID)
	assert.Equal(t, b.ID, all[2].ID)

	err := pool.Promote(domain.ProviderGemini, uuid.New())
	assert.ErrorIs(t, err, domain.ErrCredentialNotFound)
}

func TestPoolValidateMapsProbeResults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		probeErr error
		want     domain.CredentialStatus
	}{
		{"200 ok", nil, domain.CredentialStatusValid},
		{"401 unauthorized", &generation.RequestError{StatusCode: 401}, domain.CredentialStatusInvalid},
		{"402 payment required", &generation.RequestError{StatusCode: 402}, domain.CredentialStatusExhausted},
		{"429 too many requests", &generation.RequestError{StatusCode: 429}, domain.CredentialStatusRateLimited},
		{"400 model mismatch", &generation.RequestError{StatusCode: 400}, domain.CredentialStatusValid},
		{"404 model mismatch", &generation.RequestError{StatusCode: 404}, domain.CredentialStatusValid},
		{"500 server error", &generation.RequestError{StatusCode: 500}, domain.CredentialStatusInvalid},
		{"network failure", errors.New("dial tcp: connection refused"), domain.CredentialStatusTesting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pool := NewPool(DefaultPoolConfig(), testLogger())
			cred := mustCredential(t, domain.ProviderGemini, "sk-probe")
			require.NoError(t, pool.Add(cred))
			pool.RegisterProber(domain.ProviderGemini, &mockProber{
				results: map[string]error{"sk-probe": tt.probeErr},
			})

			status, err := pool.Validate(context.Background(), domain.ProviderGemini, cred.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
			assert.Equal(t, tt.want, pool.All(domain.ProviderGemini)[0].Status)
			assert.False(t, pool.All(domain.ProviderGemini)[0].LastCheckedAt.IsZero())
		})
	}
}

func TestPoolValidatePromotesValidCredential(t *testing.T) {
	t.Parallel()

	pool := NewPool(DefaultPoolConfig(), testLogger())
	a := mustCredential(t, domain.ProviderGemini, "sk-a")
	b := mustCredential(t, domain.ProviderGemini, "sk-b")
	require.NoError(t, pool.Add(a))
	require.NoError(t, pool.Add(b))
	// Order is [b, a].

	pool.RegisterProber(domain.ProviderGemini, &mockProber{results: map[string]error{}})

	_, err := pool.Validate(context.Background(), domain.ProviderGemini, a.ID)
	require.NoError(t, err)

	assert.Equal(t, a.ID, pool.All(domain.ProviderGemini)[0].ID)
}

func TestPoolValidateRecoverRateLimited(t *testing.T) {
	t.Parallel()

	pool := NewPool(DefaultPoolConfig(), testLogger())
	cred := mustCredential(t, domain.ProviderGemini, "sk-x")
	cred.Status = domain.CredentialStatusRateLimited
	require.NoError(t, pool.Add(cred))
	pool.RegisterProber(domain.ProviderGemini, &mockProber{results: map[string]error{}})

	status, err := pool.Validate(context.Background(), domain.ProviderGemini, cred.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CredentialStatusValid, status)
	assert.Len(t, pool.Eligible(domain.ProviderGemini), 1)
}

func TestPoolValidateWithoutProber(t *testing.T) {
	t.Parallel()

	pool := NewPool(DefaultPoolConfig(), testLogger())
	cred := mustCredential(t, domain.ProviderGemini, "sk-x")
	require.NoError(t, pool.Add(cred))

	_, err := pool.Validate(context.Background(), domain.ProviderGemini, cred.ID)
	assert.ErrorIs(t, err, ErrNoProber)
}

func TestPoolValidateAll(t *testing.T) {
	t.Parallel()

	pool := NewPool(DefaultPoolConfig(), testLogger())
	good := mustCredential(t, domain.ProviderGemini, "sk-good")
	bad := mustCredential(t, domain.ProviderGemini, "sk-bad")
	require.NoError(t, pool.Add(good))
	require.NoError(t, pool.Add(bad))

	prober := &mockProber{results: map[string]error{
		"sk-good": nil,
		"sk-bad":  &generation.RequestError{StatusCode: 401},
	}}
	pool.RegisterProber(domain.ProviderGemini, prober)

	results, err := pool.ValidateAll(context.Background(), domain.ProviderGemini)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, domain.CredentialStatusValid, results[good.ID])
	assert.Equal(t, domain.CredentialStatusInvalid, results[bad.ID])
	assert.Equal(t, 2, prober.probes)

	eligible := pool.Eligible(domain.ProviderGemini)
	require.Len(t, eligible, 1)
	assert.Equal(t, good.ID, eligible[0].ID)
}

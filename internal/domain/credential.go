package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Provider identifies a distinct third-party AI backend with its own
// request/response shape.
type Provider string

// Supported providers
const (
	ProviderGemini       Provider = "gemini"
	ProviderOpenAICompat Provider = "openai_compatible"
)

// CredentialStatus represents the live state of a credential.
type CredentialStatus string

// Possible credential status values
const (
	// CredentialStatusTesting means the credential has never been probed, or
	// the last probe was inconclusive (no response); it is still offered for
	// live calls.
	CredentialStatusTesting CredentialStatus = "testing"

	// CredentialStatusValid means the last probe or live call succeeded.
	CredentialStatusValid CredentialStatus = "valid"

	// CredentialStatusInvalid means the provider rejected the credential
	// outright; it stays invalid until explicitly re-validated.
	CredentialStatusInvalid CredentialStatus = "invalid"

	// CredentialStatusRateLimited means the provider returned 429 for this
	// credential; recoverable via a fresh validation probe.
	CredentialStatusRateLimited CredentialStatus = "rate_limited"

	// CredentialStatusExhausted means the provider reported the credential's
	// quota spent (402); recoverable via a fresh validation probe.
	CredentialStatusExhausted CredentialStatus = "exhausted"
)

// CallOutcome classifies the result of a live provider call for the purpose
// of updating the credential that made it.
type CallOutcome string

// Possible live call outcomes
const (
	OutcomeSuccess        CallOutcome = "success"
	OutcomeAuthFailure    CallOutcome = "auth_failure"
	OutcomeQuotaExhausted CallOutcome = "quota_exhausted"
	OutcomeRateLimited    CallOutcome = "rate_limited"
)

// Common validation errors for Credential
var (
	ErrEmptyCredentialID = errors.New("credential ID cannot be empty")
	ErrEmptySecret       = errors.New("credential secret cannot be empty")
)

// Credential is a secret value plus live status, scoped to one provider.
type Credential struct {
	ID            uuid.UUID        `json:"id"`
	Provider      Provider         `json:"provider"`
	Secret        string           `json:"-"`
	Status        CredentialStatus `json:"status"`
	LastCheckedAt time.Time        `json:"last_checked_at"`
}

// NewCredential creates a new Credential in the testing status.
// Returns an error if validation fails.
func NewCredential(provider Provider, secret string) (*Credential, error) {
	cred := &Credential{
		ID:       uuid.New(),
		Provider: provider,
		Secret:   secret,
		Status:   CredentialStatusTesting,
	}

	if err := cred.Validate(); err != nil {
		return nil, err
	}

	return cred, nil
}

// Validate checks if the Credential has valid data.
// Returns an error if any field fails validation.
func (c *Credential) Validate() error {
	if c.ID == uuid.Nil {
		return ErrEmptyCredentialID
	}

	if !IsValidProvider(c.Provider) {
		return ErrUnknownProvider
	}

	if c.Secret == "" {
		return ErrEmptySecret
	}

	if !isValidCredentialStatus(c.Status) {
		return ErrInvalidCredentialStatus
	}

	return nil
}

// ApplyValidation records the result of a fresh validation probe. A probe is
// authoritative: it may move the credential out of any status, including
// invalid, and refreshes LastCheckedAt.
func (c *Credential) ApplyValidation(status CredentialStatus) error {
	if !isValidCredentialStatus(status) {
		return ErrInvalidCredentialStatus
	}

	c.Status = status
	c.LastCheckedAt = time.Now().UTC()
	return nil
}

// ApplyOutcome records the result of a live provider call. Only eligible
// credentials (valid or testing) make live calls, so outcomes are rejected
// for any other current status. A successful call promotes testing to valid;
// failures demote per the outcome.
func (c *Credential) ApplyOutcome(outcome CallOutcome) error {
	if c.Status != CredentialStatusValid && c.Status != CredentialStatusTesting {
		return ErrInvalidStatusTransition
	}

	switch outcome {
	case OutcomeSuccess:
		c.Status = CredentialStatusValid
	case OutcomeAuthFailure:
		c.Status = CredentialStatusInvalid
	case OutcomeQuotaExhausted:
		c.Status = CredentialStatusExhausted
	case OutcomeRateLimited:
		c.Status = CredentialStatusRateLimited
	default:
		return ErrInvalidOutcome
	}

	return nil
}

// Eligible reports whether the credential may be offered for new attempts.
func (c *Credential) Eligible() bool {
	return c.Status == CredentialStatusValid || c.Status == CredentialStatusTesting
}

// IsValidProvider checks if the given provider is supported.
func IsValidProvider(p Provider) bool {
	switch p {
	case ProviderGemini, ProviderOpenAICompat:
		return true
	default:
		return false
	}
}

// isValidCredentialStatus checks if the given status is a valid CredentialStatus.
func isValidCredentialStatus(status CredentialStatus) bool {
	switch status {
	case CredentialStatusTesting, CredentialStatusValid, CredentialStatusInvalid,
		CredentialStatusRateLimited, CredentialStatusExhausted:
		return true
	default:
		return false
	}
}

package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestNewCredential(t *testing.T) {
	t.Parallel()

	cred, err := NewCredential(ProviderGemini, "sk-test-secret")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cred.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}

	if cred.Status != CredentialStatusTesting {
		t.Errorf("Expected status %s, got %s", CredentialStatusTesting, cred.Status)
	}

	if !cred.LastCheckedAt.IsZero() {
		t.Error("Expected zero LastCheckedAt before first probe")
	}

	// Empty secret
	_, err = NewCredential(ProviderGemini, "")
	if !errors.Is(err, ErrEmptySecret) {
		t.Errorf("Expected error %v, got %v", ErrEmptySecret, err)
	}

	// Unknown provider
	_, err = NewCredential(Provider("acme"), "sk-test-secret")
	if !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("Expected error %v, got %v", ErrUnknownProvider, err)
	}
}

func TestCredentialApplyValidation(t *testing.T) {
	t.Parallel()

	cred, err := NewCredential(ProviderOpenAICompat, "sk-test-secret")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if err := cred.ApplyValidation(CredentialStatusInvalid); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cred.Status != CredentialStatusInvalid {
		t.Errorf("Expected status %s, got %s", CredentialStatusInvalid, cred.Status)
	}
	if cred.LastCheckedAt.IsZero() {
		t.Error("Expected LastCheckedAt to be set after probe")
	}

	// A fresh probe recovers even an invalid credential.
	if err := cred.ApplyValidation(CredentialStatusValid); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cred.Status != CredentialStatusValid {
		t.Errorf("Expected status %s, got %s", CredentialStatusValid, cred.Status)
	}

	if err := cred.ApplyValidation(CredentialStatus("frozen")); !errors.Is(err, ErrInvalidCredentialStatus) {
		t.Errorf("Expected error %v, got %v", ErrInvalidCredentialStatus, err)
	}
}

func TestCredentialApplyOutcome(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		start      CredentialStatus
		outcome    CallOutcome
		wantStatus CredentialStatus
		wantErr    error
	}{
		{"success promotes testing", CredentialStatusTesting, OutcomeSuccess, CredentialStatusValid, nil},
		{"success keeps valid", CredentialStatusValid, OutcomeSuccess, CredentialStatusValid, nil},
		{"auth failure demotes", CredentialStatusValid, OutcomeAuthFailure, CredentialStatusInvalid, nil},
		{"quota exhausted demotes", CredentialStatusValid, OutcomeQuotaExhausted, CredentialStatusExhausted, nil},
		{"rate limited demotes", CredentialStatusValid, OutcomeRateLimited, CredentialStatusRateLimited, nil},
		{"invalid is sticky", CredentialStatusInvalid, OutcomeSuccess, CredentialStatusInvalid, ErrInvalidStatusTransition},
		{"exhausted needs fresh probe", CredentialStatusExhausted, OutcomeSuccess, CredentialStatusExhausted, ErrInvalidStatusTransition},
		{"unknown outcome rejected", CredentialStatusValid, CallOutcome("shrug"), CredentialStatusValid, ErrInvalidOutcome},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cred := Credential{
				ID:       uuid.New(),
				Provider: ProviderGemini,
				Secret:   "sk-test-secret",
				Status:   tt.start,
			}

			err := cred.ApplyOutcome(tt.outcome)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected error %v, got %v", tt.wantErr, err)
			}
			if cred.Status != tt.wantStatus {
				t.Errorf("Expected status %s, got %s", tt.wantStatus, cred.Status)
			}
		})
	}
}

func TestCredentialEligible(t *testing.T) {
	t.Parallel()

	eligible := map[CredentialStatus]bool{
		CredentialStatusTesting:     true,
		CredentialStatusValid:       true,
		CredentialStatusInvalid:     false,
		CredentialStatusRateLimited: false,
		CredentialStatusExhausted:   false,
	}

	for status, want := range eligible {
		cred := Credential{Status: status}
		if got := cred.Eligible(); got != want {
			t.Errorf("Eligible() for status %s = %v, want %v", status, got, want)
		}
	}
}

package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrUnknownProvider is returned when a provider name is not recognized.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrInvalidCredentialStatus is returned when a credential status is not valid.
	ErrInvalidCredentialStatus = errors.New("invalid credential status")

	// ErrInvalidStatusTransition is returned when a live outcome would move a
	// credential into a status the state machine does not permit.
	ErrInvalidStatusTransition = errors.New("invalid credential status transition")

	// ErrCredentialNotFound is returned when a credential ID is not present
	// in its provider's pool.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrInvalidOutcome is returned when a recorded call outcome is not valid.
	ErrInvalidOutcome = errors.New("invalid call outcome")
)

package generation

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by Describer implementations and the dispatch layer.
var (
	// ErrTransient is returned for network-level failures with no HTTP
	// status: timeouts, connection resets, DNS errors. Always retryable.
	ErrTransient = errors.New("transient error calling provider")

	// ErrInvalidResponse is returned when the provider response cannot be
	// parsed or is missing required content. Treated as retryable: malformed
	// model output is usually not reproducible.
	ErrInvalidResponse = errors.New("invalid response from provider")

	// ErrContentBlocked is returned when the provider blocks the request due
	// to safety filters. Not retryable.
	ErrContentBlocked = errors.New("content blocked by provider safety filters")

	// ErrPoolExhausted is returned when no eligible credential remains for a
	// provider, or every eligible credential failed during one rotation pass.
	ErrPoolExhausted = errors.New("credential pool exhausted")

	// ErrInvalidConfig is returned when a provider adapter is constructed
	// with unusable configuration.
	ErrInvalidConfig = errors.New("invalid provider configuration")
)

// RequestError is a provider rejection carrying the HTTP status code the
// provider answered with. It is the unit of classification for credential
// rotation (401/402/429) and for retry decisions (5xx vs 4xx).
type RequestError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("provider request failed with status %d: %s", e.StatusCode, e.Message)
}

// StatusCode extracts the HTTP status code from an error chain.
// The second return is false when no RequestError is present, which the
// default classification treats as a network-level failure.
func StatusCode(err error) (int, bool) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode, true
	}
	return 0, false
}

// IsAuthError reports whether err is a credential rejection (401).
func IsAuthError(err error) bool {
	code, ok := StatusCode(err)
	return ok && code == http.StatusUnauthorized
}

// IsQuotaExhausted reports whether err is a spent-quota rejection (402).
func IsQuotaExhausted(err error) bool {
	code, ok := StatusCode(err)
	return ok && code == http.StatusPaymentRequired
}

// IsRateLimited reports whether err is a rate-limit rejection (429).
func IsRateLimited(err error) bool {
	code, ok := StatusCode(err)
	return ok && code == http.StatusTooManyRequests
}

// IsCredentialFailure reports whether err should be resolved by rotating to
// the next credential rather than by retrying with the same one.
func IsCredentialFailure(err error) bool {
	return IsAuthError(err) || IsQuotaExhausted(err) || IsRateLimited(err)
}

// Retryable is the default retry classification: retry on network-level
// failures (no status code), on 429, on 5xx, on unparseable provider output,
// and on pool exhaustion (a later attempt may see recovered credentials).
// Other 4xx responses and safety blocks are final.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrContentBlocked) {
		return false
	}

	if errors.Is(err, ErrTransient) || errors.Is(err, ErrInvalidResponse) || errors.Is(err, ErrPoolExhausted) {
		return true
	}

	if code, ok := StatusCode(err); ok {
		return code == http.StatusTooManyRequests || code >= 500
	}

	// No status code and no recognized sentinel: assume a network-level
	// failure wrapped by a transport we don't control.
	return true
}

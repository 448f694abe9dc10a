package generation

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	t.Parallel()

	code, ok := StatusCode(&RequestError{StatusCode: 429})
	assert.True(t, ok)
	assert.Equal(t, 429, code)

	// Wrapped RequestError is still found.
	wrapped := fmt.Errorf("calling provider: %w", &RequestError{StatusCode: 401})
	code, ok = StatusCode(wrapped)
	assert.True(t, ok)
	assert.Equal(t, 401, code)

	_, ok = StatusCode(ErrTransient)
	assert.False(t, ok)
}

func TestCredentialFailureClassification(t *testing.T) {
	t.Parallel()

	assert.True(t, IsAuthError(&RequestError{StatusCode: http.StatusUnauthorized}))
	assert.True(t, IsQuotaExhausted(&RequestError{StatusCode: http.StatusPaymentRequired}))
	assert.True(t, IsRateLimited(&RequestError{StatusCode: http.StatusTooManyRequests}))

	for _, code := range []int{401, 402, 429} {
		assert.True(t, IsCredentialFailure(&RequestError{StatusCode: code}), "status %d", code)
	}
	for _, code := range []int{400, 404, 500, 503} {
		assert.False(t, IsCredentialFailure(&RequestError{StatusCode: code}), "status %d", code)
	}
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient network", ErrTransient, true},
		{"wrapped transient", fmt.Errorf("describe: %w", ErrTransient), true},
		{"invalid response", ErrInvalidResponse, true},
		{"pool exhausted", ErrPoolExhausted, true},
		{"content blocked", ErrContentBlocked, false},
		{"rate limited", &RequestError{StatusCode: 429}, true},
		{"server error", &RequestError{StatusCode: 503}, true},
		{"bad request", &RequestError{StatusCode: 400}, false},
		{"unauthorized", &RequestError{StatusCode: 401}, false},
		{"unclassified error", fmt.Errorf("connection reset by peer"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}

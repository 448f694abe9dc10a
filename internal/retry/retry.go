package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// Default policy values applied when a Policy field is left zero.
const (
	defaultMaxRetries      = 3
	defaultBaseDelay       = 2 * time.Second
	defaultMultiplier      = 2.0
	defaultJitterBound     = 500 * time.Millisecond
	defaultRateLimitFactor = 4.0
)

// Policy describes how an operation is retried.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt, so the
	// operation runs at most MaxRetries+1 times. Negative values are treated
	// as zero (a single attempt).
	MaxRetries int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// Multiplier scales the delay for each subsequent retry. Values below 1
	// fall back to the default.
	Multiplier float64

	// JitterBound is the upper bound of the uniform random addition to each
	// computed delay, used to desynchronize concurrent retries.
	JitterBound time.Duration

	// RateLimitFactor scales the computed delay when RateLimitSignal reports
	// the error as a rate-limit rejection, cooling down harder than for a
	// generic transient failure.
	RateLimitFactor float64

	// Classify reports whether an error is worth retrying. A nil Classify
	// retries every error.
	Classify func(error) bool

	// RateLimitSignal reports whether an error is a rate-limit rejection.
	// A nil RateLimitSignal disables delay amplification.
	RateLimitSignal func(error) bool
}

// DefaultPolicy returns a Policy with the package defaults and no
// classification hooks.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:      defaultMaxRetries,
		BaseDelay:       defaultBaseDelay,
		Multiplier:      defaultMultiplier,
		JitterBound:     defaultJitterBound,
		RateLimitFactor: defaultRateLimitFactor,
	}
}

// normalized returns a copy of the policy with zero or out-of-range fields
// replaced by defaults.
func (p Policy) normalized() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = defaultBaseDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = defaultMultiplier
	}
	if p.JitterBound < 0 {
		p.JitterBound = 0
	}
	if p.RateLimitFactor < 1 {
		p.RateLimitFactor = defaultRateLimitFactor
	}
	return p
}

// backoff computes the delay before retry number attempt (0-indexed),
// excluding jitter: BaseDelay * Multiplier^attempt, amplified by
// RateLimitFactor when the failure was a rate-limit rejection.
func (p Policy) backoff(attempt int, rateLimited bool) time.Duration {
	delay := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt))
	if rateLimited {
		delay *= p.RateLimitFactor
	}
	if delay > float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(delay)
}

// delay is backoff plus uniform jitter in [0, JitterBound).
func (p Policy) delay(attempt int, rateLimited bool, rng *rand.Rand) time.Duration {
	d := p.backoff(attempt, rateLimited)
	if p.JitterBound > 0 {
		d += time.Duration(rng.Int63n(int64(p.JitterBound)))
	}
	return d
}

// Do runs op until it succeeds, returns a non-retryable error, or exhausts
// the policy's attempt budget. After the budget is exhausted the last error
// is returned unchanged. Sleeps between attempts respect ctx cancellation.
func Do(ctx context.Context, policy Policy, logger *slog.Logger, op func(context.Context) error) error {
	if logger == nil {
		logger = slog.Default()
	}
	policy = policy.normalized()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var err error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}

		if policy.Classify != nil && !policy.Classify(err) {
			logger.DebugContext(ctx, "error not retryable, giving up",
				"attempt", attempt+1,
				"error", err)
			return err
		}

		if attempt == policy.MaxRetries {
			logger.WarnContext(ctx, "retry budget exhausted",
				"attempts", attempt+1,
				"error", err)
			break
		}

		rateLimited := policy.RateLimitSignal != nil && policy.RateLimitSignal(err)
		delay := policy.delay(attempt, rateLimited, rng)

		logger.InfoContext(ctx, "retrying after delay",
			"attempt", attempt+1,
			"max_attempts", policy.MaxRetries+1,
			"delay", delay,
			"rate_limited", rateLimited,
			"error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			logger.WarnContext(ctx, "retry interrupted by context",
				"attempt", attempt+1,
				"ctx_err", ctx.Err())
			return fmt.Errorf("retry interrupted after attempt %d: %w", attempt+1, ctx.Err())
		}
	}

	return err
}

package config

import "time"

// Safe-mode overrides: a conservative profile for accounts that cannot
// afford to trip provider rate limits.
const (
	safeModeConcurrency    = 2
	safeModeInterTaskDelay = 2000 * time.Millisecond
)

// Config holds all library configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Log       LogConfig        `mapstructure:"log"       validate:"required"`
	Scheduler SchedulerConfig  `mapstructure:"scheduler" validate:"required"`
	Retry     RetryConfig      `mapstructure:"retry"     validate:"required"`
	Providers []ProviderConfig `mapstructure:"providers" validate:"omitempty,dive"`

	// SafeMode selects the conservative scheduling profile; see Effective.
	SafeMode bool `mapstructure:"safe_mode"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// SchedulerConfig contains batch scheduling settings. Durations are
// expressed in milliseconds so they can be set from plain env vars.
// ClaimJitterMS of zero disables claim jitter; the 200ms default comes from
// Load, not from the zero value.
type SchedulerConfig struct {
	Concurrency      int `mapstructure:"concurrency"        validate:"required,gt=0,lte=64"`
	InterTaskDelayMS int `mapstructure:"inter_task_delay_ms" validate:"gte=0"`
	ClaimJitterMS    int `mapstructure:"claim_jitter_ms"     validate:"gte=0"`
	RequestTimeoutMS int `mapstructure:"request_timeout_ms"  validate:"required,gt=0"`
}

// RetryConfig contains retry engine settings.
type RetryConfig struct {
	MaxRetries      int     `mapstructure:"max_retries"       validate:"gte=0,lte=20"`
	BaseDelayMS     int     `mapstructure:"base_delay_ms"     validate:"required,gt=0"`
	Multiplier      float64 `mapstructure:"multiplier"        validate:"required,gte=1"`
	JitterBoundMS   int     `mapstructure:"jitter_bound_ms"   validate:"gte=0"`
	RateLimitFactor float64 `mapstructure:"rate_limit_factor" validate:"required,gte=1"`
}

// ProviderConfig contains the settings for one provider: which model to
// drive, where to reach it, how hard it may be hit, and the credential
// secrets supplied by the presentation layer.
type ProviderConfig struct {
	Name          string   `mapstructure:"name"            validate:"required,oneof=gemini openai_compatible"`
	Model         string   `mapstructure:"model"           validate:"required"`
	BaseURL       string   `mapstructure:"base_url"        validate:"omitempty,url"`
	RatePerSecond float64  `mapstructure:"rate_per_second" validate:"gte=0"`
	APIKeys       []string `mapstructure:"api_keys"        validate:"omitempty,dive,min=1"`
}

// EffectiveScheduling returns the concurrency limit and inter-task delay a
// new batch should run with. Safe mode wins over the configured values.
func (c *Config) EffectiveScheduling() (concurrency int, interTaskDelay time.Duration) {
	if c.SafeMode {
		return safeModeConcurrency, safeModeInterTaskDelay
	}
	return c.Scheduler.Concurrency, time.Duration(c.Scheduler.InterTaskDelayMS) * time.Millisecond
}

// ClaimJitter returns the scheduler claim jitter as a duration. An explicit
// zero means disabled and is returned as a negative duration, so it is never
// mistaken downstream for "use the default".
func (c *Config) ClaimJitter() time.Duration {
	if c.Scheduler.ClaimJitterMS <= 0 {
		return -1
	}
	return time.Duration(c.Scheduler.ClaimJitterMS) * time.Millisecond
}

// RequestTimeout returns the per-call timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Scheduler.RequestTimeoutMS) * time.Millisecond
}

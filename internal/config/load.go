package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional config
// file. Environment variables take precedence over values from the file; a
// local .env file, if present, is loaded first so development setups need no
// exported shell state. Returns a populated Config or an error if loading or
// validation fails.
func Load() (*Config, error) {
	// Missing .env is the normal case outside development.
	_ = godotenv.Load()

	v := viper.New()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("scheduler.concurrency", 5)
	v.SetDefault("scheduler.inter_task_delay_ms", 200)
	v.SetDefault("scheduler.claim_jitter_ms", 200)
	v.SetDefault("scheduler.request_timeout_ms", 120000)
	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.base_delay_ms", 2000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_bound_ms", 500)
	v.SetDefault("retry.rate_limit_factor", 4.0)
	v.SetDefault("safe_mode", false)

	// Environment variables with TAGFORGE_ prefix; nested keys use
	// underscores, e.g. TAGFORGE_SCHEDULER_CONCURRENCY.
	v.SetEnvPrefix("TAGFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Optional config file next to the process or in an explicit location.
	v.SetConfigName("tagforge")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks a Config against its struct tags.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}

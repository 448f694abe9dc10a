// Package config handles configuration loading, parsing, and validation
// from environment variables and optional config files. It provides
// type-safe access to the dispatch layer's settings (scheduling, retry,
// providers, safe mode) while keeping configuration details separate from
// business logic. Loaded configuration is immutable; runtime toggles such as
// safe mode apply to batches started after the change, never to one in
// flight.
package config

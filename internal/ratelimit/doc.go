// Package ratelimit smooths live traffic toward each provider. Credentials
// multiply the number of requests a batch can legally make, but a provider
// is still one endpoint; a per-provider token bucket keeps concurrent
// workers from hammering it.
package ratelimit

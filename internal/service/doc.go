// Package service assembles the dispatch layer from configuration: one
// credential pool and rate limiter shared across providers, and one
// dispatcher per configured provider. The Engine is the surface a
// presentation layer talks to; it owns no user I/O and no persistence.
package service

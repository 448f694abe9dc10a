// Package domain contains the core business entities, value objects, and
// domain logic of the application: assets awaiting metadata, the metadata
// itself, and provider credentials with their live status. It is independent
// of any specific infrastructure or delivery mechanism.
package domain

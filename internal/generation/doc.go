// Package generation provides the interface and error taxonomy for
// interacting with external AI services that describe media assets. It
// abstracts the details of provider API integration (Gemini,
// OpenAI-compatible backends), allowing the dispatch layer to request
// metadata without coupling to specific external services.
package generation

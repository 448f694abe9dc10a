// Package openaicompat implements the generation interfaces for any backend
// speaking the OpenAI chat-completions wire format. One Client serves both
// live metadata generation and the minimal credential validation probe.
package openaicompat
